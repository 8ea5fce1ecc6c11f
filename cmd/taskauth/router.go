package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/taskAuth"
	"github.com/MrEthical07/taskAuth/metrics/export/prometheus"
	"github.com/MrEthical07/taskAuth/middleware"
	"github.com/MrEthical07/taskAuth/password"
	"github.com/MrEthical07/taskAuth/store"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 16

// ownershipInvalidator drops cached ownership answers after deletes.
// *cache.OwnershipCache implements it.
type ownershipInvalidator interface {
	Invalidate(ctx context.Context, userID, taskID int64) error
	InvalidateUser(ctx context.Context, userID int64) error
}

type noInvalidation struct{}

func (noInvalidation) Invalidate(context.Context, int64, int64) error { return nil }
func (noInvalidation) InvalidateUser(context.Context, int64) error { return nil }

type api struct {
	engine      *taskAuth.Engine
	store       *store.Store
	invalidator ownershipInvalidator
	logger      *slog.Logger
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type userResponse struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Username string          `json:"username"`
	Roles    []taskAuth.Role `json:"roles,omitempty"`
}

// newRouter builds the HTTP API. inv may be nil when no ownership cache is in use.
func newRouter(engine *taskAuth.Engine, s *store.Store, inv ownershipInvalidator, logger *slog.Logger) http.Handler {
	if inv == nil {
		inv = noInvalidation{}
	}
	a := &api{engine: engine, store: s, invalidator: inv, logger: logger}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.ClientIP)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", prometheus.New(engine).Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", a.login)
			r.Post("/register", a.register)
			r.Post("/refresh", a.refresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(engine))

			// The id-in-body forms guard inside the handler once the body is decoded.
			r.Put("/users", a.updateUserFromBody)
			r.Put("/tasks", a.updateTaskFromBody)

			r.Route("/users/{id}", func(r chi.Router) {
				r.Use(middleware.RequireUser(engine, "id"))
				r.Get("/", a.getUser)
				r.Put("/", a.updateUser)
				r.Delete("/", a.deleteUser)
				r.Get("/tasks", a.listTasks)
				r.Post("/tasks", a.createTask)
			})
			r.Route("/tasks/{id}", func(r chi.Router) {
				r.Use(middleware.RequireTask(engine, "id"))
				r.Get("/", a.getTask)
				r.Put("/", a.updateTask)
				r.Delete("/", a.deleteTask)
			})
		})
	})

	return r
}

func (a *api) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !a.decode(w, r, &req) {
		return
	}

	res, err := a.engine.IssueLoginTokens(r.Context(), req.Username, req.Password)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// refresh accepts either {"refreshToken": "..."} or the bare token as the body.
func (a *api) refresh(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		badRequest(w, "Invalid request body.")
		return
	}

	token := strings.TrimSpace(string(body))
	if strings.HasPrefix(token, "{") {
		var req refreshRequest
		if err := json.Unmarshal(body, &req); err != nil {
			badRequest(w, "Invalid request body.")
			return
		}
		token = req.RefreshToken
	}

	res, err := a.engine.RefreshTokens(r.Context(), token)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

func (a *api) register(w http.ResponseWriter, r *http.Request) {
	var req store.NewUser
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Name) == "" {
		badRequest(w, "Validation failed.")
		return
	}

	p, err := a.store.CreateUser(r.Context(), req)
	switch {
	case errors.Is(err, store.ErrUserExists):
		badRequest(w, "User already exists.")
		return
	case errors.Is(err, store.ErrPasswordMismatch):
		badRequest(w, "Password and password confirmation do not match.")
		return
	case errors.Is(err, password.ErrPasswordLength):
		badRequest(w, "Validation failed.")
		return
	case err != nil:
		a.fail(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, toUserResponse(p))
}

func (a *api) getUser(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	p, err := a.store.FindPrincipalByID(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toUserResponse(p))
}

func (a *api) listTasks(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	tasks, err := a.store.ListTasks(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tasks)
}

func (a *api) createTask(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	var req store.Task
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		badRequest(w, "Validation failed.")
		return
	}
	req.ID = 0

	task, err := a.store.CreateTask(r.Context(), id, req)
	if err != nil {
		a.failTask(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, task)
}

func (a *api) getTask(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	task, err := a.store.GetTask(r.Context(), id)
	if err != nil {
		a.failTask(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, task)
}

func (a *api) updateTask(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	var req store.Task
	if !a.decode(w, r, &req) {
		return
	}
	req.ID = id
	a.saveTask(w, r, req)
}

// updateTaskFromBody serves PUT /tasks, where the task id travels in the body.
func (a *api) updateTaskFromBody(w http.ResponseWriter, r *http.Request) {
	var req store.Task
	if !a.decode(w, r, &req) {
		return
	}
	p, _ := middleware.PrincipalFromContext(r.Context())
	if err := a.engine.RequireTaskAccess(r.Context(), p, req.ID); err != nil {
		a.fail(w, r, err)
		return
	}
	a.saveTask(w, r, req)
}

func (a *api) saveTask(w http.ResponseWriter, r *http.Request, t store.Task) {
	if strings.TrimSpace(t.Title) == "" {
		badRequest(w, "Validation failed.")
		return
	}
	task, err := a.store.UpdateTask(r.Context(), t)
	if err != nil {
		a.failTask(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, task)
}

func (a *api) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	if err := a.store.DeleteTask(r.Context(), id); err != nil {
		a.failTask(w, r, err)
		return
	}
	// RequireTask let the caller through, so the caller is the owner.
	p, _ := middleware.PrincipalFromContext(r.Context())
	if err := a.invalidator.Invalidate(r.Context(), p.ID, id); err != nil {
		a.logger.WarnContext(r.Context(), "ownership cache invalidate failed", "task_id", id, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) updateUser(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	var req store.UserUpdate
	if !a.decode(w, r, &req) {
		return
	}
	req.ID = id
	a.saveUser(w, r, req)
}

// updateUserFromBody serves PUT /users, where the user id travels in the body.
func (a *api) updateUserFromBody(w http.ResponseWriter, r *http.Request) {
	var req store.UserUpdate
	if !a.decode(w, r, &req) {
		return
	}
	p, _ := middleware.PrincipalFromContext(r.Context())
	if err := a.engine.RequireUserAccess(r.Context(), p, req.ID); err != nil {
		a.fail(w, r, err)
		return
	}
	a.saveUser(w, r, req)
}

func (a *api) saveUser(w http.ResponseWriter, r *http.Request, u store.UserUpdate) {
	if strings.TrimSpace(u.Username) == "" || strings.TrimSpace(u.Name) == "" {
		badRequest(w, "Validation failed.")
		return
	}

	p, err := a.store.UpdateUser(r.Context(), u)
	switch {
	case errors.Is(err, store.ErrUserExists):
		badRequest(w, "User already exists.")
	case errors.Is(err, store.ErrPasswordMismatch):
		badRequest(w, "Password and password confirmation do not match.")
	case errors.Is(err, password.ErrPasswordLength):
		badRequest(w, "Validation failed.")
	case err != nil:
		a.fail(w, r, err)
	default:
		middleware.WriteJSON(w, http.StatusOK, toUserResponse(p))
	}
}

func (a *api) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	if err := a.store.DeleteUser(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.invalidator.InvalidateUser(r.Context(), id); err != nil {
		a.logger.WarnContext(r.Context(), "ownership cache invalidate failed", "user_id", id, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		badRequest(w, "Invalid request body.")
		return false
	}
	return true
}

func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	if taskAuth.Classify(err) == taskAuth.OutcomeInternal {
		a.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chimw.GetReqID(r.Context()),
			"error", err,
		)
	}
	middleware.WriteError(w, err)
}

// failTask maps task store errors that Classify does not know about.
func (a *api) failTask(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrTaskNotFound):
		middleware.WriteJSON(w, http.StatusNotFound, map[string]string{"message": "Task not found."})
	case errors.Is(err, store.ErrInvalidTaskStatus):
		badRequest(w, "Validation failed.")
	default:
		a.fail(w, r, err)
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{"message": msg})
}

func toUserResponse(p taskAuth.Principal) userResponse {
	return userResponse{
		ID:       p.ID,
		Name:     p.DisplayName,
		Username: p.Username,
		Roles:    p.Roles,
	}
}
