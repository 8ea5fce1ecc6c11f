package middleware

import (
	"net/http"
	"strconv"

	"github.com/MrEthical07/taskAuth"
	"github.com/go-chi/chi/v5"
)

// RequireUser allows the request only when the authenticated principal may act on
// the user id in URL parameter param. It must run after Authenticate.
func RequireUser(engine *taskAuth.Engine, param string) func(http.Handler) http.Handler {
	return requireResource(param, func(r *http.Request, p *taskAuth.Principal, id int64) error {
		return engine.RequireUserAccess(r.Context(), p, id)
	})
}

// RequireTask allows the request only when the authenticated principal owns the
// task id in URL parameter param. It must run after Authenticate.
func RequireTask(engine *taskAuth.Engine, param string) func(http.Handler) http.Handler {
	return requireResource(param, func(r *http.Request, p *taskAuth.Principal, id int64) error {
		return engine.RequireTaskAccess(r.Context(), p, id)
	})
}

func requireResource(param string, guard func(*http.Request, *taskAuth.Principal, int64) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				WriteError(w, taskAuth.ErrMalformed)
				return
			}

			id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody{Message: "Invalid id."})
				return
			}

			if err := guard(r, p, id); err != nil {
				WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
