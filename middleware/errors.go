package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/taskAuth"
)

type errorBody struct {
	Message string `json:"message"`
}

// StatusFor maps an Engine error to an HTTP status.
func StatusFor(err error) int {
	switch taskAuth.Classify(err) {
	case taskAuth.OutcomeOK:
		return http.StatusOK
	case taskAuth.OutcomeUnauthenticated:
		return http.StatusUnauthorized
	case taskAuth.OutcomeForbidden:
		return http.StatusForbidden
	case taskAuth.OutcomeBadCredential:
		return http.StatusBadRequest
	case taskAuth.OutcomeNotFound:
		return http.StatusNotFound
	case taskAuth.OutcomeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as {"message": ...}. The message never echoes err itself,
// so collaborator failures do not leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)

	var msg string
	switch taskAuth.Classify(err) {
	case taskAuth.OutcomeUnauthenticated:
		msg = "Unauthorized."
	case taskAuth.OutcomeForbidden:
		msg = "Access denied."
	case taskAuth.OutcomeBadCredential:
		msg = "Authentication failed"
	case taskAuth.OutcomeNotFound:
		msg = "User not found."
	case taskAuth.OutcomeRateLimited:
		msg = "Too many requests."
	default:
		msg = "Internal error."
	}

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="taskauth"`)
	}
	writeJSON(w, status, errorBody{Message: msg})
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
