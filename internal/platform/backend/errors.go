package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrSessionExpired is returned when a 401 cannot be recovered by a token
// refresh. The session has been logged out by the time it is returned.
var ErrSessionExpired error = sessionExpired{}

type sessionExpired struct{}

func (sessionExpired) Error() string   { return "backend session expired" }
func (sessionExpired) HTTPStatus() int { return http.StatusUnauthorized }

// Error is a non-2xx response from the lab backend.
type Error struct {
	StatusCode int
	Message    string
	Method     string
	Path       string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend %s %s: %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("backend %s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// HTTPStatus maps the backend status to the status the gateway returns:
// client errors pass through, everything else becomes 502.
func (e *Error) HTTPStatus() int {
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return e.StatusCode
	}
	return http.StatusBadGateway
}

// UserMessage is the backend's own message, which the dashboard shows for
// validation failures.
func (e *Error) UserMessage() string { return e.Message }

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// StatusCode returns the backend status carried by err, or 0.
func StatusCode(err error) int {
	var be *Error
	if errors.As(err, &be) {
		return be.StatusCode
	}
	return 0
}

// errorMessage extracts a message from a backend error body. The backend
// answers {"message": "..."} or {"message": ["...", "..."]} for validation
// errors.
func errorMessage(body []byte) string {
	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	var single string
	if err := json.Unmarshal(payload.Message, &single); err == nil && single != "" {
		return single
	}
	var many []string
	if err := json.Unmarshal(payload.Message, &many); err == nil && len(many) > 0 {
		return strings.Join(many, "; ")
	}
	return payload.Error
}
