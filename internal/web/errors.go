package web

// errors.go provides unified error response handling for the web layer.
//
// All errors are:
//   - Logged with full technical details and the request ID (server-side)
//   - Returned to clients as user-friendly messages with action suggestions
//   - Formatted for the caller: HTMX fragment, JSON, or plain text

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/basketfreq/internal/core"
	"github.com/JonMunkholm/basketfreq/internal/extract"
	"github.com/JonMunkholm/basketfreq/internal/frequency"
	"github.com/JonMunkholm/basketfreq/internal/history"
	"github.com/JonMunkholm/basketfreq/internal/logging"
	"github.com/JonMunkholm/basketfreq/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

var errRateLimited = errors.New("rate limit exceeded")

// statusFor picks the HTTP status for a pipeline or history error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, extract.ErrNoItemData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, frequency.ErrEmpty), errors.Is(err, history.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyAnalyses), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped user message in the format
// the request asks for.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userErr := core.NewUserError(err)

	logger := logging.FromContext(r.Context())
	log := logger.Error
	if statusCode < http.StatusInternalServerError && core.IsUserFacing(err) {
		log = logger.Warn
	}
	log("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", userErr.Technical.Error(),
		"code", userErr.User.Code,
	)

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, userErr.User, statusCode)
	case wantsJSON(r):
		respondErrorJSON(w, userErr.User, statusCode)
	default:
		respondErrorText(w, userErr, statusCode)
	}
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// respondErrorText writes "Message (Code: XXX). Action" as plain text.
func respondErrorText(w http.ResponseWriter, userErr *core.UserError, statusCode int) {
	http.Error(w, core.FormatUserError(userErr), statusCode)
}

// alertFor converts a pipeline error into the dashboard alert.
func alertFor(err error) *templates.Alert {
	userErr := core.NewUserError(err)
	return &templates.Alert{
		Message: userErr.User.Message,
		Action:  userErr.User.Action,
		Code:    userErr.User.Code,
	}
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}

	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// writeJSON encodes v as JSON with the given status.
// Encoding errors are logged since headers are already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
