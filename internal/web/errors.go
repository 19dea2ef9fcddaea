package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err); the status comes from statusFor
//  3. Error is mapped via core.MapError to a user-facing message and code
//  4. Technical error is logged with the request id for correlation
//  5. User message is rendered as an HTMX fragment, JSON or plain text

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/lexia/internal/core"
	"github.com/JonMunkholm/lexia/internal/logging"
	"github.com/JonMunkholm/lexia/internal/tablequery"
	"github.com/JonMunkholm/lexia/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrViewNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidFilter), errors.Is(err, tablequery.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyExports):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrMalformedData):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrSourceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the technical error server-side and returns a
// user-facing message in the format the client expects.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, userMsg, status)
	case wantsJSON(r):
		respondErrorJSON(w, userMsg, status)
	default:
		respondErrorHTML(w, userMsg, status)
	}
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// respondErrorHTML writes a plain error response.
func respondErrorHTML(w http.ResponseWriter, msg core.UserMessage, status int) {
	http.Error(w, msg.Message+" ("+msg.Code+")", status)
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	// HTMX does not swap 4xx/5xx by default; retarget so the alert shows.
	w.Header().Set("HX-Retarget", "#table-container")
	w.Header().Set("HX-Reswap", "innerHTML")
	w.WriteHeader(status)
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
