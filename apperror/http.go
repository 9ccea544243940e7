package apperror

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Responder writes JSON responses and maps errors to the standard error payload.
// A single Responder is shared by every handler so the mapping happens in one place.
type Responder struct {
	debug  bool
	logger *slog.Logger
}

// NewResponder creates a Responder. When debug is true, error responses include
// the wrapped error text in the `detail` field.
func NewResponder(debug bool, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{debug: debug, logger: logger}
}

// Logger returns the logger errors are reported to.
func (rs *Responder) Logger() *slog.Logger { return rs.logger }

// JSON serializes `data` and writes it with the given status.
func (rs *Responder) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		rs.logger.Error("failed to encode response", "error", err)
	}
}

// Error converts any error into the standard `{error, message}` payload.
// Errors that are not *AppError become InternalError so nothing leaks unmapped.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := FromError(err)
	if !ok {
		appErr = NewInternalError("something went wrong", err)
	}

	status := appErr.StatusCode()
	attrs := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"code", appErr.Code,
		"error", appErr.Error(),
	}
	switch {
	case status >= http.StatusInternalServerError:
		rs.logger.ErrorContext(r.Context(), "request failed", attrs...)
	case IsForbiddenError(appErr):
		// Failed CSRF checks show up at the default level.
		rs.logger.WarnContext(r.Context(), "request forbidden", attrs...)
	default:
		rs.logger.DebugContext(r.Context(), "request rejected", attrs...)
	}

	rs.JSON(w, status, appErr.ToResponse(rs.debug))
}

// MethodNotAllowed is an http.HandlerFunc suitable for chi's MethodNotAllowed hook.
func (rs *Responder) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	rs.Error(w, r, NewMethodNotAllowedError("method "+r.Method+" is not allowed here"))
}

// NotFound is an http.HandlerFunc suitable for chi's NotFound hook.
func (rs *Responder) NotFound(w http.ResponseWriter, r *http.Request) {
	rs.Error(w, r, NewNotFoundError(CodeNotFound, "no such endpoint", nil))
}
