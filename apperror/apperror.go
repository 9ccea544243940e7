// Package apperror defines a centralized system for application-specific errors.
// Every failure that can reach a client is an *AppError carrying an explicit kind,
// a short machine-readable code and a human-readable message. Handlers never
// build error payloads by hand; they return an error and the request boundary
// maps it to a status code and a `{error, message}` body exactly once.
package apperror

import (
	"errors"
	"fmt"
	// `net/http` is used for HTTP status codes.
	"net/http"
)

// ErrorType is an enumeration (using `iota`) for the different categories of application errors.
type ErrorType int

const (
	// UnknownError is for unspecified errors
	UnknownError ErrorType = iota
	// UnauthorizedError represents a missing, unknown or expired session, or bad credentials
	UnauthorizedError
	// ForbiddenError represents a failed anti-forgery (CSRF) check
	ForbiddenError
	// ValidationError represents missing or malformed input fields
	ValidationError
	// ConflictError represents a conflict, e.g. the username is already taken
	ConflictError
	// NotFoundError represents a user or resource that does not exist
	NotFoundError
	// MethodNotAllowedError represents a request with the wrong HTTP method
	MethodNotAllowedError
	// StoreUnavailableError represents a failed fetch or save against the document store
	StoreUnavailableError
	// StoreTimeoutError represents a document store call that exceeded its deadline
	StoreTimeoutError
	// ConfigError represents an error related to application configuration
	ConfigError
	// InternalError represents a generic internal server error
	InternalError
)

// Default codes used when a constructor is not given a more specific one.
const (
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeSessionExpired   = "SESSION_EXPIRED"
	CodeAuth             = "AUTH"
	CodeCSRF             = "CSRF_ERROR"
	CodeValidation       = "VALIDATION"
	CodeEmptyBody        = "EMPTY_BODY"
	CodeEmptyComment     = "EMPTY_COMMENT"
	CodeUsernameTaken    = "USERNAME_TAKEN"
	CodeNotFound         = "NOT_FOUND"
	CodeUserNotFound     = "USER_NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeStore            = "DB_FAIL"
	CodeStoreTimeout     = "DB_TIMEOUT"
	CodeConfig           = "CONFIG"
	CodeInternal         = "INTERNAL"
)

// AppError is a custom error type for the application.
// It allows wrapping an underlying error (`Err`) for debugging; the wrapped
// error is never sent to clients unless debug output is explicitly enabled.
type AppError struct {
	Type    ErrorType
	Code    string
	Message string
	Err     error // Underlying error
}

// Error returns the string representation of the error, satisfying the `error` interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error so `errors.Is` and `errors.As` can walk the chain.
func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code appropriate for the error type
func (e *AppError) StatusCode() int {
	switch e.Type {
	case UnauthorizedError:
		return http.StatusUnauthorized
	case ForbiddenError:
		return http.StatusForbidden
	case ValidationError:
		return http.StatusBadRequest
	case ConflictError:
		return http.StatusConflict
	case NotFoundError:
		return http.StatusNotFound
	case MethodNotAllowedError:
		return http.StatusMethodNotAllowed
	case StoreUnavailableError:
		return http.StatusBadGateway
	case StoreTimeoutError:
		return http.StatusGatewayTimeout
	case ConfigError, InternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NewAppError creates a new AppError. This is the generic constructor used by the
// kind-specific helpers below. An empty code falls back to the kind's default.
func NewAppError(errType ErrorType, code, message string, underlyingError error) *AppError {
	if code == "" {
		code = defaultCode(errType)
	}
	return &AppError{
		Type:    errType,
		Code:    code,
		Message: message,
		Err:     underlyingError,
	}
}

func defaultCode(t ErrorType) string {
	switch t {
	case UnauthorizedError:
		return CodeUnauthorized
	case ForbiddenError:
		return CodeCSRF
	case ValidationError:
		return CodeValidation
	case ConflictError:
		return CodeUsernameTaken
	case NotFoundError:
		return CodeNotFound
	case MethodNotAllowedError:
		return CodeMethodNotAllowed
	case StoreUnavailableError:
		return CodeStore
	case StoreTimeoutError:
		return CodeStoreTimeout
	case ConfigError:
		return CodeConfig
	default:
		return CodeInternal
	}
}

// Constructor functions for specific error types.
// `NewConflictError("...")` reads better at the call site than the generic form.

// NewUnauthorizedError creates a new UnauthorizedError with the given code.
func NewUnauthorizedError(code, message string, underlyingError error) *AppError {
	return NewAppError(UnauthorizedError, code, message, underlyingError)
}

// NewForbiddenError creates a new ForbiddenError (CSRF failures).
func NewForbiddenError(message string, underlyingError error) *AppError {
	return NewAppError(ForbiddenError, CodeCSRF, message, underlyingError)
}

// NewValidationError creates a new ValidationError with the given code.
func NewValidationError(code, message string, underlyingError error) *AppError {
	return NewAppError(ValidationError, code, message, underlyingError)
}

// NewConflictError creates a new ConflictError
func NewConflictError(message string, underlyingError error) *AppError {
	return NewAppError(ConflictError, CodeUsernameTaken, message, underlyingError)
}

// NewNotFoundError creates a new NotFoundError with the given code.
func NewNotFoundError(code, message string, underlyingError error) *AppError {
	return NewAppError(NotFoundError, code, message, underlyingError)
}

// NewMethodNotAllowedError creates a new MethodNotAllowedError
func NewMethodNotAllowedError(message string) *AppError {
	return NewAppError(MethodNotAllowedError, CodeMethodNotAllowed, message, nil)
}

// NewStoreUnavailableError creates a new StoreUnavailableError
func NewStoreUnavailableError(message string, underlyingError error) *AppError {
	return NewAppError(StoreUnavailableError, CodeStore, message, underlyingError)
}

// NewStoreTimeoutError creates a new StoreTimeoutError
func NewStoreTimeoutError(message string, underlyingError error) *AppError {
	return NewAppError(StoreTimeoutError, CodeStoreTimeout, message, underlyingError)
}

// NewConfigError creates a new ConfigError
func NewConfigError(message string, underlyingError error) *AppError {
	return NewAppError(ConfigError, CodeConfig, message, underlyingError)
}

// NewInternalError creates a new InternalError
func NewInternalError(message string, underlyingError error) *AppError {
	return NewAppError(InternalError, CodeInternal, message, underlyingError)
}

// ErrorResponse represents the error response payload for API clients.
type ErrorResponse struct {
	Error   string `json:"error" example:"AUTH"`
	Message string `json:"message" example:"invalid login or password"`
	// Detail carries the wrapped error text and is only populated in debug mode.
	Detail string `json:"detail,omitempty"`
}

// ToResponse converts an AppError to an ErrorResponse suitable for API responses.
// The underlying error is only included when debug is true.
func (e *AppError) ToResponse(debug bool) ErrorResponse {
	resp := ErrorResponse{Error: e.Code, Message: e.Message}
	if debug && e.Err != nil {
		resp.Detail = e.Err.Error()
	}
	return resp
}

// FromError converts a generic error to an *AppError, walking wrapped errors.
// It returns the *AppError and true if one was found, otherwise nil and false.
func FromError(err error) (*AppError, bool) {
	if err == nil {
		return nil, false
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Helper functions to check error types.

func isType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

// IsNotFound checks if an error is a NotFound error
func IsNotFound(err error) bool { return isType(err, NotFoundError) }

// IsUnauthorizedError checks if an error is an UnauthorizedError
func IsUnauthorizedError(err error) bool { return isType(err, UnauthorizedError) }

// IsForbiddenError checks if an error is a ForbiddenError
func IsForbiddenError(err error) bool { return isType(err, ForbiddenError) }

// IsValidationError checks if an error is a Validation error
func IsValidationError(err error) bool { return isType(err, ValidationError) }

// IsConflictError checks if an error is a Conflict error
func IsConflictError(err error) bool { return isType(err, ConflictError) }

// IsStoreError checks if an error came from the document store (unavailable or timed out)
func IsStoreError(err error) bool {
	return isType(err, StoreUnavailableError) || isType(err, StoreTimeoutError)
}

// HasCode reports whether err is an *AppError with the given code.
func HasCode(err error, code string) bool {
	ae, ok := FromError(err)
	return ok && ae.Code == code
}
