// Package apperror defines a centralized system for application-specific errors.
// Every service in the application returns *AppError values so that the HTTP
// layer can turn any failure into the same JSON envelope:
//
//	{"error": {"message": "...", "status": 401}}
//
// It's similar in concept to an exception filter: handlers never pick status
// codes themselves, they ask the error.
package apperror

import (
	"errors"
	"fmt"
	// `net/http` is used for HTTP status codes.
	"net/http"
)

// ErrorType is an enumeration (using `iota`) for the categories of application errors.
type ErrorType int

const (
	// UnknownError is for unspecified errors
	UnknownError ErrorType = iota
	// StorageError represents an unexpected failure of the persistence layer
	StorageError
	// ConfigError represents an error related to application configuration
	ConfigError
	// UnauthenticatedError means no identity could be established (missing or invalid token)
	UnauthenticatedError
	// UnauthorizedError means the identity is valid but may not touch the resource
	UnauthorizedError
	// NotFoundError represents a resource not found error
	NotFoundError
	// ValidationError represents malformed or missing input
	ValidationError
	// BadRequestError represents a generic bad request (e.g. undecodable JSON, bad credentials)
	BadRequestError
	// InternalError represents a generic internal server error
	InternalError
	// MigrationError represents an error during database migrations
	MigrationError
	// ConflictError represents a uniqueness conflict, e.g. username already taken
	ConflictError
)

// String returns a short machine-friendly name, used in logs.
func (t ErrorType) String() string {
	switch t {
	case StorageError:
		return "storage"
	case ConfigError:
		return "config"
	case UnauthenticatedError:
		return "unauthenticated"
	case UnauthorizedError:
		return "unauthorized"
	case NotFoundError:
		return "not_found"
	case ValidationError:
		return "validation"
	case BadRequestError:
		return "bad_request"
	case InternalError:
		return "internal"
	case MigrationError:
		return "migration"
	case ConflictError:
		return "conflict"
	default:
		return "unknown"
	}
}

// AppError is the custom error type for the application.
// It allows wrapping an underlying error (`Err`) for debugging while only the
// `Message` is ever shown to API clients.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error // Underlying error
}

// Error returns the string representation of the error, satisfying the `error` interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error so `errors.Is` and `errors.As` can walk the chain.
func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code appropriate for the error type
func (e *AppError) StatusCode() int {
	switch e.Type {
	case StorageError, ConfigError, InternalError, MigrationError:
		return http.StatusInternalServerError
	case UnauthenticatedError:
		return http.StatusUnauthorized
	case UnauthorizedError:
		// Ownership failures answer 401 as well, the same shape as a missing
		// token, so a client can't tell "not yours" apart from "not logged in".
		return http.StatusUnauthorized
	case NotFoundError:
		return http.StatusNotFound
	case ValidationError, BadRequestError:
		return http.StatusBadRequest
	case ConflictError:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// NewAppError creates a new AppError. This is the generic constructor; the
// typed constructors below are preferred at call sites.
func NewAppError(errType ErrorType, message string, underlyingError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     underlyingError,
	}
}

// NewStorageError creates a new StorageError
func NewStorageError(message string, underlyingError error) *AppError {
	return NewAppError(StorageError, message, underlyingError)
}

// NewConfigError creates a new ConfigError
func NewConfigError(message string, underlyingError error) *AppError {
	return NewAppError(ConfigError, message, underlyingError)
}

// NewUnauthenticatedError creates a new UnauthenticatedError (no or invalid token)
func NewUnauthenticatedError(message string, underlyingError error) *AppError {
	return NewAppError(UnauthenticatedError, message, underlyingError)
}

// NewUnauthorizedError creates a new UnauthorizedError (for ownership/permission issues)
func NewUnauthorizedError(message string, underlyingError error) *AppError {
	return NewAppError(UnauthorizedError, message, underlyingError)
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(message string, underlyingError error) *AppError {
	return NewAppError(NotFoundError, message, underlyingError)
}

// NewValidationError creates a new ValidationError
func NewValidationError(message string, underlyingError error) *AppError {
	return NewAppError(ValidationError, message, underlyingError)
}

// NewBadRequestError creates a new BadRequestError
func NewBadRequestError(message string, underlyingError error) *AppError {
	return NewAppError(BadRequestError, message, underlyingError)
}

// NewInternalError creates a new InternalError
func NewInternalError(message string, underlyingError error) *AppError {
	return NewAppError(InternalError, message, underlyingError)
}

// NewMigrationError creates a new MigrationError
func NewMigrationError(message string, underlyingError error) *AppError {
	return NewAppError(MigrationError, message, underlyingError)
}

// NewConflictError creates a new ConflictError
func NewConflictError(message string, underlyingError error) *AppError {
	return NewAppError(ConflictError, message, underlyingError)
}

// ErrorBody is the inner object of the error envelope.
type ErrorBody struct {
	Message string `json:"message" example:"Unauthorized"`
	Status  int    `json:"status" example:"401"`
}

// ErrorResponse represents the error payload returned to API clients.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ToResponse converts an AppError to an ErrorResponse suitable for API responses.
// Only the user-facing `Message` is included, never the underlying `Err`.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{Error: ErrorBody{Message: e.Message, Status: e.StatusCode()}}
}

// FromError finds an *AppError anywhere in err's chain.
// It returns the *AppError and true if successful, otherwise nil and false.
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

// Is reports whether err carries an AppError of the given type.
func Is(err error, t ErrorType) bool {
	ae, ok := FromError(err)
	return ok && ae.Type == t
}

// IsNotFound checks if an error is a NotFound error
func IsNotFound(err error) bool { return Is(err, NotFoundError) }

// IsUnauthenticated checks if an error is an UnauthenticatedError
func IsUnauthenticated(err error) bool { return Is(err, UnauthenticatedError) }

// IsUnauthorizedError checks if an error is an UnauthorizedError (authorization problem)
func IsUnauthorizedError(err error) bool { return Is(err, UnauthorizedError) }

// IsValidationError checks if an error is a Validation error
func IsValidationError(err error) bool { return Is(err, ValidationError) }

// IsConflictError checks if an error is a Conflict error
func IsConflictError(err error) bool { return Is(err, ConflictError) }

// IsStorageError checks if an error is a Storage error
func IsStorageError(err error) bool { return Is(err, StorageError) }
