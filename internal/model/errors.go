package model

import "net/http"

// ErrorKind is the closed public error taxonomy.
type ErrorKind string

const (
	ErrValidationFailed      ErrorKind = "VALIDATION_FAILED"
	ErrUnauthorized          ErrorKind = "UNAUTHORIZED"
	ErrNotFound              ErrorKind = "NOT_FOUND"
	ErrDuplicateInFlight     ErrorKind = "DUPLICATE_IN_FLIGHT"
	ErrDependencyUnavailable ErrorKind = "DEPENDENCY_UNAVAILABLE"
	ErrInternal              ErrorKind = "INTERNAL"
)

// HTTPStatus returns the HTTP status code mapped to the kind.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case ErrValidationFailed:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrNotFound:
		return http.StatusNotFound
	case ErrDuplicateInFlight:
		return http.StatusConflict
	case ErrDependencyUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorDescriptor is the client-facing classification of a failure. Message
// is a fixed, non-sensitive string; diagnostic detail stays in logs.
type ErrorDescriptor struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"httpStatus"`
}
