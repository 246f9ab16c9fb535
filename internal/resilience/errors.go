// Package resilience provides transient-error classification and retry with
// exponential backoff for the external collaborator clients.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// UnavailableError marks a collaborator failure that should be treated as a
// backend-unavailable condition (5xx, timeout, connection failure). It is
// also the retryable class.
type UnavailableError struct {
	Err        error
	StatusCode int
}

func (e *UnavailableError) Error() string {
	return e.Err.Error()
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// NewUnavailableError wraps an error as an unavailable-backend condition
// with an optional HTTP status code.
func NewUnavailableError(err error, statusCode int) *UnavailableError {
	return &UnavailableError{Err: err, StatusCode: statusCode}
}

// IsUnavailable reports whether the error chain contains an
// UnavailableError, or matches common network-level failure patterns
// (timeouts, connection resets, DNS failures).
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}

	var ue *UnavailableError
	if errors.As(err, &ue) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// Heuristics for errors already flattened to strings by HTTP clients.
	msg := strings.ToLower(err.Error())
	patterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"context deadline exceeded",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsUnavailableHTTPStatus reports whether the status code indicates a
// server-side condition worth retrying.
func IsUnavailableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
