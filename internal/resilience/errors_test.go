package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestIsUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("bad input"), false},
		{"unavailable error", NewUnavailableError(errors.New("503"), 503), true},
		{"wrapped unavailable", fmt.Errorf("call failed: %w", NewUnavailableError(errors.New("503"), 503)), true},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"connection reset", syscall.ECONNRESET, true},
		{"string heuristic timeout", errors.New("Get \"http://x\": context deadline exceeded"), true},
		{"string heuristic dns", errors.New("dial tcp: lookup api.example: no such host"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUnavailable(tt.err); got != tt.want {
				t.Errorf("IsUnavailable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestUnavailableError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	ue := NewUnavailableError(inner, 502)
	if !errors.Is(ue, inner) {
		t.Error("expected errors.Is to reach the wrapped error")
	}
	if ue.Error() != "inner" {
		t.Errorf("unexpected message: %q", ue.Error())
	}
	if ue.StatusCode != 502 {
		t.Errorf("unexpected status code: %d", ue.StatusCode)
	}
}

func TestIsUnavailableHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !IsUnavailableHTTPStatus(code) {
			t.Errorf("expected %d to be unavailable", code)
		}
	}
	for _, code := range []int{200, 201, 400, 401, 404, 409} {
		if IsUnavailableHTTPStatus(code) {
			t.Errorf("expected %d to not be unavailable", code)
		}
	}
}
