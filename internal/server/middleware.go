package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/piloturl/test-analysis/internal/model"
)

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// Request/response headers.
const (
	headerCorrelationID = "X-Correlation-Id"
	headerAPIVersion    = "X-API-Version"

	currentAPIVersion = "1"
)

// withCorrelationID assigns each request a correlation id, generating one
// when the caller did not supply it, and echoes it with the API version on
// every response.
func withCorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := strings.TrimSpace(r.Header.Get(headerCorrelationID))
		if cid == "" {
			cid = "corr_" + uuid.NewString()
		}

		w.Header().Set(headerCorrelationID, cid)
		w.Header().Set(headerAPIVersion, apiVersionOf(r))

		ctx := context.WithValue(r.Context(), correlationIDKey, cid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAPIVersion rejects any X-API-Version other than the current one. An
// absent header defaults to the current version.
func requireAPIVersion(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if apiVersionOf(r) != currentAPIVersion {
			writeError(w, r, model.ErrorDescriptor{
				Kind:       model.ErrValidationFailed,
				Message:    "unsupported API version",
				HTTPStatus: http.StatusBadRequest,
			}, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth checks the bearer token, but only when an auth secret is
// configured.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := s.cfg.Auth.Secret
		if secret == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token != secret {
			writeError(w, r, model.ErrorDescriptor{
				Kind:       model.ErrUnauthorized,
				Message:    "missing or invalid bearer token",
				HTTPStatus: http.StatusUnauthorized,
			}, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func apiVersionOf(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get(headerAPIVersion))
	if v == "" {
		return currentAPIVersion
	}
	return v
}

// correlationIDFrom returns the request's correlation id set by
// withCorrelationID.
func correlationIDFrom(ctx context.Context) string {
	cid, _ := ctx.Value(correlationIDKey).(string)
	return cid
}
