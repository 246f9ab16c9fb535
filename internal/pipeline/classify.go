package pipeline

import (
	"errors"

	"github.com/piloturl/test-analysis/internal/model"
	"github.com/piloturl/test-analysis/internal/resilience"
)

// Fixed client-facing messages per error kind. Diagnostic detail stays in
// logs and telemetry, never in the response envelope.
var kindMessages = map[model.ErrorKind]string{
	model.ErrValidationFailed:      "request validation failed",
	model.ErrUnauthorized:          "authorization required",
	model.ErrNotFound:              "requested resource was not found",
	model.ErrDuplicateInFlight:     "an identical request is already in flight",
	model.ErrDependencyUnavailable: "an upstream dependency is unavailable",
	model.ErrInternal:              "an internal error occurred",
}

// Classify maps a raised failure to the closed public taxonomy. The mapping
// is pure and total: the same error always yields the same descriptor, and
// anything unrecognized becomes INTERNAL rather than leaking detail.
func Classify(err error) model.ErrorDescriptor {
	kind := model.ErrInternal

	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		kind = model.ErrValidationFailed
	case errors.Is(err, ErrUnauthorized):
		kind = model.ErrUnauthorized
	case errors.Is(err, ErrNotFound):
		kind = model.ErrNotFound
	case errors.Is(err, ErrDuplicateInFlight):
		kind = model.ErrDuplicateInFlight
	case resilience.IsUnavailable(err):
		kind = model.ErrDependencyUnavailable
	}

	return model.ErrorDescriptor{
		Kind:       kind,
		Message:    kindMessages[kind],
		HTTPStatus: kind.HTTPStatus(),
	}
}
