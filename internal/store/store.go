// Package store persists exam attempt data and telemetry records behind a
// driver-agnostic interface with SQLite and Postgres implementations.
package store

import (
	"context"

	"github.com/piloturl/test-analysis/internal/model"
)

// Store defines the persistence interface consumed by the pipeline
// collaborators and the telemetry recorder.
type Store interface {
	// Attempts
	AttemptHistory(ctx context.Context, testID, studentID string) ([]model.AttemptRecord, error)
	StudentHasAttempts(ctx context.Context, studentID string) (bool, error)

	// Per-attempt question data
	QuestionCount(ctx context.Context, examResultID string) (int, error)
	IncorrectQuestions(ctx context.Context, examResultID string) ([]model.IncorrectQuestion, error)
	DomainPerformance(ctx context.Context, examResultID string) (*model.DomainPerformance, error)

	// Telemetry
	AppendTelemetry(ctx context.Context, rec model.TelemetryRecord) error
	ListTelemetry(ctx context.Context, limit int) ([]model.TelemetryRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
