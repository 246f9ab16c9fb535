// Package pipeline orchestrates the five-stage test-analysis pipeline:
// context lookup, incorrect-item extraction, weakness extraction, course
// matching, and summary generation.
package pipeline

import (
	"context"
	"errors"

	"github.com/piloturl/test-analysis/internal/model"
	"github.com/piloturl/test-analysis/pkg/generative"
)

// Sentinel conditions raised at collaborator boundaries. The classifier maps
// them to the public error taxonomy.
var (
	// ErrNotFound signals that the requested attempt data does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicateInFlight signals that a run with the same correlation id
	// is already active.
	ErrDuplicateInFlight = errors.New("duplicate request in flight")

	// ErrUnauthorized signals a missing or invalid bearer token.
	ErrUnauthorized = errors.New("unauthorized")
)

// ContextLookup resolves the current and historical attempt for a
// (test, student) pair. Stage 1.
type ContextLookup interface {
	Lookup(ctx context.Context, testID, studentID string) (*model.TestContext, error)
}

// ItemExtractor collects the incorrectly answered questions for the current
// attempt. Stage 2.
type ItemExtractor interface {
	IncorrectItems(ctx context.Context, tc *model.TestContext) (*model.IncorrectItemsReport, error)
}

// WeaknessExtractor derives weakness patterns from incorrect questions via
// the generative model. Stage 3. Usage is valid even when err is non-nil so
// failed invocations are still metered.
type WeaknessExtractor interface {
	Extract(ctx context.Context, items []model.IncorrectQuestion) ([]model.Weakness, generative.Usage, error)
}

// CourseMatcher finds semantically similar courses for each weakness.
// Stage 4. maxCourses caps the returned recommendation count.
type CourseMatcher interface {
	Match(ctx context.Context, weaknesses []model.Weakness, maxCourses int) ([]model.CourseRecommendation, error)
}

// Summarizer produces the narrative summary from weaknesses and
// recommendations via the generative model. Stage 5. Usage is valid even
// when err is non-nil.
type Summarizer interface {
	Summarize(ctx context.Context, weaknesses []model.Weakness, recs []model.CourseRecommendation) (model.Summary, generative.Usage, error)
}
