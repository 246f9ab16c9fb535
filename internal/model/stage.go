package model

// Stage identifies one of the five ordered pipeline stages.
type Stage int

const (
	StageContextLookup      Stage = 1
	StageIncorrectItems     Stage = 2
	StageWeaknessExtraction Stage = 3
	StageCourseMatching     Stage = 4
	StageSummaryGeneration  Stage = 5
)

// String returns the stage's short name.
func (s Stage) String() string {
	switch s {
	case StageContextLookup:
		return "context_lookup"
	case StageIncorrectItems:
		return "incorrect_items"
	case StageWeaknessExtraction:
		return "weakness_extraction"
	case StageCourseMatching:
		return "course_matching"
	case StageSummaryGeneration:
		return "summary_generation"
	default:
		return "unknown"
	}
}

// Stage result statuses.
const (
	StageStatusOK       = "ok"
	StageStatusEmpty    = "empty"
	StageStatusFailed   = "failed"
	StageStatusFallback = "fallback"
)

// Terminal pipeline statuses surfaced in the response envelope.
const (
	StatusOK                      = "ok"
	StatusNoIncorrectQuestions    = "no_incorrect_questions"
	StatusNoWeaknesses            = "no_weaknesses"
	StatusNoCourseRecommendations = "no_course_recommendations"
)

// StageResult is the uniform envelope every stage produces exactly once per
// run. Payload holds the stage-specific output; Err is set only when the
// stage failed.
type StageResult struct {
	Stage      Stage            `json:"stage"`
	Status     string           `json:"status"`
	Payload    any              `json:"payload,omitempty"`
	Err        *ErrorDescriptor `json:"error,omitempty"`
	DurationMs int64            `json:"durationMs"`
}
