package model

import "time"

// AgentOutputs exposes the raw per-stage payloads for diagnostics.
type AgentOutputs struct {
	Agent1 *TestContext           `json:"agent1,omitempty"`
	Agent2 *IncorrectItemsReport  `json:"agent2,omitempty"`
	Agent3 []Weakness             `json:"agent3,omitempty"`
	Agent4 []CourseRecommendation `json:"agent4,omitempty"`
	Agent5 *UserFacingResponse    `json:"agent5,omitempty"`
}

// TokenTotals sums model token consumption across the run.
type TokenTotals struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
}

// Add accumulates another set of totals.
func (t *TokenTotals) Add(in, out int64) {
	t.InputTokens += in
	t.OutputTokens += out
}

// PipelineRun aggregates one request with its ordered stage results. The
// correlation id is the run's identity for deduplication. Only the
// orchestrator appends stage results.
type PipelineRun struct {
	AnalysisID string          `json:"analysisId"`
	Request    PipelineRequest `json:"request"`
	Stages     []StageResult   `json:"stages"`
	Status     string          `json:"status"`
	StartedAt  time.Time       `json:"startedAt"`
}

// NewPipelineRun creates a run in its initial state.
func NewPipelineRun(analysisID string, req PipelineRequest) *PipelineRun {
	return &PipelineRun{
		AnalysisID: analysisID,
		Request:    req,
		StartedAt:  time.Now().UTC(),
	}
}

// Append records a stage result. Stage results are strictly ordered and
// never mutated after creation.
func (r *PipelineRun) Append(res StageResult) {
	r.Stages = append(r.Stages, res)
}

// AnalysisResult is the assembled outcome of a completed (non-fatal) run.
type AnalysisResult struct {
	AnalysisID      string                 `json:"analysisId"`
	Status          string                 `json:"status"`
	Weaknesses      []Weakness             `json:"weaknesses"`
	Recommendations []CourseRecommendation `json:"courseRecommendations"`
	UserFacing      *UserFacingResponse    `json:"userFacingResponse,omitempty"`
	AgentOutputs    AgentOutputs           `json:"agentOutputs"`
	Tokens          TokenTotals            `json:"tokens"`
	GeneratedAt     time.Time              `json:"generatedAt"`
}
