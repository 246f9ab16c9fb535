package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/piloturl/test-analysis/internal/model"
	"github.com/piloturl/test-analysis/internal/telemetry"
	"github.com/piloturl/test-analysis/pkg/generative"
)

// Telemetry usage labels for the two generative stages.
const (
	usageWeaknessExtraction = "agent3: weakness extraction"
	usageSummaryGeneration  = "agent5: user-facing response generation"
)

// Orchestrator drives the five stages sequentially. Each stage consumes the
// previous stage's output; a fatal stage error aborts the run with no partial
// outputs, except stage 5 whose failures are masked by a deterministic
// fallback summary.
type Orchestrator struct {
	gate       *RequestGate
	contexts   ContextLookup
	items      ItemExtractor
	weaknesses WeaknessExtractor
	matcher    CourseMatcher
	summarizer Summarizer
	recorder   telemetry.Recorder
}

// NewOrchestrator wires the stage collaborators. recorder may be nil, in
// which case telemetry is discarded.
func NewOrchestrator(
	gate *RequestGate,
	contexts ContextLookup,
	items ItemExtractor,
	weaknesses WeaknessExtractor,
	matcher CourseMatcher,
	summarizer Summarizer,
	recorder telemetry.Recorder,
) *Orchestrator {
	if recorder == nil {
		recorder = telemetry.NopRecorder{}
	}
	return &Orchestrator{
		gate:       gate,
		contexts:   contexts,
		items:      items,
		weaknesses: weaknesses,
		matcher:    matcher,
		summarizer: summarizer,
		recorder:   recorder,
	}
}

// Run executes one analysis for req. The correlation id admits at most one
// concurrent run; a second arrival while the first is active fails with
// ErrDuplicateInFlight. On fatal errors the returned result is nil.
func (o *Orchestrator) Run(ctx context.Context, req model.PipelineRequest) (*model.AnalysisResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !o.gate.Admit(req.CorrelationID) {
		return nil, eris.Wrapf(ErrDuplicateInFlight, "pipeline: correlation id %s", req.CorrelationID)
	}
	defer o.gate.Release(req.CorrelationID)

	run := model.NewPipelineRun(uuid.NewString(), req)
	log := zap.L().With(
		zap.String("analysis_id", run.AnalysisID),
		zap.String("correlation_id", req.CorrelationID),
		zap.String("test_id", req.TestID),
		zap.String("student_id", req.StudentID),
	)
	log.Info("pipeline: run started")

	result := &model.AnalysisResult{
		AnalysisID: run.AnalysisID,
		Status:     model.StatusOK,
	}

	// trackStage times fn and appends the finished StageResult with its final
	// status. Results are complete before they reach the run; nothing edits
	// them afterwards.
	trackStage := func(stage model.Stage, fn func() (any, error), isEmpty func(payload any) bool) (any, error) {
		start := time.Now()
		payload, err := fn()
		empty := err == nil && isEmpty != nil && isEmpty(payload)
		res := model.StageResult{
			Stage:      stage,
			Status:     stageStatus(err, empty),
			Payload:    payload,
			DurationMs: time.Since(start).Milliseconds(),
		}
		if err != nil {
			desc := Classify(err)
			res.Err = &desc
			res.Payload = nil
		}
		run.Append(res)
		log.Info("pipeline: stage finished",
			zap.String("stage", stage.String()),
			zap.String("status", res.Status),
			zap.Int64("duration_ms", res.DurationMs),
		)
		return payload, err
	}

	// Stage 1: attempt context.
	payload, err := trackStage(model.StageContextLookup, func() (any, error) {
		return o.contexts.Lookup(ctx, req.TestID, req.StudentID)
	}, nil)
	if err != nil {
		return nil, err
	}
	tc := payload.(*model.TestContext)
	result.AgentOutputs.Agent1 = tc

	// Stage 2: incorrect items.
	payload, err = trackStage(model.StageIncorrectItems, func() (any, error) {
		return o.items.IncorrectItems(ctx, tc)
	}, func(payload any) bool {
		return len(payload.(*model.IncorrectItemsReport).IncorrectQuestions) == 0
	})
	if err != nil {
		return nil, err
	}
	report := payload.(*model.IncorrectItemsReport)
	result.AgentOutputs.Agent2 = report
	if len(report.IncorrectQuestions) == 0 {
		return o.finish(run, result, model.StatusNoIncorrectQuestions, log), nil
	}

	// Stage 3: weakness extraction. Token usage is recorded whether or not
	// the stage succeeds.
	payload, err = trackStage(model.StageWeaknessExtraction, func() (any, error) {
		start := time.Now()
		ws, usage, wErr := o.weaknesses.Extract(ctx, report.IncorrectQuestions)
		o.record(model.StageWeaknessExtraction, usageWeaknessExtraction, usage, time.Since(start))
		result.Tokens.Add(usage.InputTokens, usage.OutputTokens)
		return ws, wErr
	}, func(payload any) bool {
		ws, _ := payload.([]model.Weakness)
		return len(ws) == 0
	})
	if err != nil {
		return nil, err
	}
	weaknesses, _ := payload.([]model.Weakness)
	result.Weaknesses = weaknesses
	result.AgentOutputs.Agent3 = weaknesses
	if len(weaknesses) == 0 {
		return o.finish(run, result, model.StatusNoWeaknesses, log), nil
	}

	// Stage 4: course matching.
	payload, err = trackStage(model.StageCourseMatching, func() (any, error) {
		return o.matcher.Match(ctx, weaknesses, req.MaxCourses)
	}, func(payload any) bool {
		recs, _ := payload.([]model.CourseRecommendation)
		return len(recs) == 0
	})
	if err != nil {
		return nil, err
	}
	recs, _ := payload.([]model.CourseRecommendation)
	result.Recommendations = recs
	result.AgentOutputs.Agent4 = recs
	if len(recs) == 0 {
		return o.finish(run, result, model.StatusNoCourseRecommendations, log), nil
	}

	// Stage 5: summary generation. Never fatal: any failure produces the
	// deterministic fallback summary and the run still reports ok.
	start := time.Now()
	summary, usage, sumErr := o.summarizer.Summarize(ctx, weaknesses, recs)
	duration := time.Since(start)
	o.record(model.StageSummaryGeneration, usageSummaryGeneration, usage, duration)
	result.Tokens.Add(usage.InputTokens, usage.OutputTokens)

	stageRes := model.StageResult{
		Stage:      model.StageSummaryGeneration,
		Status:     model.StageStatusOK,
		DurationMs: duration.Milliseconds(),
	}
	if sumErr != nil {
		log.Warn("pipeline: summary generation failed, using fallback", zap.Error(sumErr))
		summary = FallbackSummary(weaknesses, recs)
		stageRes.Status = model.StageStatusFallback
	}
	userFacing := &model.UserFacingResponse{
		Summary:         summary,
		Recommendations: buildRecommendationEntries(recs),
	}
	stageRes.Payload = userFacing
	run.Append(stageRes)

	result.UserFacing = userFacing
	result.AgentOutputs.Agent5 = userFacing
	return o.finish(run, result, model.StatusOK, log), nil
}

// stageStatus resolves a stage's final status. A failure always wins over
// an empty result.
func stageStatus(err error, empty bool) string {
	switch {
	case err != nil:
		return model.StageStatusFailed
	case empty:
		return model.StageStatusEmpty
	default:
		return model.StageStatusOK
	}
}

func (o *Orchestrator) record(stage model.Stage, usageLabel string, usage generative.Usage, elapsed time.Duration) {
	o.recorder.Record(model.TelemetryRecord{
		Stage:          int(stage),
		Usage:          usageLabel,
		InputTokens:    usage.InputTokens,
		OutputTokens:   usage.OutputTokens,
		RuntimeSeconds: elapsed.Seconds(),
	})
}

func (o *Orchestrator) finish(run *model.PipelineRun, result *model.AnalysisResult, status string, log *zap.Logger) *model.AnalysisResult {
	run.Status = status
	result.Status = status
	result.GeneratedAt = time.Now().UTC()
	log.Info("pipeline: run finished",
		zap.String("status", status),
		zap.Int("stages", len(run.Stages)),
		zap.Int64("input_tokens", result.Tokens.InputTokens),
		zap.Int64("output_tokens", result.Tokens.OutputTokens),
	)
	return result
}
