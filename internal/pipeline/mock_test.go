package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/piloturl/test-analysis/internal/model"
	"github.com/piloturl/test-analysis/pkg/generative"
	"github.com/piloturl/test-analysis/pkg/vectorsearch"
)

// --- Stage collaborator mocks ---

type mockContextLookup struct {
	mock.Mock
}

func (m *mockContextLookup) Lookup(ctx context.Context, testID, studentID string) (*model.TestContext, error) {
	args := m.Called(ctx, testID, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TestContext), args.Error(1)
}

type mockItemExtractor struct {
	mock.Mock
}

func (m *mockItemExtractor) IncorrectItems(ctx context.Context, tc *model.TestContext) (*model.IncorrectItemsReport, error) {
	args := m.Called(ctx, tc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.IncorrectItemsReport), args.Error(1)
}

type mockWeaknessExtractor struct {
	mock.Mock
}

func (m *mockWeaknessExtractor) Extract(ctx context.Context, items []model.IncorrectQuestion) ([]model.Weakness, generative.Usage, error) {
	args := m.Called(ctx, items)
	var ws []model.Weakness
	if args.Get(0) != nil {
		ws = args.Get(0).([]model.Weakness)
	}
	return ws, args.Get(1).(generative.Usage), args.Error(2)
}

type mockCourseMatcher struct {
	mock.Mock
}

func (m *mockCourseMatcher) Match(ctx context.Context, weaknesses []model.Weakness, maxCourses int) ([]model.CourseRecommendation, error) {
	args := m.Called(ctx, weaknesses, maxCourses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CourseRecommendation), args.Error(1)
}

type mockSummarizer struct {
	mock.Mock
}

func (m *mockSummarizer) Summarize(ctx context.Context, weaknesses []model.Weakness, recs []model.CourseRecommendation) (model.Summary, generative.Usage, error) {
	args := m.Called(ctx, weaknesses, recs)
	return args.Get(0).(model.Summary), args.Get(1).(generative.Usage), args.Error(2)
}

// --- Telemetry recorder mock ---

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) Record(rec model.TelemetryRecord) {
	m.Called(rec)
}

// --- Client mocks ---

type mockGenerativeClient struct {
	mock.Mock
}

func (m *mockGenerativeClient) Complete(ctx context.Context, req generative.Request) (*generative.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*generative.Response), args.Error(1)
}

type mockSearchClient struct {
	mock.Mock
}

func (m *mockSearchClient) Query(ctx context.Context, text string, limit int) ([]vectorsearch.Neighbor, error) {
	args := m.Called(ctx, text, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]vectorsearch.Neighbor), args.Error(1)
}

// --- Store mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) AttemptHistory(ctx context.Context, testID, studentID string) ([]model.AttemptRecord, error) {
	args := m.Called(ctx, testID, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AttemptRecord), args.Error(1)
}

func (m *mockStore) StudentHasAttempts(ctx context.Context, studentID string) (bool, error) {
	args := m.Called(ctx, studentID)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) QuestionCount(ctx context.Context, examResultID string) (int, error) {
	args := m.Called(ctx, examResultID)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) IncorrectQuestions(ctx context.Context, examResultID string) ([]model.IncorrectQuestion, error) {
	args := m.Called(ctx, examResultID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.IncorrectQuestion), args.Error(1)
}

func (m *mockStore) DomainPerformance(ctx context.Context, examResultID string) (*model.DomainPerformance, error) {
	args := m.Called(ctx, examResultID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DomainPerformance), args.Error(1)
}

func (m *mockStore) AppendTelemetry(ctx context.Context, rec model.TelemetryRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockStore) ListTelemetry(ctx context.Context, limit int) ([]model.TelemetryRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TelemetryRecord), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}
