package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piloturl/test-analysis/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// seedAttempt inserts one graded attempt with three questions:
//   - q1 (Grammar): answered incorrectly
//   - q2 (Logic):   answered correctly
//   - q3 (Grammar): left unanswered
func seedAttempt(t *testing.T, st *SQLiteStore, resultID string, attemptNumber int, createdAt time.Time) {
	t.Helper()
	ctx := context.Background()

	_, err := st.db.ExecContext(ctx, `
		INSERT INTO exam_results (id, exam_content_id, user_id, attempt_number, total_attempts, earned_score, total_score, created_at)
		VALUES (?, 'test-1', 'student-1', ?, 2, 10, 30, ?)`,
		resultID, attemptNumber, createdAt,
	)
	require.NoError(t, err)

	_, err = st.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO questions (id, question, explanation, difficulty, domain) VALUES
		(1, 'Choose the passive form', 'Passive voice uses be + participle', 'medium', 'Grammar'),
		(2, 'Which statement follows?', '', 'hard', 'Logic'),
		(3, 'Fix the agreement error', '', 'easy', 'Grammar')`)
	require.NoError(t, err)

	_, err = st.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO answers (question_id, value, is_correct) VALUES
		(1, 'was eaten', 1), (1, 'was ate', 0),
		(2, 'B', 1), (2, 'A', 0),
		(3, 'are', 1), (3, 'is', 0)`)
	require.NoError(t, err)

	_, err = st.db.ExecContext(ctx, `
		INSERT INTO exam_result_questions (id, exam_result_id, question_id, score) VALUES
		(?, ?, 1, 0), (?, ?, 2, 1), (?, ?, 3, 0)`,
		resultID+"-q1", resultID, resultID+"-q2", resultID, resultID+"-q3", resultID,
	)
	require.NoError(t, err)

	_, err = st.db.ExecContext(ctx, `
		INSERT INTO exam_answer_results (exam_result_question_id, answer_value, is_correct) VALUES
		(?, 'was ate', 0),
		(?, 'B', 1)`,
		resultID+"-q1", resultID+"-q2",
	)
	require.NoError(t, err)
}

func TestSQLite_AttemptHistory(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedAttempt(t, st, "r1", 1, time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC))
	seedAttempt(t, st, "r2", 2, time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC))

	attempts, err := st.AttemptHistory(ctx, "test-1", "student-1")
	require.NoError(t, err)
	require.Len(t, attempts, 2)

	// Most recent attempt first.
	assert.Equal(t, "r2", attempts[0].ID)
	assert.Equal(t, 2, attempts[0].AttemptNumber)
	assert.Equal(t, "r1", attempts[1].ID)
	assert.Equal(t, 10.0, attempts[0].EarnedScore)
	assert.Equal(t, 30.0, attempts[0].TotalScore)
}

func TestSQLite_AttemptHistory_NoRows(t *testing.T) {
	st := newTestStore(t)

	attempts, err := st.AttemptHistory(context.Background(), "test-1", "student-9")
	require.NoError(t, err)
	assert.Empty(t, attempts)
}

func TestSQLite_StudentHasAttempts(t *testing.T) {
	st := newTestStore(t)
	seedAttempt(t, st, "r1", 1, time.Now().UTC())

	has, err := st.StudentHasAttempts(context.Background(), "student-1")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = st.StudentHasAttempts(context.Background(), "student-9")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestSQLite_QuestionCount(t *testing.T) {
	st := newTestStore(t)
	seedAttempt(t, st, "r1", 1, time.Now().UTC())

	n, err := st.QuestionCount(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSQLite_IncorrectQuestions(t *testing.T) {
	st := newTestStore(t)
	seedAttempt(t, st, "r1", 1, time.Now().UTC())

	items, err := st.IncorrectQuestions(context.Background(), "r1")
	require.NoError(t, err)
	// q1 answered incorrectly, q3 unanswered; q2 was correct.
	require.Len(t, items, 2)

	q1 := items[0]
	assert.Equal(t, 1, q1.QuestionID)
	assert.Equal(t, "Choose the passive form", q1.QuestionText)
	assert.Equal(t, "Passive voice uses be + participle", q1.Explanation)
	assert.Equal(t, []string{"was ate"}, q1.StudentAnswers)
	assert.Equal(t, []string{"was eaten"}, q1.CorrectAnswers)
	assert.ElementsMatch(t, []string{"was eaten", "was ate"}, q1.AllAnswers)

	q3 := items[1]
	assert.Equal(t, 3, q3.QuestionID)
	assert.Empty(t, q3.StudentAnswers)
	assert.Equal(t, []string{"are"}, q3.CorrectAnswers)
}

func TestSQLite_DomainPerformance(t *testing.T) {
	st := newTestStore(t)
	seedAttempt(t, st, "r1", 1, time.Now().UTC())

	perf, err := st.DomainPerformance(context.Background(), "r1")
	require.NoError(t, err)
	require.NotNil(t, perf)
	require.Len(t, perf.Domains, 2)

	byDomain := map[string]model.DomainBreakdown{}
	for _, d := range perf.Domains {
		byDomain[d.Domain] = d
	}

	// Grammar: q1 wrong, q3 unanswered (counts as incorrect).
	assert.Equal(t, 2, byDomain["Grammar"].Total)
	assert.Equal(t, 0, byDomain["Grammar"].Correct)
	assert.Equal(t, 2, byDomain["Grammar"].Incorrect)

	assert.Equal(t, 1, byDomain["Logic"].Total)
	assert.Equal(t, 1, byDomain["Logic"].Correct)

	assert.Equal(t, 3, perf.Overall.Total)
	assert.Equal(t, 1, perf.Overall.Correct)
	assert.InDelta(t, 1.0/3.0, perf.Overall.Accuracy, 1e-9)
}

func TestSQLite_DomainPerformance_NoQuestions(t *testing.T) {
	st := newTestStore(t)

	perf, err := st.DomainPerformance(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, perf)
}

func TestSQLite_TelemetryRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first := model.TelemetryRecord{
		Stage:          3,
		Usage:          "agent3: weakness extraction",
		InputTokens:    100,
		OutputTokens:   40,
		RuntimeSeconds: 1.5,
		Timestamp:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	second := model.TelemetryRecord{
		Stage:          5,
		Usage:          "agent5: user-facing response generation",
		InputTokens:    60,
		OutputTokens:   25,
		RuntimeSeconds: 2.1,
		Timestamp:      time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.AppendTelemetry(ctx, first))
	require.NoError(t, st.AppendTelemetry(ctx, second))

	recs, err := st.ListTelemetry(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	// Most recent first.
	assert.Equal(t, 5, recs[0].Stage)
	assert.Equal(t, int64(60), recs[0].InputTokens)
	assert.Equal(t, 3, recs[1].Stage)
	assert.Equal(t, 1.5, recs[1].RuntimeSeconds)
}

func TestSQLite_ListTelemetry_Limit(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, st.AppendTelemetry(ctx, model.TelemetryRecord{
			Stage:     3,
			Usage:     "agent3: weakness extraction",
			Timestamp: time.Date(2026, 3, 1, 10, i, 0, 0, time.UTC),
		}))
	}

	recs, err := st.ListTelemetry(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}
