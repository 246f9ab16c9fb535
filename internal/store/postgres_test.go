package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piloturl/test-analysis/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock), mock
}

func TestPostgres_Migrate(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS exam_results").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_AttemptHistory(t *testing.T) {
	st, mock := newMockStore(t)

	created := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{
		"id", "exam_content_id", "user_id", "attempt_number", "total_attempts",
		"duration_taken_ms", "earned_score", "total_score", "status", "created_at",
	}).
		AddRow("r2", "test-1", "student-1", 2, 2, int64(120000), 10.0, 30.0, "completed", created).
		AddRow("r1", "test-1", "student-1", 1, 2, int64(90000), 8.0, 30.0, "completed", created.AddDate(0, -1, 0))

	mock.ExpectQuery("SELECT id, exam_content_id, user_id").
		WithArgs("test-1", "student-1").
		WillReturnRows(rows)

	attempts, err := st.AttemptHistory(context.Background(), "test-1", "student-1")
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, "r2", attempts[0].ID)
	assert.Equal(t, int64(120000), attempts[0].DurationTakenMs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_StudentHasAttempts(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM exam_results`).
		WithArgs("student-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	has, err := st.StudentHasAttempts(context.Background(), "student-1")
	require.NoError(t, err)
	assert.True(t, has)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_QuestionCount(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM exam_result_questions`).
		WithArgs("r1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(20))

	n, err := st.QuestionCount(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, 20, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_IncorrectQuestions(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT tq.id, tq.question_id, tq.score").
		WithArgs("r1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "question_id", "score", "question", "explanation", "difficulty"}).
			AddRow("r1-q1", 1, 0.0, "Choose the passive form", "Passive voice uses be + participle", "medium"))

	mock.ExpectQuery("SELECT answer_value FROM exam_answer_results").
		WithArgs("r1-q1").
		WillReturnRows(pgxmock.NewRows([]string{"answer_value"}).AddRow("was ate"))

	mock.ExpectQuery("SELECT value, is_correct FROM answers").
		WithArgs(1).
		WillReturnRows(pgxmock.NewRows([]string{"value", "is_correct"}).
			AddRow("was eaten", true).
			AddRow("was ate", false))

	items, err := st.IncorrectQuestions(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []string{"was ate"}, items[0].StudentAnswers)
	assert.Equal(t, []string{"was eaten"}, items[0].CorrectAnswers)
	assert.Equal(t, []string{"was eaten", "was ate"}, items[0].AllAnswers)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DomainPerformance(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs("r1").
		WillReturnRows(pgxmock.NewRows([]string{"domain", "total", "correct"}).
			AddRow("Grammar", 2, 0).
			AddRow("Logic", 1, 1))

	perf, err := st.DomainPerformance(context.Background(), "r1")
	require.NoError(t, err)
	require.NotNil(t, perf)
	assert.Equal(t, 3, perf.Overall.Total)
	assert.Equal(t, 1, perf.Overall.Correct)
	assert.Equal(t, 2, perf.Overall.Incorrect)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_AppendTelemetry(t *testing.T) {
	st, mock := newMockStore(t)

	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO telemetry").
		WithArgs(3, "agent3: weakness extraction", int64(100), int64(40), 1.5, ts).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := st.AppendTelemetry(context.Background(), model.TelemetryRecord{
		Stage:          3,
		Usage:          "agent3: weakness extraction",
		InputTokens:    100,
		OutputTokens:   40,
		RuntimeSeconds: 1.5,
		Timestamp:      ts,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListTelemetry(t *testing.T) {
	st, mock := newMockStore(t)

	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT stage, usage, input_tokens").
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{"stage", "usage", "input_tokens", "output_tokens", "runtime_seconds", "created_at"}).
			AddRow(5, "agent5: user-facing response generation", int64(60), int64(25), 2.1, ts))

	recs, err := st.ListTelemetry(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 5, recs[0].Stage)
	require.NoError(t, mock.ExpectationsWereMet())
}
