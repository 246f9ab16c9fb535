package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/piloturl/test-analysis/internal/model"
)

// PgxPool is the subset of pgxpool.Pool used by PostgresStore. pgxmock
// satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using a pgx connection pool.
type PostgresStore struct {
	pool PgxPool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool, used by tests.
func NewPostgresFromPool(pool PgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS exam_results (
	id                TEXT PRIMARY KEY,
	exam_content_id   TEXT NOT NULL,
	user_id           TEXT NOT NULL,
	attempt_number    INTEGER NOT NULL DEFAULT 1,
	total_attempts    INTEGER NOT NULL DEFAULT 1,
	duration_taken_ms BIGINT NOT NULL DEFAULT 0,
	earned_score      DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_score       DOUBLE PRECISION NOT NULL DEFAULT 0,
	status            TEXT NOT NULL DEFAULT 'completed',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS questions (
	id          INTEGER PRIMARY KEY,
	question    TEXT NOT NULL,
	explanation TEXT,
	difficulty  TEXT,
	domain      TEXT
);

CREATE TABLE IF NOT EXISTS answers (
	id          BIGSERIAL PRIMARY KEY,
	question_id INTEGER NOT NULL REFERENCES questions(id),
	value       TEXT NOT NULL,
	is_correct  BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS exam_result_questions (
	id             TEXT PRIMARY KEY,
	exam_result_id TEXT NOT NULL REFERENCES exam_results(id),
	question_id    INTEGER NOT NULL REFERENCES questions(id),
	score          DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS exam_answer_results (
	id                      BIGSERIAL PRIMARY KEY,
	exam_result_question_id TEXT NOT NULL REFERENCES exam_result_questions(id),
	answer_value            TEXT NOT NULL,
	is_correct              BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS telemetry (
	id              BIGSERIAL PRIMARY KEY,
	stage           INTEGER NOT NULL,
	usage           TEXT NOT NULL,
	input_tokens    BIGINT NOT NULL DEFAULT 0,
	output_tokens   BIGINT NOT NULL DEFAULT 0,
	runtime_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_exam_results_user ON exam_results(user_id, exam_content_id);
CREATE INDEX IF NOT EXISTS idx_erq_result ON exam_result_questions(exam_result_id);
CREATE INDEX IF NOT EXISTS idx_ear_question ON exam_answer_results(exam_result_question_id);
CREATE INDEX IF NOT EXISTS idx_answers_question ON answers(question_id);
CREATE INDEX IF NOT EXISTS idx_telemetry_created ON telemetry(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) AttemptHistory(ctx context.Context, testID, studentID string) ([]model.AttemptRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, exam_content_id, user_id, attempt_number, total_attempts,
		       duration_taken_ms, earned_score, total_score, status, created_at
		FROM exam_results
		WHERE exam_content_id = $1 AND user_id = $2
		ORDER BY attempt_number DESC, created_at DESC`,
		testID, studentID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query attempt history")
	}
	defer rows.Close()

	var attempts []model.AttemptRecord
	for rows.Next() {
		var a model.AttemptRecord
		if err := rows.Scan(
			&a.ID, &a.ExamContentID, &a.UserID, &a.AttemptNumber, &a.TotalAttempts,
			&a.DurationTakenMs, &a.EarnedScore, &a.TotalScore, &a.Status, &a.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan attempt")
		}
		attempts = append(attempts, a)
	}
	return attempts, eris.Wrap(rows.Err(), "postgres: iterate attempts")
}

func (s *PostgresStore) StudentHasAttempts(ctx context.Context, studentID string) (bool, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_results WHERE user_id = $1`, studentID,
	).Scan(&n)
	if err != nil {
		return false, eris.Wrap(err, "postgres: count attempts")
	}
	return n > 0, nil
}

func (s *PostgresStore) QuestionCount(ctx context.Context, examResultID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_result_questions WHERE exam_result_id = $1`, examResultID,
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: count questions")
	}
	return n, nil
}

func (s *PostgresStore) IncorrectQuestions(ctx context.Context, examResultID string) ([]model.IncorrectQuestion, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tq.id, tq.question_id, tq.score,
		       COALESCE(q.question, ''), COALESCE(q.explanation, ''), COALESCE(q.difficulty, '')
		FROM exam_result_questions tq
		LEFT JOIN questions q ON q.id = tq.question_id
		WHERE tq.exam_result_id = $1
		  AND (EXISTS (
			SELECT 1 FROM exam_answer_results ta
			WHERE ta.exam_result_question_id = tq.id AND NOT ta.is_correct
		  ) OR NOT EXISTS (
			SELECT 1 FROM exam_answer_results ta
			WHERE ta.exam_result_question_id = tq.id
		  ))
		ORDER BY tq.id`,
		examResultID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query incorrect questions")
	}
	defer rows.Close()

	var items []model.IncorrectQuestion
	for rows.Next() {
		var iq model.IncorrectQuestion
		if err := rows.Scan(
			&iq.TestResultQuestionID, &iq.QuestionID, &iq.Score,
			&iq.QuestionText, &iq.Explanation, &iq.Difficulty,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan incorrect question")
		}
		items = append(items, iq)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate incorrect questions")
	}
	rows.Close()

	for i := range items {
		if err := s.fillAnswers(ctx, &items[i]); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (s *PostgresStore) fillAnswers(ctx context.Context, iq *model.IncorrectQuestion) error {
	rows, err := s.pool.Query(ctx,
		`SELECT answer_value FROM exam_answer_results WHERE exam_result_question_id = $1 ORDER BY id`,
		iq.TestResultQuestionID,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: query student answers")
	}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return eris.Wrap(err, "postgres: scan student answer")
		}
		iq.StudentAnswers = append(iq.StudentAnswers, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return eris.Wrap(err, "postgres: iterate student answers")
	}

	bank, err := s.pool.Query(ctx,
		`SELECT value, is_correct FROM answers WHERE question_id = $1 ORDER BY id`,
		iq.QuestionID,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: query answer bank")
	}
	for bank.Next() {
		var v string
		var correct bool
		if err := bank.Scan(&v, &correct); err != nil {
			bank.Close()
			return eris.Wrap(err, "postgres: scan answer")
		}
		iq.AllAnswers = append(iq.AllAnswers, v)
		if correct {
			iq.CorrectAnswers = append(iq.CorrectAnswers, v)
		}
	}
	bank.Close()
	return eris.Wrap(bank.Err(), "postgres: iterate answer bank")
}

func (s *PostgresStore) DomainPerformance(ctx context.Context, examResultID string) (*model.DomainPerformance, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT COALESCE(NULLIF(q.domain, ''), 'Unknown') AS domain,
		       COUNT(*) AS total,
		       SUM(CASE WHEN EXISTS (
		              SELECT 1 FROM exam_answer_results ta
		              WHERE ta.exam_result_question_id = tq.id
		           ) AND NOT EXISTS (
		              SELECT 1 FROM exam_answer_results ta2
		              WHERE ta2.exam_result_question_id = tq.id AND NOT ta2.is_correct
		           ) THEN 1 ELSE 0 END) AS correct
		FROM exam_result_questions tq
		LEFT JOIN questions q ON q.id = tq.question_id
		WHERE tq.exam_result_id = $1
		GROUP BY domain
		ORDER BY domain`,
		examResultID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query domain performance")
	}
	defer rows.Close()

	perf, err := buildDomainPerformance(rows)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan domain performance")
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate domain performance")
	}
	return perf, nil
}

func (s *PostgresStore) AppendTelemetry(ctx context.Context, rec model.TelemetryRecord) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO telemetry (stage, usage, input_tokens, output_tokens, runtime_seconds, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.Stage, rec.Usage, rec.InputTokens, rec.OutputTokens, rec.RuntimeSeconds, ts,
	)
	return eris.Wrap(err, "postgres: insert telemetry")
}

func (s *PostgresStore) ListTelemetry(ctx context.Context, limit int) ([]model.TelemetryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT stage, usage, input_tokens, output_tokens, runtime_seconds, created_at
		FROM telemetry ORDER BY created_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query telemetry")
	}
	defer rows.Close()

	var recs []model.TelemetryRecord
	for rows.Next() {
		var r model.TelemetryRecord
		if err := rows.Scan(&r.Stage, &r.Usage, &r.InputTokens, &r.OutputTokens, &r.RuntimeSeconds, &r.Timestamp); err != nil {
			return nil, eris.Wrap(err, "postgres: scan telemetry")
		}
		recs = append(recs, r)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: iterate telemetry")
}
