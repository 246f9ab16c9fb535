package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/piloturl/test-analysis/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS exam_results (
	id                TEXT PRIMARY KEY,
	exam_content_id   TEXT NOT NULL,
	user_id           TEXT NOT NULL,
	attempt_number    INTEGER NOT NULL DEFAULT 1,
	total_attempts    INTEGER NOT NULL DEFAULT 1,
	duration_taken_ms INTEGER NOT NULL DEFAULT 0,
	earned_score      REAL NOT NULL DEFAULT 0,
	total_score       REAL NOT NULL DEFAULT 0,
	status            TEXT NOT NULL DEFAULT 'completed',
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS questions (
	id          INTEGER PRIMARY KEY,
	question    TEXT NOT NULL,
	explanation TEXT,
	difficulty  TEXT,
	domain      TEXT
);

CREATE TABLE IF NOT EXISTS answers (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	question_id INTEGER NOT NULL REFERENCES questions(id),
	value       TEXT NOT NULL,
	is_correct  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS exam_result_questions (
	id             TEXT PRIMARY KEY,
	exam_result_id TEXT NOT NULL REFERENCES exam_results(id),
	question_id    INTEGER NOT NULL REFERENCES questions(id),
	score          REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS exam_answer_results (
	id                      INTEGER PRIMARY KEY AUTOINCREMENT,
	exam_result_question_id TEXT NOT NULL REFERENCES exam_result_questions(id),
	answer_value            TEXT NOT NULL,
	is_correct              INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS telemetry (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	stage           INTEGER NOT NULL,
	usage           TEXT NOT NULL,
	input_tokens    INTEGER NOT NULL DEFAULT 0,
	output_tokens   INTEGER NOT NULL DEFAULT 0,
	runtime_seconds REAL NOT NULL DEFAULT 0,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_exam_results_user ON exam_results(user_id, exam_content_id);
CREATE INDEX IF NOT EXISTS idx_erq_result ON exam_result_questions(exam_result_id);
CREATE INDEX IF NOT EXISTS idx_ear_question ON exam_answer_results(exam_result_question_id);
CREATE INDEX IF NOT EXISTS idx_answers_question ON answers(question_id);
CREATE INDEX IF NOT EXISTS idx_telemetry_created ON telemetry(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AttemptHistory(ctx context.Context, testID, studentID string) ([]model.AttemptRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, exam_content_id, user_id, attempt_number, total_attempts,
		       duration_taken_ms, earned_score, total_score, status, created_at
		FROM exam_results
		WHERE exam_content_id = ? AND user_id = ?
		ORDER BY attempt_number DESC, created_at DESC`,
		testID, studentID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query attempt history")
	}
	defer rows.Close()

	var attempts []model.AttemptRecord
	for rows.Next() {
		var a model.AttemptRecord
		if err := rows.Scan(
			&a.ID, &a.ExamContentID, &a.UserID, &a.AttemptNumber, &a.TotalAttempts,
			&a.DurationTakenMs, &a.EarnedScore, &a.TotalScore, &a.Status, &a.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan attempt")
		}
		attempts = append(attempts, a)
	}
	return attempts, eris.Wrap(rows.Err(), "sqlite: iterate attempts")
}

func (s *SQLiteStore) StudentHasAttempts(ctx context.Context, studentID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM exam_results WHERE user_id = ?`, studentID,
	).Scan(&n)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: count attempts")
	}
	return n > 0, nil
}

func (s *SQLiteStore) QuestionCount(ctx context.Context, examResultID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM exam_result_questions WHERE exam_result_id = ?`, examResultID,
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: count questions")
	}
	return n, nil
}

func (s *SQLiteStore) IncorrectQuestions(ctx context.Context, examResultID string) ([]model.IncorrectQuestion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tq.id, tq.question_id, tq.score,
		       COALESCE(q.question, ''), COALESCE(q.explanation, ''), COALESCE(q.difficulty, '')
		FROM exam_result_questions tq
		LEFT JOIN questions q ON q.id = tq.question_id
		WHERE tq.exam_result_id = ?
		  AND (EXISTS (
			SELECT 1 FROM exam_answer_results ta
			WHERE ta.exam_result_question_id = tq.id AND ta.is_correct = 0
		  ) OR NOT EXISTS (
			SELECT 1 FROM exam_answer_results ta
			WHERE ta.exam_result_question_id = tq.id
		  ))
		ORDER BY tq.id`,
		examResultID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query incorrect questions")
	}
	defer rows.Close()

	var items []model.IncorrectQuestion
	for rows.Next() {
		var iq model.IncorrectQuestion
		if err := rows.Scan(
			&iq.TestResultQuestionID, &iq.QuestionID, &iq.Score,
			&iq.QuestionText, &iq.Explanation, &iq.Difficulty,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan incorrect question")
		}
		items = append(items, iq)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate incorrect questions")
	}

	for i := range items {
		if err := s.fillAnswers(ctx, &items[i]); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// fillAnswers attaches the student's submitted answers and the answer bank
// for one incorrect question.
func (s *SQLiteStore) fillAnswers(ctx context.Context, iq *model.IncorrectQuestion) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT answer_value FROM exam_answer_results WHERE exam_result_question_id = ? ORDER BY id`,
		iq.TestResultQuestionID,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: query student answers")
	}
	defer rows.Close()
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return eris.Wrap(err, "sqlite: scan student answer")
		}
		iq.StudentAnswers = append(iq.StudentAnswers, v)
	}
	if err := rows.Err(); err != nil {
		return eris.Wrap(err, "sqlite: iterate student answers")
	}

	bank, err := s.db.QueryContext(ctx,
		`SELECT value, is_correct FROM answers WHERE question_id = ? ORDER BY id`,
		iq.QuestionID,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: query answer bank")
	}
	defer bank.Close()
	for bank.Next() {
		var v string
		var correct int
		if err := bank.Scan(&v, &correct); err != nil {
			return eris.Wrap(err, "sqlite: scan answer")
		}
		iq.AllAnswers = append(iq.AllAnswers, v)
		if correct != 0 {
			iq.CorrectAnswers = append(iq.CorrectAnswers, v)
		}
	}
	return eris.Wrap(bank.Err(), "sqlite: iterate answer bank")
}

func (s *SQLiteStore) DomainPerformance(ctx context.Context, examResultID string) (*model.DomainPerformance, error) {
	// A question counts as correct only when it has logged answers and none
	// of them is incorrect.
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(NULLIF(q.domain, ''), 'Unknown') AS domain,
		       COUNT(*) AS total,
		       SUM(CASE WHEN EXISTS (
		              SELECT 1 FROM exam_answer_results ta
		              WHERE ta.exam_result_question_id = tq.id
		           ) AND NOT EXISTS (
		              SELECT 1 FROM exam_answer_results ta2
		              WHERE ta2.exam_result_question_id = tq.id AND ta2.is_correct = 0
		           ) THEN 1 ELSE 0 END) AS correct
		FROM exam_result_questions tq
		LEFT JOIN questions q ON q.id = tq.question_id
		WHERE tq.exam_result_id = ?
		GROUP BY domain
		ORDER BY domain`,
		examResultID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query domain performance")
	}
	defer rows.Close()

	perf, err := buildDomainPerformance(rows)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan domain performance")
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate domain performance")
	}
	return perf, nil
}

func (s *SQLiteStore) AppendTelemetry(ctx context.Context, rec model.TelemetryRecord) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO telemetry (stage, usage, input_tokens, output_tokens, runtime_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Stage, rec.Usage, rec.InputTokens, rec.OutputTokens, rec.RuntimeSeconds, ts,
	)
	return eris.Wrap(err, "sqlite: insert telemetry")
}

func (s *SQLiteStore) ListTelemetry(ctx context.Context, limit int) ([]model.TelemetryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT stage, usage, input_tokens, output_tokens, runtime_seconds, created_at
		FROM telemetry ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query telemetry")
	}
	defer rows.Close()

	var recs []model.TelemetryRecord
	for rows.Next() {
		var r model.TelemetryRecord
		if err := rows.Scan(&r.Stage, &r.Usage, &r.InputTokens, &r.OutputTokens, &r.RuntimeSeconds, &r.Timestamp); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan telemetry")
		}
		recs = append(recs, r)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: iterate telemetry")
}

// rowScanner lets buildDomainPerformance work over database/sql and pgx rows.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
}

func buildDomainPerformance(rows rowScanner) (*model.DomainPerformance, error) {
	var perf model.DomainPerformance
	for rows.Next() {
		var d model.DomainBreakdown
		if err := rows.Scan(&d.Domain, &d.Total, &d.Correct); err != nil {
			return nil, err
		}
		d.Incorrect = d.Total - d.Correct
		if d.Total > 0 {
			d.Accuracy = float64(d.Correct) / float64(d.Total)
		}
		perf.Domains = append(perf.Domains, d)
		perf.Overall.Total += d.Total
		perf.Overall.Correct += d.Correct
	}
	if len(perf.Domains) == 0 {
		return nil, nil
	}
	perf.Overall.Domain = "overall"
	perf.Overall.Incorrect = perf.Overall.Total - perf.Overall.Correct
	if perf.Overall.Total > 0 {
		perf.Overall.Accuracy = float64(perf.Overall.Correct) / float64(perf.Overall.Total)
	}
	return &perf, nil
}
