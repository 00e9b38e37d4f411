package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SQLStore persists questions, attempts and results. Queries use $N
// placeholders, which both pgx and modernc sqlite accept.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// --- questions ---

const questionCols = `id,test_id,question_text,answers_json,correct_answer,category,user_id`

func scanQuestion(row interface{ Scan(...any) error }) (Question, error) {
	var q Question
	var ajson string
	if err := row.Scan(&q.ID, &q.TestID, &q.QuestionText, &ajson, &q.CorrectAnswer, &q.Category, &q.UserID); err != nil {
		return Question{}, err
	}
	if err := json.Unmarshal([]byte(ajson), &q.Answers); err != nil {
		return Question{}, fmt.Errorf("question %d answers: %w", q.ID, err)
	}
	return q, nil
}

func (s *SQLStore) ListQuestions(ctx context.Context, owner int64, testID string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+questionCols+` FROM questions
		WHERE test_id=$1 AND (user_id=$2 OR user_id=0)
		ORDER BY id ASC`, testID, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListTests(ctx context.Context, owner int64) ([]TestSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT test_id, COUNT(*), COALESCE(MAX(category),'')
		FROM questions WHERE user_id=$1 OR user_id=0
		GROUP BY test_id ORDER BY test_id`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []TestSummary{}
	for rows.Next() {
		var t TestSummary
		if err := rows.Scan(&t.ID, &t.Count, &t.Category); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetQuestion(ctx context.Context, owner, id int64) (Question, error) {
	q, err := scanQuestion(s.db.QueryRowContext(ctx, `SELECT `+questionCols+` FROM questions
		WHERE id=$1 AND (user_id=$2 OR user_id=0)`, id, owner))
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, ErrQuestionNotFound
	}
	return q, err
}

// ImportQuestions inserts qs in one transaction, keeping their order so
// ascending ids follow the file order.
func (s *SQLStore) ImportQuestions(ctx context.Context, owner int64, testID string, qs []Question) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO questions
		(test_id,question_text,answers_json,correct_answer,category,user_id)
		VALUES ($1,$2,$3,$4,$5,$6)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, q := range qs {
		aj, err := json.Marshal(q.Answers)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, testID, q.QuestionText, string(aj), q.CorrectAnswer, q.Category, owner); err != nil {
			return 0, fmt.Errorf("insert question %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(qs), nil
}

func (s *SQLStore) UpdateQuestion(ctx context.Context, owner, id int64, p QuestionPatch) (Question, error) {
	var b setBuilder
	if p.QuestionText != nil {
		b.set("question_text", *p.QuestionText)
	}
	if p.Answers != nil {
		aj, err := json.Marshal(p.Answers)
		if err != nil {
			return Question{}, err
		}
		b.set("answers_json", string(aj))
	}
	if p.CorrectAnswer != nil {
		b.set("correct_answer", *p.CorrectAnswer)
	}
	if p.Category != nil {
		b.set("category", *p.Category)
	}
	if b.empty() {
		q, err := s.GetQuestion(ctx, owner, id)
		if err == nil && q.UserID != owner {
			return Question{}, ErrQuestionNotFound
		}
		return q, err
	}

	query := `UPDATE questions SET ` + b.clause() +
		` WHERE id=` + b.next(id) + ` AND user_id=` + b.next(owner) +
		` RETURNING ` + questionCols
	q, err := scanQuestion(s.db.QueryRowContext(ctx, query, b.args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, ErrQuestionNotFound
	}
	return q, err
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, owner, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id=$1 AND user_id=$2`, id, owner)
	return err
}

func (s *SQLStore) DeleteTest(ctx context.Context, owner int64, testID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE test_id=$1 AND user_id=$2`, testID, owner)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLStore) RenameTest(ctx context.Context, owner int64, from, to string) (int, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE questions SET test_id=$1 WHERE test_id=$2 AND user_id=$3`, to, from, owner)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLStore) CountQuestions(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&n)
	return n, err
}

// --- attempts ---

const attemptCols = `id,test_id,status,current_index,answers_json,question_order_json,
	total_questions,correct_count,score,started_at,completed_at,user_id`

func scanAttempt(row interface{ Scan(...any) error }) (Attempt, error) {
	var a Attempt
	var ajson, ojson string
	var completed sql.NullInt64
	if err := row.Scan(&a.ID, &a.TestID, &a.Status, &a.CurrentIndex, &ajson, &ojson,
		&a.TotalQuestions, &a.CorrectCount, &a.Score, &a.StartedAt, &completed, &a.UserID); err != nil {
		return Attempt{}, err
	}
	if err := json.Unmarshal([]byte(ajson), &a.Answers); err != nil || a.Answers == nil {
		a.Answers = map[string]string{}
	}
	if err := json.Unmarshal([]byte(ojson), &a.QuestionOrder); err != nil {
		return Attempt{}, fmt.Errorf("attempt %d question order: %w", a.ID, err)
	}
	if completed.Valid {
		v := completed.Int64
		a.CompletedAt = &v
	}
	return a, nil
}

func (s *SQLStore) CreateAttempt(ctx context.Context, owner int64, in NewAttempt) (Attempt, error) {
	oj, err := json.Marshal(in.QuestionOrder)
	if err != nil {
		return Attempt{}, err
	}
	return scanAttempt(s.db.QueryRowContext(ctx, `INSERT INTO test_attempts
		(test_id,status,current_index,answers_json,question_order_json,total_questions,started_at,user_id)
		VALUES ($1,'in_progress',0,'{}',$2,$3,$4,$5)
		RETURNING `+attemptCols,
		in.TestID, string(oj), in.TotalQuestions, unixMilli(in.StartedAt), owner))
}

func (s *SQLStore) GetAttempt(ctx context.Context, owner, id int64) (Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM test_attempts
		WHERE id=$1 AND user_id=$2`, id, owner))
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, err
}

// UpdateAttempt only touches in_progress rows; single-row atomicity is the
// only guard, so concurrent saves resolve as last write wins.
func (s *SQLStore) UpdateAttempt(ctx context.Context, owner, id int64, p AttemptPatch) (Attempt, error) {
	var b setBuilder
	if p.CurrentIndex != nil {
		b.set("current_index", *p.CurrentIndex)
	}
	if p.Answers != nil {
		aj, err := json.Marshal(p.Answers)
		if err != nil {
			return Attempt{}, err
		}
		b.set("answers_json", string(aj))
	}
	if b.empty() {
		a, err := s.GetAttempt(ctx, owner, id)
		if err == nil && a.Completed() {
			return Attempt{}, ErrAttemptCompleted
		}
		return a, err
	}

	query := `UPDATE test_attempts SET ` + b.clause() +
		` WHERE id=` + b.next(id) + ` AND user_id=` + b.next(owner) +
		` AND status='in_progress' RETURNING ` + attemptCols
	a, err := scanAttempt(s.db.QueryRowContext(ctx, query, b.args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, s.missOrCompleted(ctx, owner, id)
	}
	return a, err
}

func (s *SQLStore) CompleteAttempt(ctx context.Context, owner, id int64, correct, score int, at time.Time) (Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx, `UPDATE test_attempts
		SET status='completed', correct_count=$1, score=$2, completed_at=$3
		WHERE id=$4 AND user_id=$5 AND status='in_progress'
		RETURNING `+attemptCols, correct, score, unixMilli(at), id, owner))
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, s.missOrCompleted(ctx, owner, id)
	}
	return a, err
}

func (s *SQLStore) missOrCompleted(ctx context.Context, owner, id int64) error {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM test_attempts WHERE id=$1 AND user_id=$2`, id, owner).Scan(&status)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrAttemptNotFound
	case err != nil:
		return err
	}
	return ErrAttemptCompleted
}

func (s *SQLStore) DeleteAttempt(ctx context.Context, owner, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM test_attempts WHERE id=$1 AND user_id=$2`, id, owner)
	return err
}

func (s *SQLStore) ListAttempts(ctx context.Context, owner int64, opts AttemptListOpts) ([]Attempt, error) {
	var b setBuilder
	where := []string{"user_id=" + b.next(owner)}
	if opts.Status != "" {
		where = append(where, "status="+b.next(opts.Status))
	}
	if opts.TestID != "" {
		where = append(where, "test_id="+b.next(opts.TestID))
	}
	query := `SELECT ` + attemptCols + ` FROM test_attempts WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY started_at DESC, id DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ` + b.next(opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- results ---

func (s *SQLStore) CreateResult(ctx context.Context, owner int64, r Result) (Result, error) {
	r.UserID = owner
	err := s.db.QueryRowContext(ctx, `INSERT INTO results
		(test_id,score,correct_count,total_questions,completed_at,user_id)
		VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		r.TestID, r.Score, r.CorrectCount, r.TotalQuestions, r.CompletedAt, owner).Scan(&r.ID)
	if err != nil {
		return Result{}, err
	}
	return r, nil
}

func (s *SQLStore) ListResults(ctx context.Context, owner int64) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,test_id,score,correct_count,total_questions,completed_at,user_id
		FROM results WHERE user_id=$1 ORDER BY completed_at ASC, id ASC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Result{}
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.TestID, &r.Score, &r.CorrectCount, &r.TotalQuestions, &r.CompletedAt, &r.UserID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteResult(ctx context.Context, owner, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE id=$1 AND user_id=$2`, id, owner)
	return err
}

// setBuilder numbers placeholders in the order they are written.
type setBuilder struct {
	sets []string
	args []any
}

func (b *setBuilder) next(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *setBuilder) set(col string, v any) { b.sets = append(b.sets, col+"="+b.next(v)) }
func (b *setBuilder) empty() bool           { return len(b.sets) == 0 }
func (b *setBuilder) clause() string        { return strings.Join(b.sets, ", ") }
