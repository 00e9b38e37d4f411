package exam

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Engine drives the attempt lifecycle: in_progress --Finish--> completed.
type Engine struct {
	questions QuestionSource
	attempts  AttemptStore
	results   ResultRecorder
	journal   Journal
	log       *zap.Logger
	now       func() time.Time
}

type Option func(*Engine)

func WithJournal(j Journal) Option { return func(e *Engine) { e.journal = j } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func NewEngine(q QuestionSource, a AttemptStore, r ResultRecorder, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		questions: q,
		attempts:  a,
		results:   r,
		log:       log.Named("engine"),
		now:       time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Create freezes order as the attempt's question order. The caller decides
// whether order is shuffled.
func (e *Engine) Create(ctx context.Context, owner int64, testID string, order []int64, total int) (Attempt, error) {
	if testID == "" {
		return Attempt{}, invalid("testId", "is required")
	}
	if len(order) == 0 {
		return Attempt{}, invalid("questionOrder", "must not be empty")
	}
	if total != len(order) {
		return Attempt{}, invalid("totalQuestions", "is %d but questionOrder has %d entries", total, len(order))
	}
	seen := make(map[int64]struct{}, len(order))
	for _, id := range order {
		if _, dup := seen[id]; dup {
			return Attempt{}, invalid("questionOrder", "question %d appears twice", id)
		}
		seen[id] = struct{}{}
	}

	a, err := e.attempts.CreateAttempt(ctx, owner, NewAttempt{
		TestID:         testID,
		QuestionOrder:  append([]int64(nil), order...),
		TotalQuestions: total,
		StartedAt:      e.now(),
	})
	if err != nil {
		return Attempt{}, fmt.Errorf("create attempt: %w", err)
	}
	e.log.Info("attempt created",
		zap.Int64("attempt_id", a.ID), zap.String("test_id", testID),
		zap.Int64("user_id", owner), zap.Int("questions", total))
	e.record(ctx, "attempt_created", a.ID, map[string]any{
		"testId": testID, "userId": owner, "totalQuestions": total,
	})
	return a, nil
}

// Start loads the set, optionally shuffles it and creates an attempt over it.
func (e *Engine) Start(ctx context.Context, owner int64, testID string, shuffle func([]int64)) (*Session, error) {
	qs, err := e.questions.ListQuestions(ctx, owner, testID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if len(qs) == 0 {
		return nil, invalid("testId", "test %q has no questions", testID)
	}
	order := make([]int64, len(qs))
	for i, q := range qs {
		order[i] = q.ID
	}
	if shuffle != nil {
		shuffle(order)
	}
	a, err := e.Create(ctx, owner, testID, order, len(order))
	if err != nil {
		return nil, err
	}
	return NewSession(a, reconcile(a.QuestionOrder, qs)), nil
}

func (e *Engine) Get(ctx context.Context, owner, id int64) (Attempt, error) {
	return e.attempts.GetAttempt(ctx, owner, id)
}

func (e *Engine) List(ctx context.Context, owner int64, opts AttemptListOpts) ([]Attempt, error) {
	return e.attempts.ListAttempts(ctx, owner, opts)
}

// Persist writes the progress fields of a. Redundant and concurrent calls
// are allowed; the last write wins.
func (e *Engine) Persist(ctx context.Context, owner int64, a Attempt) (Attempt, error) {
	idx := a.CurrentIndex
	return e.attempts.UpdateAttempt(ctx, owner, a.ID, AttemptPatch{
		CurrentIndex: &idx,
		Answers:      a.Answers,
	})
}

// Update applies a client patch. Answers must reference questions of the
// frozen order and the index is clamped. A patch moving the status to
// completed finishes the attempt, so score is always computed here.
func (e *Engine) Update(ctx context.Context, owner, id int64, p AttemptPatch) (Attempt, error) {
	finish := false
	if p.Status != nil {
		switch *p.Status {
		case StatusInProgress:
		case StatusCompleted:
			finish = true
		default:
			return Attempt{}, invalid("status", "unknown status %q", *p.Status)
		}
	}

	cur, err := e.attempts.GetAttempt(ctx, owner, id)
	if err != nil {
		return Attempt{}, err
	}
	if cur.Completed() {
		return Attempt{}, ErrAttemptCompleted
	}
	if err := checkAnswers(cur.QuestionOrder, p.Answers); err != nil {
		return Attempt{}, err
	}
	if p.CurrentIndex != nil {
		idx := clamp(*p.CurrentIndex, 0, len(cur.QuestionOrder)-1)
		p.CurrentIndex = &idx
	}

	p.Status = nil
	updated := cur
	if p.CurrentIndex != nil || p.Answers != nil {
		if updated, err = e.attempts.UpdateAttempt(ctx, owner, id, p); err != nil {
			return Attempt{}, err
		}
	}
	if finish {
		done, _, err := e.Finish(ctx, owner, id)
		return done, err
	}
	return updated, nil
}

// Finish scores the attempt against the current questions, completes it and
// emits a Result. A second Finish yields ErrAttemptCompleted and emits nothing.
// If recording the Result fails the completed attempt and the unsaved result
// are still returned.
func (e *Engine) Finish(ctx context.Context, owner, id int64) (Attempt, Result, error) {
	a, err := e.attempts.GetAttempt(ctx, owner, id)
	if err != nil {
		return Attempt{}, Result{}, err
	}
	if a.Completed() {
		return Attempt{}, Result{}, ErrAttemptCompleted
	}
	qs, err := e.questions.ListQuestions(ctx, owner, a.TestID)
	if err != nil {
		return Attempt{}, Result{}, fmt.Errorf("list questions: %w", err)
	}

	correct, score := Score(a, qs)
	at := e.now()
	done, err := e.attempts.CompleteAttempt(ctx, owner, id, correct, score, at)
	if err != nil {
		return Attempt{}, Result{}, err
	}

	res := Result{
		TestID:         done.TestID,
		Score:          score,
		CorrectCount:   correct,
		TotalQuestions: done.TotalQuestions,
		CompletedAt:    unixMilli(at),
		UserID:         owner,
	}
	if saved, err := e.results.CreateResult(ctx, owner, res); err != nil {
		e.log.Error("result not recorded",
			zap.Int64("attempt_id", id), zap.Int64("user_id", owner), zap.Error(err))
	} else {
		res = saved
	}

	e.log.Info("attempt finished",
		zap.Int64("attempt_id", id), zap.String("test_id", done.TestID),
		zap.Int("correct", correct), zap.Int("score", score))
	e.record(ctx, "attempt_finished", id, map[string]any{
		"testId": done.TestID, "userId": owner, "correctCount": correct, "score": score,
	})
	return done, res, nil
}

// FinishSession flushes the live state of s and finishes it.
func (e *Engine) FinishSession(ctx context.Context, owner int64, s *Session) (Attempt, Result, error) {
	snap := s.Snapshot()
	if snap.Completed() {
		return Attempt{}, Result{}, ErrAttemptCompleted
	}
	if _, err := e.Persist(ctx, owner, snap); err != nil {
		return Attempt{}, Result{}, err
	}
	done, res, err := e.Finish(ctx, owner, snap.ID)
	if err != nil {
		return Attempt{}, Result{}, err
	}
	s.complete(done)
	return done, res, nil
}

// Delete removes the attempt regardless of its status. Results stay.
func (e *Engine) Delete(ctx context.Context, owner, id int64) error {
	if err := e.attempts.DeleteAttempt(ctx, owner, id); err != nil {
		return err
	}
	e.log.Info("attempt deleted", zap.Int64("attempt_id", id), zap.Int64("user_id", owner))
	e.record(ctx, "attempt_deleted", id, map[string]any{"userId": owner})
	return nil
}

func (e *Engine) record(ctx context.Context, typ string, id int64, payload any) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Append(ctx, typ, strconv.FormatInt(id, 10), payload); err != nil {
		e.log.Warn("journal append failed", zap.String("type", typ), zap.Int64("attempt_id", id), zap.Error(err))
	}
}

// Score compares every answer in the frozen order with the current correct
// answer. Questions no longer present count as incorrect; the denominator
// stays the snapshot total.
func Score(a Attempt, current []Question) (correct, score int) {
	key := make(map[int64]string, len(current))
	for _, q := range current {
		key[q.ID] = q.CorrectAnswer
	}
	for _, id := range a.QuestionOrder {
		ans, ok := a.Answers[strconv.FormatInt(id, 10)]
		if !ok {
			continue
		}
		if want, ok := key[id]; ok && ans == want {
			correct++
		}
	}
	return correct, percent(correct, a.TotalQuestions)
}

// percent is round(100*n/d) with halves rounded up.
func percent(n, d int) int {
	if d <= 0 {
		return 0
	}
	return (200*n + d) / (2 * d)
}

func checkAnswers(order []int64, answers map[string]string) error {
	if len(answers) == 0 {
		return nil
	}
	in := make(map[string]struct{}, len(order))
	for _, id := range order {
		in[strconv.FormatInt(id, 10)] = struct{}{}
	}
	for k := range answers {
		if _, ok := in[k]; !ok {
			return invalid("answers", "question %s is not part of this attempt", k)
		}
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IsNotFound reports whether err means the addressed row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAttemptNotFound) || errors.Is(err, ErrQuestionNotFound) || errors.Is(err, ErrResultNotFound)
}
