package exam

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Resume rebuilds a live session from the stored attempt and the current
// question set. The stored order is never rewritten; deleted questions are
// filtered on every read.
//
// ErrAttemptNotFound and ErrQuestionsGone mean the caller should drop its
// resume reference and start fresh (see RecoveryNotice).
func (e *Engine) Resume(ctx context.Context, owner, id int64) (*Session, error) {
	a, err := e.attempts.GetAttempt(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	qs, err := e.questions.ListQuestions(ctx, owner, a.TestID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	active := reconcile(a.QuestionOrder, qs)
	if len(active) == 0 {
		e.log.Info("resume: questions gone",
			zap.Int64("attempt_id", id), zap.String("test_id", a.TestID))
		return nil, ErrQuestionsGone
	}
	if dropped := len(a.QuestionOrder) - len(active); dropped > 0 {
		e.log.Info("resume: deleted questions skipped",
			zap.Int64("attempt_id", id), zap.Int("dropped", dropped))
	}
	return NewSession(a, active), nil
}
