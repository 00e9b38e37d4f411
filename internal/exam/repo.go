package exam

import (
	"context"
	"time"
)

// QuestionSource supplies the questions of a set ordered by ascending id.
// An unknown set yields an empty slice, not an error.
type QuestionSource interface {
	ListQuestions(ctx context.Context, owner int64, testID string) ([]Question, error)
}

// QuestionRepository is the question-management surface.
// Listing returns the owner's rows plus shared rows; mutations only touch
// the owner's rows.
type QuestionRepository interface {
	QuestionSource
	ListTests(ctx context.Context, owner int64) ([]TestSummary, error)
	GetQuestion(ctx context.Context, owner, id int64) (Question, error)
	ImportQuestions(ctx context.Context, owner int64, testID string, qs []Question) (int, error)
	UpdateQuestion(ctx context.Context, owner, id int64, p QuestionPatch) (Question, error)
	DeleteQuestion(ctx context.Context, owner, id int64) error
	DeleteTest(ctx context.Context, owner int64, testID string) (int, error)
	RenameTest(ctx context.Context, owner int64, from, to string) (int, error)
	CountQuestions(ctx context.Context) (int, error)
}

type AttemptListOpts struct {
	Status string // optional: in_progress|completed
	TestID string
	Limit  int
}

type AttemptStore interface {
	CreateAttempt(ctx context.Context, owner int64, in NewAttempt) (Attempt, error)
	GetAttempt(ctx context.Context, owner, id int64) (Attempt, error)
	// UpdateAttempt applies p to an in_progress attempt. A completed
	// attempt yields ErrAttemptCompleted.
	UpdateAttempt(ctx context.Context, owner, id int64, p AttemptPatch) (Attempt, error)
	// CompleteAttempt transitions in_progress -> completed exactly once.
	// Every later call yields ErrAttemptCompleted.
	CompleteAttempt(ctx context.Context, owner, id int64, correct, score int, at time.Time) (Attempt, error)
	DeleteAttempt(ctx context.Context, owner, id int64) error
	ListAttempts(ctx context.Context, owner int64, opts AttemptListOpts) ([]Attempt, error)
}

type ResultRecorder interface {
	CreateResult(ctx context.Context, owner int64, r Result) (Result, error)
}

type ResultStore interface {
	ResultRecorder
	// ListResults returns results ordered by completion time, oldest first.
	ListResults(ctx context.Context, owner int64) ([]Result, error)
	DeleteResult(ctx context.Context, owner, id int64) error
}

// Journal receives lifecycle events. Failures never abort an operation.
type Journal interface {
	Append(ctx context.Context, typ, key string, payload any) error
}

// Store bundles every persistence concern behind one backend.
type Store interface {
	QuestionRepository
	AttemptStore
	ResultStore
}
