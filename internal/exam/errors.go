package exam

import (
	"errors"
	"fmt"
)

var (
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrQuestionsGone    = errors.New("all questions of the attempt were deleted")
	ErrAttemptCompleted = errors.New("attempt already completed")
	ErrQuestionNotFound = errors.New("question not found")
	ErrResultNotFound   = errors.New("result not found")
)

// ValidationError reports malformed input. The operation had no effect.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// PersistenceError wraps a store failure during autosave. It is not fatal:
// the live session keeps its state and the next save retries.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return "persist " + e.Op + ": " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }

// RecoveryNotice converts the errors that force a fresh start into a
// user-facing message. ok is false for every other error.
func RecoveryNotice(err error) (msg string, ok bool) {
	switch {
	case errors.Is(err, ErrAttemptNotFound):
		return "The saved attempt no longer exists. Starting a new attempt.", true
	case errors.Is(err, ErrQuestionsGone):
		return "The questions of the saved attempt were removed. Starting a new attempt.", true
	}
	return "", false
}
