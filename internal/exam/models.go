package exam

import "time"

const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// SharedOwner owns seeded question sets visible to every user.
const SharedOwner int64 = 0

type Question struct {
	ID            int64             `json:"id"`
	TestID        string            `json:"testId"`
	QuestionText  string            `json:"questionText"`
	Answers       map[string]string `json:"answers"` // A..H -> text
	CorrectAnswer string            `json:"correctAnswer"`
	Category      string            `json:"category"`
	UserID        int64             `json:"userId"`
}

type Attempt struct {
	ID             int64             `json:"id"`
	TestID         string            `json:"testId"`
	Status         string            `json:"status"` // in_progress|completed
	CurrentIndex   int               `json:"currentIndex"`
	Answers        map[string]string `json:"answers"` // questionID -> answer key
	QuestionOrder  []int64           `json:"questionOrder"`
	TotalQuestions int               `json:"totalQuestions"`
	CorrectCount   int               `json:"correctCount"`
	Score          int               `json:"score"`
	StartedAt      int64             `json:"startedAt"`             // unix ms
	CompletedAt    *int64            `json:"completedAt,omitempty"` // unix ms, set once
	UserID         int64             `json:"userId"`
}

func (a Attempt) Completed() bool { return a.Status == StatusCompleted }

// clone returns a copy that shares no maps or slices with a.
func (a Attempt) clone() Attempt {
	out := a
	out.Answers = make(map[string]string, len(a.Answers))
	for k, v := range a.Answers {
		out.Answers[k] = v
	}
	out.QuestionOrder = append([]int64(nil), a.QuestionOrder...)
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

// Result is the permanent history entry emitted once per finished attempt.
// It deliberately carries no attempt id.
type Result struct {
	ID             int64  `json:"id"`
	TestID         string `json:"testId"`
	Score          int    `json:"score"`
	CorrectCount   int    `json:"correctCount"`
	TotalQuestions int    `json:"totalQuestions"`
	CompletedAt    int64  `json:"completedAt"` // unix ms
	UserID         int64  `json:"userId"`
}

type TestSummary struct {
	ID       string `json:"id"`
	Count    int    `json:"count"`
	Category string `json:"category"`
}

// NewAttempt is the creation input for an attempt.
type NewAttempt struct {
	TestID         string
	QuestionOrder  []int64
	TotalQuestions int
	StartedAt      time.Time
}

// AttemptPatch is a partial update. Nil fields are left untouched.
type AttemptPatch struct {
	CurrentIndex *int
	Answers      map[string]string
	Status       *string
}

type QuestionPatch struct {
	QuestionText  *string
	Answers       map[string]string
	CorrectAnswer *string
	Category      *string
}

func unixMilli(t time.Time) int64 { return t.UnixMilli() }
