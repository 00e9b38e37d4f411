package exam

import (
	"strconv"
	"sync"
)

// Session is the live, in-memory view of one attempt during play.
// It is the source of truth until the next successful save.
type Session struct {
	mu       sync.Mutex
	attempt  Attempt
	active   []Question // frozen order minus deleted questions
	version  uint64
	saved    uint64
	onChange func()
}

func NewSession(a Attempt, active []Question) *Session {
	a = a.clone()
	if len(active) > 0 {
		a.CurrentIndex = clamp(a.CurrentIndex, 0, len(active)-1)
	} else {
		a.CurrentIndex = clamp(a.CurrentIndex, 0, len(a.QuestionOrder)-1)
	}
	return &Session{attempt: a, active: active}
}

// RecordAnswer sets answers[questionID] = key. The key is not checked
// against the question's options.
func (s *Session) RecordAnswer(questionID int64, key string) error {
	s.mu.Lock()
	if s.attempt.Completed() {
		s.mu.Unlock()
		return ErrAttemptCompleted
	}
	if !contains(s.attempt.QuestionOrder, questionID) {
		s.mu.Unlock()
		return invalid("questionId", "question %d is not part of this attempt", questionID)
	}
	s.attempt.Answers[strconv.FormatInt(questionID, 10)] = key
	s.version++
	notify := s.onChange
	s.mu.Unlock()

	if notify != nil {
		notify()
	}
	return nil
}

// AnswerCurrent records key for the question at the current index.
func (s *Session) AnswerCurrent(key string) error {
	q, ok := s.Current()
	if !ok {
		return invalid("currentIndex", "no active question")
	}
	return s.RecordAnswer(q.ID, key)
}

// Advance moves the index by delta, clamped to the active list. It never
// wraps around.
func (s *Session) Advance(delta int) int {
	s.mu.Lock()
	if s.attempt.Completed() {
		idx := s.attempt.CurrentIndex
		s.mu.Unlock()
		return idx
	}
	prev := s.attempt.CurrentIndex
	s.attempt.CurrentIndex = clamp(prev+delta, 0, s.lastIndex())
	idx := s.attempt.CurrentIndex
	changed := idx != prev
	if changed {
		s.version++
	}
	notify := s.onChange
	s.mu.Unlock()

	if changed && notify != nil {
		notify()
	}
	return idx
}

func (s *Session) lastIndex() int {
	if len(s.active) > 0 {
		return len(s.active) - 1
	}
	return len(s.attempt.QuestionOrder) - 1
}

// Current returns the question at the current index.
func (s *Session) Current() (Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.active) == 0 {
		return Question{}, false
	}
	return s.active[s.attempt.CurrentIndex], true
}

// Answer returns the recorded answer for questionID.
func (s *Session) Answer(questionID int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.attempt.Answers[strconv.FormatInt(questionID, 10)]
	return v, ok
}

func (s *Session) Snapshot() Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt.clone()
}

func (s *Session) Questions() []Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Question(nil), s.active...)
}

// Progress returns the answered count and the active question count.
func (s *Session) Progress() (answered, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.active {
		if _, ok := s.attempt.Answers[strconv.FormatInt(q.ID, 10)]; ok {
			answered++
		}
	}
	return answered, len(s.active)
}

func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version != s.saved
}

// OnChange registers fn to run after every mutation, outside the lock.
func (s *Session) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Session) pending() (Attempt, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt.clone(), s.version, s.version != s.saved
}

func (s *Session) markSaved(v uint64) {
	s.mu.Lock()
	if v > s.saved {
		s.saved = v
	}
	s.mu.Unlock()
}

func (s *Session) complete(done Attempt) {
	s.mu.Lock()
	s.attempt.Status = done.Status
	s.attempt.CorrectCount = done.CorrectCount
	s.attempt.Score = done.Score
	s.attempt.CompletedAt = done.CompletedAt
	s.saved = s.version
	s.mu.Unlock()
}

// reconcile maps the frozen order through the current questions, dropping
// ids that no longer exist.
func reconcile(order []int64, current []Question) []Question {
	byID := make(map[int64]Question, len(current))
	for _, q := range current {
		byID[q.ID] = q
	}
	out := make([]Question, 0, len(order))
	for _, id := range order {
		if q, ok := byID[id]; ok {
			out = append(out, q)
		}
	}
	return out
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
