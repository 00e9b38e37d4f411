package exam

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryStore struct {
	mu        sync.RWMutex
	questions map[int64]Question
	attempts  map[int64]Attempt
	results   map[int64]Result
	nextID    int64
}

// NewInMemoryStore returns a Store kept in process memory.
func NewInMemoryStore() Store {
	return &memoryStore{
		questions: map[int64]Question{},
		attempts:  map[int64]Attempt{},
		results:   map[int64]Result{},
	}
}

func (m *memoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func visible(rowOwner, owner int64) bool { return rowOwner == owner || rowOwner == SharedOwner }

// --- questions ---

func (m *memoryStore) ListQuestions(_ context.Context, owner int64, testID string) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Question{}
	for _, q := range m.questions {
		if q.TestID == testID && visible(q.UserID, owner) {
			out = append(out, copyQuestion(q))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) ListTests(_ context.Context, owner int64) ([]TestSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byTest := map[string]*TestSummary{}
	for _, q := range m.questions {
		if !visible(q.UserID, owner) {
			continue
		}
		t, ok := byTest[q.TestID]
		if !ok {
			t = &TestSummary{ID: q.TestID}
			byTest[q.TestID] = t
		}
		t.Count++
		if q.Category > t.Category {
			t.Category = q.Category
		}
	}
	out := make([]TestSummary, 0, len(byTest))
	for _, t := range byTest {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) GetQuestion(_ context.Context, owner, id int64) (Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok || !visible(q.UserID, owner) {
		return Question{}, ErrQuestionNotFound
	}
	return copyQuestion(q), nil
}

func (m *memoryStore) ImportQuestions(_ context.Context, owner int64, testID string, qs []Question) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range qs {
		q = copyQuestion(q)
		q.ID = m.id()
		q.TestID = testID
		q.UserID = owner
		m.questions[q.ID] = q
	}
	return len(qs), nil
}

func (m *memoryStore) UpdateQuestion(_ context.Context, owner, id int64, p QuestionPatch) (Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok || q.UserID != owner {
		return Question{}, ErrQuestionNotFound
	}
	if p.QuestionText != nil {
		q.QuestionText = *p.QuestionText
	}
	if p.Answers != nil {
		q.Answers = copyAnswers(p.Answers)
	}
	if p.CorrectAnswer != nil {
		q.CorrectAnswer = *p.CorrectAnswer
	}
	if p.Category != nil {
		q.Category = *p.Category
	}
	m.questions[id] = q
	return copyQuestion(q), nil
}

func (m *memoryStore) DeleteQuestion(_ context.Context, owner, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.questions[id]; ok && q.UserID == owner {
		delete(m.questions, id)
	}
	return nil
}

func (m *memoryStore) DeleteTest(_ context.Context, owner int64, testID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, q := range m.questions {
		if q.TestID == testID && q.UserID == owner {
			delete(m.questions, id)
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) RenameTest(_ context.Context, owner int64, from, to string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, q := range m.questions {
		if q.TestID == from && q.UserID == owner {
			q.TestID = to
			m.questions[id] = q
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) CountQuestions(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.questions), nil
}

// --- attempts ---

func (m *memoryStore) CreateAttempt(_ context.Context, owner int64, in NewAttempt) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := Attempt{
		ID:             m.id(),
		TestID:         in.TestID,
		Status:         StatusInProgress,
		Answers:        map[string]string{},
		QuestionOrder:  append([]int64(nil), in.QuestionOrder...),
		TotalQuestions: in.TotalQuestions,
		StartedAt:      unixMilli(in.StartedAt),
		UserID:         owner,
	}
	m.attempts[a.ID] = a
	return a.clone(), nil
}

func (m *memoryStore) GetAttempt(_ context.Context, owner, id int64) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok || a.UserID != owner {
		return Attempt{}, ErrAttemptNotFound
	}
	return a.clone(), nil
}

func (m *memoryStore) UpdateAttempt(_ context.Context, owner, id int64, p AttemptPatch) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok || a.UserID != owner {
		return Attempt{}, ErrAttemptNotFound
	}
	if a.Completed() {
		return Attempt{}, ErrAttemptCompleted
	}
	if p.CurrentIndex != nil {
		a.CurrentIndex = *p.CurrentIndex
	}
	if p.Answers != nil {
		a.Answers = copyAnswers(p.Answers)
	}
	m.attempts[id] = a
	return a.clone(), nil
}

func (m *memoryStore) CompleteAttempt(_ context.Context, owner, id int64, correct, score int, at time.Time) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok || a.UserID != owner {
		return Attempt{}, ErrAttemptNotFound
	}
	if a.Completed() {
		return Attempt{}, ErrAttemptCompleted
	}
	ms := unixMilli(at)
	a.Status = StatusCompleted
	a.CorrectCount = correct
	a.Score = score
	a.CompletedAt = &ms
	m.attempts[id] = a
	return a.clone(), nil
}

func (m *memoryStore) DeleteAttempt(_ context.Context, owner, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.attempts[id]; ok && a.UserID == owner {
		delete(m.attempts, id)
	}
	return nil
}

func (m *memoryStore) ListAttempts(_ context.Context, owner int64, opts AttemptListOpts) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Attempt{}
	for _, a := range m.attempts {
		if a.UserID != owner {
			continue
		}
		if opts.Status != "" && a.Status != opts.Status {
			continue
		}
		if opts.TestID != "" && a.TestID != opts.TestID {
			continue
		}
		out = append(out, a.clone())
	}
	// newest first
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt != out[j].StartedAt {
			return out[i].StartedAt > out[j].StartedAt
		}
		return out[i].ID > out[j].ID
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// --- results ---

func (m *memoryStore) CreateResult(_ context.Context, owner int64, r Result) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.id()
	r.UserID = owner
	m.results[r.ID] = r
	return r, nil
}

func (m *memoryStore) ListResults(_ context.Context, owner int64) ([]Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Result{}
	for _, r := range m.results {
		if r.UserID == owner {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CompletedAt != out[j].CompletedAt {
			return out[i].CompletedAt < out[j].CompletedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memoryStore) DeleteResult(_ context.Context, owner, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.results[id]; ok && r.UserID == owner {
		delete(m.results, id)
	}
	return nil
}

func copyQuestion(q Question) Question {
	q.Answers = copyAnswers(q.Answers)
	return q
}

func copyAnswers(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
