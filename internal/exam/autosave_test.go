package exam

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type countingPersister struct {
	mu    sync.Mutex
	calls int
	last  Attempt
	fail  error
}

func (p *countingPersister) Persist(_ context.Context, _ int64, a Attempt) (Attempt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.fail != nil {
		return Attempt{}, p.fail
	}
	p.last = a
	return a, nil
}

func (p *countingPersister) snapshot() (int, Attempt) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls, p.last
}

func newPlaySession() *Session {
	return NewSession(Attempt{
		ID: 1, Status: StatusInProgress, Answers: map[string]string{},
		QuestionOrder: []int64{1, 2, 3}, TotalQuestions: 3,
	}, []Question{{ID: 1}, {ID: 2}, {ID: 3}})
}

func TestAutosaveDebounces(t *testing.T) {
	p := &countingPersister{}
	s := newPlaySession()
	a := NewAutosaver(p, owner, s, 30*time.Millisecond, nil)
	defer a.Close(context.Background())

	_ = s.RecordAnswer(1, "A")
	s.Advance(1)
	_ = s.RecordAnswer(2, "B")

	deadline := time.Now().Add(2 * time.Second)
	for {
		calls, last := p.snapshot()
		if calls > 0 {
			if calls != 1 {
				t.Fatalf("calls = %d, want 1 for a burst", calls)
			}
			if last.CurrentIndex != 1 || last.Answers["2"] != "B" {
				t.Fatalf("saved state = %+v", last)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("debounced save never happened")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if s.Dirty() {
		t.Fatal("session still dirty after successful save")
	}
}

func TestAutosaveFlushSkipsCleanSession(t *testing.T) {
	p := &countingPersister{}
	s := newPlaySession()
	a := NewAutosaver(p, owner, s, time.Hour, nil)

	if err := a.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if calls, _ := p.snapshot(); calls != 0 {
		t.Fatalf("clean flush wrote %d times", calls)
	}

	_ = s.RecordAnswer(3, "C")
	if err := a.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if calls, last := p.snapshot(); calls != 1 || last.Answers["3"] != "C" {
		t.Fatalf("close did not flush: calls=%d last=%+v", calls, last)
	}

	// detached after close
	_ = s.RecordAnswer(1, "A")
	time.Sleep(10 * time.Millisecond)
	if calls, _ := p.snapshot(); calls != 1 {
		t.Fatal("saved after close")
	}
}

func TestAutosaveFailureKeepsDirty(t *testing.T) {
	p := &countingPersister{fail: errors.New("offline")}
	s := newPlaySession()
	a := NewAutosaver(p, owner, s, time.Hour, nil)

	_ = s.RecordAnswer(1, "A")
	err := a.Flush(context.Background())
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("want PersistenceError, got %v", err)
	}
	if !s.Dirty() {
		t.Fatal("failed save must leave the session dirty")
	}

	p.mu.Lock()
	p.fail = nil
	p.mu.Unlock()
	if err := a.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Dirty() {
		t.Fatal("retry did not clear dirty state")
	}
}

func TestAutosaveWithEngine(t *testing.T) {
	st := NewInMemoryStore()
	e := newTestEngine(st)
	ctx := context.Background()
	qs := seed(t, st, "set.json", "A", "B")

	s, err := e.Start(ctx, owner, "set.json", nil)
	if err != nil {
		t.Fatal(err)
	}
	a := NewAutosaver(e, owner, s, time.Hour, nil)
	_ = s.RecordAnswer(qs[1].ID, "B")
	s.Advance(1)
	if err := a.Close(ctx); err != nil {
		t.Fatal(err)
	}

	stored, _ := e.Get(ctx, owner, s.Snapshot().ID)
	if stored.CurrentIndex != 1 || stored.Answers[itoa(qs[1].ID)] != "B" {
		t.Fatalf("stored = %+v", stored)
	}
}
