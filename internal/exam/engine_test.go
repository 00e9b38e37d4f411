package exam

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"testing"
	"time"
)

const owner int64 = 7

func seed(t *testing.T, st Store, testID string, correct ...string) []Question {
	t.Helper()
	qs := make([]Question, len(correct))
	for i, c := range correct {
		qs[i] = Question{
			QuestionText:  "q",
			Answers:       map[string]string{"A": "a", "B": "b", "C": "c"},
			CorrectAnswer: c,
			Category:      "General",
		}
	}
	if _, err := st.ImportQuestions(context.Background(), owner, testID, qs); err != nil {
		t.Fatalf("import: %v", err)
	}
	out, err := st.ListQuestions(context.Background(), owner, testID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return out
}

func ids(qs []Question) []int64 {
	out := make([]int64, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func newTestEngine(st Store) *Engine {
	return NewEngine(st, st, st, nil, WithClock(func() time.Time { return time.UnixMilli(1_700_000_000_000) }))
}

func TestCreateValidation(t *testing.T) {
	st := NewInMemoryStore()
	e := newTestEngine(st)
	ctx := context.Background()

	cases := []struct {
		name  string
		order []int64
		total int
		field string
	}{
		{"empty order", nil, 0, "questionOrder"},
		{"count mismatch", []int64{1, 2}, 3, "totalQuestions"},
		{"duplicate id", []int64{1, 1}, 2, "questionOrder"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Create(ctx, owner, "set.json", tc.order, tc.total)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("want ValidationError, got %v", err)
			}
			if ve.Field != tc.field {
				t.Fatalf("field = %q, want %q", ve.Field, tc.field)
			}
		})
	}

	list, _ := st.ListAttempts(ctx, owner, AttemptListOpts{})
	if len(list) != 0 {
		t.Fatalf("invalid input created %d attempts", len(list))
	}
}

func TestCreateFreezesOrder(t *testing.T) {
	st := NewInMemoryStore()
	e := newTestEngine(st)
	ctx := context.Background()
	qs := seed(t, st, "set.json", "A", "B", "C")
	order := []int64{qs[2].ID, qs[0].ID, qs[1].ID}

	a, err := e.Create(ctx, owner, "set.json", order, 3)
	if err != nil {
		t.Fatal(err)
	}
	if a.Status != StatusInProgress || a.CurrentIndex != 0 || len(a.Answers) != 0 {
		t.Fatalf("unexpected fresh attempt: %+v", a)
	}

	// caller mutation and question edits must not leak into the stored order
	order[0] = 999
	text := "edited"
	if _, err := st.UpdateQuestion(ctx, owner, qs[1].ID, QuestionPatch{QuestionText: &text}); err != nil {
		t.Fatal(err)
	}
	if err := st.DeleteQuestion(ctx, owner, qs[0].ID); err != nil {
		t.Fatal(err)
	}

	got, err := e.Get(ctx, owner, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{qs[2].ID, qs[0].ID, qs[1].ID}
	if !reflect.DeepEqual(got.QuestionOrder, want) {
		t.Fatalf("order = %v, want %v", got.QuestionOrder, want)
	}
}

func TestAdvanceClamps(t *testing.T) {
	s := NewSession(Attempt{
		ID: 1, Status: StatusInProgress, Answers: map[string]string{},
		QuestionOrder: []int64{1, 2, 3}, TotalQuestions: 3,
	}, []Question{{ID: 1}, {ID: 2}, {ID: 3}})

	steps := []int{-1, 1, 1, 1, 5, -2, -10, 2, 100}
	for _, d := range steps {
		idx := s.Advance(d)
		if idx < 0 || idx > 2 {
			t.Fatalf("Advance(%d) = %d, out of bounds", d, idx)
		}
	}
	if got := s.Snapshot().CurrentIndex; got != 2 {
		t.Fatalf("final index = %d, want 2", got)
	}
}

func TestRecordAnswerRejectsForeignQuestion(t *testing.T) {
	s := NewSession(Attempt{
		ID: 1, Status: StatusInProgress, Answers: map[string]string{},
		QuestionOrder: []int64{10, 11}, TotalQuestions: 2,
	}, []Question{{ID: 10}, {ID: 11}})

	if err := s.RecordAnswer(12, "A"); err == nil {
		t.Fatal("expected error for question outside the order")
	}
	if err := s.RecordAnswer(10, "Z"); err != nil {
		t.Fatalf("any key is accepted: %v", err)
	}
	if err := s.RecordAnswer(10, "B"); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.Answer(10); v != "B" {
		t.Fatalf("answer = %q, want overwrite to B", v)
	}
	if !s.Dirty() {
		t.Fatal("session should be dirty after answering")
	}
}

func TestFinishScore(t *testing.T) {
	st := NewInMemoryStore()
	e := newTestEngine(st)
	ctx := context.Background()
	qs := seed(t, st, "set.json", "A", "B", "C", "D")

	s, err := e.Start(ctx, owner, "set.json", nil)
	if err != nil {
		t.Fatal(err)
	}
	_ = s.RecordAnswer(qs[0].ID, "A")
	_ = s.RecordAnswer(qs[1].ID, "B")
	_ = s.RecordAnswer(qs[2].ID, "C")

	done, res, err := e.FinishSession(ctx, owner, s)
	if err != nil {
		t.Fatal(err)
	}
	if done.CorrectCount != 3 || done.Score != 75 {
		t.Fatalf("correct=%d score=%d, want 3/75", done.CorrectCount, done.Score)
	}
	if done.Status != StatusCompleted || done.CompletedAt == nil {
		t.Fatalf("attempt not completed: %+v", done)
	}
	if res.ID == 0 || res.Score != 75 || res.TotalQuestions != 4 || res.TestID != "set.json" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestScenarioOneOfThree(t *testing.T) {
	qs := []Question{
		{ID: 101, CorrectAnswer: "A"},
		{ID: 102, CorrectAnswer: "C"},
		{ID: 103, CorrectAnswer: "B"},
	}
	s := NewSession(Attempt{
		ID: 1, Status: StatusInProgress, Answers: map[string]string{},
		QuestionOrder: []int64{101, 102, 103}, TotalQuestions: 3,
	}, qs)

	_ = s.RecordAnswer(101, "A")
	_ = s.RecordAnswer(102, "B")
	s.Advance(1)
	if idx := s.Advance(1); idx != 2 {
		t.Fatalf("index = %d, want 2", idx)
	}

	correct, score := Score(s.Snapshot(), qs)
	if correct != 1 || score != 33 {
		t.Fatalf("correct=%d score=%d, want 1/33", correct, score)
	}
}

func TestFinishTwice(t *testing.T) {
	st := NewInMemoryStore()
	e := newTestEngine(st)
	ctx := context.Background()
	seed(t, st, "set.json", "A", "B")

	s, err := e.Start(ctx, owner, "set.json", nil)
	if err != nil {
		t.Fatal(err)
	}
	id := s.Snapshot().ID
	if _, _, err := e.Finish(ctx, owner, id); err != nil {
		t.Fatal(err)
	}
	if _, _, err := e.Finish(ctx, owner, id); !errors.Is(err, ErrAttemptCompleted) {
		t.Fatalf("second finish: %v, want ErrAttemptCompleted", err)
	}
	results, _ := st.ListResults(ctx, owner)
	if len(results) != 1 {
		t.Fatalf("results = %d, want exactly 1", len(results))
	}
}

func TestCompletedIsTerminal(t *testing.T) {
	st := NewInMemoryStore()
	e := newTestEngine(st)
	ctx := context.Background()
	seed(t, st, "set.json", "A", "B")

	s, _ := e.Start(ctx, owner, "set.json", nil)
	id := s.Snapshot().ID
	if _, _, err := e.FinishSession(ctx, owner, s); err != nil {
		t.Fatal(err)
	}

	back := StatusInProgress
	if _, err := e.Update(ctx, owner, id, AttemptPatch{Status: &back}); !errors.Is(err, ErrAttemptCompleted) {
		t.Fatalf("update after finish: %v", err)
	}
	if _, err := e.Persist(ctx, owner, s.Snapshot()); !errors.Is(err, ErrAttemptCompleted) {
		t.Fatalf("persist after finish: %v", err)
	}
	if err := s.RecordAnswer(s.Snapshot().QuestionOrder[0], "B"); !errors.Is(err, ErrAttemptCompleted) {
		t.Fatalf("answer after finish: %v", err)
	}

	a, _ := e.Get(ctx, owner, id)
	if a.Status != StatusCompleted {
		t.Fatalf("status = %s", a.Status)
	}
}

func TestFinishUsesCurrentAnswersAndDeletedCountsWrong(t *testing.T) {
	st := NewInMemoryStore()
	e := newTestEngine(st)
	ctx := context.Background()
	qs := seed(t, st, "set.json", "A", "B", "C", "D")

	s, _ := e.Start(ctx, owner, "set.json", nil)
	for _, q := range qs {
		_ = s.RecordAnswer(q.ID, q.CorrectAnswer)
	}
	if _, err := e.Persist(ctx, owner, s.Snapshot()); err != nil {
		t.Fatal(err)
	}

	// edit one key, delete another question
	c := "A"
	if _, err := st.UpdateQuestion(ctx, owner, qs[1].ID, QuestionPatch{CorrectAnswer: &c}); err != nil {
		t.Fatal(err)
	}
	_ = st.DeleteQuestion(ctx, owner, qs[3].ID)

	done, _, err := e.Finish(ctx, owner, s.Snapshot().ID)
	if err != nil {
		t.Fatal(err)
	}
	if done.CorrectCount != 2 || done.Score != 50 || done.TotalQuestions != 4 {
		t.Fatalf("got %d/%d score %d", done.CorrectCount, done.TotalQuestions, done.Score)
	}
}

func TestUpdateChecksAnswersAndClampsIndex(t *testing.T) {
	st := NewInMemoryStore()
	e := newTestEngine(st)
	ctx := context.Background()
	qs := seed(t, st, "set.json", "A", "B", "C")
	s, _ := e.Start(ctx, owner, "set.json", nil)
	id := s.Snapshot().ID

	_, err := e.Update(ctx, owner, id, AttemptPatch{Answers: map[string]string{"424242": "A"}})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}

	idx := 40
	a, err := e.Update(ctx, owner, id, AttemptPatch{
		CurrentIndex: &idx,
		Answers:      map[string]string{itoa(qs[0].ID): "A"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if a.CurrentIndex != 2 || a.Answers[itoa(qs[0].ID)] != "A" {
		t.Fatalf("unexpected attempt: %+v", a)
	}

	done := StatusCompleted
	a, err = e.Update(ctx, owner, id, AttemptPatch{Status: &done})
	if err != nil {
		t.Fatal(err)
	}
	if !a.Completed() || a.CorrectCount != 1 || a.Score != 33 {
		t.Fatalf("status patch should finish and score: %+v", a)
	}
}

func TestDeleteIsUnconditional(t *testing.T) {
	st := NewInMemoryStore()
	e := newTestEngine(st)
	ctx := context.Background()
	seed(t, st, "set.json", "A")

	s, _ := e.Start(ctx, owner, "set.json", nil)
	id := s.Snapshot().ID
	if _, _, err := e.Finish(ctx, owner, id); err != nil {
		t.Fatal(err)
	}
	if err := e.Delete(ctx, owner, id); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Get(ctx, owner, id); !errors.Is(err, ErrAttemptNotFound) {
		t.Fatalf("get after delete: %v", err)
	}
	results, _ := st.ListResults(ctx, owner)
	if len(results) != 1 {
		t.Fatal("results must survive attempt deletion")
	}
}

func TestOwnerIsolation(t *testing.T) {
	st := NewInMemoryStore()
	e := newTestEngine(st)
	ctx := context.Background()
	seed(t, st, "set.json", "A")

	s, _ := e.Start(ctx, owner, "set.json", nil)
	if _, err := e.Get(ctx, owner+1, s.Snapshot().ID); !errors.Is(err, ErrAttemptNotFound) {
		t.Fatalf("other owner sees attempt: %v", err)
	}
}

type recordingJournal struct{ types []string }

func (j *recordingJournal) Append(_ context.Context, typ, _ string, _ any) error {
	j.types = append(j.types, typ)
	return nil
}

func TestJournal(t *testing.T) {
	st := NewInMemoryStore()
	j := &recordingJournal{}
	e := NewEngine(st, st, st, nil, WithJournal(j))
	ctx := context.Background()
	seed(t, st, "set.json", "A")

	s, _ := e.Start(ctx, owner, "set.json", nil)
	id := s.Snapshot().ID
	_, _, _ = e.Finish(ctx, owner, id)
	_ = e.Delete(ctx, owner, id)

	want := []string{"attempt_created", "attempt_finished", "attempt_deleted"}
	if !reflect.DeepEqual(j.types, want) {
		t.Fatalf("events = %v, want %v", j.types, want)
	}
}

type failingResults struct{}

func (failingResults) CreateResult(context.Context, int64, Result) (Result, error) {
	return Result{}, errors.New("disk full")
}

func TestFinishSurvivesResultFailure(t *testing.T) {
	st := NewInMemoryStore()
	e := NewEngine(st, st, failingResults{}, nil)
	ctx := context.Background()
	seed(t, st, "set.json", "A", "B")

	s, _ := e.Start(ctx, owner, "set.json", nil)
	done, res, err := e.Finish(ctx, owner, s.Snapshot().ID)
	if err != nil {
		t.Fatal(err)
	}
	if !done.Completed() || res.ID != 0 || res.TotalQuestions != 2 {
		t.Fatalf("done=%+v res=%+v", done, res)
	}
}

func TestPercent(t *testing.T) {
	cases := []struct{ n, d, want int }{
		{0, 0, 0}, {0, 5, 0}, {1, 3, 33}, {2, 3, 67}, {1, 2, 50}, {1, 8, 13}, {3, 4, 75}, {5, 5, 100},
	}
	for _, c := range cases {
		if got := percent(c.n, c.d); got != c.want {
			t.Errorf("percent(%d,%d) = %d, want %d", c.n, c.d, got, c.want)
		}
	}
}
