package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-practice/internal/exam"
)

const sampleSet = `[
 {"pregunta":"Capital of France?","respuestas":{"A":"Rome","B":"Paris"},"respuesta_correcta":"B","oposicion":"Geo"},
 {"pregunta":"Capital of Italy?","respuestas":{"A":"Rome","B":"Paris"},"respuesta_correcta":"A","oposicion":"Geo"}
]`

func newTestApp(t *testing.T) (*App, string) {
	t.Helper()
	store := exam.NewInMemoryStore()
	a := &App{
		Engine:        exam.NewEngine(store, store, store, nil),
		Store:         store,
		Owner:         7,
		AutosaveDelay: 10 * time.Millisecond,
	}
	path := filepath.Join(t.TempDir(), "capitals.json")
	if err := os.WriteFile(path, []byte(sampleSet), 0o644); err != nil {
		t.Fatal(err)
	}
	return a, path
}

func run(t *testing.T, a *App, input string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	if err := a.Run(context.Background(), args, strings.NewReader(input), &out); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestQuitResumeFinish(t *testing.T) {
	a, path := newTestApp(t)
	ctx := context.Background()

	if out := run(t, a, "", "import", path); !strings.Contains(out, "Imported 2 questions into capitals.json") {
		t.Fatalf("import output: %s", out)
	}
	if out := run(t, a, "", "tests"); !strings.Contains(out, "capitals.json") {
		t.Fatalf("tests output: %s", out)
	}

	out := run(t, a, "b\nq\n", "start", "capitals.json")
	list, err := a.Engine.List(ctx, a.Owner, exam.AttemptListOpts{})
	if err != nil || len(list) != 1 {
		t.Fatalf("attempts = %+v (%v)", list, err)
	}
	id := strconv.FormatInt(list[0].ID, 10)
	if !strings.Contains(out, "practice resume "+id) {
		t.Fatalf("quit output: %s", out)
	}
	if list[0].CurrentIndex != 1 || len(list[0].Answers) != 1 {
		t.Fatalf("progress not saved: %+v", list[0])
	}

	out = run(t, a, "A\nf\n", "resume", id)
	if !strings.Contains(out, "Final score: 2/2 (100%)") {
		t.Fatalf("finish output: %s", out)
	}

	out = run(t, a, "", "history")
	if !strings.Contains(out, "Tests taken: 1") || !strings.Contains(out, "Average score: 100%") || !strings.Contains(out, "Test 1") {
		t.Fatalf("history output: %s", out)
	}

	out = run(t, a, "", "resume", id)
	if !strings.Contains(out, "already completed") {
		t.Fatalf("resume completed: %s", out)
	}
}

func TestResumeMissingAttempt(t *testing.T) {
	a, _ := newTestApp(t)
	out := run(t, a, "", "resume", "42")
	if !strings.Contains(out, "no longer exists") {
		t.Fatalf("output: %s", out)
	}
}

func TestResumeAfterSetDeletedStartsOver(t *testing.T) {
	a, path := newTestApp(t)
	ctx := context.Background()
	run(t, a, "", "import", path)
	run(t, a, "q\n", "start", "capitals.json")
	list, _ := a.Engine.List(ctx, a.Owner, exam.AttemptListOpts{})
	if len(list) != 1 {
		t.Fatalf("attempts = %+v", list)
	}

	if _, err := a.Store.DeleteTest(ctx, a.Owner, "capitals.json"); err != nil {
		t.Fatal(err)
	}
	out := run(t, a, "", "resume", strconv.FormatInt(list[0].ID, 10))
	if !strings.Contains(out, "were removed") || !strings.Contains(out, "no questions left") {
		t.Fatalf("output: %s", out)
	}
}

func TestUnknownCommand(t *testing.T) {
	a, _ := newTestApp(t)
	var out bytes.Buffer
	if err := a.Run(context.Background(), []string{"bogus"}, strings.NewReader(""), &out); err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(out.String(), "usage:") {
		t.Fatalf("output: %s", out.String())
	}
}
