// Package cli is the terminal front end of the offline mode. It drives the
// same engine as the gateway, with autosave between keystrokes.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-practice/internal/exam"
	"github.com/mind-engage/mindengage-practice/internal/importer"
	syncx "github.com/mind-engage/mindengage-practice/internal/sync"
)

const usage = `usage: practice <command> [args]

commands:
  tests                     list question sets
  import <file.json>        import a question set
  start [--shuffle] <test>  start a new attempt
  resume <attempt-id>       continue an attempt
  attempts [--status s]     list attempts
  history                   results summary and chart
  delete <attempt-id>       delete an attempt
  journal [--after n]       show lifecycle events
`

type App struct {
	Engine        *exam.Engine
	Store         exam.Store
	Journal       *syncx.EventRepo
	Owner         int64
	Shuffle       func([]int64)
	AutosaveDelay time.Duration
	ChartWindow   int
	Log           *zap.Logger
}

// Run dispatches one command. Interactive commands read answers from in.
func (a *App) Run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	if a.Log == nil {
		a.Log = zap.NewNop()
	}
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return nil
	}
	cmd, rest := args[0], args[1:]
	reader := bufio.NewReader(in)

	switch cmd {
	case "tests":
		return a.listTests(ctx, out)
	case "import":
		if len(rest) != 1 {
			return errors.New("import: expected one file")
		}
		return a.importFile(ctx, rest[0], out)
	case "start":
		fs := pflag.NewFlagSet("start", pflag.ContinueOnError)
		shuffle := fs.Bool("shuffle", false, "randomise question order")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return errors.New("start: expected a test id")
		}
		return a.start(ctx, fs.Arg(0), *shuffle, reader, out)
	case "resume":
		id, err := attemptArg(rest)
		if err != nil {
			return err
		}
		return a.resume(ctx, id, reader, out)
	case "attempts":
		fs := pflag.NewFlagSet("attempts", pflag.ContinueOnError)
		status := fs.String("status", "", "in_progress or completed")
		limit := fs.Int("limit", 0, "maximum rows")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return a.listAttempts(ctx, exam.AttemptListOpts{Status: *status, Limit: *limit}, out)
	case "history":
		return a.history(ctx, out)
	case "delete":
		id, err := attemptArg(rest)
		if err != nil {
			return err
		}
		if err := a.Engine.Delete(ctx, a.Owner, id); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted attempt %d\n", id)
		return nil
	case "journal":
		fs := pflag.NewFlagSet("journal", pflag.ContinueOnError)
		after := fs.Int64("after", 0, "only events after this sequence number")
		limit := fs.Int("limit", 50, "maximum events")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return a.journal(ctx, *after, *limit, out)
	}
	fmt.Fprint(out, usage)
	return fmt.Errorf("unknown command %q", cmd)
}

func attemptArg(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errors.New("expected an attempt id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid attempt id %q", args[0])
	}
	return id, nil
}

func (a *App) listTests(ctx context.Context, out io.Writer) error {
	tests, err := a.Store.ListTests(ctx, a.Owner)
	if err != nil {
		return err
	}
	if len(tests) == 0 {
		fmt.Fprintln(out, "No question sets. Import one with: practice import <file.json>")
		return nil
	}
	for _, t := range tests {
		fmt.Fprintf(out, "%-30s %4d questions  %s\n", t.ID, t.Count, t.Category)
	}
	return nil
}

func (a *App) importFile(ctx context.Context, path string, out io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	qs, err := importer.Parse(data)
	if err != nil {
		return err
	}
	testID := importer.TestIDFromFilename(filepath.Base(path))
	n, err := a.Store.ImportQuestions(ctx, a.Owner, testID, qs)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Imported %d questions into %s\n", n, testID)
	return nil
}

func (a *App) start(ctx context.Context, testID string, shuffle bool, in *bufio.Reader, out io.Writer) error {
	var fn func([]int64)
	if shuffle {
		fn = a.Shuffle
	}
	s, err := a.Engine.Start(ctx, a.Owner, testID, fn)
	if err != nil {
		return err
	}
	return a.play(ctx, s, in, out)
}

func (a *App) resume(ctx context.Context, id int64, in *bufio.Reader, out io.Writer) error {
	s, err := a.Engine.Resume(ctx, a.Owner, id)
	if err == nil {
		return a.play(ctx, s, in, out)
	}
	msg, ok := exam.RecoveryNotice(err)
	if !ok {
		return err
	}
	fmt.Fprintln(out, msg)

	// the stale attempt tells us which set to restart, when it still exists
	prev, gerr := a.Engine.Get(ctx, a.Owner, id)
	if gerr != nil {
		fmt.Fprintln(out, "Pick a set with: practice tests")
		return nil
	}
	s, err = a.Engine.Start(ctx, a.Owner, prev.TestID, nil)
	if err != nil {
		var verr *exam.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(out, "Set %s has no questions left.\n", prev.TestID)
			return nil
		}
		return err
	}
	return a.play(ctx, s, in, out)
}

// play runs the interactive loop until the attempt is finished or the user
// quits. Quitting keeps the attempt in progress.
func (a *App) play(ctx context.Context, s *exam.Session, in *bufio.Reader, out io.Writer) error {
	snap := s.Snapshot()
	if snap.Completed() {
		fmt.Fprintf(out, "Attempt %d is already completed with score %d%%\n", snap.ID, snap.Score)
		return nil
	}
	saver := exam.NewAutosaver(a.Engine, a.Owner, s, a.AutosaveDelay, a.Log)
	fmt.Fprintf(out, "Attempt %d on %s\n", snap.ID, snap.TestID)

	for {
		q, ok := s.Current()
		if !ok {
			_ = saver.Close(ctx)
			return exam.ErrQuestionsGone
		}
		printQuestion(out, s, q)

		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return a.quit(ctx, saver, s, out)
		}
		input := strings.ToUpper(strings.TrimSpace(line))

		switch {
		case input == "N":
			s.Advance(1)
		case input == "P":
			s.Advance(-1)
		case input == "Q":
			return a.quit(ctx, saver, s, out)
		case input == "F":
			if err := saver.Close(ctx); err != nil {
				// FinishSession writes the live state itself
				a.Log.Warn("autosave before finish failed", zap.Error(err))
			}
			done, res, err := a.Engine.FinishSession(ctx, a.Owner, s)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nFinal score: %d/%d (%d%%)\n", done.CorrectCount, done.TotalQuestions, done.Score)
			if res.ID == 0 {
				fmt.Fprintln(out, "The result could not be saved to history.")
			}
			return nil
		case isOption(q, input):
			if err := s.AnswerCurrent(input); err != nil {
				return err
			}
			s.Advance(1)
		default:
			fmt.Fprintln(out, "Enter an option letter, n (next), p (previous), f (finish) or q (quit).")
		}
	}
}

func (a *App) quit(ctx context.Context, saver *exam.Autosaver, s *exam.Session, out io.Writer) error {
	id := s.Snapshot().ID
	if err := saver.Close(ctx); err != nil {
		fmt.Fprintln(out, "Progress could not be saved:", err)
		return err
	}
	fmt.Fprintf(out, "\nProgress saved. Continue with: practice resume %d\n", id)
	return nil
}

func isOption(q exam.Question, key string) bool {
	_, ok := q.Answers[key]
	return ok
}

func printQuestion(out io.Writer, s *exam.Session, q exam.Question) {
	snap := s.Snapshot()
	answered, total := s.Progress()
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Q%d/%d (%d answered): %s\n\n", snap.CurrentIndex+1, total, answered, q.QuestionText)

	keys := make([]string, 0, len(q.Answers))
	for k := range q.Answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	chosen, _ := s.Answer(q.ID)
	for _, k := range keys {
		mark := " "
		if k == chosen {
			mark = "*"
		}
		fmt.Fprintf(out, "%s %s. %s\n", mark, k, q.Answers[k])
	}
	fmt.Fprint(out, "\n> ")
}

func (a *App) listAttempts(ctx context.Context, opts exam.AttemptListOpts, out io.Writer) error {
	list, err := a.Engine.List(ctx, a.Owner, opts)
	if err != nil {
		return err
	}
	for _, at := range list {
		answered := len(at.Answers)
		line := fmt.Sprintf("%6d  %-24s %-11s %d/%d answered", at.ID, at.TestID, at.Status, answered, at.TotalQuestions)
		if at.Completed() {
			line += fmt.Sprintf("  score %d%%", at.Score)
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func (a *App) history(ctx context.Context, out io.Writer) error {
	results, err := a.Store.ListResults(ctx, a.Owner)
	if err != nil {
		return err
	}
	sum := exam.Summarize(results)
	fmt.Fprintf(out, "Tests taken: %d\nAverage score: %d%%\nCorrect answers: %d\n", sum.Count, sum.AverageScore, sum.TotalCorrect)
	if sum.Count == 0 {
		return nil
	}
	fmt.Fprintln(out)
	for _, p := range exam.ChartSeries(results, a.ChartWindow) {
		fmt.Fprintf(out, "%-8s %3d%% %s\n", p.Label, p.Score, strings.Repeat("#", p.Score/5))
	}
	return nil
}

func (a *App) journal(ctx context.Context, after int64, limit int, out io.Writer) error {
	if a.Journal == nil {
		return errors.New("journal not configured")
	}
	evs, err := a.Journal.Since(ctx, after, limit)
	if err != nil {
		return err
	}
	for _, ev := range evs {
		ts := time.UnixMilli(ev.CreatedAt).UTC().Format(time.RFC3339)
		fmt.Fprintf(out, "%6d  %s  %-18s %s %s\n", ev.Seq, ts, ev.Type, ev.Key, ev.DataJSON)
	}
	return nil
}
