package syncx

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mind-engage/mindengage-practice/internal/db"
)

func TestAppendAndSince(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	repo := NewEventRepo(conn, "")
	if err := repo.Append(ctx, "attempt_created", "1", map[string]any{"testId": "set.json"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Append(ctx, "attempt_finished", "1", map[string]any{"score": 75}); err != nil {
		t.Fatal(err)
	}

	evs, err := repo.Since(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 2 || evs[0].Type != "attempt_created" || evs[1].Type != "attempt_finished" {
		t.Fatalf("events = %+v", evs)
	}
	if evs[0].SiteID != "local" || evs[0].Key != "1" {
		t.Fatalf("first = %+v", evs[0])
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(evs[1].DataJSON), &data); err != nil || data["score"] != float64(75) {
		t.Fatalf("data = %s (%v)", evs[1].DataJSON, err)
	}

	rest, _ := repo.Since(ctx, evs[0].Seq, 10)
	if len(rest) != 1 || rest[0].Seq != evs[1].Seq {
		t.Fatalf("since first = %+v", rest)
	}
}
