package storage

import (
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFSStoreListAndGet(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"b.json":    `[]`,
		"a.JSON":    `[1]`,
		"notes.txt": "x",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.json"), 0o755); err != nil {
		t.Fatal(err)
	}

	s, err := NewFSStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	keys, err := s.List(".json")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(keys, []string{"a.JSON", "b.json"}) {
		t.Fatalf("keys = %v", keys)
	}

	rc, err := s.Get("../" + filepath.Base(dir) + "/a.JSON")
	if err == nil {
		rc.Close()
		t.Fatal("path escaped the base directory")
	}
	rc, err = s.Get("a.JSON")
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "[1]" {
		t.Fatalf("body = %q", b)
	}
}

func TestNewFSStoreRejectsMissingDir(t *testing.T) {
	if _, err := NewFSStore(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error")
	}
}
