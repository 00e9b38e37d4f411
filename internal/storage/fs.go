package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SeedSource lists and opens question-set files.
type SeedSource interface {
	List(ext string) ([]string, error)
	Get(key string) (io.ReadCloser, error)
}

// FSStore reads files below a base directory. Keys are base-relative.
type FSStore struct{ base string }

func NewFSStore(base string) (*FSStore, error) {
	if base == "" {
		return nil, errors.New("empty base directory")
	}
	fi, err := os.Stat(base)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, errors.New(base + " is not a directory")
	}
	return &FSStore{base: base}, nil
}

// List returns the keys of regular files in the base directory whose name
// ends with ext (case-insensitive), sorted.
func (s *FSStore) List(ext string) ([]string, error) {
	entries, err := os.ReadDir(s.base)
	if err != nil {
		return nil, err
	}
	ext = strings.ToLower(ext)
	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if ext == "" || strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *FSStore) Get(key string) (io.ReadCloser, error) {
	clean := filepath.Clean("/" + key) // no escaping the base
	return os.Open(filepath.Join(s.base, clean))
}
