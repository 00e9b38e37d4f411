// Package app wires configuration into stores shared by the gateway and the
// offline runner.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	auth "github.com/mind-engage/mindengage-practice/internal/auth/middleware"
	"github.com/mind-engage/mindengage-practice/internal/config"
	"github.com/mind-engage/mindengage-practice/internal/db"
	"github.com/mind-engage/mindengage-practice/internal/exam"
	"github.com/mind-engage/mindengage-practice/internal/importer"
	"github.com/mind-engage/mindengage-practice/internal/storage"
	syncx "github.com/mind-engage/mindengage-practice/internal/sync"
)

const DriverMemory = "memory"

type Backend struct {
	DB      *sql.DB
	Store   exam.Store
	Journal *syncx.EventRepo
	Users   *auth.UserStore
	Engine  *exam.Engine
}

// Open connects the configured driver. The memory driver keeps questions,
// attempts and results in process; users and the journal use a private
// in-memory SQLite database.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Backend, error) {
	var (
		conn  *sql.DB
		store exam.Store
		err   error
	)
	switch cfg.DB.Driver {
	case DriverMemory:
		conn, err = db.Open(ctx, db.DriverSQLite, "file:practice-mem?mode=memory&cache=shared")
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
		store = exam.NewInMemoryStore()
	default:
		conn, err = db.Open(ctx, db.Driver(cfg.DB.Driver), cfg.DB.DSN)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
		store = exam.NewSQLStore(conn, cfg.DB.Driver)
	}

	journal := syncx.NewEventRepo(conn, string(cfg.Mode))
	b := &Backend{
		DB:      conn,
		Store:   store,
		Journal: journal,
		Users:   auth.NewUserStore(conn),
		Engine:  exam.NewEngine(store, store, store, log, exam.WithJournal(journal)),
	}

	if cfg.SeedDir != "" {
		src, err := storage.NewFSStore(cfg.SeedDir)
		if err != nil {
			log.Warn("seed directory unavailable", zap.String("dir", cfg.SeedDir), zap.Error(err))
		} else if _, err := importer.Seed(ctx, store, src, log); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}
	return b, nil
}

func (b *Backend) Close() error { return b.DB.Close() }

// Shuffle randomises a presentation order in place.
func Shuffle(ids []int64) {
	rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
}
