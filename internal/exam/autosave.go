package exam

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type persister interface {
	Persist(ctx context.Context, owner int64, a Attempt) (Attempt, error)
}

// Autosaver debounces session changes into Persist calls. A failed save
// leaves the session dirty; the next change or Flush retries it.
type Autosaver struct {
	p     persister
	owner int64
	sess  *Session
	delay time.Duration
	log   *zap.Logger

	mu     sync.Mutex
	timer  *time.Timer
	closed bool

	saveMu sync.Mutex
}

// NewAutosaver subscribes to s. Every change restarts the delay.
func NewAutosaver(p persister, owner int64, s *Session, delay time.Duration, log *zap.Logger) *Autosaver {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Autosaver{p: p, owner: owner, sess: s, delay: delay, log: log.Named("autosave")}
	s.OnChange(a.Touch)
	return a
}

func (a *Autosaver) Touch() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, func() {
		_ = a.save(context.Background())
	})
}

// Flush cancels a pending timer and saves immediately.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()
	return a.save(ctx)
}

// Close flushes and detaches from the session.
func (a *Autosaver) Close(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.sess.OnChange(nil)
	return a.Flush(ctx)
}

func (a *Autosaver) save(ctx context.Context) error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	snap, v, dirty := a.sess.pending()
	if !dirty || snap.Completed() {
		return nil
	}
	if _, err := a.p.Persist(ctx, a.owner, snap); err != nil {
		perr := &PersistenceError{Op: "autosave", Err: err}
		a.log.Warn("progress not saved",
			zap.Int64("attempt_id", snap.ID), zap.Int64("user_id", a.owner), zap.Error(err))
		return perr
	}
	a.sess.markSaved(v)
	return nil
}
