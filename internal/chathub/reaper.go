package chathub

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"strangerlink/backend/internal/models"
)

// Reaper periodically evicts sessions that saw no activity for longer than
// the inactivity timeout.
type Reaper struct {
	store    *Store
	notifier Notifier
	archiver Archiver

	Interval time.Duration
	Timeout  time.Duration
}

// NewReaper builds a reaper over store. archiver may be nil.
func NewReaper(store *Store, notifier Notifier, archiver Archiver, interval, timeout time.Duration) *Reaper {
	if notifier == nil {
		notifier = discardNotifier{}
	}
	return &Reaper{
		store:    store,
		notifier: notifier,
		archiver: archiver,
		Interval: interval,
		Timeout:  timeout,
	}
}

// Run sweeps every Interval until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	slog.Info("reaper started", "interval", r.Interval, "timeout", r.Timeout)
	for {
		select {
		case <-ctx.Done():
			slog.Info("reaper stopped")
			return
		case <-ticker.C:
			r.Sweep(r.store.now())
		}
	}
}

// Sweep ends every session idle for longer than Timeout at now and notifies
// both participants. Selection and removal share one critical section, so a
// concurrent AppendMessage either lands before eviction or fails with
// ErrNotFound.
func (r *Reaper) Sweep(now time.Time) []models.ChatSession {
	s := r.store
	s.mu.Lock()
	var evicted []models.ChatSession
	for id, sess := range s.sessions {
		if now.Sub(sess.LastActivity) <= r.Timeout {
			continue
		}
		if snap, ok := s.endSessionLocked(id); ok {
			evicted = append(evicted, snap)
		}
	}
	s.mu.Unlock()

	for _, sess := range evicted {
		if err := r.evict(sess); err != nil {
			slog.Error("failed to finish eviction", "session_id", sess.ID, "err", err)
			continue
		}
		slog.Info("cleaned up inactive session", "session_id", sess.ID)
	}
	return evicted
}

func (r *Reaper) evict(sess models.ChatSession) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic during eviction: %v", p)
		}
	}()
	for _, userID := range sess.Participants {
		r.notifier.Notify(userID, models.Event{
			Type:      models.EventSessionEnded,
			SessionID: sess.ID,
			Reason:    models.ReasonInactivity,
		})
	}
	if r.archiver != nil {
		return r.archiver.SessionEnded(sess, models.ReasonInactivity)
	}
	return nil
}
