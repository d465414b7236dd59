package cart

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sessions hands out one Store per client session. Stores are loaded lazily
// from storage and may be dropped from memory once idle; the persisted blob
// keeps the cart.
type Sessions struct {
	storage Storage
	lg      *zap.Logger

	mu     sync.Mutex
	stores map[string]*Store
}

// NewSessions creates a registry persisting every cart to storage.
func NewSessions(storage Storage, lg *zap.Logger) *Sessions {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Sessions{
		storage: storage,
		lg:      lg,
		stores:  make(map[string]*Store),
	}
}

// Key returns the storage key of a session cart.
func Key(sessionID string) string {
	return StorageKey + ":" + sessionID
}

// Get returns the Store for sessionID, loading it on first use. Each call
// counts as activity for Sweep.
func (s *Sessions) Get(ctx context.Context, sessionID string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.stores[sessionID]; ok {
		st.touch(time.Now())
		return st
	}
	st := Load(ctx, s.storage, Key(sessionID), s.lg.With(zap.String("cart_session", sessionID)))
	s.stores[sessionID] = st
	return st
}

// Sweep drops stores that have not been used for longer than idle and
// returns how many were dropped. A dropped store still held by a caller
// forwards to the session's current store, so it never writes a stale cart.
func (s *Sessions) Sweep(now time.Time, idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, st := range s.stores {
		resolve := func() *Store { return s.Get(context.Background(), id) }
		if st.evictIfIdle(now, idle, resolve) {
			delete(s.stores, id)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (s *Sessions) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.Sweep(now, idle); n > 0 {
				s.lg.Debug("Swept idle carts", zap.Int("count", n))
			}
		}
	}
}
