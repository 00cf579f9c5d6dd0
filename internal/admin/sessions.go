package admin

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/erazemk/noleggio/internal/catalog"
)

type entry struct {
	shell   *Shell
	expires time.Time
}

// Sessions maps login sessions (token IDs) to their shells.
type Sessions struct {
	mu     sync.RWMutex
	shells map[string]*entry
	svc    *catalog.Service
	now    func() time.Time
}

// NewSessions creates an empty registry whose shells use svc.
func NewSessions(svc *catalog.Service) *Sessions {
	return &Sessions{
		shells: make(map[string]*entry),
		svc:    svc,
		now:    time.Now,
	}
}

// Get returns the shell for id, creating it on first use. expires is the
// expiry of the token the session belongs to.
func (s *Sessions) Get(id string, expires time.Time) *Shell {
	s.mu.RLock()
	e, ok := s.shells[id]
	s.mu.RUnlock()
	if ok {
		return e.shell
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.shells[id]; ok {
		return e.shell
	}
	e = &entry{shell: NewShell(s.svc, DefaultPrefs), expires: expires}
	s.shells[id] = e
	return e.shell
}

// Drop forgets a session, on logout.
func (s *Sessions) Drop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.shells, id)
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.shells)
}

// Prune drops sessions whose token has expired and returns how many it dropped.
func (s *Sessions) Prune() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, e := range s.shells {
		if !e.expires.IsZero() && now.After(e.expires) {
			delete(s.shells, id)
			n++
		}
	}
	return n
}

// PruneEvery calls Prune every interval until ctx is done.
func (s *Sessions) PruneEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Prune(); n > 0 {
				slog.Info("pruned expired admin sessions", "count", n)
			}
		}
	}
}
