package realtime

import (
	"context"
	"log/slog"
	"sync"
)

// LocalHub is an in-process Hub. It only reaches subscribers in the same
// process; use RedisHub when running more than one instance.
type LocalHub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

// NewLocalHub creates an empty hub.
func NewLocalHub() *LocalHub {
	return &LocalHub{subs: make(map[string]map[*Subscription]struct{})}
}

// Publish implements Hub. It never blocks on a slow subscriber.
func (h *LocalHub) Publish(_ context.Context, c Change) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[c.Table] {
		if !matches(sub.Event, c.Event) {
			continue
		}
		select {
		case sub.ch <- c:
		default:
			slog.Warn("dropping realtime change for slow subscriber", "table", c.Table, "event", c.Event)
		}
	}
	return nil
}

// Subscribe implements Hub.
func (h *LocalHub) Subscribe(ctx context.Context, table string, event Event) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub := newSubscription(table, event)
	sub.release = func() {
		h.mu.Lock()
		delete(h.subs[table], sub)
		if len(h.subs[table]) == 0 {
			delete(h.subs, table)
		}
		close(sub.ch)
		h.mu.Unlock()
	}

	h.mu.Lock()
	if h.subs[table] == nil {
		h.subs[table] = make(map[*Subscription]struct{})
	}
	h.subs[table][sub] = struct{}{}
	h.mu.Unlock()

	sub.closeOnDone(ctx)
	return sub, nil
}

// Subscribers returns the number of live subscriptions on table.
func (h *LocalHub) Subscribers(table string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[table])
}
