// Package realtime delivers row change notifications to subscribers, keyed by
// table and event type.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Event is the kind of row change.
type Event string

// Events. EventAll subscribes to every event of a table.
const (
	EventInsert Event = "INSERT"
	EventUpdate Event = "UPDATE"
	EventDelete Event = "DELETE"
	EventAll    Event = "*"
)

// Change is a single notification.
type Change struct {
	Table  string          `json:"table"`
	Event  Event           `json:"event"`
	Record json.RawMessage `json:"record,omitempty"`
	At     time.Time       `json:"at"`
}

// NewChange builds a Change, encoding record as JSON.
func NewChange(table string, event Event, record any) (Change, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return Change{}, err
	}
	return Change{Table: table, Event: event, Record: raw, At: time.Now().UTC()}, nil
}

// Hub fans changes out to subscribers. Delivery is best-effort: a subscriber
// that does not keep up misses changes, nothing is replayed.
type Hub interface {
	Publish(ctx context.Context, c Change) error
	// Subscribe registers interest in table/event. The subscription ends
	// when Close is called or ctx is done, whichever comes first.
	Subscribe(ctx context.Context, table string, event Event) (*Subscription, error)
}

// BufferSize is the per-subscriber queue length.
const BufferSize = 16

// Subscription is a handle on a live subscription. Close always
// unsubscribes and may be called any number of times.
type Subscription struct {
	Table string
	Event Event

	ch      chan Change
	done    chan struct{}
	once    sync.Once
	release func()
}

func newSubscription(table string, event Event) *Subscription {
	return &Subscription{
		Table: table,
		Event: event,
		ch:    make(chan Change, BufferSize),
		done:  make(chan struct{}),
	}
}

// C delivers matching changes. It is closed after the subscription ends.
func (s *Subscription) C() <-chan Change {
	return s.ch
}

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close ends the subscription.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		if s.release != nil {
			s.release()
		}
	})
	return nil
}

// closeOnDone ends s when ctx is done.
func (s *Subscription) closeOnDone(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()
}

func matches(sub Event, got Event) bool {
	return sub == EventAll || sub == got
}
