package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// channelPrefix namespaces the pub/sub channels used by RedisHub.
const channelPrefix = "realtime:"

// Channel returns the pub/sub channel for table/event.
func Channel(table string, event Event) string {
	return channelPrefix + table + ":" + string(event)
}

// RedisHub is a Hub over Redis pub/sub, shared by every process connected
// to the same Redis.
type RedisHub struct {
	client *redis.Client
}

// NewRedisHub creates a hub on an existing client.
func NewRedisHub(client *redis.Client) *RedisHub {
	return &RedisHub{client: client}
}

// Publish implements Hub.
func (h *RedisHub) Publish(ctx context.Context, c Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding change: %w", err)
	}
	if err := h.client.Publish(ctx, Channel(c.Table, c.Event), payload).Err(); err != nil {
		return fmt.Errorf("publishing change: %w", err)
	}
	return nil
}

// Subscribe implements Hub. EventAll uses a pattern subscription.
func (h *RedisHub) Subscribe(ctx context.Context, table string, event Event) (*Subscription, error) {
	var ps *redis.PubSub
	if event == EventAll {
		ps = h.client.PSubscribe(ctx, Channel(table, "*"))
	} else {
		ps = h.client.Subscribe(ctx, Channel(table, event))
	}

	// Wait for the subscription to be confirmed so no publish after
	// Subscribe returns is missed.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", table, err)
	}

	sub := newSubscription(table, event)
	sub.release = func() { ps.Close() }

	go func() {
		defer close(sub.ch)
		msgs := ps.Channel()
		for {
			select {
			case <-sub.done:
				return
			case msg, ok := <-msgs:
				if !ok {
					sub.Close()
					return
				}
				var c Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
					slog.Warn("discarding malformed realtime message", "channel", msg.Channel, "error", err)
					continue
				}
				select {
				case sub.ch <- c:
				default:
					slog.Warn("dropping realtime change for slow subscriber", "table", c.Table, "event", c.Event)
				}
			}
		}
	}()

	sub.closeOnDone(ctx)
	return sub, nil
}
