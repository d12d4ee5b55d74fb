// Package eventbus implements cache-invalidation fan-out over Redis
// pub/sub, splitting publish from subscribe the way the rest of this
// process separates write path from notification path, built on
// go-redis/v9. The hydrator (C9) uses it to tell other instances which
// entries of their in-process caches to evict.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Event is a published invalidation notice: a subject (e.g. an agent_id or
// kernel name) and the reason it changed.
type Event struct {
	Subject string `json:"subject"`
	Reason  string `json:"reason"`
}

// Bus publishes and subscribes to invalidation events over a named Redis
// channel.
type Bus struct {
	client  *redis.Client
	channel string
}

// New builds a Bus over client, publishing to and subscribing on channel.
func New(client *redis.Client, channel string) *Bus {
	return &Bus{client: client, channel: channel}
}

// Publish fans out ev to every subscriber. Publish failures are logged and
// swallowed — cache invalidation fan-out is best-effort: a subscriber that
// misses an event keeps its cached entry until it is invalidated there.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Error("eventbus: failed to marshal event", "error", err)
		return
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		slog.Warn("eventbus: publish failed", "channel", b.channel, "error", err)
	}
}

// Subscribe starts a goroutine that runs handler for every Event received
// on the channel until ctx is cancelled, and returns immediately.
func (b *Bus) Subscribe(ctx context.Context, handler func(Event)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	ch := sub.Channel()

	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					slog.Warn("eventbus: dropping malformed event", "error", err)
					continue
				}
				handler(ev)
			}
		}
	}()
	return nil
}

// Close releases the underlying client. Callers that share a *redis.Client
// across components should not call this; it is provided for bus-owned
// clients constructed via NewClient.
func (b *Bus) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

// NewClient builds a *redis.Client from an address, mirroring the
// connection pattern gomind's discovery package uses for its own Redis
// client.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Ping verifies connectivity, surfacing a wrapped error rather than a raw
// driver error.
func Ping(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
