// internal/fanout/redis.go
package fanout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// channelPrefix namespaces room topics inside the shared Redis keyspace.
const channelPrefix = "dealerd:room:"

// RedisBroker fans room events out across server nodes via Redis pub/sub.
// Redis pub/sub is fire-and-forget with no replay, which matches the
// at-most-once delivery contract of the Broker interface exactly.
type RedisBroker struct {
	rdb *redis.Client
	log *logrus.Logger
}

func NewRedisBroker(rdb *redis.Client, log *logrus.Logger) *RedisBroker {
	return &RedisBroker{rdb: rdb, log: log}
}

func channelFor(roomID string) string {
	return channelPrefix + roomID
}

func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal room event: %w", err)
	}
	if err := b.rdb.Publish(ctx, channelFor(ev.RoomID), data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channelFor(ev.RoomID), err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, roomID string) (<-chan Event, func(), error) {
	pubsub := b.rdb.Subscribe(ctx, channelFor(roomID))
	// Force the SUBSCRIBE round-trip so a bad connection fails here instead
	// of silently dropping everything.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe to %s: %w", channelFor(roomID), err)
	}

	out := make(chan Event, subChanBuffer)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.WithError(err).WithField("room", roomID).Warn("Dropping undecodable room event")
				continue
			}
			select {
			case out <- ev:
			default:
				// Lagging subscriber; at-most-once, drop.
			}
		}
	}()

	stop := func() { _ = pubsub.Close() }
	return out, stop, nil
}
