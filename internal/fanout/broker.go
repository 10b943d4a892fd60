// internal/fanout/broker.go
package fanout

import (
	"context"
	"sync"
)

// Broker is the publish/subscribe channel between the room directory and
// every viewer of a room. Topics are room codes. Delivery is at-most-once
// and best-effort: a subscriber that falls behind loses events and is
// expected to re-fetch the full room before trusting further deltas.
type Broker interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe returns a channel of events for the given room code and a
	// stop function. The channel is closed after stop is called.
	Subscribe(ctx context.Context, roomID string) (<-chan Event, func(), error)
}

// subChanBuffer bounds how far a slow subscriber may lag before events are
// dropped.
const subChanBuffer = 16

// MemoryBroker is an in-process Broker for single-node deployments and
// tests. Events published to a room are fanned out to every live
// subscription of that room, in publish order per subscriber.
type MemoryBroker struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[chan Event]struct{})}
}

// Publish delivers ev to all current subscribers of ev.RoomID. Full
// subscriber channels are skipped rather than blocked on.
func (b *MemoryBroker) Publish(_ context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[ev.RoomID] {
		select {
		case ch <- ev:
		default:
			// Subscriber is lagging; at-most-once, drop.
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, roomID string) (<-chan Event, func(), error) {
	ch := make(chan Event, subChanBuffer)

	b.mu.Lock()
	if b.subs[roomID] == nil {
		b.subs[roomID] = make(map[chan Event]struct{})
	}
	b.subs[roomID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[roomID], ch)
			if len(b.subs[roomID]) == 0 {
				delete(b.subs, roomID)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, stop, nil
}
