// internal/roomclient/subscription.go
package roomclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/coder/websocket"

	"github.com/pokerdealer/dealerd/internal/fanout"
)

// Subscription is one live attachment to a room's fan-out topic.
type Subscription interface {
	// Events yields room events in delivery order. The channel closes when
	// the subscription ends, cleanly or not.
	Events() <-chan fanout.Event
	Close() error
}

// SubscribeFunc opens a subscription for a room. The Controller takes one
// so tests can feed events without a network.
type SubscribeFunc func(ctx context.Context, roomID string) (Subscription, error)

// WSSubscriber dials the server's room WebSocket endpoint.
func WSSubscriber(baseURL string) SubscribeFunc {
	return func(ctx context.Context, roomID string) (Subscription, error) {
		c, _, err := websocket.Dial(ctx, baseURL+"/api/rooms/"+roomID+"/ws", &websocket.DialOptions{
			Subprotocols: []string{"room"},
		})
		if err != nil {
			return nil, fmt.Errorf("%w: dial room socket: %v", ErrTransient, err)
		}

		sub := &wsSubscription{conn: c, events: make(chan fanout.Event, 16)}
		go sub.readLoop(ctx)
		return sub, nil
	}
}

type wsSubscription struct {
	conn   *websocket.Conn
	events chan fanout.Event
}

func (s *wsSubscription) Events() <-chan fanout.Event { return s.events }

func (s *wsSubscription) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "leaving room")
}

func (s *wsSubscription) readLoop(ctx context.Context) {
	defer close(s.events)
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			return
		}
		var ev fanout.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		select {
		case s.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}
