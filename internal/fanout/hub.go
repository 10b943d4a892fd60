// internal/fanout/hub.go
package fanout

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Conn is a single viewer's presence on a room topic. The WebSocket write
// pump drains Out; Send never blocks the hub.
type Conn struct {
	UserID string
	Cancel context.CancelFunc
	Out    chan Event

	log    *logrus.Logger
	mu     sync.Mutex
	closed bool
}

// Send pushes an event onto the connection's out channel non-blockingly.
// Logs if the channel is full and the event is dropped.
func (c *Conn) Send(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Out <- ev:
	default:
		c.log.WithFields(logrus.Fields{
			"user": c.UserID,
			"type": ev.Type,
		}).Warn("Subscriber out channel full, dropped event")
	}
}

// shut closes the out channel exactly once, stopping the write pump.
func (c *Conn) shut() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.Out)
	}
	c.mu.Unlock()
}

// SendError delivers an error message to this viewer only.
func (c *Conn) SendError(roomID, msg string) {
	c.Send(Event{Type: EventError, RoomID: roomID, Message: msg})
}

// topic is the hub-side state for one room: the set of attached viewers and
// the stop function for the shared broker subscription feeding them.
type topic struct {
	conns map[*Conn]struct{}
	stop  func()
}

// Hub multiplexes broker subscriptions onto WebSocket viewers. One broker
// subscription is held per room for as long as the room has at least one
// attached connection.
type Hub struct {
	broker Broker
	log    *logrus.Logger

	mu     sync.Mutex
	topics map[string]*topic
}

func NewHub(broker Broker, log *logrus.Logger) *Hub {
	return &Hub{
		broker: broker,
		log:    log,
		topics: make(map[string]*topic),
	}
}

// Attach registers a new viewer of roomID and returns its connection. The
// first viewer of a room opens the underlying broker subscription.
func (h *Hub) Attach(ctx context.Context, roomID, userID string, cancel context.CancelFunc) (*Conn, error) {
	conn := &Conn{
		UserID: userID,
		Cancel: cancel,
		Out:    make(chan Event, subChanBuffer),
		log:    h.log,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.topics[roomID]
	if !ok {
		// Subscription must outlive the first viewer's request context.
		ch, stop, err := h.broker.Subscribe(context.Background(), roomID)
		if err != nil {
			return nil, err
		}
		t = &topic{conns: make(map[*Conn]struct{}), stop: stop}
		h.topics[roomID] = t
		go h.forward(roomID, ch)
	}
	t.conns[conn] = struct{}{}
	return conn, nil
}

// Detach removes a viewer. The last viewer of a room tears down the broker
// subscription. The connection's Out channel is closed here, which stops
// its write pump.
func (h *Hub) Detach(roomID string, conn *Conn) {
	h.mu.Lock()
	t, ok := h.topics[roomID]
	if ok {
		delete(t.conns, conn)
		if len(t.conns) == 0 {
			t.stop()
			delete(h.topics, roomID)
		}
	}
	h.mu.Unlock()

	conn.shut()
	if conn.Cancel != nil {
		conn.Cancel()
	}
}

// Viewers reports how many connections are currently attached to roomID.
func (h *Hub) Viewers(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.topics[roomID]; ok {
		return len(t.conns)
	}
	return 0
}

// forward drains one room's broker channel into every attached connection.
// Exits when the subscription channel closes (last viewer detached).
func (h *Hub) forward(roomID string, ch <-chan Event) {
	for ev := range ch {
		h.mu.Lock()
		t, ok := h.topics[roomID]
		if !ok {
			h.mu.Unlock()
			continue
		}
		conns := make([]*Conn, 0, len(t.conns))
		for c := range t.conns {
			conns = append(conns, c)
		}
		h.mu.Unlock()

		for _, c := range conns {
			c.Send(ev)
		}
	}
}
