// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/pokerdealer/dealerd/internal/fanout"
	"github.com/pokerdealer/dealerd/internal/middleware"
)

// RoomWSHandler is the fan-out subscription endpoint. A viewer opens one
// socket per room they are watching; every directory mutation for that room
// arrives as a typed event. The channel is notify-only: nothing a client
// writes here mutates state, all writes go through the REST API.
func (s *Server) RoomWSHandler(w http.ResponseWriter, r *http.Request) {
	remoteAddr := r.RemoteAddr

	// Resolve identity before the upgrade: EnsureIdentity may set a session
	// cookie, which is impossible once the connection is hijacked.
	identity, err := EnsureIdentity(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	// Verify the room exists (and is live) before accepting.
	room, err := s.Directory.GetRoom(r.Context(), r.PathValue("code"))
	if err != nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	roomID := room.Code

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"room"},
		OriginPatterns: []string{"*"}, // Adjust in production
	})
	if err != nil {
		s.Logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	if c.Subprotocol() != "room" {
		c.Close(BadSubprotocolError, "client must speak the room subprotocol")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	conn, err := s.Hub.Attach(ctx, roomID, identity.ID, cancel)
	if err != nil {
		s.Logger.WithError(err).Warnf("failed to attach viewer to room %s", roomID)
		c.Close(InvalidRoomCodeError, "subscription failed")
		cancel()
		return
	}
	middleware.LogWebSocketConnect(s.Logger, remoteAddr, roomID)

	// Deliver the viewer's first authoritative snapshot on the socket, so a
	// reconnecting client starts from current state before any deltas.
	conn.Send(fanout.Event{Type: fanout.EventRoomUpdate, RoomID: roomID, Room: room})

	go s.writePump(ctx, c, conn)
	readErr := s.readPump(ctx, c)

	s.Hub.Detach(roomID, conn)
	middleware.LogWebSocketDisconnect(s.Logger, remoteAddr, roomID, readErr)
}

// readPump drains the socket until the client goes away. Inbound frames are
// ignored; reading is only needed to observe closure and keep the
// connection's control frames flowing.
func (s *Server) readPump(ctx context.Context, c *websocket.Conn) error {
	for {
		if _, _, err := c.Read(ctx); err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				return nil
			}
			if strings.Contains(err.Error(), "context canceled") {
				return nil
			}
			return err
		}
	}
}

// writePump serializes events from the hub connection onto the socket and
// pings periodically so dead peers are detected.
func (s *Server) writePump(ctx context.Context, c *websocket.Conn, conn *fanout.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-conn.Out:
			if !ok {
				// Hub detached us.
				_ = c.Close(websocket.StatusGoingAway, "subscription closed")
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.Logger.Warnf("failed to marshal room event for user %s: %v", conn.UserID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.Logger.Warnf("failed to write to websocket for user %s: %v", conn.UserID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				s.Logger.Warnf("failed to ping user %s, assuming disconnect: %v", conn.UserID, err)
				return
			}
		}
	}
}
