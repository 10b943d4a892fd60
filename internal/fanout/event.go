// internal/fanout/event.go
package fanout

import "github.com/pokerdealer/dealerd/internal/models"

// EventType discriminates the payload of an Event.
type EventType string

// Event types published on a room topic. Each successful directory mutation
// publishes exactly one of these.
const (
	EventRoomUpdate    EventType = "room_update"
	EventPlayerJoined  EventType = "player_joined"
	EventPlayerMoved   EventType = "player_moved"
	EventPlayerRemoved EventType = "player_removed"
	EventRoleUpdated   EventType = "role_updated"
	// EventError is only sent point-to-point to a misbehaving subscriber,
	// never broadcast.
	EventError EventType = "error"
)

// Event is the wire format for room change notifications. Only the fields
// relevant to the Type are set; deltas are preferred over full snapshots
// except for room_update.
type Event struct {
	Type     EventType        `json:"type"`
	RoomID   string           `json:"roomId"`
	Room     *models.Room     `json:"room,omitempty"`
	Player   *models.Player   `json:"player,omitempty"`
	PlayerID string           `json:"playerId,omitempty"`
	Position *models.Position `json:"position,omitempty"`
	Role     string           `json:"role,omitempty"`
	Message  string           `json:"message,omitempty"`
}
