package models

import "time"

// Room lifecycle statuses. Active is reserved for when the host starts a
// game; the dealer service itself only ever manages waiting rooms.
const (
	StatusWaiting = "waiting"
	StatusActive  = "active"
)

// MaxPlayers is the fixed capacity of every room, host seat included.
const MaxPlayers = 6

// GameSettings is the host-chosen configuration captured at room creation.
type GameSettings struct {
	// Speed is one of "slow", "normal", "fast".
	Speed string `json:"speed"`
	// ShowDealer controls how the dealer is presented: "off", "badge", or
	// "table" (a dedicated dealer device joins via role selection).
	ShowDealer string `json:"showDealer"`
}

// Room is the authoritative document for one game room, persisted in the
// room store keyed by Code.
type Room struct {
	Code       string       `json:"code"`
	Status     string       `json:"status"`
	MaxPlayers int          `json:"maxPlayers"`
	Settings   GameSettings `json:"settings"`
	Host       Player       `json:"host"`
	// Players is insertion-ordered: the host is appended first at creation,
	// every join appends at the tail. Seat indices derive from this order.
	Players []Player  `json:"players"`
	Dealer  *Player   `json:"dealer,omitempty"`
	Created time.Time `json:"createdAt"`
	// LastActive is bumped on every successful mutation; the janitor removes
	// rooms idle past the configured TTL.
	LastActive time.Time `json:"lastActive"`
}

// FindPlayer returns the index of the player with the given id, or -1.
func (r *Room) FindPlayer(id string) int {
	for i := range r.Players {
		if r.Players[i].ID == id {
			return i
		}
	}
	return -1
}

// IsFull reports whether the room has reached its seat capacity.
func (r *Room) IsFull() bool {
	return len(r.Players) >= r.MaxPlayers
}

// Clone returns a deep copy so callers can hand rooms across goroutine
// boundaries without sharing the players slice.
func (r *Room) Clone() *Room {
	cp := *r
	if r.Host.Position != nil {
		pos := *r.Host.Position
		cp.Host.Position = &pos
	}
	cp.Players = make([]Player, len(r.Players))
	copy(cp.Players, r.Players)
	for i := range cp.Players {
		if p := cp.Players[i].Position; p != nil {
			pos := *p
			cp.Players[i].Position = &pos
		}
	}
	if r.Dealer != nil {
		d := *r.Dealer
		if d.Position != nil {
			pos := *d.Position
			d.Position = &pos
		}
		cp.Dealer = &d
	}
	return &cp
}
