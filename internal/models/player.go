package models

// Player roles within a room. A player is assigned RolePlayer on join and may
// switch to RoleDealer afterwards if the dealer seat is still open.
const (
	RolePlayer = "player"
	RoleDealer = "dealer"
)

// Position is a 2-D coordinate in the table's local frame. It is only set
// when the host has explicitly dragged a player; otherwise seat placement is
// computed per render by the seating package.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Player is one occupant of a room. ID is the external identity (Telegram
// user id) or a freshly minted guest id.
type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Username string    `json:"username,omitempty"`
	Avatar   string    `json:"avatar,omitempty"`
	IsHost   bool      `json:"isHost"`
	Role     string    `json:"role,omitempty"`
	Position *Position `json:"position,omitempty"`
}

// DisplayName returns the name to render for this player, falling back to
// the username when the first name is absent.
func (p Player) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Username
}
