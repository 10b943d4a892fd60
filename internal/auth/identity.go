// internal/auth/identity.go
package auth

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/pokerdealer/dealerd/internal/models"
)

// Identity is who the caller is: either a verified Telegram user or a
// locally minted guest. It is resolved once per request and passed down;
// nothing below the handler layer reads ambient user state.
type Identity struct {
	ID       string
	Name     string
	Username string
	Avatar   string
	Guest    bool
}

// NewGuest mints a fresh guest identity for an entrant without a session or
// Telegram init data.
func NewGuest() Identity {
	id := uuid.NewString()
	return Identity{
		ID:       id,
		Name:     "Guest",
		Username: fmt.Sprintf("guest_%s", id[:8]),
		Guest:    true,
	}
}

// Player converts the identity into a room occupant, taking non-empty
// display overrides from profile (the client may send a nickname chosen on
// the setup screen).
func (id Identity) Player(profile models.Player) models.Player {
	p := models.Player{
		ID:       id.ID,
		Name:     id.Name,
		Username: id.Username,
		Avatar:   id.Avatar,
	}
	if profile.Name != "" {
		p.Name = profile.Name
	}
	if profile.Username != "" {
		p.Username = profile.Username
	}
	if profile.Avatar != "" {
		p.Avatar = profile.Avatar
	}
	return p
}
