// internal/directory/service.go
package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pokerdealer/dealerd/internal/fanout"
	"github.com/pokerdealer/dealerd/internal/models"
)

var validSpeeds = map[string]bool{
	"slow":   true,
	"normal": true,
	"fast":   true,
}
var validDealerModes = map[string]bool{
	"off":   true,
	"badge": true,
	"table": true,
}

// maxCodeAttempts bounds the create retry loop on room code collisions.
const maxCodeAttempts = 5

// Service is the single authority over room state. Every mutation goes
// through here: it persists via the Store, then publishes a typed event on
// the room's fan-out topic so all current viewers converge.
type Service struct {
	store  Store
	broker fanout.Broker
	log    *logrus.Logger
}

func NewService(store Store, broker fanout.Broker, log *logrus.Logger) *Service {
	return &Service{store: store, broker: broker, log: log}
}

// CreateRoom mints a fresh room with the caller as host and sole occupant.
// Room codes are re-generated on store collision up to maxCodeAttempts.
func (s *Service) CreateRoom(ctx context.Context, host models.Player, settings models.GameSettings) (*models.Room, error) {
	if host.DisplayName() == "" {
		return nil, fmt.Errorf("%w: host needs a display name", ErrValidation)
	}
	if err := normalizeSettings(&settings); err != nil {
		return nil, err
	}

	host.IsHost = true
	host.Role = models.RolePlayer

	now := time.Now()
	room := &models.Room{
		Status:     models.StatusWaiting,
		MaxPlayers: models.MaxPlayers,
		Settings:   settings,
		Host:       host,
		Players:    []models.Player{host},
		Created:    now,
		LastActive: now,
	}

	for attempt := 1; ; attempt++ {
		code, err := NewRoomCode()
		if err != nil {
			return nil, err
		}
		room.Code = code
		err = s.store.Create(ctx, room)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrCodeTaken) || attempt >= maxCodeAttempts {
			s.log.WithError(err).WithField("attempt", attempt).Error("Failed to create room")
			return nil, err
		}
		s.log.WithField("code", code).Warnf("Room code collision, retrying (attempt %d)", attempt)
	}

	s.log.WithFields(logrus.Fields{
		"room": room.Code,
		"host": host.ID,
	}).Info("Room created")

	s.publish(ctx, fanout.Event{Type: fanout.EventRoomUpdate, RoomID: room.Code, Room: room})
	return room.Clone(), nil
}

// GetRoom is the read path. Any number of calls without an intervening
// mutation return identical room data.
func (s *Service) GetRoom(ctx context.Context, code string) (*models.Room, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, code)
}

// JoinRoom appends user to the room's roster. The capacity check runs
// inside the store's exclusive update, so two concurrent joins against the
// last open seat cannot both succeed. Re-joining with an id already seated
// is a no-op returning the current roster.
func (s *Service) JoinRoom(ctx context.Context, code string, user models.Player) (*models.Room, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}
	if user.DisplayName() == "" {
		return nil, fmt.Errorf("%w: player needs a display name", ErrValidation)
	}

	user.IsHost = false
	user.Role = models.RolePlayer
	user.Position = nil

	rejoined := false
	room, err := s.store.Update(ctx, code, func(r *models.Room) error {
		if r.FindPlayer(user.ID) >= 0 {
			rejoined = true
			return nil
		}
		if r.IsFull() {
			return ErrRoomFull
		}
		r.Players = append(r.Players, user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rejoined {
		return room, nil
	}

	s.log.WithFields(logrus.Fields{
		"room":   code,
		"player": user.ID,
		"seats":  len(room.Players),
	}).Info("Player joined room")

	s.publish(ctx, fanout.Event{Type: fanout.EventPlayerJoined, RoomID: code, Player: &user})
	return room, nil
}

// UpdateRole sets the caller's role. Claiming the dealer role fails with
// ErrDealerTaken if another player already holds it; the check and the
// assignment share one store update, so two dealer claims cannot interleave.
func (s *Service) UpdateRole(ctx context.Context, code, userID, role string) (*models.Room, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}
	if role != models.RolePlayer && role != models.RoleDealer {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	room, err := s.store.Update(ctx, code, func(r *models.Room) error {
		i := r.FindPlayer(userID)
		if i < 0 {
			return ErrPlayerNotFound
		}
		if role == models.RoleDealer {
			if r.Dealer != nil && r.Dealer.ID != userID {
				return ErrDealerTaken
			}
			r.Players[i].Role = models.RoleDealer
			dealer := r.Players[i]
			r.Dealer = &dealer
		} else {
			r.Players[i].Role = models.RolePlayer
			if r.Dealer != nil && r.Dealer.ID == userID {
				r.Dealer = nil
			}
		}
		// The embedded host copy mirrors the roster entry.
		if r.Host.ID == userID {
			r.Host.Role = r.Players[i].Role
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"room":   code,
		"player": userID,
		"role":   role,
	}).Info("Player role updated")

	s.publish(ctx, fanout.Event{Type: fanout.EventRoleUpdated, RoomID: code, PlayerID: userID, Role: role})
	return room, nil
}

// MovePlayer records a host-authored seat override for one player. Only
// the room's recorded host may move players; the check is server-side, not
// a UI affordance.
func (s *Service) MovePlayer(ctx context.Context, code, callerID, playerID string, pos models.Position) (*models.Room, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}

	room, err := s.store.Update(ctx, code, func(r *models.Room) error {
		if r.Host.ID != callerID {
			return ErrNotHost
		}
		i := r.FindPlayer(playerID)
		if i < 0 {
			return ErrPlayerNotFound
		}
		p := pos
		r.Players[i].Position = &p
		if r.Host.ID == playerID {
			hp := pos
			r.Host.Position = &hp
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, fanout.Event{Type: fanout.EventPlayerMoved, RoomID: code, PlayerID: playerID, Position: &pos})
	return room, nil
}

// RemovePlayer deletes one player from the roster. Host-only, and the host
// seat itself can never be removed.
func (s *Service) RemovePlayer(ctx context.Context, code, callerID, playerID string) (*models.Room, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}

	room, err := s.store.Update(ctx, code, func(r *models.Room) error {
		if r.Host.ID != callerID {
			return ErrNotHost
		}
		if playerID == r.Host.ID {
			return ErrHostImmutable
		}
		i := r.FindPlayer(playerID)
		if i < 0 {
			return ErrPlayerNotFound
		}
		r.Players = append(r.Players[:i], r.Players[i+1:]...)
		if r.Dealer != nil && r.Dealer.ID == playerID {
			r.Dealer = nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"room":   code,
		"player": playerID,
	}).Info("Player removed from room")

	s.publish(ctx, fanout.Event{Type: fanout.EventPlayerRemoved, RoomID: code, PlayerID: playerID})
	return room, nil
}

// publish fans a mutation out to all current viewers. A publish failure is
// logged, never surfaced: the write already landed and disconnected viewers
// reconcile by re-fetching on reconnect.
func (s *Service) publish(ctx context.Context, ev fanout.Event) {
	if err := s.broker.Publish(ctx, ev); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"room": ev.RoomID,
			"type": ev.Type,
		}).Warn("Failed to publish room event")
	}
}

func normalizeSettings(settings *models.GameSettings) error {
	if settings.Speed == "" {
		settings.Speed = "normal"
	}
	if settings.ShowDealer == "" {
		settings.ShowDealer = "badge"
	}
	if !validSpeeds[settings.Speed] {
		return fmt.Errorf("%w: invalid game speed %q", ErrValidation, settings.Speed)
	}
	if !validDealerModes[settings.ShowDealer] {
		return fmt.Errorf("%w: invalid dealer display mode %q", ErrValidation, settings.ShowDealer)
	}
	return nil
}
