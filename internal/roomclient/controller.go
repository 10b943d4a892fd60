// internal/roomclient/controller.go
package roomclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pokerdealer/dealerd/internal/fanout"
	"github.com/pokerdealer/dealerd/internal/models"
)

// State of a room view.
type State string

const (
	StateIdle     State = "idle"
	StateCreating State = "creating"
	StateJoining  State = "joining"
	StateReady    State = "ready"
	StateError    State = "error"
	StateClosed   State = "closed"
)

// ErrAlreadyEntered guards against duplicate create/join from repeated
// mounts or retries: a controller enters a room exactly once.
var ErrAlreadyEntered = errors.New("roomclient: controller already entered a room")

// resubscribeDelay spaces out re-dial attempts when the subscription keeps
// failing, so a down fan-out endpoint is not hammered in a tight loop.
const resubscribeDelay = lookupBackoff

// Controller drives one room view: it enters the room through the REST API
// (create for hosts, join for guests), then holds a fan-out subscription
// and reconciles every event into its local copy. The authoritative server
// state always wins over anything applied locally.
type Controller struct {
	api       *Client
	subscribe SubscribeFunc
	log       *logrus.Logger

	// OnChange, when set before entering, is invoked with a snapshot after
	// every reconciled update. Called from the subscription goroutine.
	OnChange func(*models.Room)

	mu     sync.Mutex
	state  State
	room   *models.Room
	selfID string
	cancel context.CancelFunc
}

func NewController(api *Client, subscribe SubscribeFunc, log *logrus.Logger) *Controller {
	return &Controller{
		api:       api,
		subscribe: subscribe,
		log:       log,
		state:     StateIdle,
	}
}

// Create enters a fresh room as host. The Idle check is the single-flight
// latch: a second call (re-render, impatient retry) fails fast instead of
// minting a duplicate room.
func (c *Controller) Create(ctx context.Context, host models.Player, settings models.GameSettings) error {
	if err := c.begin(StateCreating); err != nil {
		return err
	}

	room, _, err := c.api.CreateRoom(ctx, host, settings)
	if err != nil {
		c.fail(err)
		return err
	}
	c.enterReady(ctx, room)
	return nil
}

// Join enters an existing room by code. The server is probed first; a
// failed probe is logged but does not stop the attempt, connectivity may
// recover by the time the lookup retries run.
func (c *Controller) Join(ctx context.Context, code string, user models.Player) error {
	if err := c.begin(StateJoining); err != nil {
		return err
	}

	if err := c.api.Health(ctx); err != nil {
		c.log.WithError(err).Warn("Health probe failed before join, continuing")
	}

	if _, err := c.api.GetRoom(ctx, code); err != nil {
		c.fail(err)
		return err
	}
	room, err := c.api.JoinRoom(ctx, code, user)
	if err != nil {
		c.fail(err)
		return err
	}
	c.enterReady(ctx, room)
	return nil
}

// Close detaches the subscription and ends the view. Safe to call from any
// state and more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state = StateClosed
}

// State returns the view's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Room returns a snapshot of the reconciled room, or nil before Ready.
func (c *Controller) Room() *models.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.room == nil {
		return nil
	}
	return c.room.Clone()
}

func (c *Controller) begin(next State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return ErrAlreadyEntered
	}
	c.state = next
	return nil
}

func (c *Controller) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateError
	c.log.WithError(err).Warn("Room entry failed")
}

func (c *Controller) enterReady(ctx context.Context, room *models.Room) {
	subCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.room = room.Clone()
	c.state = StateReady
	c.cancel = cancel
	c.mu.Unlock()

	c.notify()
	go c.run(subCtx, room.Code)
}

// run holds the fan-out subscription for the life of the view. After any
// disconnect the full room is re-fetched before a new subscription's deltas
// are trusted: events missed while detached are gone for good (at-most-once
// delivery), so only a fresh authoritative snapshot makes the view sound.
func (c *Controller) run(ctx context.Context, roomID string) {
	for {
		sub, err := c.subscribe(ctx, roomID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.WithError(err).Warn("Room subscription failed, re-syncing")
			if !c.resync(ctx, roomID) {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(resubscribeDelay):
			}
			continue
		}

		for ev := range sub.Events() {
			c.apply(ev)
		}
		_ = sub.Close()

		if ctx.Err() != nil {
			return
		}
		c.log.WithField("room", roomID).Info("Room subscription dropped, re-syncing")
		if !c.resync(ctx, roomID) {
			return
		}
	}
}

// resync replaces the local view with a fresh authoritative fetch. Reports
// false when the view should end (cancelled, or the room is gone).
func (c *Controller) resync(ctx context.Context, roomID string) bool {
	room, err := c.api.GetRoom(ctx, roomID)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		c.mu.Lock()
		c.state = StateError
		c.mu.Unlock()
		c.log.WithError(err).Warn("Re-sync fetch failed, room view is stale")
		return false
	}

	c.mu.Lock()
	c.room = room.Clone()
	if c.state == StateError {
		c.state = StateReady
	}
	c.mu.Unlock()
	c.notify()
	return true
}

// apply reconciles one fan-out event into the local room. Deltas merge by
// player id, so the REST-response-vs-broadcast race is harmless: seeing a
// join twice, or a delta for a player already reconciled, changes nothing.
func (c *Controller) apply(ev fanout.Event) {
	c.mu.Lock()
	room := c.room
	if room == nil || ev.RoomID != room.Code {
		c.mu.Unlock()
		return
	}

	switch ev.Type {
	case fanout.EventRoomUpdate:
		if ev.Room != nil {
			c.room = ev.Room.Clone()
		}
	case fanout.EventPlayerJoined:
		if ev.Player != nil && room.FindPlayer(ev.Player.ID) < 0 {
			room.Players = append(room.Players, *ev.Player)
		}
	case fanout.EventPlayerMoved:
		if i := room.FindPlayer(ev.PlayerID); i >= 0 && ev.Position != nil {
			pos := *ev.Position
			room.Players[i].Position = &pos
		}
	case fanout.EventPlayerRemoved:
		if i := room.FindPlayer(ev.PlayerID); i >= 0 {
			room.Players = append(room.Players[:i], room.Players[i+1:]...)
			if room.Dealer != nil && room.Dealer.ID == ev.PlayerID {
				room.Dealer = nil
			}
		}
	case fanout.EventRoleUpdated:
		if i := room.FindPlayer(ev.PlayerID); i >= 0 {
			room.Players[i].Role = ev.Role
			if ev.Role == models.RoleDealer {
				dealer := room.Players[i]
				room.Dealer = &dealer
			} else if room.Dealer != nil && room.Dealer.ID == ev.PlayerID {
				room.Dealer = nil
			}
		}
	}
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) notify() {
	if c.OnChange == nil {
		return
	}
	if snap := c.Room(); snap != nil {
		c.OnChange(snap)
	}
}
