// internal/seating/seating.go

// Package seating computes where occupants sit around the elliptical table.
// It is a pure function of the roster and the table dimensions: no state is
// kept between renders, so seat indices are recomputed from scratch every
// time the roster changes. A consequence, and intentional behavior: when a
// player is removed, everyone who joined later shifts one seat.
package seating

import (
	"math"

	"github.com/pokerdealer/dealerd/internal/models"
)

// TableSize is the rendered table's bounding box.
type TableSize struct {
	Width  float64
	Height float64
}

// Ellipse semi-axes relative to the table box. The seat ring is slightly
// wider than tall so side seats clear the table edge.
const (
	semiAxisXRatio = 0.4
	semiAxisYRatio = 0.6
)

// anchorAngle is the bottom-center seat, where the host (or the viewing
// player) is always pinned.
const anchorAngle = math.Pi / 2

// nonHostSeats is how many arc seats exist besides the anchor.
const nonHostSeats = models.MaxPlayers - 1

// AnchorPosition returns the fixed bottom-center seat.
func AnchorPosition(t TableSize) models.Position {
	return onEllipse(t, anchorAngle)
}

// SeatPosition returns the coordinates for arc seat seatIndex when
// totalSeats seats (anchor included) are being rendered. Arc seats are
// spread at equal angular spacing over the full ellipse, skipping the
// anchor angle, in seat-index order.
func SeatPosition(seatIndex, totalSeats int, t TableSize) models.Position {
	if totalSeats < 2 {
		return AnchorPosition(t)
	}
	// Divide the circle among the non-anchor seats, starting from the top.
	angle := (2*math.Pi*float64(seatIndex))/float64(totalSeats-1) - math.Pi/2
	return onEllipse(t, angle)
}

// Seat pairs an occupant (or empty slot) with its computed position.
type Seat struct {
	Player   *models.Player
	Position models.Position
	Empty    bool
}

// Layout places the full roster plus empty slots around the table.
// viewerID is the occupant pinned to the anchor seat: the host on the
// host's screen, the player themselves on a player's screen. Non-anchor
// occupants take arc seats in join order. A player with an explicit
// host-authored Position override renders there instead of the computed
// seat, but still consumes their arc slot: empty seats never exceed the
// room's unfilled capacity. Empty slots fill the arc seat indices no
// player occupies.
func Layout(room *models.Room, viewerID string, t TableSize) []Seat {
	seats := make([]Seat, 0, room.MaxPlayers)

	arcIndex := 0
	taken := make(map[int]bool, nonHostSeats)
	for i := range room.Players {
		p := room.Players[i]
		var pos models.Position
		if p.ID == viewerID || (viewerID == "" && p.IsHost) {
			pos = AnchorPosition(t)
		} else {
			pos = SeatPosition(arcIndex, room.MaxPlayers, t)
			taken[arcIndex] = true
			arcIndex++
		}
		if p.Position != nil {
			pos = *p.Position
		}
		seats = append(seats, Seat{Player: &room.Players[i], Position: pos})
	}

	for _, idx := range emptySlots(taken) {
		seats = append(seats, Seat{
			Position: SeatPosition(idx, room.MaxPlayers, t),
			Empty:    true,
		})
	}
	return seats
}

// EmptySeatSlots returns the arc seat indices not occupied by any player:
// the full index range [0, MaxPlayers-2] minus the taken set.
func EmptySeatSlots(players []models.Player) []int {
	taken := make(map[int]bool, nonHostSeats)
	arcIndex := 0
	for _, p := range players {
		if p.IsHost {
			continue
		}
		taken[arcIndex] = true
		arcIndex++
	}
	return emptySlots(taken)
}

func emptySlots(taken map[int]bool) []int {
	var free []int
	for i := 0; i < nonHostSeats; i++ {
		if !taken[i] {
			free = append(free, i)
		}
	}
	return free
}

func onEllipse(t TableSize, angle float64) models.Position {
	cx := t.Width / 2
	cy := t.Height / 2
	a := t.Width * semiAxisXRatio
	b := t.Height * semiAxisYRatio
	return models.Position{
		X: cx + a*math.Cos(angle),
		Y: cy + b*math.Sin(angle),
	}
}
