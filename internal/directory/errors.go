// internal/directory/errors.go
package directory

import "errors"

// Sentinel errors for every failure class the directory can surface.
// Handlers map these onto HTTP statuses with errors.Is; nothing else about
// a failure is load-bearing for callers.
var (
	// ErrValidation covers malformed input: a host without a usable display
	// name, an unknown settings enum, a bad room code format.
	ErrValidation = errors.New("directory: invalid request")

	// ErrNotFound means the room code does not resolve to a live room.
	ErrNotFound = errors.New("directory: room not found")

	// ErrPlayerNotFound means the target player id is not in the room.
	ErrPlayerNotFound = errors.New("directory: player not in room")

	// ErrRoomFull is returned when a join would exceed the seat capacity.
	ErrRoomFull = errors.New("directory: room is full")

	// ErrDealerTaken is returned when a second party tries to claim the
	// dealer role.
	ErrDealerTaken = errors.New("directory: dealer seat already taken")

	// ErrHostImmutable rejects any attempt to remove the host from a room.
	ErrHostImmutable = errors.New("directory: host cannot be removed")

	// ErrNotHost rejects host-only mutations (move, remove) from non-hosts.
	ErrNotHost = errors.New("directory: caller is not the room host")

	// ErrCodeTaken is returned by stores when a freshly generated room code
	// collides with an existing room. CreateRoom retries on it.
	ErrCodeTaken = errors.New("directory: room code already in use")
)
