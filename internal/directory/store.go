// internal/directory/store.go
package directory

import (
	"context"
	"time"

	"github.com/pokerdealer/dealerd/internal/models"
)

// Store is the persistence boundary for room documents. The directory
// service is the only writer; clients never touch the store directly.
type Store interface {
	// Create persists a new room. Returns ErrCodeTaken if the code is
	// already in use.
	Create(ctx context.Context, room *models.Room) error

	// Get returns the room for the given canonical code, or ErrNotFound.
	Get(ctx context.Context, code string) (*models.Room, error)

	// Update applies fn to the current room document under an exclusive
	// lock, so capacity and role checks inside fn cannot race a concurrent
	// mutation. An error returned by fn aborts the update unchanged.
	// LastActive is bumped on every successful update.
	Update(ctx context.Context, code string, fn func(*models.Room) error) (*models.Room, error)

	// Delete removes a room. Deleting an absent room is not an error.
	Delete(ctx context.Context, code string) error

	// DeleteIdleBefore removes every room whose LastActive is older than
	// cutoff and reports how many were removed.
	DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int, error)
}
