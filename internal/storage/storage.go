// Package storage persists game instances as documents keyed by numeric id.
package storage

import (
	"context"
	"errors"

	"github.com/thefirstspine/matches-sub001/internal/game"
)

// ErrNotFound is returned when no instance has the requested id.
var ErrNotFound = errors.New("instance not found")

// Store is the persistence boundary of the match server. Implementations
// store whatever game.Encode produces and never interpret it beyond the
// status column used by FindActive.
type Store interface {
	// Create inserts a new instance and assigns its id.
	Create(ctx context.Context, inst *game.Instance) error
	// UpdateOne overwrites the stored document of instance id.
	UpdateOne(ctx context.Context, id int64, inst *game.Instance) error
	// FindActive returns every instance whose status is active.
	FindActive(ctx context.Context) ([]*game.Instance, error)
	// Get loads one instance.
	Get(ctx context.Context, id int64) (*game.Instance, error)
	// Close releases the underlying connections.
	Close() error
}
