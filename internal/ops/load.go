package ops

import (
	"context"

	"github.com/hpungsan/inkwell/internal/draft"
)

// LoadInput contains parameters for the Load operation.
type LoadInput struct {
	Version int // required
	Backups bool
}

// Load fetches one snapshot by version.
func Load(ctx context.Context, stores *Stores, input LoadInput) (*draft.Snapshot, error) {
	return stores.store(input.Backups).Load(ctx, input.Version)
}
