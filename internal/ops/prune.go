package ops

import (
	"context"

	"github.com/hpungsan/inkwell/internal/snapshot"
)

// PruneInput contains parameters for the Prune operation.
type PruneInput struct {
	Backups bool
}

// PruneOutput contains the result of the Prune operation.
type PruneOutput struct {
	Store string `json:"store"`
	Cap   int    `json:"cap"`
	snapshot.EvictionReport
}

// Prune runs the retention enforcer on demand. Saves already enforce the
// cap; this retries evictions that failed earlier or applies a lowered cap.
func Prune(ctx context.Context, stores *Stores, input PruneInput) (*PruneOutput, error) {
	store := stores.store(input.Backups)
	report, err := store.Enforce(ctx)
	if err != nil {
		return nil, err
	}
	return &PruneOutput{
		Store:          store.Name(),
		Cap:            store.Cap(),
		EvictionReport: *report,
	}, nil
}
