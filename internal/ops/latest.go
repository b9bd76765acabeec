package ops

import (
	"context"

	"github.com/hpungsan/inkwell/internal/draft"
	"github.com/hpungsan/inkwell/internal/errors"
)

// LatestInput contains parameters for the Latest operation.
type LatestInput struct {
	Backups bool // read the Backup Store instead of the Version Store
}

// LatestOutput contains the result of the Latest operation.
type LatestOutput struct {
	Item *draft.Snapshot `json:"item"` // nil if the store is empty
}

// Latest loads the newest snapshot. An empty store yields a nil Item, not
// an error; a corrupt newest record is an error.
func Latest(ctx context.Context, stores *Stores, input LatestInput) (*LatestOutput, error) {
	snap, err := stores.store(input.Backups).LoadLatest(ctx)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return &LatestOutput{Item: nil}, nil
		}
		return nil, err
	}
	return &LatestOutput{Item: snap}, nil
}
