package ops

import (
	"context"

	"github.com/hpungsan/inkwell/internal/draft"
)

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	Limit   int // 0 means the whole retained history
	Backups bool
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Store string          `json:"store"`
	Cap   int             `json:"cap"`
	Items []draft.Summary `json:"items"`
}

// History lists snapshot metadata, most recent first.
func History(ctx context.Context, stores *Stores, input HistoryInput) (*HistoryOutput, error) {
	limit, err := validateLimit(input.Limit)
	if err != nil {
		return nil, err
	}

	store := stores.store(input.Backups)
	items, err := store.History(ctx, limit)
	if err != nil {
		return nil, err
	}
	return &HistoryOutput{
		Store: store.Name(),
		Cap:   store.Cap(),
		Items: items,
	}, nil
}
