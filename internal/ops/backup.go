package ops

import (
	"context"

	"github.com/hpungsan/inkwell/internal/draft"
)

// BackupInput contains parameters for the Backup operation.
type BackupInput struct {
	Draft  draft.Draft
	Source string
}

// Backup persists a draft into the Backup Store. Backups have their own
// version sequence and cap; they never touch the Version Store.
func Backup(ctx context.Context, stores *Stores, input BackupInput) (*SaveOutput, error) {
	source, err := cleanSource(input.Source)
	if err != nil {
		return nil, err
	}
	return commit(ctx, stores.Backups, input.Draft, source)
}
