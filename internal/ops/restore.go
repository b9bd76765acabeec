package ops

import (
	"context"

	"github.com/hpungsan/inkwell/internal/draft"
	"github.com/hpungsan/inkwell/internal/errors"
	"github.com/hpungsan/inkwell/internal/snapshot"
)

// RestoreInput contains parameters for the Restore operation.
type RestoreInput struct {
	Version int // backup version; 0 restores the newest backup
}

// RestoreOutput contains the result of the Restore operation.
type RestoreOutput struct {
	FromVersion  int    `json:"from_version"`
	FromLocation string `json:"from_location"`
	SaveOutput
}

// Restore copies a backup into the Version Store as a new version with
// source "restore". The backup itself is left in place.
func Restore(ctx context.Context, stores *Stores, input RestoreInput) (*RestoreOutput, error) {
	if input.Version < 0 {
		return nil, errors.NewInvalidRequest("version must not be negative")
	}

	var (
		backup *draft.Snapshot
		err    error
	)
	if input.Version == 0 {
		backup, err = stores.Backups.LoadLatest(ctx)
	} else {
		backup, err = stores.Backups.Load(ctx, input.Version)
	}
	if err != nil {
		return nil, err
	}

	out, err := commit(ctx, stores.Saves, backup.Payload, snapshot.SourceRestore)
	if err != nil {
		return nil, err
	}

	stores.Logger.Info().
		Int("backup_version", backup.Version).
		Int("version", out.Version).
		Msg("restored backup")

	return &RestoreOutput{
		FromVersion:  backup.Version,
		FromLocation: backup.Location,
		SaveOutput:   *out,
	}, nil
}
