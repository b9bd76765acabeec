package ops

import (
	"context"
	"time"

	"github.com/hpungsan/inkwell/internal/db"
	"github.com/hpungsan/inkwell/internal/draft"
	"github.com/hpungsan/inkwell/internal/errors"
)

// ProgressOutput summarizes the newest draft and the save cadence.
type ProgressOutput struct {
	HasDraft       bool            `json:"has_draft"`
	Version        int             `json:"version,omitempty"`
	LastSave       *time.Time      `json:"last_save,omitempty"`
	WordCount      int             `json:"word_count"`
	CharCount      int             `json:"char_count"`
	EstimatedPages int             `json:"estimated_pages"`
	Title          string          `json:"title,omitempty"`
	Characters     int             `json:"characters"`
	Outline        []draft.Heading `json:"outline,omitempty"`

	// SaveDue is advisory: nothing saves on its own.
	SaveDue bool       `json:"save_due"`
	NextDue *time.Time `json:"next_due,omitempty"`

	SaveCount    int        `json:"save_count"`
	BackupCount  int        `json:"backup_count"`
	LatestBackup *time.Time `json:"latest_backup,omitempty"`

	// LastAssignedVersion is the highest version the sequencer has handed
	// out. It runs ahead of Version when newer records were lost. Zero
	// without a database.
	LastAssignedVersion int `json:"last_assigned_version,omitempty"`
}

// Progress reports word count, version, last save time and derived metadata
// of the newest saved draft.
func Progress(ctx context.Context, stores *Stores) (*ProgressOutput, error) {
	out := &ProgressOutput{SaveDue: true}

	saves, err := stores.Saves.History(ctx, 0)
	if err != nil {
		return nil, err
	}
	out.SaveCount = len(saves)

	backups, err := stores.Backups.History(ctx, 0)
	if err != nil {
		return nil, err
	}
	out.BackupCount = len(backups)
	if len(backups) > 0 {
		ts := backups[0].Timestamp
		out.LatestBackup = &ts
	}

	if stores.DB != nil {
		last, err := db.LastVersion(ctx, stores.DB, stores.Saves.Name())
		if err != nil {
			return nil, err
		}
		out.LastAssignedVersion = last
	}

	latest, err := stores.Saves.LoadLatest(ctx)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return out, nil
		}
		return nil, err
	}

	meta := draft.Extract(latest.Payload)
	ts := latest.Timestamp
	out.HasDraft = true
	out.Version = latest.Version
	out.LastSave = &ts
	out.WordCount = latest.WordCount
	out.CharCount = meta.CharCount
	out.EstimatedPages = draft.EstimatePages(latest.WordCount)
	out.Title = meta.Title
	out.Characters = meta.Characters
	out.Outline = meta.Outline

	next := ts.Add(stores.saveInterval())
	if stores.now().Before(next) {
		out.SaveDue = false
		out.NextDue = &next
	}
	return out, nil
}
