package ops

import (
	"context"
	"time"

	"github.com/hpungsan/inkwell/internal/draft"
	"github.com/hpungsan/inkwell/internal/snapshot"
)

// SaveInput contains parameters for the Save operation.
type SaveInput struct {
	Draft  draft.Draft
	Source string // optional label, e.g. "scheduler"

	// OnlyIfDue skips the save when the latest snapshot is younger than
	// save_interval. Schedulers use it to honor the cadence.
	OnlyIfDue bool
}

// SaveOutput contains the result of a Save or Backup operation.
type SaveOutput struct {
	Saved          bool                       `json:"saved"`
	Store          string                     `json:"store"`
	Location       string                     `json:"location,omitempty"`
	Version        int                        `json:"version,omitempty"`
	ID             string                     `json:"id,omitempty"`
	Timestamp      *time.Time                 `json:"timestamp,omitempty"`
	WordCount      int                        `json:"word_count"`
	Evicted        []int                      `json:"evicted"`
	EvictionErrors []snapshot.EvictionFailure `json:"eviction_errors,omitempty"`

	// NextDue is set when OnlyIfDue skipped the save.
	NextDue *time.Time `json:"next_due,omitempty"`
}

// Save persists a draft as the next version in the Version Store.
func Save(ctx context.Context, stores *Stores, input SaveInput) (*SaveOutput, error) {
	source, err := cleanSource(input.Source)
	if err != nil {
		return nil, err
	}

	if input.OnlyIfDue {
		due, next, err := saveDue(ctx, stores)
		if err != nil {
			return nil, err
		}
		if !due {
			return &SaveOutput{
				Saved:     false,
				Store:     stores.Saves.Name(),
				WordCount: draft.WordCountOf(input.Draft),
				Evicted:   []int{},
				NextDue:   next,
			}, nil
		}
	}

	return commit(ctx, stores.Saves, input.Draft, source)
}

// commit saves d into store and shapes the output.
func commit(ctx context.Context, store *snapshot.Store, d draft.Draft, source string) (*SaveOutput, error) {
	res, err := store.Save(ctx, d, source)
	if err != nil {
		return nil, err
	}

	snap := res.Snapshot
	ts := snap.Timestamp
	return &SaveOutput{
		Saved:          true,
		Store:          store.Name(),
		Location:       snap.Location,
		Version:        snap.Version,
		ID:             snap.ID,
		Timestamp:      &ts,
		WordCount:      snap.WordCount,
		Evicted:        res.Evicted,
		EvictionErrors: res.EvictionErrors,
	}, nil
}

// saveDue reports whether the Version Store's newest snapshot is at least
// save_interval old, and when the next save falls due otherwise.
func saveDue(ctx context.Context, stores *Stores) (bool, *time.Time, error) {
	history, err := stores.Saves.History(ctx, 1)
	if err != nil {
		return false, nil, err
	}
	if len(history) == 0 {
		return true, nil, nil
	}

	next := history[0].Timestamp.Add(stores.saveInterval())
	if !stores.now().Before(next) {
		return true, nil, nil
	}
	return false, &next, nil
}
