package snapshot

import (
	"context"
	stderrors "errors"
	"os"
	"slices"

	"github.com/hpungsan/inkwell/internal/db"
	"github.com/hpungsan/inkwell/internal/errors"
)

// PlanEviction returns the versions to delete so that at most keep remain:
// everything except the keep largest, largest first. keep <= 0 is treated as 1.
func PlanEviction(versions []int, keep int) []int {
	if keep <= 0 {
		keep = 1
	}
	sorted := slices.Clone(versions)
	slices.Sort(sorted)
	slices.Reverse(sorted)
	if len(sorted) <= keep {
		return nil
	}
	return sorted[keep:]
}

// EvictionFailure is a record that could not be deleted.
type EvictionFailure struct {
	Version  int    `json:"version"`
	Location string `json:"location"`
	Error    string `json:"error"`
}

// EvictionReport describes one enforcement pass.
type EvictionReport struct {
	Evicted  []int             `json:"evicted"`
	Failures []EvictionFailure `json:"failures,omitempty"`
}

// Enforce deletes the oldest records beyond the store's cap.
// Deleting a record that is already gone counts as success, so a pass
// interrupted halfway can simply be run again.
func (s *Store) Enforce(ctx context.Context) (*EvictionReport, error) {
	if ctx.Err() != nil {
		return nil, errors.NewCancelled("prune")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := lockDir(s.dir)
	if err != nil {
		return nil, errors.NewPersistence("lock "+s.name, err)
	}
	defer unlock()

	s.sweepTemp()
	return s.enforceLocked(context.WithoutCancel(ctx))
}

// enforceLocked runs with s.mu and the directory lock held.
func (s *Store) enforceLocked(ctx context.Context) (*EvictionReport, error) {
	entries, err := s.scan()
	if err != nil {
		return nil, errors.NewPersistence("list "+s.name, err)
	}

	byVersion := make(map[int]entry, len(entries))
	versions := make([]int, 0, len(entries))
	for _, e := range entries {
		byVersion[e.version] = e
		versions = append(versions, e.version)
	}

	report := &EvictionReport{Evicted: []int{}}
	plan := PlanEviction(versions, s.keep)

	// Oldest first, so a partial pass still leaves the newest records.
	for i := len(plan) - 1; i >= 0; i-- {
		e := byVersion[plan[i]]
		if err := s.remove(e.path); err != nil && !stderrors.Is(err, os.ErrNotExist) {
			s.logger.Warn().Err(err).Int("version", e.version).Str("location", e.path).Msg("eviction failed")
			report.Failures = append(report.Failures, EvictionFailure{
				Version:  e.version,
				Location: e.path,
				Error:    err.Error(),
			})
			continue
		}

		report.Evicted = append(report.Evicted, e.version)
		s.logger.Info().Str("store", s.name).Int("version", e.version).Msg("evicted snapshot")
		s.record(ctx, db.Event{
			Store:    s.name,
			Version:  e.version,
			Kind:     db.EventEvict,
			Location: e.path,
		})
	}
	return report, nil
}
