package ops

import (
	"context"
	"time"

	"github.com/hpungsan/inkwell/internal/db"
	"github.com/hpungsan/inkwell/internal/errors"
	"github.com/hpungsan/inkwell/internal/snapshot"
)

// StatsOutput contains writing statistics derived from the save journal.
type StatsOutput struct {
	TotalSaves    int        `json:"total_saves"`
	WritingDays   int        `json:"writing_days"`
	WordsToday    int        `json:"words_today"` // net change since the last save before today
	CurrentStreak int        `json:"current_streak"`
	LongestStreak int        `json:"longest_streak"`
	FirstSave     *time.Time `json:"first_save,omitempty"`
	LastSave      *time.Time `json:"last_save,omitempty"`
}

// Stats computes writing statistics over every Version Store save ever
// journaled, including saves whose records have since been evicted.
func Stats(ctx context.Context, stores *Stores) (*StatsOutput, error) {
	if stores.DB == nil {
		return nil, errors.NewInvalidRequest("statistics need the journal database")
	}
	if ctx.Err() != nil {
		return nil, errors.NewCancelled("stats")
	}

	events, err := db.ListEvents(ctx, stores.DB, db.EventFilter{
		Store: snapshot.VersionStore,
		Kind:  db.EventSave,
	})
	if err != nil {
		return nil, err
	}
	return computeStats(events, stores.now()), nil
}

// computeStats works in now's location, so "today" is the caller's day.
// events must be ordered oldest first.
func computeStats(events []db.Event, now time.Time) *StatsOutput {
	out := &StatsOutput{TotalSaves: len(events)}
	if len(events) == 0 {
		return out
	}

	loc := now.Location()
	first := events[0].At.In(loc)
	last := events[len(events)-1].At.In(loc)
	out.FirstSave = &first
	out.LastSave = &last

	today := dayOf(now)
	var (
		days        []time.Time
		baseline    int
		latestToday int
		wroteToday  bool
	)
	for _, e := range events {
		day := dayOf(e.At.In(loc))
		if len(days) == 0 || !days[len(days)-1].Equal(day) {
			days = append(days, day)
		}
		if day.Before(today) {
			baseline = e.WordCount
		} else if day.Equal(today) {
			latestToday = e.WordCount
			wroteToday = true
		}
	}
	out.WritingDays = len(days)
	if wroteToday {
		out.WordsToday = latestToday - baseline
	}

	// Longest run of consecutive days.
	run := 0
	for i, d := range days {
		if i > 0 && d.Equal(days[i-1].AddDate(0, 0, 1)) {
			run++
		} else {
			run = 1
		}
		out.LongestStreak = max(out.LongestStreak, run)
	}

	// Current streak ends today, or yesterday if nothing was saved yet today.
	end := today
	if !wroteToday {
		end = today.AddDate(0, 0, -1)
	}
	for i := len(days) - 1; i >= 0; i-- {
		if !days[i].Equal(end) {
			break
		}
		out.CurrentStreak++
		end = end.AddDate(0, 0, -1)
	}
	return out
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
