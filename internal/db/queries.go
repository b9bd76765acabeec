package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/hpungsan/inkwell/internal/errors"
)

// Event kinds recorded in the journal.
const (
	EventSave    = "save"
	EventEvict   = "evict"
	EventRestore = "restore"
)

// Event is one journal row: a committed save, an eviction, or a restore.
type Event struct {
	ID        int64     `json:"id"`
	Store     string    `json:"store"`
	Version   int       `json:"version"`
	Kind      string    `json:"kind"`
	WordCount int       `json:"word_count"`
	Source    string    `json:"source,omitempty"`
	Location  string    `json:"location,omitempty"`
	At        time.Time `json:"at"`
}

// EventFilter narrows ListEvents. Zero values match everything.
type EventFilter struct {
	Store string
	Kind  string
	Since time.Time
	Limit int
}

// ReserveVersion durably claims the next version for store and returns it.
// The result is greater than both the last reserved version and floor, so a
// version is never handed out twice, even after its record was evicted.
func ReserveVersion(ctx context.Context, db *sql.DB, store string, floor int) (int, error) {
	if floor < 0 {
		floor = 0
	}
	query := `
		INSERT INTO sequences (store, last_version) VALUES (?, ?)
		ON CONFLICT(store) DO UPDATE
		SET last_version = max(sequences.last_version, excluded.last_version - 1) + 1
		RETURNING last_version
	`
	var version int
	if err := db.QueryRowContext(ctx, query, store, floor+1).Scan(&version); err != nil {
		return 0, errors.NewInternal(err)
	}
	return version, nil
}

// LastVersion returns the last version reserved for store, or 0 if none was.
func LastVersion(ctx context.Context, db *sql.DB, store string) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, `SELECT last_version FROM sequences WHERE store = ?`, store).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return version, nil
}

// RecordEvent appends e to the journal. A zero At is stamped with the current time.
func RecordEvent(ctx context.Context, db *sql.DB, e *Event) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	query := `
		INSERT INTO events (store, version, kind, word_count, source, location, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	res, err := db.ExecContext(ctx, query,
		e.Store, e.Version, e.Kind, e.WordCount,
		toNullString(e.Source), toNullString(e.Location), e.At.UnixMilli(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "CHECK constraint failed") {
			return errors.NewInvalidRequest("unknown event kind: " + e.Kind)
		}
		return errors.NewInternal(err)
	}

	id, err := res.LastInsertId()
	if err == nil {
		e.ID = id
	}
	return nil
}

// ListEvents returns journal rows matching f, oldest first.
func ListEvents(ctx context.Context, db *sql.DB, f EventFilter) ([]Event, error) {
	var (
		where []string
		args  []any
	)
	if f.Store != "" {
		where = append(where, "store = ?")
		args = append(args, f.Store)
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, f.Kind)
	}
	if !f.Since.IsZero() {
		where = append(where, "at >= ?")
		args = append(args, f.Since.UnixMilli())
	}

	query := `SELECT id, store, version, kind, word_count, source, location, at FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY at ASC, id ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e        Event
			source   sql.NullString
			location sql.NullString
			at       int64
		)
		if err := rows.Scan(&e.ID, &e.Store, &e.Version, &e.Kind, &e.WordCount, &source, &location, &at); err != nil {
			return nil, errors.NewInternal(err)
		}
		e.Source = source.String
		e.Location = location.String
		e.At = time.UnixMilli(at).UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return events, nil
}

// Ledger binds the sequence and journal queries to one database handle.
type Ledger struct {
	DB *sql.DB
}

// Reserve calls ReserveVersion.
func (l Ledger) Reserve(ctx context.Context, store string, floor int) (int, error) {
	return ReserveVersion(ctx, l.DB, store, floor)
}

// Record calls RecordEvent.
func (l Ledger) Record(ctx context.Context, e Event) error {
	return RecordEvent(ctx, l.DB, &e)
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
