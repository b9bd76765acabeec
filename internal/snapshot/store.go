// Package snapshot persists drafts as versioned, retention-bounded record
// files. A Store owns one directory. Saves are serialized by an in-process
// mutex plus an advisory directory lock, and each record becomes visible
// only through an atomic rename.
package snapshot

import (
	"context"
	"crypto/rand"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/hpungsan/inkwell/internal/db"
	"github.com/hpungsan/inkwell/internal/draft"
	"github.com/hpungsan/inkwell/internal/errors"
)

// Store names double as sequence keys and journal store labels.
const (
	VersionStore = "saves"
	BackupStore  = "backups"
)

// Sources recorded on snapshots.
const (
	SourceManual    = "manual"
	SourceScheduler = "scheduler"
	SourceRestore   = "restore"
)

const (
	versionDigits = 8
	lockFileName  = ".lock"
	tempSuffix    = ".tmp"
)

// tempFile is the part of *os.File the commit path uses.
type tempFile interface {
	io.Writer
	Name() string
	Sync() error
	Close() error
}

// Store is one directory of snapshot records with its own version sequence
// and retention cap.
type Store struct {
	name   string
	dir    string
	prefix string
	keep   int

	codec   Codec
	seq     Sequencer
	journal Journal
	logger  zerolog.Logger
	now     func() time.Time

	createTemp func(dir, pattern string) (tempFile, error)
	remove     func(path string) error

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the record file prefix (default "draft").
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithCodec sets the codec for new records. Existing records are read with
// whatever codec their extension names.
func WithCodec(c Codec) Option {
	return func(s *Store) { s.codec = c }
}

// WithSequencer sets the version sequencer. The default keeps sequences in
// memory, raised by the highest version found on disk.
func WithSequencer(seq Sequencer) Option {
	return func(s *Store) { s.seq = seq }
}

// WithJournal sets the event journal. The default discards events.
func WithJournal(j Journal) Option {
	return func(s *Store) { s.journal = j }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides time.Now for snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open prepares a store named name in dir, keeping at most keep snapshots.
// The directory is created if needed.
func Open(name, dir string, keep int, opts ...Option) (*Store, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.NewInvalidRequest("store name is required")
	}
	if strings.TrimSpace(dir) == "" {
		return nil, errors.NewInvalidRequest(name + ": directory is required")
	}
	if keep <= 0 {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("%s: retention cap must be positive, got %d", name, keep))
	}

	s := &Store{
		name:    name,
		dir:     filepath.Clean(dir),
		prefix:  "draft",
		keep:    keep,
		codec:   Plain,
		seq:     newMemorySequencer(),
		journal: nopJournal{},
		logger:  zerolog.Nop(),
		now:     time.Now,
		createTemp: func(dir, pattern string) (tempFile, error) {
			return os.CreateTemp(dir, pattern)
		},
		remove: os.Remove,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return nil, errors.NewPersistence("create "+s.dir, err)
	}
	return s, nil
}

// Name returns the store name.
func (s *Store) Name() string { return s.name }

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Cap returns the retention cap.
func (s *Store) Cap() int { return s.keep }

// SaveResult is a committed snapshot plus the outcome of the retention pass
// that followed it. Eviction failures never undo the save.
type SaveResult struct {
	Snapshot       *draft.Snapshot   `json:"snapshot"`
	Evicted        []int             `json:"evicted"`
	EvictionErrors []EvictionFailure `json:"eviction_errors,omitempty"`
}

// Save commits d as the next version and then enforces retention.
// On a write failure it returns a PERSISTENCE error and no record becomes
// visible. The caller's draft is not modified.
func (s *Store) Save(ctx context.Context, d draft.Draft, source string) (*SaveResult, error) {
	if ctx.Err() != nil {
		return nil, errors.NewCancelled("save")
	}

	payload, err := json.Marshal(d)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("draft is not serializable: %v", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := lockDir(s.dir)
	if err != nil {
		return nil, errors.NewPersistence("lock "+s.name, err)
	}
	defer unlock()

	// The write has begun; it completes or fails on its own terms from here.
	ctx = context.WithoutCancel(ctx)

	s.sweepTemp()

	entries, err := s.scan()
	if err != nil {
		return nil, errors.NewPersistence("list "+s.name, err)
	}
	floor := 0
	if len(entries) > 0 {
		floor = entries[0].version
	}

	version, err := s.seq.Reserve(ctx, s.name, floor)
	if err != nil {
		return nil, errors.NewPersistence("reserve version", err)
	}

	now := s.now().UTC()
	id, err := newID(now)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	snap := &draft.Snapshot{
		ID:        id,
		Store:     s.name,
		Version:   version,
		Timestamp: now,
		WordCount: draft.WordCountOf(d),
		CharCount: draft.CountChars(d.Content),
		Source:    strings.TrimSpace(source),
		Checksum:  checksum(payload),
		Payload:   d,
	}

	record, err := encodeRecord(header{
		ID:        snap.ID,
		Version:   snap.Version,
		Timestamp: snap.Timestamp,
		WordCount: snap.WordCount,
		CharCount: snap.CharCount,
		Source:    snap.Source,
	}, payload)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	data, err := s.codec.Encode(record)
	if err != nil {
		return nil, errors.NewPersistence("encode record", err)
	}

	path := s.pathFor(version)
	if err := s.commit(path, data); err != nil {
		s.logger.Error().Err(err).Str("store", s.name).Int("version", version).Msg("save failed")
		return nil, errors.NewPersistence("write "+filepath.Base(path), err)
	}
	snap.Location = path

	s.logger.Debug().
		Str("store", s.name).
		Int("version", version).
		Int("word_count", snap.WordCount).
		Str("location", path).
		Msg("snapshot committed")

	kind := db.EventSave
	if snap.Source == SourceRestore {
		kind = db.EventRestore
	}
	s.record(ctx, db.Event{
		Store:     s.name,
		Version:   version,
		Kind:      kind,
		WordCount: snap.WordCount,
		Source:    snap.Source,
		Location:  path,
		At:        now,
	})

	result := &SaveResult{Snapshot: snap, Evicted: []int{}}
	report, err := s.enforceLocked(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("store", s.name).Msg("retention pass failed")
		result.EvictionErrors = []EvictionFailure{{Location: s.dir, Error: err.Error()}}
		return result, nil
	}
	result.Evicted = report.Evicted
	result.EvictionErrors = report.Failures
	return result, nil
}

// LoadLatest returns the snapshot with the highest version.
// A corrupt newest record is reported, not skipped.
func (s *Store) LoadLatest(ctx context.Context) (*draft.Snapshot, error) {
	if ctx.Err() != nil {
		return nil, errors.NewCancelled("load latest")
	}

	entries, err := s.scan()
	if err != nil {
		return nil, errors.NewPersistence("list "+s.name, err)
	}
	for _, e := range entries {
		snap, err := s.read(e)
		if err != nil {
			if stderrors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		return snap, nil
	}
	return nil, errors.NewNotFound(s.name, 0)
}

// Load returns the snapshot with the given version.
func (s *Store) Load(ctx context.Context, version int) (*draft.Snapshot, error) {
	if version <= 0 {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("version must be positive, got %d", version))
	}
	if ctx.Err() != nil {
		return nil, errors.NewCancelled("load")
	}

	for _, c := range codecs {
		path := s.pathWith(version, c)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		snap, err := s.read(entry{version: version, path: path, size: info.Size(), codec: c})
		if err != nil {
			if stderrors.Is(err, os.ErrNotExist) {
				break
			}
			return nil, err
		}
		return snap, nil
	}
	return nil, errors.NewNotFound(s.name, version)
}

// read decodes the record behind e. A vanished file yields os.ErrNotExist;
// anything else unreadable is a CORRUPT_RECORD error.
func (s *Store) read(e entry) (*draft.Snapshot, error) {
	h, d, err := readRecord(e.path, e.codec)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		s.logger.Warn().Err(err).Str("location", e.path).Msg("corrupt snapshot")
		return nil, errors.NewCorruptRecord(e.path, err)
	}
	if h.Version != e.version {
		err := fmt.Errorf("header version %d does not match file name", h.Version)
		s.logger.Warn().Err(err).Str("location", e.path).Msg("corrupt snapshot")
		return nil, errors.NewCorruptRecord(e.path, err)
	}

	return &draft.Snapshot{
		ID:        h.ID,
		Store:     s.name,
		Version:   h.Version,
		Timestamp: h.Timestamp,
		WordCount: h.WordCount,
		CharCount: h.CharCount,
		Source:    h.Source,
		Checksum:  h.Checksum,
		Location:  e.path,
		Payload:   d,
	}, nil
}

// commit writes data to a temp file in the store directory, flushes it, and
// renames it onto path. On failure the temp file is removed and path is
// untouched.
func (s *Store) commit(path string, data []byte) error {
	tmp, err := s.createTemp(s.dir, "."+s.prefix+"-*"+tempSuffix)
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	// The record is already visible; a failed directory sync only weakens
	// crash durability.
	if err := syncDir(s.dir); err != nil {
		s.logger.Warn().Err(err).Str("dir", s.dir).Msg("directory sync failed")
	}
	return nil
}

// sweepTemp removes temp files left behind by interrupted saves.
// Callers hold the directory lock, so no temp file is in use.
func (s *Store) sweepTemp() {
	matches, err := filepath.Glob(filepath.Join(s.dir, "."+s.prefix+"-*"+tempSuffix))
	if err != nil {
		return
	}
	for _, m := range matches {
		if err := os.Remove(m); err == nil {
			s.logger.Debug().Str("path", m).Msg("removed stale temp file")
		}
	}
}

// record writes e to the journal. The snapshot is already committed, so a
// journal failure is logged and otherwise ignored.
func (s *Store) record(ctx context.Context, e db.Event) {
	if err := s.journal.Record(ctx, e); err != nil {
		s.logger.Warn().Err(err).Str("store", s.name).Str("kind", e.Kind).Int("version", e.Version).Msg("journal write failed")
	}
}

func (s *Store) pathFor(version int) string {
	return s.pathWith(version, s.codec)
}

func (s *Store) pathWith(version int, c Codec) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-%0*d%s", s.prefix, versionDigits, version, c.Ext()))
}

func newID(now time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
