package ops

import (
	"database/sql"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/inkwell/internal/config"
	"github.com/hpungsan/inkwell/internal/db"
	"github.com/hpungsan/inkwell/internal/errors"
	"github.com/hpungsan/inkwell/internal/snapshot"
)

// Limits
const (
	MaxHistoryLimit = 1000
	MaxSourceLen    = 64
)

// Record file prefixes.
const (
	DraftPrefix  = "draft"
	BackupPrefix = "backup"
)

// Stores bundles the Version Store, the Backup Store and the journal they
// share. Every operation in this package runs against one Stores value.
type Stores struct {
	Saves   *snapshot.Store
	Backups *snapshot.Store

	// DB holds the version sequences and the save journal. Nil disables
	// writing statistics.
	DB *sql.DB

	Config *config.Config
	Logger zerolog.Logger

	// Now is the clock used for save cadence and statistics.
	Now func() time.Time
}

// Open builds both stores from cfg. With a nil database, versions are
// sequenced in memory and no journal is kept.
func Open(database *sql.DB, cfg *config.Config, logger zerolog.Logger) (*Stores, error) {
	if cfg == nil {
		return nil, errors.NewInvalidRequest("config is required")
	}

	common := []snapshot.Option{}
	if database != nil {
		ledger := db.Ledger{DB: database}
		common = append(common, snapshot.WithSequencer(ledger), snapshot.WithJournal(ledger))
	}

	saves, err := snapshot.Open(snapshot.VersionStore, cfg.SaveDir, cfg.MaxVersions, append(common,
		snapshot.WithPrefix(DraftPrefix),
		snapshot.WithLogger(logger.With().Str("store", snapshot.VersionStore).Logger()),
	)...)
	if err != nil {
		return nil, err
	}

	codec := snapshot.Plain
	if cfg.CompressBackups {
		codec = snapshot.Zstd
	}
	backups, err := snapshot.Open(snapshot.BackupStore, cfg.BackupDir, cfg.MaxBackups, append(common,
		snapshot.WithPrefix(BackupPrefix),
		snapshot.WithCodec(codec),
		snapshot.WithLogger(logger.With().Str("store", snapshot.BackupStore).Logger()),
	)...)
	if err != nil {
		return nil, err
	}

	return &Stores{
		Saves:   saves,
		Backups: backups,
		DB:      database,
		Config:  cfg,
		Logger:  logger,
		Now:     time.Now,
	}, nil
}

// store picks the Backup Store when backups is set.
func (s *Stores) store(backups bool) *snapshot.Store {
	if backups {
		return s.Backups
	}
	return s.Saves
}

func (s *Stores) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// saveInterval returns the configured advisory cadence.
func (s *Stores) saveInterval() time.Duration {
	if s.Config == nil || s.Config.SaveInterval <= 0 {
		return config.DefaultConfig().SaveInterval
	}
	return s.Config.SaveInterval
}

// cleanSource trims and validates a caller-supplied source label.
func cleanSource(source string) (string, error) {
	source = strings.TrimSpace(source)
	if len(source) > MaxSourceLen {
		return "", errors.NewInvalidRequest("source must be at most 64 characters")
	}
	return source, nil
}

// validateLimit applies history limit rules: 0 means unbounded.
func validateLimit(limit int) (int, error) {
	if limit < 0 {
		return 0, errors.NewInvalidRequest("limit must not be negative")
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit, nil
	}
	return limit, nil
}
