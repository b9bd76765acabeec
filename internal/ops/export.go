package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/hpungsan/inkwell/internal/draft"
	"github.com/hpungsan/inkwell/internal/errors"
)

// ArchiveSchemaVersion is written into archive headers.
const ArchiveSchemaVersion = "1"

// ArchiveHeader is the first line of an archive file.
type ArchiveHeader struct {
	InkwellExport bool      `json:"_inkwell_export"`
	SchemaVersion string    `json:"schema_version"`
	Store         string    `json:"store"`
	ExportedAt    time.Time `json:"exported_at"`
}

// ArchiveRecord is one snapshot line of an archive.
type ArchiveRecord struct {
	ID        string       `json:"id"`
	Version   int          `json:"version"`
	Timestamp time.Time    `json:"timestamp"`
	WordCount int          `json:"word_count"`
	Source    string       `json:"source,omitempty"`
	Payload   *draft.Draft `json:"payload"`
}

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path    string // optional, default: <export_dir>/<store>-<timestamp>.jsonl
	Backups bool
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string    `json:"path"`
	Store      string    `json:"store"`
	Count      int       `json:"count"`
	Skipped    []int     `json:"skipped,omitempty"` // corrupt records left out
	ExportedAt time.Time `json:"exported_at"`
}

// Export writes every retained snapshot of a store, oldest first, to a JSONL
// archive. The archive is written to a temp file and renamed into place, so
// an existing file at the destination survives a failed export.
func Export(ctx context.Context, stores *Stores, input ExportInput) (*ExportOutput, error) {
	store := stores.store(input.Backups)
	now := stores.now().UTC()

	exportPath := input.Path
	if exportPath == "" {
		if stores.Config == nil || stores.Config.ExportDir == "" {
			return nil, errors.NewInvalidRequest("path is required when export_dir is not configured")
		}
		exportPath = filepath.Join(stores.Config.ExportDir,
			fmt.Sprintf("%s-%s%s", store.Name(), now.Format("2006-01-02T150405"), ArchiveExt))
	}
	if err := ValidateArchivePath(exportPath, PathCheckWrite, stores.Config); err != nil {
		return nil, err
	}

	history, err := store.History(ctx, 0)
	if err != nil {
		return nil, err
	}
	slices.Reverse(history)

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewPersistence("create export directory", err)
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return nil, errors.NewPersistence("create export file", err)
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	enc := json.NewEncoder(file)
	if err := enc.Encode(ArchiveHeader{
		InkwellExport: true,
		SchemaVersion: ArchiveSchemaVersion,
		Store:         store.Name(),
		ExportedAt:    now,
	}); err != nil {
		return nil, errors.NewPersistence("write export header", err)
	}

	out := &ExportOutput{Store: store.Name(), ExportedAt: now}
	for _, sum := range history {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("export")
		}

		snap, err := store.Load(ctx, sum.Version)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				continue // evicted since listing
			}
			if errors.Is(err, errors.ErrCorruptRecord) {
				out.Skipped = append(out.Skipped, sum.Version)
				continue
			}
			return nil, err
		}

		if err := enc.Encode(ArchiveRecord{
			ID:        snap.ID,
			Version:   snap.Version,
			Timestamp: snap.Timestamp,
			WordCount: snap.WordCount,
			Source:    snap.Source,
			Payload:   &snap.Payload,
		}); err != nil {
			return nil, errors.NewPersistence("write export record", err)
		}
		out.Count++
	}

	if err := file.Sync(); err != nil {
		return nil, errors.NewPersistence("sync export file", err)
	}
	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return nil, errors.NewPersistence("close export file", err)
	}
	file = nil

	// os.Rename would replace a symlink planted at the destination.
	if info, err := os.Lstat(exportPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInvalidRequest("export path is a symlink")
	}

	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path")
			}
		}
		return nil, errors.NewPersistence("finalize export", err)
	}

	success = true
	out.Path = exportPath
	stores.Logger.Info().Str("store", store.Name()).Int("count", out.Count).Str("path", exportPath).Msg("exported snapshots")
	return out, nil
}
