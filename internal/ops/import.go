package ops

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hpungsan/inkwell/internal/errors"
)

// SourceImport labels snapshots created by Import.
const SourceImport = "import"

// maxArchiveLine bounds one archive line (one draft).
const maxArchiveLine = 16 << 20

// ImportMode controls how Import treats malformed lines.
type ImportMode string

const (
	ImportModeError ImportMode = "error" // import nothing if any line is malformed
	ImportModeSkip  ImportMode = "skip"  // import the good lines, report the rest
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path    string // required
	Backups bool
	Mode    ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Store    string        `json:"store"`
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Versions []int         `json:"versions"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes an archive line that was not imported.
type ImportError struct {
	Line    int    `json:"line"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Import replays an archive into a store, oldest record first. Every record
// becomes a new snapshot with a freshly assigned version; archived version
// numbers are never reused. Retention applies as usual.
func Import(ctx context.Context, stores *Stores, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeSkip {
		return nil, errors.NewInvalidRequest("mode must be one of: error, skip")
	}
	if err := ValidateArchivePath(input.Path, PathCheckRead, stores.Config); err != nil {
		return nil, err
	}

	file, err := openNoFollow(input.Path, os.O_RDONLY, 0)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewPersistence("open archive", err)
	}
	defer file.Close()

	records, lineErrs, err := parseArchive(file)
	if err != nil {
		return nil, err
	}

	store := stores.store(input.Backups)
	out := &ImportOutput{
		Store:    store.Name(),
		Versions: []int{},
		Errors:   lineErrs,
	}
	if out.Errors == nil {
		out.Errors = []ImportError{}
	}
	if len(lineErrs) > 0 && input.Mode == ImportModeError {
		out.Skipped = len(records) + len(lineErrs)
		return out, nil
	}
	out.Skipped = len(lineErrs)

	for _, rec := range records {
		res, err := store.Save(ctx, *rec.Payload, SourceImport)
		if err != nil {
			return nil, err
		}
		out.Imported++
		out.Versions = append(out.Versions, res.Snapshot.Version)
	}

	stores.Logger.Info().Str("store", store.Name()).Int("imported", out.Imported).Int("skipped", out.Skipped).Msg("imported archive")
	return out, nil
}

// parseArchive reads the header line and every record line.
// A missing or foreign header fails the whole import.
func parseArchive(file *os.File) ([]ArchiveRecord, []ImportError, error) {
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxArchiveLine)

	var (
		records   []ArchiveRecord
		lineErrs  []ImportError
		lineNum   int
		sawHeader bool
	)
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		if !sawHeader {
			var h ArchiveHeader
			if err := json.Unmarshal(line, &h); err != nil || !h.InkwellExport {
				return nil, nil, errors.NewInvalidRequest("not an inkwell archive: missing header line")
			}
			if h.SchemaVersion != ArchiveSchemaVersion {
				return nil, nil, errors.NewInvalidRequest(fmt.Sprintf("unsupported archive schema version %q", h.SchemaVersion))
			}
			sawHeader = true
			continue
		}

		var rec ArchiveRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			lineErrs = append(lineErrs, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}
		if rec.Payload == nil {
			lineErrs = append(lineErrs, ImportError{
				Line:    lineNum,
				Code:    "MISSING_PAYLOAD",
				Message: "record has no payload",
			})
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.NewInvalidRequest(fmt.Sprintf("read archive: %v", err))
	}
	if !sawHeader {
		return nil, nil, errors.NewInvalidRequest("not an inkwell archive: empty file")
	}
	return records, lineErrs, nil
}
