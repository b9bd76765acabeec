package snapshot

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/hpungsan/inkwell/internal/draft"
	"github.com/hpungsan/inkwell/internal/errors"
)

// entry is a committed record file found in the store directory.
// Only the file name has been read; the header may still be corrupt.
type entry struct {
	version int
	path    string
	size    int64
	codec   Codec
}

// parseRecordName extracts the version and codec from "<prefix>-NNNNNNNN<ext>".
// Temp files, the lock file, and records of other prefixes do not match.
func parseRecordName(prefix, name string) (int, Codec, bool) {
	rest, ok := strings.CutPrefix(name, prefix+"-")
	if !ok {
		return 0, nil, false
	}
	digits, ext, ok := strings.Cut(rest, ".")
	if !ok || len(digits) < versionDigits {
		return 0, nil, false
	}
	c, ok := codecFor(name)
	if !ok || "."+ext != c.Ext() {
		return 0, nil, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, nil, false
		}
	}
	version, err := strconv.Atoi(digits)
	if err != nil || version <= 0 {
		return 0, nil, false
	}
	return version, c, true
}

// scan lists record files, newest version first.
func (s *Store) scan() ([]entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	entries := make([]entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if !de.Type().IsRegular() {
			continue
		}
		version, c, ok := parseRecordName(s.prefix, de.Name())
		if !ok {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// Removed since ReadDir.
			continue
		}
		entries = append(entries, entry{
			version: version,
			path:    filepath.Join(s.dir, de.Name()),
			size:    info.Size(),
			codec:   c,
		})
	}

	slices.SortFunc(entries, func(a, b entry) int { return b.version - a.version })
	return entries, nil
}

// History lists snapshot metadata, most recent first. limit <= 0 means no
// limit. Each record is verified against its checksum before it is listed;
// corrupt or partial records, and those whose header disagrees with the file
// name, are logged and left out.
func (s *Store) History(ctx context.Context, limit int) ([]draft.Summary, error) {
	if ctx.Err() != nil {
		return nil, errors.NewCancelled("history")
	}

	entries, err := s.scan()
	if err != nil {
		return nil, errors.NewPersistence("list "+s.name, err)
	}

	out := make([]draft.Summary, 0, min(len(entries), max(limit, 0)))
	for _, e := range entries {
		if limit > 0 && len(out) >= limit {
			break
		}
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("history")
		}

		snap, err := s.read(e)
		if err != nil {
			// read has already logged anything but a vanished file.
			continue
		}
		sum := snap.ToSummary()
		sum.SizeBytes = e.size
		out = append(out, sum)
	}
	return out, nil
}
