package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"time"

	"github.com/hpungsan/inkwell/internal/draft"
)

// SchemaVersion is written into every record header.
const SchemaVersion = "1"

// header is the first line of a record file.
type header struct {
	Marker        bool      `json:"_inkwell_snapshot"`
	SchemaVersion string    `json:"schema_version"`
	ID            string    `json:"id"`
	Version       int       `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
	WordCount     int       `json:"word_count"`
	CharCount     int       `json:"char_count"`
	Source        string    `json:"source,omitempty"`
	Checksum      string    `json:"checksum"`
}

var (
	errNotRecord      = stderrors.New("missing snapshot header")
	errSchemaVersion  = stderrors.New("unsupported schema version")
	errChecksum       = stderrors.New("checksum mismatch")
	errMissingPayload = stderrors.New("missing payload line")
)

// checksum returns "sha256:<hex>" of the payload line.
func checksum(payload []byte) string {
	sum := sha256.Sum256(payload)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// encodeRecord renders the header line followed by the payload line.
func encodeRecord(h header, payload []byte) ([]byte, error) {
	h.Marker = true
	h.SchemaVersion = SchemaVersion
	h.Checksum = checksum(payload)

	line, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(line) + len(payload) + 2)
	buf.Write(line)
	buf.WriteByte('\n')
	buf.Write(payload)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func parseHeader(line []byte) (header, error) {
	var h header
	if err := json.Unmarshal(line, &h); err != nil {
		return header{}, fmt.Errorf("parse header: %w", err)
	}
	if !h.Marker {
		return header{}, errNotRecord
	}
	if h.SchemaVersion != SchemaVersion {
		return header{}, fmt.Errorf("%w: %q", errSchemaVersion, h.SchemaVersion)
	}
	return h, nil
}

// readRecord reads, verifies and decodes the full record at path.
// A missing file is returned as an os.ErrNotExist error; every other failure
// means the record is corrupt.
func readRecord(path string, c Codec) (header, draft.Draft, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return header{}, draft.Draft{}, err
	}

	data, err := decodeAll(c, raw)
	if err != nil {
		return header{}, draft.Draft{}, fmt.Errorf("decode: %w", err)
	}

	headLine, rest, found := bytes.Cut(data, []byte{'\n'})
	if !found {
		return header{}, draft.Draft{}, errMissingPayload
	}
	h, err := parseHeader(headLine)
	if err != nil {
		return header{}, draft.Draft{}, err
	}

	payload := bytes.TrimSuffix(rest, []byte{'\n'})
	if len(payload) == 0 {
		return header{}, draft.Draft{}, errMissingPayload
	}
	if checksum(payload) != h.Checksum {
		return header{}, draft.Draft{}, errChecksum
	}

	d, err := draft.ParseDraft(payload)
	if err != nil {
		return header{}, draft.Draft{}, fmt.Errorf("parse payload: %w", err)
	}
	return h, d, nil
}
