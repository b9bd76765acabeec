package draft

import "time"

// Snapshot is one immutable, versioned, persisted copy of a draft.
type Snapshot struct {
	// ID is a ULID that uniquely identifies this record
	ID string `json:"id"`

	// Store names the sequence this snapshot belongs to ("saves" or "backups")
	Store string `json:"store"`

	// Version is the position in the store's save sequence, never reused
	Version int `json:"version"`

	// Timestamp is when the store captured the snapshot (UTC)
	Timestamp time.Time `json:"timestamp"`

	// WordCount is computed from Payload.Content at save time
	WordCount int `json:"word_count"`

	// CharCount is the rune count of Payload.Content
	CharCount int `json:"char_count"`

	// Source labels who asked for the save (e.g., "scheduler", "manual", "restore")
	Source string `json:"source,omitempty"`

	// Checksum is the sha256 of the encoded payload, "sha256:<hex>"
	Checksum string `json:"checksum"`

	// Location is the path of the committed record file
	Location string `json:"location"`

	// Payload is the draft, stored verbatim
	Payload Draft `json:"payload"`
}

// Summary is a snapshot's metadata without the payload.
// Used for history listings to keep them cheap.
type Summary struct {
	ID        string    `json:"id"`
	Store     string    `json:"store"`
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	WordCount int       `json:"word_count"`
	CharCount int       `json:"char_count"`
	Source    string    `json:"source,omitempty"`
	Location  string    `json:"location"`
	SizeBytes int64     `json:"size_bytes"`
}

// ToSummary converts a Snapshot to a Summary by dropping the payload.
// SizeBytes is left zero; only directory listings know it.
func (s *Snapshot) ToSummary() Summary {
	return Summary{
		ID:        s.ID,
		Store:     s.Store,
		Version:   s.Version,
		Timestamp: s.Timestamp,
		WordCount: s.WordCount,
		CharCount: s.CharCount,
		Source:    s.Source,
		Location:  s.Location,
	}
}
