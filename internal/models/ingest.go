package models

import "fmt"

// Classification is the outcome of comparing a discovered file with the corpus store.
type Classification int

const (
	// New means the id has never been seen; the file is extracted.
	New Classification = iota
	// Moved means the id is known at another path; only the path is updated.
	Moved
	// Unchanged means the id is known at this path; nothing happens.
	Unchanged
	// Duplicate means another file in the same run already claimed the id.
	Duplicate
)

func (c Classification) String() string {
	switch c {
	case New:
		return "new"
	case Moved:
		return "moved"
	case Unchanged:
		return "unchanged"
	case Duplicate:
		return "duplicate"
	default:
		return fmt.Sprintf("classification(%d)", int(c))
	}
}

// MarshalText encodes the classification by name.
func (c Classification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// FileError is a per-file failure that did not abort the run.
type FileError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	RunID      string       `json:"run_id"`
	Discovered int          `json:"discovered"`
	Added      []string     `json:"added"`
	Moved      []PathChange `json:"moved"`
	Unchanged  int          `json:"unchanged"`
	Duplicates []FileError  `json:"duplicates,omitempty"`
	Malformed  []FileError  `json:"malformed,omitempty"`
	Failed     []FileError  `json:"failed,omitempty"`
	Pages      int          `json:"pages"`
	DurationMs int64        `json:"duration_ms"`
}
