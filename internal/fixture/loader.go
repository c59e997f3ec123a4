// Package fixture loads seed fixture files: one JSON array of records per
// (kind, name) pair, each record carrying a unique stableId.
package fixture

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/dbsmedya/goseed/internal/store"
)

// Fixture kinds.
const (
	KindBaseline = "baseline"
	KindDemo     = "demo"
)

var (
	// ErrFixtureNotFound is returned when a fixture file does not exist.
	ErrFixtureNotFound = errors.New("fixture file not found")
	// ErrMalformedFixture matches every *MalformedFixtureError.
	ErrMalformedFixture = errors.New("malformed fixture")
)

// MalformedFixtureError describes why a fixture file was rejected. Index is
// the offending entry, or -1 for file-level problems.
type MalformedFixtureError struct {
	File   string
	Index  int
	Reason string
}

func (e *MalformedFixtureError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("malformed fixture %s: %s", e.File, e.Reason)
	}
	return fmt.Sprintf("malformed fixture %s: entry %d: %s", e.File, e.Index, e.Reason)
}

// Is reports ErrMalformedFixture as a match.
func (e *MalformedFixtureError) Is(target error) bool {
	return target == ErrMalformedFixture
}

// Loader reads fixtures from <dir>/<kind>/<name>.json and upload sources
// from the media directory.
type Loader struct {
	fs       afero.Fs
	dir      string
	mediaDir string
}

// NewLoader creates a Loader over fs.
func NewLoader(fs afero.Fs, dir, mediaDir string) *Loader {
	return &Loader{fs: fs, dir: dir, mediaDir: mediaDir}
}

// Path returns the file path of a fixture.
func (l *Loader) Path(kind, name string) string {
	return filepath.Join(l.dir, kind, name+".json")
}

// Load reads and validates a fixture file.
func (l *Loader) Load(kind, name string) ([]*Record, error) {
	p := l.Path(kind, name)
	data, err := afero.ReadFile(l.fs, p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", p, ErrFixtureNotFound)
		}
		return nil, fmt.Errorf("failed to read fixture %s: %w", p, err)
	}
	return Parse(p, data)
}

// Parse validates fixture content. file is used in error messages only.
func Parse(file string, data []byte) ([]*Record, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &MalformedFixtureError{File: file, Index: -1, Reason: "not a JSON array: " + err.Error()}
	}
	if entries == nil {
		return nil, &MalformedFixtureError{File: file, Index: -1, Reason: "not a JSON array: null"}
	}

	records := make([]*Record, 0, len(entries))
	seen := make(map[string]int, len(entries))
	for i, raw := range entries {
		rec, isObject, err := decodeRecord(raw)
		if err != nil {
			return nil, &MalformedFixtureError{File: file, Index: i, Reason: err.Error()}
		}
		if !isObject {
			return nil, &MalformedFixtureError{File: file, Index: i, Reason: "entry is not an object"}
		}

		sid := rec.StableID()
		if sid == "" {
			return nil, &MalformedFixtureError{File: file, Index: i, Reason: "missing or empty stableId"}
		}
		if first, dup := seen[sid]; dup {
			return nil, &MalformedFixtureError{
				File:   file,
				Index:  i,
				Reason: fmt.Sprintf("duplicate stableId %q (first at entry %d)", sid, first),
			}
		}
		seen[sid] = i
		records = append(records, rec)
	}
	return records, nil
}

// Write stores records as a fixture file, creating the kind directory.
func (l *Loader) Write(kind, name string, records []*Record) error {
	p := l.Path(kind, name)
	if err := l.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create fixture directory: %w", err)
	}
	if records == nil {
		records = []*Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode fixture %s: %w", p, err)
	}
	if err := afero.WriteFile(l.fs, p, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write fixture %s: %w", p, err)
	}
	return nil
}

// ReadMedia loads an upload source from the media directory.
func (l *Loader) ReadMedia(filename string) (*store.File, error) {
	clean := path.Clean("/" + filename)
	if filename == "" || clean == "/" {
		return nil, fmt.Errorf("invalid media filename %q", filename)
	}
	p := filepath.Join(l.mediaDir, filepath.FromSlash(clean))
	data, err := afero.ReadFile(l.fs, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read media %s: %w", p, err)
	}
	mimeType := mime.TypeByExtension(path.Ext(clean))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return &store.File{Name: path.Base(clean), MimeType: mimeType, Data: data}, nil
}
