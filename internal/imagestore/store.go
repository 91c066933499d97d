// store.go - Local disk image storage behind stable /uploads locations

package imagestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bosocmputer/display_audit_gemini/internal/common"
	"github.com/google/uuid"
)

// LocationPrefix is the public prefix under which stored images are served.
const LocationPrefix = "/uploads/"

// Store saves uploaded images to a local directory and hands out stable
// location strings ("/uploads/<name>") that are safe to persist.
type Store struct {
	dir      string
	maxBytes int64
}

// New creates the upload directory if needed. maxMB caps individual files.
func New(dir string, maxMB int) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Store{dir: dir, maxBytes: int64(maxMB) * 1024 * 1024}, nil
}

// Save writes the byte stream under a unique name derived from the original
// filename's extension and returns its location string.
func (s *Store) Save(data []byte, originalName string) (string, error) {
	if int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("%w: %d bytes", common.ErrTooLarge, len(data))
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	name := uuid.New().String() + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return LocationPrefix + name, nil
}

// Read returns the byte content behind a location string previously handed
// out by Save. A missing file maps to common.ErrNotFound.
func (s *Store) Read(location string) ([]byte, error) {
	name := strings.TrimPrefix(location, LocationPrefix)
	// Reject traversal; locations are opaque but come back from the database.
	if name == "" || name != filepath.Base(name) {
		return nil, fmt.Errorf("%w: invalid image location %q", common.ErrNotFound, location)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: image %s", common.ErrNotFound, location)
		}
		return nil, fmt.Errorf("failed to read image %s: %w", location, err)
	}
	return data, nil
}

// Dir returns the backing directory (used for static file serving).
func (s *Store) Dir() string {
	return s.dir
}
