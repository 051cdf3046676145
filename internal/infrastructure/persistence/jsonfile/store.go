// Package jsonfile stores the user collection in a single JSON document on disk.
// The document layout matches the water-data.json file of the first bot version,
// so existing data files load without conversion.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
)

// DefaultPath is used when no path is configured.
const DefaultPath = "data/water-data.json"

// document is the on-disk layout.
type document struct {
	Users []*hydration.UserRecord `json:"users"`
}

// Store is a hydration.DocumentStore backed by a JSON file.
// Writes go through a temp file and rename, so a crash never leaves
// a half-written document behind.
type Store struct {
	path string
	mu   sync.Mutex
}

// New creates a Store for path. The parent directory is created on first write.
func New(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

// Path returns the document location.
func (s *Store) Path() string {
	return s.path
}

// Load reads every user from the document. A missing file is an empty collection.
func (s *Store) Load(ctx context.Context) ([]*hydration.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []*hydration.UserRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("jsonfile: read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []*hydration.UserRecord{}, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("jsonfile: decode %s: %w", s.path, err)
	}
	if doc.Users == nil {
		doc.Users = []*hydration.UserRecord{}
	}
	return doc.Users, nil
}

// SaveAll replaces the document with users.
func (s *Store) SaveAll(ctx context.Context, users []*hydration.UserRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if users == nil {
		users = []*hydration.UserRecord{}
	}

	data, err := json.MarshalIndent(document{Users: users}, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonfile: encode: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("jsonfile: create dir %s: %w", dir, err)
		}
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("jsonfile: write %s: %w", s.path, err)
	}
	return nil
}

var _ hydration.DocumentStore = (*Store)(nil)
