// Package store reads and writes the single JSON document that holds the
// latest scrape result.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/use-agent/scrapehost/models"
)

// Document is a result file's contents, passed through unchanged.
type Document = json.RawMessage

// Reader is the read side of the result store.
type Reader interface {
	// Read returns the current document, models.ErrNotFound when there is
	// none, or a *models.ReadError when it cannot be read or parsed.
	Read(ctx context.Context) (Document, error)
}

// FileStore keeps the result document in one file on disk.
// Every Read goes to disk; nothing is cached.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the location of the result file.
func (s *FileStore) Path() string {
	return s.path
}

// Read loads and validates the result file.
func (s *FileStore) Read(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewReadError(s.path, err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, models.ErrNotFound
		}
		return nil, models.NewReadError(s.path, err)
	}

	if !json.Valid(data) {
		// Unmarshal again only to get a descriptive syntax error.
		var probe any
		if uerr := json.Unmarshal(data, &probe); uerr != nil {
			return nil, models.NewReadError(s.path, uerr)
		}
		return nil, models.NewReadError(s.path, errors.New("invalid JSON document"))
	}

	return Document(data), nil
}

// Write replaces the result file with doc encoded as indented JSON.
// The file is written to a temporary sibling and renamed into place so
// readers never observe a partial document.
func (s *FileStore) Write(doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal document: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".scraped-*.json")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: rename into place: %w", err)
	}
	return nil
}

// Failed reports whether doc is an object whose "error" field is true,
// returning its "message" field alongside.
func Failed(doc Document) (bool, string) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return false, ""
	}
	var failed bool
	if err := json.Unmarshal(fields["error"], &failed); err != nil || !failed {
		return false, ""
	}
	var msg string
	if err := json.Unmarshal(fields["message"], &msg); err != nil {
		// A non-string message is shown as its raw JSON.
		msg = string(fields["message"])
	}
	return true, msg
}
