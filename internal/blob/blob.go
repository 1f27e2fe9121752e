// Package blob stores uploaded files on the local filesystem under
// opaque UUID keys.
package blob

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("blob not found")

// Store is a filesystem-backed blob store. Keys are UUIDs minted on write,
// so callers can never address a path outside the store directory.
type Store struct {
	dir string
}

// NewStore opens (creating if needed) a blob store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Put writes the content under a fresh key and returns it.
func (s *Store) Put(r io.Reader) (string, error) {
	key := uuid.NewString()
	f, err := os.Create(filepath.Join(s.dir, key))
	if err != nil {
		return "", fmt.Errorf("creating blob: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing blob: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing blob: %w", err)
	}
	return key, nil
}

// Open returns a reader for the stored content. The caller closes it.
func (s *Store) Open(key string) (io.ReadCloser, error) {
	if !validKey(key) {
		return nil, ErrNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Delete removes a stored blob. Deleting an unknown key is not an error.
func (s *Store) Delete(key string) error {
	if !validKey(key) {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// validKey rejects anything that is not a bare UUID, which also rules out
// path traversal.
func validKey(key string) bool {
	if strings.ContainsAny(key, "/\\.") {
		return false
	}
	_, err := uuid.Parse(key)
	return err == nil
}
