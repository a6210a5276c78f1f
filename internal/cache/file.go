// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// CurrentVersion is the current cache entry schema version.
// Increment this when making breaking changes to the entry envelope
// or to the shape of cached values.
const CurrentVersion = 1

// entryExt is the file extension used for cache entries.
const entryExt = ".cache"

// entry is the on-disk envelope around a cached value.
type entry struct {
	// Version indicates the schema version of this entry.
	Version int `json:"version"`

	// Checksum is the SHA256 hash of Value.
	Checksum string `json:"checksum"`

	// Key is the cache key this entry was written under.
	Key string `json:"key"`

	// CreatedAt records when the entry was written.
	CreatedAt time.Time `json:"created_at"`

	// Value is the cached JSON document.
	Value json.RawMessage `json:"value"`
}

// FileStore is a Store backed by one file per key in a directory.
// Writes are atomic: readers see either the previous entry or the new one.
type FileStore struct {
	dir    string
	maxAge time.Duration
	now    func() time.Time
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithMaxAge makes entries older than d read as misses. Zero disables expiry.
func WithMaxAge(d time.Duration) FileStoreOption {
	return func(s *FileStore) {
		s.maxAge = d
	}
}

// withClock overrides the store's time source.
func withClock(now func() time.Time) FileStoreOption {
	return func(s *FileStore) {
		s.now = now
	}
}

// DefaultDir returns the standard cache directory.
// Returns: ~/.sirseer/cache
func DefaultDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".sirseer", "cache")
}

// NewFileStore creates a FileStore rooted at dir, creating the directory
// if needed.
func NewFileStore(dir string, opts ...FileStoreOption) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	s := &FileStore{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the directory that holds the entries.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file that holds the entry for key.
// Keys are escaped so that distinct keys never share a file.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+entryExt)
}

// Get implements Store. It returns ErrCorrupted when the entry exists but
// fails validation.
func (s *FileStore) Get(key string) ([]byte, bool, error) {
	path := s.Path(key)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache file %s: %w", path, err)
	}

	var e entry
	if unmarshalErr := json.Unmarshal(data, &e); unmarshalErr != nil {
		return nil, false, fmt.Errorf("%w: invalid JSON in %s", ErrCorrupted, path)
	}

	if e.Version != CurrentVersion {
		return nil, false, fmt.Errorf("%w: entry version (%d) is incompatible with current version (%d)",
			ErrCorrupted, e.Version, CurrentVersion)
	}

	if e.Key != key {
		return nil, false, fmt.Errorf("%w: entry was written for key %q", ErrCorrupted, e.Key)
	}

	if calculateChecksum(e.Value) != e.Checksum {
		return nil, false, fmt.Errorf("%w: checksum mismatch in %s", ErrCorrupted, path)
	}

	if s.maxAge > 0 && s.now().Sub(e.CreatedAt) > s.maxAge {
		return nil, false, nil
	}

	return e.Value, true, nil
}

// Put implements Store. value must be a valid JSON document.
// It uses a write-to-temp-and-rename pattern to ensure atomicity.
func (s *FileStore) Put(key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("cache value for %q is not valid JSON", key)
	}

	e := entry{
		Version:   CurrentVersion,
		Checksum:  calculateChecksum(value),
		Key:       key,
		CreatedAt: s.now().UTC(),
		Value:     json.RawMessage(value),
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	path := s.Path(key)

	// Temp files are unique per write so concurrent Puts of one key
	// never interleave; the last rename wins.
	file, err := os.CreateTemp(s.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary cache file: %w", err)
	}
	tempFile := file.Name()

	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to write temporary cache file: %w", err)
	}

	// Sync to ensure data is flushed to disk
	if err := file.Sync(); err != nil {
		_ = file.Close()
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempFile, path); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Delete implements Store.
func (s *FileStore) Delete(key string) error {
	err := os.Remove(s.Path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}
	return nil
}

// Clear removes every entry in the store directory and returns how many
// were removed. Other files in the directory are left alone.
func (s *FileStore) Clear() (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*"+entryExt))
	if err != nil {
		return 0, fmt.Errorf("failed to list cache entries: %w", err)
	}
	removed := 0
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, fmt.Errorf("failed to delete cache file: %w", err)
		}
		removed++
	}
	return removed, nil
}

// calculateChecksum computes the SHA256 hash of a cached value.
func calculateChecksum(value []byte) string {
	hash := sha256.Sum256(value)
	return hex.EncodeToString(hash[:])
}
