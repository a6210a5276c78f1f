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
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrCorrupted is returned by Store.Get when an entry exists but cannot be
// trusted (bad checksum, unreadable envelope, incompatible version).
var ErrCorrupted = errors.New("cache entry corrupted")

// Store is a persistent key-value store of JSON documents.
type Store interface {
	// Get returns the value stored under key. ok is false on a miss.
	Get(key string) (value []byte, ok bool, err error)

	// Put stores value under key, replacing any previous value.
	Put(key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// Cached returns the value stored under key, or runs produce, stores its
// result and returns it. If produce fails nothing is stored and its error
// is returned unchanged. Entries that are corrupted or no longer decode
// into T are recomputed.
func Cached[T any](store Store, key string, produce func() (T, error)) (T, error) {
	var zero T

	data, ok, err := store.Get(key)
	switch {
	case err != nil && !errors.Is(err, ErrCorrupted):
		return zero, fmt.Errorf("failed to read cache entry %q: %w", key, err)
	case err == nil && ok:
		var value T
		if jsonErr := json.Unmarshal(data, &value); jsonErr == nil {
			return value, nil
		}
	}

	value, err := produce()
	if err != nil {
		return zero, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return zero, fmt.Errorf("failed to encode cache entry %q: %w", key, err)
	}
	if err := store.Put(key, encoded); err != nil {
		return zero, fmt.Errorf("failed to write cache entry %q: %w", key, err)
	}

	return value, nil
}

// Invalidate drops the entry for key so the next Cached call recomputes it.
func Invalidate(store Store, key string) error {
	if err := store.Delete(key); err != nil {
		return fmt.Errorf("failed to invalidate cache entry %q: %w", key, err)
	}
	return nil
}

// FetchKey builds the cache key for the full history of one resource of a
// repository, e.g. "golang/go/fetch-issues". namespace, when set, isolates
// entries for different configurations of the same repository.
// Keys are stable across runs and distinct per resource.
func FetchKey(repository, resource, namespace string) string {
	parts := []string{strings.Trim(repository, "/")}
	if namespace != "" {
		parts = append(parts, namespace)
	}
	parts = append(parts, "fetch-"+resource)
	return strings.Join(parts, "/")
}

// MemoryStore is a Store that lives for the duration of the process.
// It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
	puts    int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

// Get implements Store.
func (m *MemoryStore) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Put implements Store.
func (m *MemoryStore) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = append([]byte(nil), value...)
	m.puts++
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Len returns the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Puts returns how many writes the store has accepted.
func (m *MemoryStore) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}
