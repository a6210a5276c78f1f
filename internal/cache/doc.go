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

// Package cache memoizes expensive fetch results across process runs.
//
// A Store holds opaque JSON documents by key. Cached layers typed
// memoization on top: a stored value is decoded and returned without
// running the producer; otherwise the producer runs and its result is
// stored only if it succeeds, so a failed fetch never leaves a partial
// entry behind.
//
// FileStore persists entries as one file per key using a
// write-to-temp-and-rename pattern, with a SHA-256 checksum and schema
// version in every entry. A corrupted or incompatible entry reads as a
// miss and is recomputed.
//
// Example usage:
//
//	store, err := cache.NewFileStore(cache.DefaultDir())
//	if err != nil {
//	    return err
//	}
//	key := cache.FetchKey("golang/go", "issues", "")
//	records, err := cache.Cached(store, key, func() ([]github.Record, error) {
//	    return paginator.FetchAll(ctx)
//	})
package cache
