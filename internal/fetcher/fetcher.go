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

package fetcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sirseerhq/sirseer-report/internal/cache"
	"github.com/sirseerhq/sirseer-report/internal/github"
	"github.com/sirseerhq/sirseer-report/internal/paginate"
	"github.com/sirseerhq/sirseer-report/internal/relevance"
	"github.com/sirseerhq/sirseer-report/internal/window"
)

// Options configures a Fetcher.
type Options struct {
	Owner    string
	Repo     string
	Resource github.ResourceType
	Window   window.Window

	// ChunkSize is the page size. Zero means github.DefaultChunkSize.
	ChunkSize int

	// CacheScope isolates cache entries, e.g. per configuration profile.
	CacheScope string

	// Observer is notified after each fetched page. Optional.
	Observer Observer

	// Logger receives debug and info events. Optional.
	Logger *zerolog.Logger
}

// Stats describes how the last successful Data call was served.
type Stats struct {
	// Fetched is the size of the full history.
	Fetched int

	// Relevant is the number of records kept for the window.
	Relevant int

	// CacheHit is true when the history came from the cache.
	CacheHit bool

	// Empty is true when the connection had no records at all.
	Empty bool
}

// Fetcher computes the relevant records for one resource once per instance.
// It is safe for concurrent use; concurrent Data calls share one fetch.
type Fetcher struct {
	client github.Client
	store  cache.Store
	opts   Options
	log    zerolog.Logger

	mu    sync.Mutex
	done  bool
	data  []github.Record
	stats Stats
}

// New validates opts and creates a Fetcher. store may be a cache.MemoryStore
// when nothing should persist across runs.
func New(client github.Client, store cache.Store, opts Options) (*Fetcher, error) {
	if client == nil {
		return nil, fmt.Errorf("fetcher requires a client")
	}
	if store == nil {
		return nil, fmt.Errorf("fetcher requires a cache store")
	}
	if opts.Owner == "" || opts.Repo == "" {
		return nil, fmt.Errorf("fetcher requires owner and repo, got %q/%q", opts.Owner, opts.Repo)
	}
	if !opts.Resource.Valid() {
		return nil, fmt.Errorf("unsupported resource type %q", opts.Resource)
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	log = log.With().
		Str("component", "fetcher").
		Str("repository", opts.Owner+"/"+opts.Repo).
		Str("resource", opts.Resource.CacheName()).
		Logger()

	return &Fetcher{client: client, store: store, opts: opts, log: log}, nil
}

// Resource returns the resource type this fetcher serves.
func (f *Fetcher) Resource() github.ResourceType {
	return f.opts.Resource
}

// Key returns the cache key holding the full history.
func (f *Fetcher) Key() string {
	return cache.FetchKey(f.opts.Owner+"/"+f.opts.Repo, f.opts.Resource.CacheName(), f.opts.CacheScope)
}

// Data returns the records relevant to the window, in creation order.
// The first successful call does the work; later calls return the same
// slice without any queries. Errors are not remembered, so a failed call
// may be retried. Callers must not modify the returned slice.
func (f *Fetcher) Data(ctx context.Context) ([]github.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.done {
		return f.data, nil
	}

	data, stats, err := f.fetch(ctx)
	if err != nil {
		return nil, err
	}

	f.data, f.stats, f.done = data, stats, true
	return f.data, nil
}

// Stats returns statistics of the completed fetch. It is the zero value
// until Data succeeds.
func (f *Fetcher) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

func (f *Fetcher) fetch(ctx context.Context) ([]github.Record, Stats, error) {
	p := paginate.New(f.client, paginate.Options{
		Owner:     f.opts.Owner,
		Repo:      f.opts.Repo,
		Resource:  f.opts.Resource,
		ChunkSize: f.opts.ChunkSize,
		Observer:  f.opts.Observer,
	})

	sentinel, ok, err := p.ResolveLastCursor(ctx)
	if err != nil {
		return nil, Stats{}, err
	}
	if !ok {
		f.log.Info().Msg("no records in repository")
		return []github.Record{}, Stats{Empty: true}, nil
	}
	f.log.Debug().Str("sentinel", sentinel).Msg("resolved last cursor")

	key := f.Key()
	hit := true
	history, err := cache.Cached(f.store, key, func() ([]github.Record, error) {
		hit = false
		f.log.Debug().Str("key", key).Msg("cache miss, paging full history")
		return p.FetchAll(ctx)
	})
	if err != nil {
		return nil, Stats{}, err
	}

	relevant := relevance.Filter(history, f.opts.Window)
	stats := Stats{Fetched: len(history), Relevant: len(relevant), CacheHit: hit}

	f.log.Info().
		Str("key", key).
		Bool("cache_hit", hit).
		Int("fetched", stats.Fetched).
		Int("relevant", stats.Relevant).
		Int("pages", p.Pages()).
		Str("window", f.opts.Window.String()).
		Msg("fetch complete")

	return relevant, stats, nil
}

// FetchAll runs Data on every fetcher concurrently and returns the results
// in argument order. The first error cancels the remaining fetches.
func FetchAll(ctx context.Context, fetchers ...*Fetcher) ([][]github.Record, error) {
	results := make([][]github.Record, len(fetchers))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range fetchers {
		g.Go(func() error {
			data, err := f.Data(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", f.opts.Resource.CacheName(), err)
			}
			results[i] = data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
