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

package paginate

import (
	"context"
	"errors"
	"fmt"
	"time"

	reporterrors "github.com/sirseerhq/sirseer-report/internal/errors"
	"github.com/sirseerhq/sirseer-report/internal/github"
)

// State is the position of a Paginator in its lifecycle.
type State int

const (
	// NotStarted is the state before any page has been requested.
	NotStarted State = iota

	// Paging means at least one page was fetched and the sentinel has not
	// been reached yet.
	Paging

	// Done means the collection was fully read. FetchAll returns the
	// accumulated records without further queries.
	Done
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Paging:
		return "paging"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	// minChunkSize is the smallest page size tried after complexity errors.
	minChunkSize = 5

	// maxComplexityRetries bounds the requests made for one page, the
	// first included.
	maxComplexityRetries = 4
)

// ReachedSentinel reports whether pagination has caught up with the snapshot.
// Cursors are opaque and compared by exact equality.
func ReachedSentinel(cursor, sentinel string) bool {
	return sentinel != "" && cursor == sentinel
}

// PageEvent describes one fetched page.
type PageEvent struct {
	Owner    string
	Repo     string
	Resource github.ResourceType

	// Page is the 1-based page number.
	Page int

	// Records is the number of records kept from this page.
	Records int

	// Total is the number of records accumulated so far.
	Total int

	// Duration is how long the page query took.
	Duration time.Duration

	// Final is true for the page that completed the fetch.
	Final bool
}

// Observer receives progress notifications. Implementations must be safe
// for concurrent use when shared between paginators.
type Observer interface {
	PageFetched(PageEvent)
}

type nopObserver struct{}

func (nopObserver) PageFetched(PageEvent) {}

// Options configures a Paginator.
type Options struct {
	Owner    string
	Repo     string
	Resource github.ResourceType

	// ChunkSize is the page size. Zero means github.DefaultChunkSize.
	ChunkSize int

	// Observer is notified after each page. Optional.
	Observer Observer
}

// Paginator fetches the full ordered history of one connection.
// A Paginator is single-use and not safe for concurrent use.
type Paginator struct {
	client   github.Client
	owner    string
	repo     string
	resource github.ResourceType
	chunk    int
	observer Observer

	state    State
	resolved bool
	sentinel string
	cursor   string
	pages    int
	records  []github.Record
}

// New creates a Paginator in the NotStarted state.
func New(client github.Client, opts Options) *Paginator {
	chunk := opts.ChunkSize
	if chunk <= 0 || chunk > github.MaxPageSize {
		chunk = github.DefaultChunkSize
	}
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	return &Paginator{
		client:   client,
		owner:    opts.Owner,
		repo:     opts.Repo,
		resource: opts.Resource,
		chunk:    chunk,
		observer: observer,
	}
}

// State returns the current lifecycle state.
func (p *Paginator) State() State {
	return p.state
}

// Pages returns the number of page queries that returned data.
func (p *Paginator) Pages() int {
	return p.pages
}

// ChunkSize returns the page size currently in use. It shrinks after
// query-complexity errors.
func (p *Paginator) ChunkSize() int {
	return p.chunk
}

// ResolveLastCursor snapshots the cursor of the connection's final edge.
// The query runs once per Paginator; later calls return the captured value.
// ok is false when the connection is empty.
func (p *Paginator) ResolveLastCursor(ctx context.Context) (cursor string, ok bool, err error) {
	if p.resolved {
		return p.sentinel, p.sentinel != "", nil
	}

	page, err := p.client.FetchLast(ctx, p.owner, p.repo, p.resource, 1)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve last %s cursor: %w", p.resource, err)
	}

	p.sentinel = page.LastCursor()
	p.resolved = true
	return p.sentinel, p.sentinel != "", nil
}

// FetchAll returns every record up to and including the sentinel, in
// creation order. An empty connection returns an empty slice without
// issuing page queries. On error no records are returned.
func (p *Paginator) FetchAll(ctx context.Context) ([]github.Record, error) {
	if p.state == Done {
		return p.records, nil
	}

	sentinel, ok, err := p.ResolveLastCursor(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		p.state = Done
		p.records = []github.Record{}
		return p.records, nil
	}

	for p.state != Done {
		start := time.Now()
		page, err := p.fetchPage(ctx)
		if err != nil {
			return nil, err
		}
		p.state = Paging

		kept, final := p.consume(page, sentinel)
		if final {
			p.state = Done
		}

		if len(page.Edges) > 0 {
			p.pages++
		}
		p.observer.PageFetched(PageEvent{
			Owner:    p.owner,
			Repo:     p.repo,
			Resource: p.resource,
			Page:     p.pages,
			Records:  kept,
			Total:    len(p.records),
			Duration: time.Since(start),
			Final:    final,
		})
	}

	if p.records == nil {
		p.records = []github.Record{}
	}
	return p.records, nil
}

// consume appends the page's edges up to the sentinel and advances the
// cursor. It reports how many records were kept and whether the page ends
// the fetch. Edges past the sentinel were created after the snapshot and
// are dropped.
func (p *Paginator) consume(page *github.Page, sentinel string) (kept int, final bool) {
	if len(page.Edges) == 0 {
		return 0, true
	}

	for _, edge := range page.Edges {
		p.records = append(p.records, edge.Record)
		p.cursor = edge.Cursor
		kept++
		if ReachedSentinel(edge.Cursor, sentinel) {
			return kept, true
		}
	}
	return kept, false
}

// fetchPage requests the next page, halving the page size when the API
// rejects the query as too complex.
func (p *Paginator) fetchPage(ctx context.Context) (*github.Page, error) {
	for attempt := 0; ; attempt++ {
		page, err := p.client.FetchPage(ctx, p.owner, p.repo, p.resource, github.PageOptions{
			First: p.chunk,
			After: p.cursor,
		})
		if err == nil {
			return page, nil
		}

		if errors.Is(err, reporterrors.ErrQueryComplexity) && p.chunk > minChunkSize && attempt+1 < maxComplexityRetries {
			p.chunk = max(p.chunk/2, minChunkSize)
			continue
		}

		return nil, fmt.Errorf("failed to fetch %s page after cursor %q: %w", p.resource, p.cursor, err)
	}
}
