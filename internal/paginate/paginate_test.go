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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reporterrors "github.com/sirseerhq/sirseer-report/internal/errors"
	"github.com/sirseerhq/sirseer-report/internal/github"
)

func makeRecords(from, to int) []github.Record {
	base := time.Date(2018, 1, 1, 9, 0, 0, 0, time.UTC)
	records := make([]github.Record, 0, to-from+1)
	for n := from; n <= to; n++ {
		records = append(records, github.Record{
			Number:    n,
			Title:     fmt.Sprintf("Record %d", n),
			State:     github.StateOpen,
			CreatedAt: base.AddDate(0, 0, n),
			UpdatedAt: base.AddDate(0, 0, n),
		})
	}
	return records
}

func numbers(records []github.Record) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.Number
	}
	return out
}

type recordingObserver struct {
	mu     sync.Mutex
	events []PageEvent
}

func (o *recordingObserver) PageFetched(e PageEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func TestReachedSentinel(t *testing.T) {
	tests := []struct {
		name     string
		cursor   string
		sentinel string
		want     bool
	}{
		{"equal", "Y3Vyc29yOjU=", "Y3Vyc29yOjU=", true},
		{"different", "Y3Vyc29yOjQ=", "Y3Vyc29yOjU=", false},
		{"empty sentinel", "", "", false},
		{"empty cursor", "", "Y3Vyc29yOjU=", false},
		{"case sensitive", "abc", "ABC", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReachedSentinel(tt.cursor, tt.sentinel))
		})
	}
}

func TestFetchAllPageCounts(t *testing.T) {
	tests := []struct {
		name      string
		records   int
		chunk     int
		wantPages int
	}{
		{"single partial page", 7, 100, 1},
		{"exact multiple", 300, 100, 3},
		{"remainder", 250, 100, 3},
		{"small pages", 10, 3, 4},
		{"one record", 1, 100, 1},
		{"page size one", 5, 1, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := makeRecords(1, tt.records)
			client := github.NewMockClientWithOptions(github.WithRecords(github.Issues, records))

			p := New(client, Options{Owner: "octo", Repo: "widgets", Resource: github.Issues, ChunkSize: tt.chunk})
			got, err := p.FetchAll(context.Background())
			require.NoError(t, err)

			assert.Equal(t, numbers(records), numbers(got))
			pages, last := client.Calls()
			assert.Equal(t, tt.wantPages, pages)
			assert.Equal(t, 1, last)
			assert.Equal(t, tt.wantPages, p.Pages())
			assert.Equal(t, Done, p.State())
		})
	}
}

func TestFetchAllEmptyCollection(t *testing.T) {
	client := github.NewMockClient()
	p := New(client, Options{Owner: "octo", Repo: "empty", Resource: github.PullRequests})

	cursor, ok, err := p.ResolveLastCursor(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, cursor)

	got, err := p.FetchAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	pages, last := client.Calls()
	assert.Equal(t, 0, pages, "no page queries for an empty collection")
	assert.Equal(t, 1, last)
	assert.Equal(t, Done, p.State())
}

func TestResolveLastCursorRunsOnce(t *testing.T) {
	records := makeRecords(1, 5)
	client := github.NewMockClientWithOptions(github.WithRecords(github.Issues, records))
	p := New(client, Options{Owner: "octo", Repo: "widgets", Resource: github.Issues})

	first, ok, err := p.ResolveLastCursor(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, github.MockCursor(records[4]), first)

	client.Append(github.Issues, makeRecords(6, 6)...)

	second, ok, err := p.ResolveLastCursor(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first, second)

	_, last := client.Calls()
	assert.Equal(t, 1, last)
}

func TestFetchAllExcludesRecordsCreatedMidFetch(t *testing.T) {
	tests := []struct {
		name     string
		initial  int
		chunk    int
		appendAt int
		appended int
	}{
		// New records land on a later page than the sentinel.
		{"after first page", 10, 5, 2, 7},
		// The sentinel's page has room for the new records.
		{"same page as sentinel", 8, 5, 2, 1},
		// Records arrive before any page is served.
		{"before first page", 4, 100, 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initial := makeRecords(1, tt.initial)
			client := github.NewMockClientWithOptions(github.WithRecords(github.Issues, initial))

			var once sync.Once
			client.BeforePage = func(call int, m *github.MockClient) {
				if call == tt.appendAt {
					once.Do(func() {
						m.Append(github.Issues, makeRecords(tt.initial+1, tt.initial+tt.appended)...)
					})
				}
			}

			p := New(client, Options{Owner: "octo", Repo: "widgets", Resource: github.Issues, ChunkSize: tt.chunk})
			got, err := p.FetchAll(context.Background())
			require.NoError(t, err)

			assert.Equal(t, numbers(initial), numbers(got))
			assert.Equal(t, Done, p.State())
		})
	}
}

func TestFetchAllSentinelPageIncluded(t *testing.T) {
	records := makeRecords(1, 6)
	client := github.NewMockClientWithOptions(github.WithRecords(github.Issues, records))

	p := New(client, Options{Owner: "octo", Repo: "widgets", Resource: github.Issues, ChunkSize: 4})
	got, err := p.FetchAll(context.Background())
	require.NoError(t, err)

	// Second page holds records 5 and 6; the final edge is the sentinel.
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, numbers(got))
}

func TestFetchAllStopsOnEmptyPage(t *testing.T) {
	records := makeRecords(1, 3)
	client := github.NewMockClientWithOptions(github.WithRecords(github.Issues, records))
	p := New(client, Options{Owner: "octo", Repo: "widgets", Resource: github.Issues, ChunkSize: 2})

	_, ok, err := p.ResolveLastCursor(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	// The sentinel record disappears from the server, so the cursor never
	// matches. The second page after record 2 is empty.
	client.BeforePage = func(call int, m *github.MockClient) {
		if call == 1 {
			m.SetRecords(github.Issues, records[:2])
		}
	}

	got, err := p.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, numbers(got))
	assert.Equal(t, Done, p.State())
}

func TestFetchAllPropagatesErrors(t *testing.T) {
	t.Run("last cursor query", func(t *testing.T) {
		client := github.NewMockClientWithOptions(github.WithAuthFailure())
		p := New(client, Options{Owner: "octo", Repo: "widgets", Resource: github.Issues})

		got, err := p.FetchAll(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, reporterrors.ErrInvalidToken))
		assert.Nil(t, got)
		assert.Equal(t, NotStarted, p.State())
	})

	t.Run("mid pagination", func(t *testing.T) {
		records := makeRecords(1, 10)
		client := github.NewMockClientWithOptions(github.WithRecords(github.Issues, records))
		client.FailPageAt = 2
		client.PageError = fmt.Errorf("connection reset: %w", reporterrors.ErrNetworkFailure)

		p := New(client, Options{Owner: "octo", Repo: "widgets", Resource: github.Issues, ChunkSize: 3})
		got, err := p.FetchAll(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, reporterrors.ErrNetworkFailure))
		assert.Nil(t, got, "no partial results")
		assert.Equal(t, Paging, p.State())
	})

	t.Run("context canceled", func(t *testing.T) {
		client := github.NewMockClientWithOptions(github.WithRecords(github.Issues, makeRecords(1, 3)))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		p := New(client, Options{Owner: "octo", Repo: "widgets", Resource: github.Issues})
		_, err := p.FetchAll(ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

// complexityClient rejects pages larger than limit as too complex.
type complexityClient struct {
	*github.MockClient
	limit int
	sizes []int
}

func (c *complexityClient) FetchPage(ctx context.Context, owner, repo string, resource github.ResourceType, opts github.PageOptions) (*github.Page, error) {
	c.sizes = append(c.sizes, opts.First)
	if opts.First > c.limit {
		return nil, fmt.Errorf("query too complex: %w", reporterrors.ErrQueryComplexity)
	}
	return c.MockClient.FetchPage(ctx, owner, repo, resource, opts)
}

func TestFetchAllShrinksPageOnComplexity(t *testing.T) {
	records := makeRecords(1, 60)
	client := &complexityClient{
		MockClient: github.NewMockClientWithOptions(github.WithRecords(github.PullRequests, records)),
		limit:      30,
	}

	p := New(client, Options{Owner: "octo", Repo: "widgets", Resource: github.PullRequests, ChunkSize: 100})
	got, err := p.FetchAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, numbers(records), numbers(got))
	assert.Equal(t, 25, p.ChunkSize())
	assert.Equal(t, []int{100, 50, 25, 25, 25}, client.sizes)
}

func TestFetchAllGivesUpOnPersistentComplexity(t *testing.T) {
	client := &complexityClient{
		MockClient: github.NewMockClientWithOptions(github.WithRecords(github.Issues, makeRecords(1, 3))),
		limit:      1,
	}

	p := New(client, Options{Owner: "octo", Repo: "widgets", Resource: github.Issues, ChunkSize: 40})
	_, err := p.FetchAll(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, reporterrors.ErrQueryComplexity))
	assert.Equal(t, []int{40, 20, 10, 5}, client.sizes)
	assert.Equal(t, minChunkSize, p.ChunkSize())
}

func TestFetchAllBoundsComplexityAttempts(t *testing.T) {
	client := &complexityClient{
		MockClient: github.NewMockClientWithOptions(github.WithRecords(github.Issues, makeRecords(1, 3))),
		limit:      1,
	}

	p := New(client, Options{Owner: "octo", Repo: "widgets", Resource: github.Issues, ChunkSize: 100})
	_, err := p.FetchAll(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, reporterrors.ErrQueryComplexity))

	// Four requests in total, well above the minimum page size.
	assert.Equal(t, []int{100, 50, 25, 12}, client.sizes)
	assert.Len(t, client.sizes, maxComplexityRetries)
	assert.Equal(t, 12, p.ChunkSize())
}

func TestFetchAllNotifiesObserver(t *testing.T) {
	records := makeRecords(1, 7)
	client := github.NewMockClientWithOptions(github.WithRecords(github.Issues, records))
	observer := &recordingObserver{}

	p := New(client, Options{Owner: "octo", Repo: "widgets", Resource: github.Issues, ChunkSize: 3, Observer: observer})
	_, err := p.FetchAll(context.Background())
	require.NoError(t, err)

	require.Len(t, observer.events, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{observer.events[0].Page, observer.events[1].Page, observer.events[2].Page})
	assert.Equal(t, []int{3, 6, 7}, []int{observer.events[0].Total, observer.events[1].Total, observer.events[2].Total})
	assert.False(t, observer.events[1].Final)
	assert.True(t, observer.events[2].Final)
	assert.Equal(t, github.Issues, observer.events[0].Resource)
}

func TestFetchAllIsIdempotentWhenDone(t *testing.T) {
	records := makeRecords(1, 4)
	client := github.NewMockClientWithOptions(github.WithRecords(github.Issues, records))
	p := New(client, Options{Owner: "octo", Repo: "widgets", Resource: github.Issues})

	first, err := p.FetchAll(context.Background())
	require.NoError(t, err)
	second, err := p.FetchAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	pages, last := client.Calls()
	assert.Equal(t, 1, pages)
	assert.Equal(t, 1, last)
}

func TestNewDefaultsChunkSize(t *testing.T) {
	for _, size := range []int{0, -1, 101} {
		p := New(github.NewMockClient(), Options{ChunkSize: size})
		assert.Equal(t, github.DefaultChunkSize, p.ChunkSize())
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "not_started", NotStarted.String())
	assert.Equal(t, "paging", Paging.String())
	assert.Equal(t, "done", Done.String())
	assert.Equal(t, "state(9)", State(9).String())
}
