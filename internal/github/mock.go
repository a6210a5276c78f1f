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

package github

import (
	"context"
	"fmt"
	"sync"

	reporterrors "github.com/sirseerhq/sirseer-report/internal/errors"
)

// MockClient is an in-memory Client that behaves like a live repository:
// records are kept in creation order, cursors are stable per record, and
// records appended between calls become visible to later queries. It is
// safe for concurrent use.
type MockClient struct {
	mu sync.Mutex

	records map[ResourceType][]Record

	// Error to return from every call
	Error error

	// FailPageAt makes the Nth FetchPage call (1-based) return PageError.
	FailPageAt int
	PageError  error

	// BeforePage runs before each FetchPage call is served, with the
	// 1-based call number. Use it to simulate records created mid-fetch.
	BeforePage func(call int, m *MockClient)

	// Behavior flags
	ShouldFailAuth     bool
	ShouldFailNetwork  bool
	ShouldFailNotFound bool

	// Track calls for verification
	PageCalls int
	LastCalls int
	LastOpts  PageOptions
}

// NewMockClient creates an empty mock repository.
func NewMockClient() *MockClient {
	return &MockClient{records: make(map[ResourceType][]Record)}
}

// MockClientOption configures a MockClient.
type MockClientOption func(*MockClient)

// WithRecords seeds the connection for resource.
func WithRecords(resource ResourceType, records []Record) MockClientOption {
	return func(m *MockClient) {
		m.records[resource] = append([]Record(nil), records...)
	}
}

// WithError makes every call fail with err.
func WithError(err error) MockClientOption {
	return func(m *MockClient) {
		m.Error = err
	}
}

// WithAuthFailure simulates a rejected token.
func WithAuthFailure() MockClientOption {
	return func(m *MockClient) {
		m.ShouldFailAuth = true
	}
}

// NewMockClientWithOptions creates a mock client and applies opts.
func NewMockClientWithOptions(opts ...MockClientOption) *MockClient {
	mock := NewMockClient()
	for _, opt := range opts {
		opt(mock)
	}
	return mock
}

// Append adds records to the end of the resource's connection, as if they
// had just been created on the server.
func (m *MockClient) Append(resource ResourceType, records ...Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[resource] = append(m.records[resource], records...)
}

// SetRecords replaces the resource's connection, e.g. to simulate deletions.
func (m *MockClient) SetRecords(resource ResourceType, records []Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[resource] = append([]Record(nil), records...)
}

// Calls returns the number of page and last-mode queries served.
func (m *MockClient) Calls() (pages, last int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PageCalls, m.LastCalls
}

// MockCursor is the cursor the mock assigns to a record.
func MockCursor(r Record) string {
	return fmt.Sprintf("cursor:%d", r.Number)
}

// FetchPage implements Client.
func (m *MockClient) FetchPage(ctx context.Context, owner, repo string, resource ResourceType, opts PageOptions) (*Page, error) {
	m.mu.Lock()
	m.PageCalls++
	call := m.PageCalls
	m.LastOpts = opts
	hook := m.BeforePage
	m.mu.Unlock()

	if hook != nil {
		hook(call, m)
	}

	if err := m.fail(ctx, owner, repo); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailPageAt > 0 && call == m.FailPageAt {
		return nil, m.PageError
	}

	records := m.records[resource]
	start := 0
	if opts.After != "" {
		start = -1
		for i, r := range records {
			if MockCursor(r) == opts.After {
				start = i + 1
				break
			}
		}
		if start < 0 {
			return nil, fmt.Errorf("unknown cursor %q: %w", opts.After, reporterrors.ErrMalformedResponse)
		}
	}

	end := min(start+clampPageSize(opts.First), len(records))
	return toPage(records[start:end]), nil
}

// FetchLast implements Client.
func (m *MockClient) FetchLast(ctx context.Context, owner, repo string, resource ResourceType, n int) (*Page, error) {
	m.mu.Lock()
	m.LastCalls++
	m.mu.Unlock()

	if err := m.fail(ctx, owner, repo); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	records := m.records[resource]
	start := max(len(records)-clampPageSize(n), 0)
	return toPage(records[start:]), nil
}

func (m *MockClient) fail(ctx context.Context, owner, repo string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ShouldFailAuth {
		return fmt.Errorf("authentication failed: %w", reporterrors.ErrInvalidToken)
	}
	if m.ShouldFailNetwork {
		return fmt.Errorf("network timeout: %w", reporterrors.ErrNetworkFailure)
	}
	if m.ShouldFailNotFound || (owner == "nonexistent" && repo == "repo") {
		return fmt.Errorf("repository not found: %w", reporterrors.ErrRepoNotFound)
	}
	return m.Error
}

func toPage(records []Record) *Page {
	page := &Page{Edges: make([]Edge, 0, len(records))}
	for _, r := range records {
		page.Edges = append(page.Edges, Edge{Cursor: MockCursor(r), Record: r})
	}
	return page
}
