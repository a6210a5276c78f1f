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

// Package github provides types and interfaces for interacting with the GitHub API.
package github

import (
	"fmt"
	"strings"
	"time"
)

// ResourceType selects which repository connection a query pages over.
// The value is the GraphQL connection name.
type ResourceType string

const (
	// Issues pages over repository.issues.
	Issues ResourceType = "issues"

	// PullRequests pages over repository.pullRequests.
	PullRequests ResourceType = "pullRequests"
)

// ParseResourceType accepts the spellings users type on the command line.
func ParseResourceType(s string) (ResourceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "issues", "issue":
		return Issues, nil
	case "pulls", "pull", "prs", "pr", "pull-requests", "pullrequests":
		return PullRequests, nil
	default:
		return "", fmt.Errorf("unknown resource type %q (want issues or pulls)", s)
	}
}

// Valid reports whether r names a supported connection.
func (r ResourceType) Valid() bool {
	return r == Issues || r == PullRequests
}

// CacheName is the stable name used when building cache keys.
func (r ResourceType) CacheName() string {
	if r == PullRequests {
		return "pull-requests"
	}
	return string(r)
}

// State is the lifecycle state of a record.
type State string

const (
	StateOpen   State = "open"
	StateClosed State = "closed"
)

// normalizeState maps GraphQL issue and pull request states onto State.
// Merged pull requests are closed.
func normalizeState(s string) (State, bool) {
	switch strings.ToUpper(s) {
	case "OPEN":
		return StateOpen, true
	case "CLOSED", "MERGED":
		return StateClosed, true
	default:
		return "", false
	}
}

// Record is one issue or pull request as returned by the API.
// Records are never mutated after they are parsed; Number is their identity.
type Record struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	State     State      `json:"state"`
	URL       string     `json:"url"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	Labels    []string   `json:"labels"`
}

// Edge pairs a record with the pagination cursor that points at it.
type Edge struct {
	Cursor string
	Record Record
}

// Page is one batch of edges in server order.
type Page struct {
	Edges []Edge
}

// LastCursor returns the cursor of the final edge, or "" for an empty page.
func (p *Page) LastCursor() string {
	if p == nil || len(p.Edges) == 0 {
		return ""
	}
	return p.Edges[len(p.Edges)-1].Cursor
}

// PageOptions configures a forward page request.
type PageOptions struct {
	// First is the maximum number of edges to return. Values outside
	// 1..MaxPageSize are clamped.
	First int

	// After is the cursor to resume from. Empty starts at the beginning.
	After string
}

const (
	// DefaultChunkSize is the page size used when none is configured.
	DefaultChunkSize = 100

	// MaxPageSize is GitHub's per-connection limit.
	MaxPageSize = 100
)

func clampPageSize(n int) int {
	if n <= 0 || n > MaxPageSize {
		return MaxPageSize
	}
	return n
}
