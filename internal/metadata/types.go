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

// Package metadata types define the structures used for tracking and
// persisting information about fetch operations.
package metadata

import (
	"time"
)

// FetchMetadata represents the complete metadata record for a single fetch
// operation. It captures what was requested, what came back per resource,
// and how much API traffic it took.
type FetchMetadata struct {
	ReportVersion string       `json:"report_version"`
	MethodVersion string       `json:"method_version"`
	FetchID       string       `json:"fetch_id"`
	Parameters    FetchParams  `json:"parameters"`
	Results       FetchResults `json:"results"`
	PreviousFetch *FetchRef    `json:"previous_fetch,omitempty"`
}

// FetchParams captures the input parameters used for a fetch operation.
type FetchParams struct {
	Organization string    `json:"organization"`
	Repository   string    `json:"repository"`
	Since        time.Time `json:"since"`
	Until        time.Time `json:"until"`
	Resources    []string  `json:"resources"`
	ChunkSize    int       `json:"chunk_size"`
	CacheEnabled bool      `json:"cache_enabled"`
}

// FetchResults contains statistics about a completed fetch operation.
type FetchResults struct {
	Resources    map[string]ResourceResults `json:"resources"`
	Duration     string                     `json:"fetch_duration"`
	APICallCount int                        `json:"api_calls_made"`
	StartedAt    time.Time                  `json:"started_at"`
	CompletedAt  time.Time                  `json:"completed_at"`
}

// ResourceResults holds statistics for one resource type.
// Fetched counts the full history; the remaining record statistics
// describe only the records relevant to the window.
type ResourceResults struct {
	Fetched  int  `json:"fetched"`
	Relevant int  `json:"relevant"`
	Pages    int  `json:"pages"`
	CacheHit bool `json:"cache_hit"`

	FirstNumber   int       `json:"first_number,omitempty"`
	LastNumber    int       `json:"last_number,omitempty"`
	OldestCreated time.Time `json:"oldest_created,omitempty"`
	NewestUpdated time.Time `json:"newest_updated,omitempty"`
}

// FetchRef provides a lightweight reference to a previous fetch operation.
type FetchRef struct {
	FetchID     string    `json:"fetch_id"`
	CompletedAt time.Time `json:"completed_at"`
}
