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

// Package metadata provides functionality for tracking and persisting metadata
// about fetch operations. It records statistics about each fetch including
// the number of records fetched and kept per resource, pages and API calls
// made, and a link to the previous fetch of the same repository.
//
// Metadata is saved as JSON files in the cache directory, allowing external
// tools to analyze fetch history and performance.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sirseerhq/sirseer-report/internal/github"
	"github.com/sirseerhq/sirseer-report/internal/paginate"
)

const (
	// MethodVersion represents the current fetch strategy version
	MethodVersion = "graphql-sentinel-cursor-v1"
)

// Tracker collects statistics during a fetch operation and generates metadata.
// It observes pagination progress, counts API calls through Client, and takes
// per-resource results via RecordResult. It is safe for concurrent use, so a
// single Tracker can serve fetchers running in parallel.
type Tracker struct {
	mu           sync.Mutex
	fetchID      string
	startTime    time.Time
	apiCallCount int
	resources    map[github.ResourceType]*ResourceResults
}

// New creates a new metadata tracker and initializes it with the current time.
// Call this at the beginning of a fetch operation to start tracking.
func New() *Tracker {
	return &Tracker{
		fetchID:   uuid.NewString(),
		startTime: time.Now(),
		resources: make(map[github.ResourceType]*ResourceResults),
	}
}

// FetchID returns the unique identifier of this fetch.
func (t *Tracker) FetchID() string {
	return t.fetchID
}

// IncrementAPICall records that an API call was made.
func (t *Tracker) IncrementAPICall() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.apiCallCount++
}

// APICalls returns the number of API calls recorded so far.
func (t *Tracker) APICalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.apiCallCount
}

// PageFetched implements paginate.Observer.
func (t *Tracker) PageFetched(e paginate.PageEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.resource(e.Resource)
	r.Pages = max(r.Pages, e.Page)
}

// RecordResult stores the outcome for one resource. fetched is the size of
// the full history, relevant the records kept for the window.
func (t *Tracker) RecordResult(resource github.ResourceType, fetched int, cacheHit bool, relevant []github.Record) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r := t.resource(resource)
	r.Fetched = fetched
	r.CacheHit = cacheHit
	r.Relevant = 0
	for i := range relevant {
		updateStats(r, &relevant[i])
	}
}

// Result returns a copy of the statistics recorded for resource.
func (t *Tracker) Result(resource github.ResourceType) ResourceResults {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r, ok := t.resources[resource]; ok {
		return *r
	}
	return ResourceResults{}
}

func (t *Tracker) resource(resource github.ResourceType) *ResourceResults {
	r, ok := t.resources[resource]
	if !ok {
		r = &ResourceResults{}
		t.resources[resource] = r
	}
	return r
}

// updateStats adjusts the number and date ranges with data from one record.
func updateStats(r *ResourceResults, rec *github.Record) {
	r.Relevant++

	if r.FirstNumber == 0 || rec.Number < r.FirstNumber {
		r.FirstNumber = rec.Number
	}
	if rec.Number > r.LastNumber {
		r.LastNumber = rec.Number
	}

	if r.OldestCreated.IsZero() || rec.CreatedAt.Before(r.OldestCreated) {
		r.OldestCreated = rec.CreatedAt
	}
	if rec.UpdatedAt.After(r.NewestUpdated) {
		r.NewestUpdated = rec.UpdatedAt
	}
}

// GenerateMetadata creates a FetchMetadata instance capturing the complete
// fetch operation statistics. Call this at the end of a successful fetch.
func (t *Tracker) GenerateMetadata(reportVersion string, params FetchParams, previousFetch *FetchRef) *FetchMetadata {
	t.mu.Lock()
	defer t.mu.Unlock()

	completedAt := time.Now()
	results := make(map[string]ResourceResults, len(t.resources))
	for resource, r := range t.resources {
		results[resource.CacheName()] = *r
	}

	return &FetchMetadata{
		ReportVersion: reportVersion,
		MethodVersion: MethodVersion,
		FetchID:       t.fetchID,
		Parameters:    params,
		Results: FetchResults{
			Resources:    results,
			Duration:     completedAt.Sub(t.startTime).String(),
			APICallCount: t.apiCallCount,
			StartedAt:    t.startTime,
			CompletedAt:  completedAt,
		},
		PreviousFetch: previousFetch,
	}
}

// Client wraps inner so that every query it serves is counted as an API call.
func (t *Tracker) Client(inner github.Client) github.Client {
	return &countingClient{inner: inner, tracker: t}
}

type countingClient struct {
	inner   github.Client
	tracker *Tracker
}

func (c *countingClient) FetchPage(ctx context.Context, owner, repo string, resource github.ResourceType, opts github.PageOptions) (*github.Page, error) {
	c.tracker.IncrementAPICall()
	return c.inner.FetchPage(ctx, owner, repo, resource, opts)
}

func (c *countingClient) FetchLast(ctx context.Context, owner, repo string, resource github.ResourceType, n int) (*github.Page, error) {
	c.tracker.IncrementAPICall()
	return c.inner.FetchLast(ctx, owner, repo, resource, n)
}

// SaveMetadata persists a FetchMetadata record to a JSON file in the specified
// directory. The file is written atomically using a temporary file and rename
// to prevent corruption. The filename includes a timestamp for easy sorting.
//
// The metadata file will be named: fetch-metadata-{timestamp}-{fetch id}.json
func SaveMetadata(metadata *FetchMetadata, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	filename := fmt.Sprintf("fetch-metadata-%d-%s.json", metadata.Results.StartedAt.Unix(), shortID(metadata.FetchID))
	path := filepath.Join(dir, filename)

	// Write to temporary file first for atomicity
	tmpFile := path + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return fmt.Errorf("failed to create metadata file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(metadata); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to close metadata file: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to save metadata file: %w", err)
	}

	return nil
}

// LoadLatestMetadata loads the most recently completed metadata record for
// repo ("org/repo") from dir. Files for other repositories and files that
// fail to parse are skipped.
//
// Returns nil if no metadata exists for the repository.
func LoadLatestMetadata(dir, repo string) (*FetchMetadata, error) {
	pattern := filepath.Join(dir, "fetch-metadata-*.json")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata files: %w", err)
	}

	var latest *FetchMetadata
	for _, file := range files {
		m, readErr := readMetadata(file)
		if readErr != nil {
			continue
		}
		if m.Parameters.Organization+"/"+m.Parameters.Repository != repo {
			continue
		}
		if latest == nil || m.Results.CompletedAt.After(latest.Results.CompletedAt) {
			latest = m
		}
	}

	return latest, nil
}

func readMetadata(path string) (*FetchMetadata, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata file: %w", err)
	}
	defer file.Close()

	var metadata FetchMetadata
	if err := json.NewDecoder(file).Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &metadata, nil
}

// Ref returns a reference to m suitable for FetchMetadata.PreviousFetch.
func (m *FetchMetadata) Ref() *FetchRef {
	if m == nil {
		return nil
	}
	return &FetchRef{FetchID: m.FetchID, CompletedAt: m.Results.CompletedAt}
}

// WriteMetadataToWriter serializes metadata to JSON and writes it to the
// provided io.Writer. The output is formatted with indentation for readability.
func WriteMetadataToWriter(metadata *FetchMetadata, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
