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

package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sirseerhq/sirseer-report/internal/github"
	"github.com/sirseerhq/sirseer-report/internal/paginate"
)

func rec(number int, created, updated time.Time) github.Record {
	return github.Record{Number: number, CreatedAt: created, UpdatedAt: updated}
}

func TestTracker_RecordResult(t *testing.T) {
	tests := []struct {
		name      string
		records   []github.Record
		wantStats ResourceResults
	}{
		{
			name: "single record",
			records: []github.Record{
				rec(100, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)),
			},
			wantStats: ResourceResults{
				Fetched:       10,
				Relevant:      1,
				FirstNumber:   100,
				LastNumber:    100,
				OldestCreated: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
				NewestUpdated: time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "records in order",
			records: []github.Record{
				rec(100, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)),
				rec(101, time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC), time.Date(2023, 1, 4, 0, 0, 0, 0, time.UTC)),
				rec(102, time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC), time.Date(2023, 1, 6, 0, 0, 0, 0, time.UTC)),
			},
			wantStats: ResourceResults{
				Fetched:       10,
				Relevant:      3,
				FirstNumber:   100,
				LastNumber:    102,
				OldestCreated: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
				NewestUpdated: time.Date(2023, 1, 6, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "records out of order",
			records: []github.Record{
				rec(200, time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC), time.Date(2023, 1, 6, 0, 0, 0, 0, time.UTC)),
				rec(50, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)),
				rec(150, time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC), time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)),
			},
			wantStats: ResourceResults{
				Fetched:       10,
				Relevant:      3,
				FirstNumber:   50,
				LastNumber:    200,
				OldestCreated: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
				NewestUpdated: time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := New()
			tracker.RecordResult(github.Issues, 10, false, tt.records)
			got := tracker.Result(github.Issues)

			if got.Fetched != tt.wantStats.Fetched {
				t.Errorf("Fetched = %d, want %d", got.Fetched, tt.wantStats.Fetched)
			}
			if got.Relevant != tt.wantStats.Relevant {
				t.Errorf("Relevant = %d, want %d", got.Relevant, tt.wantStats.Relevant)
			}
			if got.FirstNumber != tt.wantStats.FirstNumber {
				t.Errorf("FirstNumber = %d, want %d", got.FirstNumber, tt.wantStats.FirstNumber)
			}
			if got.LastNumber != tt.wantStats.LastNumber {
				t.Errorf("LastNumber = %d, want %d", got.LastNumber, tt.wantStats.LastNumber)
			}
			if !got.OldestCreated.Equal(tt.wantStats.OldestCreated) {
				t.Errorf("OldestCreated = %v, want %v", got.OldestCreated, tt.wantStats.OldestCreated)
			}
			if !got.NewestUpdated.Equal(tt.wantStats.NewestUpdated) {
				t.Errorf("NewestUpdated = %v, want %v", got.NewestUpdated, tt.wantStats.NewestUpdated)
			}
		})
	}
}

func TestTracker_RecordResultReplacesPrevious(t *testing.T) {
	tracker := New()
	created := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	tracker.RecordResult(github.Issues, 5, false, []github.Record{rec(1, created, created), rec(2, created, created)})
	tracker.RecordResult(github.Issues, 5, true, []github.Record{rec(1, created, created)})

	got := tracker.Result(github.Issues)
	if got.Relevant != 1 {
		t.Errorf("Relevant = %d, want 1", got.Relevant)
	}
	if !got.CacheHit {
		t.Error("CacheHit = false, want true")
	}
}

func TestTracker_PageFetched(t *testing.T) {
	tracker := New()
	var observer paginate.Observer = tracker

	for page := 1; page <= 3; page++ {
		observer.PageFetched(paginate.PageEvent{Resource: github.PullRequests, Page: page})
	}
	observer.PageFetched(paginate.PageEvent{Resource: github.Issues, Page: 1})

	if got := tracker.Result(github.PullRequests).Pages; got != 3 {
		t.Errorf("pull request Pages = %d, want 3", got)
	}
	if got := tracker.Result(github.Issues).Pages; got != 1 {
		t.Errorf("issue Pages = %d, want 1", got)
	}
}

func TestTracker_ConcurrentUse(t *testing.T) {
	tracker := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resource := github.Issues
			if i%2 == 0 {
				resource = github.PullRequests
			}
			tracker.PageFetched(paginate.PageEvent{Resource: resource, Page: i})
			tracker.IncrementAPICall()
		}(i)
	}
	wg.Wait()

	if got := tracker.APICalls(); got != 50 {
		t.Errorf("APICalls = %d, want 50", got)
	}
}

func TestTracker_Client(t *testing.T) {
	tracker := New()
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	mock := github.NewMockClientWithOptions(github.WithRecords(github.Issues, []github.Record{
		rec(1, base, base), rec(2, base.Add(time.Hour), base.Add(time.Hour)),
	}))
	client := tracker.Client(mock)

	ctx := context.Background()
	if _, err := client.FetchLast(ctx, "org", "repo", github.Issues, 1); err != nil {
		t.Fatalf("FetchLast failed: %v", err)
	}
	if _, err := client.FetchPage(ctx, "org", "repo", github.Issues, github.PageOptions{First: 1}); err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}
	if _, err := client.FetchPage(ctx, "nonexistent", "repo", github.Issues, github.PageOptions{First: 1}); err == nil {
		t.Fatal("expected error for nonexistent repository")
	}

	// Failed calls still reach the API and count.
	if got := tracker.APICalls(); got != 3 {
		t.Errorf("APICalls = %d, want 3", got)
	}
}

func TestTracker_GenerateMetadata(t *testing.T) {
	tracker := New()
	tracker.apiCallCount = 5
	created := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	tracker.PageFetched(paginate.PageEvent{Resource: github.Issues, Page: 2})
	tracker.RecordResult(github.Issues, 150, false, []github.Record{rec(100, created, created), rec(101, created, created)})
	tracker.RecordResult(github.PullRequests, 0, false, nil)

	params := FetchParams{
		Organization: "kubernetes",
		Repository:   "kubernetes",
		Since:        time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Until:        time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
		Resources:    []string{"issues", "pull-requests"},
		ChunkSize:    100,
	}

	metadata := tracker.GenerateMetadata("v1.2.3", params, nil)

	if metadata.ReportVersion != "v1.2.3" {
		t.Errorf("ReportVersion = %s, want v1.2.3", metadata.ReportVersion)
	}
	if metadata.MethodVersion != MethodVersion {
		t.Errorf("MethodVersion = %s, want %s", metadata.MethodVersion, MethodVersion)
	}
	if _, err := uuid.Parse(metadata.FetchID); err != nil {
		t.Errorf("FetchID = %s, want a UUID: %v", metadata.FetchID, err)
	}
	if metadata.FetchID != tracker.FetchID() {
		t.Errorf("FetchID = %s, want %s", metadata.FetchID, tracker.FetchID())
	}
	if metadata.PreviousFetch != nil {
		t.Error("PreviousFetch should be nil")
	}

	issues, ok := metadata.Results.Resources["issues"]
	if !ok {
		t.Fatal("missing issues results")
	}
	if issues.Fetched != 150 || issues.Relevant != 2 || issues.Pages != 2 {
		t.Errorf("issues = %+v, want fetched 150, relevant 2, pages 2", issues)
	}
	if _, ok := metadata.Results.Resources["pull-requests"]; !ok {
		t.Error("missing pull-requests results")
	}
	if metadata.Results.APICallCount != 5 {
		t.Errorf("APICallCount = %d, want 5", metadata.Results.APICallCount)
	}
}

func TestTracker_GenerateMetadata_PreviousFetch(t *testing.T) {
	tracker := New()

	previous := &FetchMetadata{
		FetchID: "9b2f6a1e-0000-4000-8000-000000000000",
		Results: FetchResults{CompletedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	metadata := tracker.GenerateMetadata("v1.0.0", FetchParams{Organization: "org", Repository: "repo"}, previous.Ref())

	if metadata.PreviousFetch == nil {
		t.Fatal("PreviousFetch should not be nil")
	}
	if metadata.PreviousFetch.FetchID != previous.FetchID {
		t.Errorf("PreviousFetch.FetchID = %s, want %s", metadata.PreviousFetch.FetchID, previous.FetchID)
	}
	if (*FetchMetadata)(nil).Ref() != nil {
		t.Error("Ref of nil metadata should be nil")
	}
}

func sampleMetadata(org, repo, id string, started time.Time) *FetchMetadata {
	return &FetchMetadata{
		ReportVersion: "v1.2.3",
		MethodVersion: MethodVersion,
		FetchID:       id,
		Parameters: FetchParams{
			Organization: org,
			Repository:   repo,
			ChunkSize:    100,
		},
		Results: FetchResults{
			Resources: map[string]ResourceResults{
				"issues": {Fetched: 100, Relevant: 12, Pages: 1},
			},
			Duration:     "5m30s",
			APICallCount: 10,
			StartedAt:    started,
			CompletedAt:  started.Add(5*time.Minute + 30*time.Second),
		},
	}
}

func TestSaveMetadata(t *testing.T) {
	tmpDir := t.TempDir()
	metadata := sampleMetadata("kubernetes", "kubernetes", "1234567890abcdef", time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC))

	if err := SaveMetadata(metadata, tmpDir); err != nil {
		t.Fatalf("SaveMetadata failed: %v", err)
	}

	expectedFile := filepath.Join(tmpDir, "fetch-metadata-1672574400-12345678.json")
	if _, err := os.Stat(expectedFile); err != nil {
		t.Fatalf("metadata file not created: %v", err)
	}
	if _, err := os.Stat(expectedFile + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file was not cleaned up")
	}

	data, err := os.ReadFile(expectedFile)
	if err != nil {
		t.Fatalf("failed to read metadata file: %v", err)
	}

	var loaded FetchMetadata
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("failed to parse metadata: %v", err)
	}

	if loaded.ReportVersion != metadata.ReportVersion {
		t.Errorf("ReportVersion = %s, want %s", loaded.ReportVersion, metadata.ReportVersion)
	}
	if loaded.Results.Resources["issues"].Relevant != 12 {
		t.Errorf("issues Relevant = %d, want 12", loaded.Results.Resources["issues"].Relevant)
	}
}

func TestLoadLatestMetadata(t *testing.T) {
	tmpDir := t.TempDir()

	older := sampleMetadata("org", "repo", "aaaaaaaa-older", time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC))
	newer := sampleMetadata("org", "repo", "bbbbbbbb-newer", time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC))
	other := sampleMetadata("other", "repo", "cccccccc-other", time.Date(2023, 1, 4, 0, 0, 0, 0, time.UTC))

	// Save the newest first; ordering comes from the record, not the file.
	for _, m := range []*FetchMetadata{newer, other, older} {
		if err := SaveMetadata(m, tmpDir); err != nil {
			t.Fatalf("SaveMetadata failed: %v", err)
		}
	}

	// Unparseable files are skipped.
	if err := os.WriteFile(filepath.Join(tmpDir, "fetch-metadata-1-broken.json"), []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadLatestMetadata(tmpDir, "org/repo")
	if err != nil {
		t.Fatalf("LoadLatestMetadata failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected metadata, got nil")
	}
	if loaded.FetchID != newer.FetchID {
		t.Errorf("FetchID = %s, want %s", loaded.FetchID, newer.FetchID)
	}
}

func TestLoadLatestMetadata_DifferentRepo(t *testing.T) {
	tmpDir := t.TempDir()

	metadata := sampleMetadata("other", "repo", "dddddddd", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	if err := SaveMetadata(metadata, tmpDir); err != nil {
		t.Fatalf("SaveMetadata failed: %v", err)
	}

	loaded, err := LoadLatestMetadata(tmpDir, "org/repo")
	if err != nil {
		t.Fatalf("LoadLatestMetadata failed: %v", err)
	}
	if loaded != nil {
		t.Error("expected nil metadata for different repo")
	}
}

func TestLoadLatestMetadata_EmptyDir(t *testing.T) {
	loaded, err := LoadLatestMetadata(t.TempDir(), "org/repo")
	if err != nil {
		t.Fatalf("LoadLatestMetadata failed: %v", err)
	}
	if loaded != nil {
		t.Error("expected nil metadata for empty directory")
	}
}

func TestWriteMetadataToWriter(t *testing.T) {
	metadata := sampleMetadata("kubernetes", "kubernetes", "1234567890", time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC))

	var buf bytes.Buffer
	if err := WriteMetadataToWriter(metadata, &buf); err != nil {
		t.Fatalf("WriteMetadataToWriter failed: %v", err)
	}

	var loaded FetchMetadata
	if err := json.Unmarshal(buf.Bytes(), &loaded); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "\n  \"report_version\"") {
		t.Error("output should be indented")
	}
}
