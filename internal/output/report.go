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

package output

import (
	"fmt"
	"slices"
	"time"

	"github.com/sirseerhq/sirseer-report/internal/github"
	"github.com/sirseerhq/sirseer-report/internal/window"
)

// Line types tag every NDJSON line so consumers can dispatch on "type".
const (
	TypeReport      = "report"
	TypeIssue       = "issue"
	TypePullRequest = "pull_request"
)

// RecordWriter receives report lines in order. Writer is the NDJSON
// implementation.
type RecordWriter interface {
	Write(line any) error
	Close() error
}

var _ RecordWriter = (*Writer)(nil)

// Report is the header line written before any records.
type Report struct {
	Type        string         `json:"type"`
	Repository  string         `json:"repository"`
	Window      window.Window  `json:"window"`
	Counts      map[string]int `json:"counts"`
	FetchID     string         `json:"fetch_id,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// RecordLine is one record tagged with its type.
type RecordLine struct {
	Type string `json:"type"`
	github.Record
}

// Section holds the records of one resource type.
type Section struct {
	Resource github.ResourceType
	Records  []github.Record
}

// LineType returns the "type" tag used for records of resource.
func LineType(resource github.ResourceType) string {
	if resource == github.PullRequests {
		return TypePullRequest
	}
	return TypeIssue
}

// WriteReport writes the header followed by every section's records.
// Header counts are filled from the sections. Within a section records are
// written in creation order; the input slices are not modified.
func WriteReport(w RecordWriter, header Report, sections ...Section) error {
	header.Type = TypeReport
	header.Counts = make(map[string]int, len(sections))
	for _, s := range sections {
		header.Counts[s.Resource.CacheName()] += len(s.Records)
	}
	if header.GeneratedAt.IsZero() {
		header.GeneratedAt = time.Now().UTC()
	}

	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}

	for _, s := range sections {
		records := slices.Clone(s.Records)
		slices.SortStableFunc(records, func(a, b github.Record) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		})

		lineType := LineType(s.Resource)
		for _, r := range records {
			if err := w.Write(RecordLine{Type: lineType, Record: r}); err != nil {
				return fmt.Errorf("failed to write %s #%d: %w", lineType, r.Number, err)
			}
		}
	}

	return nil
}
