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

package testutil

import (
	"fmt"
	"strings"
	"time"
)

// FakeRecord is the server-side view of an issue or pull request.
type FakeRecord struct {
	Number    int
	Title     string
	State     string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
	ClosedAt  *time.Time
	Labels    []string
}

// RecordBuilder provides a fluent API for creating test records
type RecordBuilder struct {
	rec FakeRecord
}

// NewRecordBuilder creates a record created n days after 2018-01-01.
func NewRecordBuilder(number int) *RecordBuilder {
	created := time.Date(2018, 1, 1, 9, 0, 0, 0, time.UTC).AddDate(0, 0, number)
	return &RecordBuilder{rec: FakeRecord{
		Number:    number,
		Title:     fmt.Sprintf("Record %d", number),
		State:     "OPEN",
		URL:       fmt.Sprintf("https://github.com/octo/repo/issues/%d", number),
		CreatedAt: created,
		UpdatedAt: created.Add(time.Hour),
	}}
}

// WithTitle sets the record title
func (b *RecordBuilder) WithTitle(title string) *RecordBuilder {
	b.rec.Title = title
	return b
}

// WithState sets the GraphQL state (OPEN, CLOSED, MERGED)
func (b *RecordBuilder) WithState(state string) *RecordBuilder {
	b.rec.State = strings.ToUpper(state)
	return b
}

// CreatedAt sets the creation timestamp
func (b *RecordBuilder) CreatedAt(t time.Time) *RecordBuilder {
	b.rec.CreatedAt = t
	if b.rec.UpdatedAt.Before(t) {
		b.rec.UpdatedAt = t
	}
	return b
}

// ClosedAt marks the record closed at t
func (b *RecordBuilder) ClosedAt(t time.Time) *RecordBuilder {
	b.rec.ClosedAt = &t
	b.rec.UpdatedAt = t
	if b.rec.State == "OPEN" {
		b.rec.State = "CLOSED"
	}
	return b
}

// WithLabels sets the label names
func (b *RecordBuilder) WithLabels(labels ...string) *RecordBuilder {
	b.rec.Labels = labels
	return b
}

// Build returns the record
func (b *RecordBuilder) Build() FakeRecord {
	return b.rec
}

// BuildRecords builds n sequential records numbered 1..n.
func BuildRecords(n int) []FakeRecord {
	out := make([]FakeRecord, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, NewRecordBuilder(i).Build())
	}
	return out
}

// CursorFor is the cursor the fake server assigns to a record number.
func CursorFor(number int) string {
	return fmt.Sprintf("Y3Vyc29yOnYyOpH%d", number)
}

func (r FakeRecord) node() map[string]interface{} {
	labels := make([]map[string]interface{}, 0, len(r.Labels))
	for _, l := range r.Labels {
		labels = append(labels, map[string]interface{}{"name": l})
	}

	var closedAt interface{}
	if r.ClosedAt != nil {
		closedAt = r.ClosedAt.Format(time.RFC3339)
	}

	return map[string]interface{}{
		"number":    r.Number,
		"title":     r.Title,
		"state":     r.State,
		"url":       r.URL,
		"createdAt": r.CreatedAt.Format(time.RFC3339),
		"updatedAt": r.UpdatedAt.Format(time.RFC3339),
		"closedAt":  closedAt,
		"labels":    map[string]interface{}{"nodes": labels},
	}
}
