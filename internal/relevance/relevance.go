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

// Package relevance selects the records a report window cares about.
package relevance

import (
	"github.com/sirseerhq/sirseer-report/internal/github"
	"github.com/sirseerhq/sirseer-report/internal/window"
)

// Relevant reports whether r belongs in a report for w.
//
// A record closed on or before the window's first day is excluded. Any
// other record is included when it was created inside the window. Open
// records created before the window are therefore excluded too, and a
// record closed inside the window is kept only if it was also created
// inside it.
func Relevant(r github.Record, w window.Window) bool {
	if r.ClosedAt != nil && w.OnOrBeforeStart(*r.ClosedAt) {
		return false
	}
	return w.Contains(r.CreatedAt)
}

// Filter returns the relevant records in their original order.
// records is not modified.
func Filter(records []github.Record, w window.Window) []github.Record {
	out := make([]github.Record, 0, len(records))
	for _, r := range records {
		if Relevant(r, w) {
			out = append(out, r)
		}
	}
	return out
}
