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

// Package window models the inclusive calendar-date range a report covers.
//
// Every comparison happens after truncating timestamps to their UTC calendar
// date, so a record created at 23:59 on the last day of the window is still
// inside it and time-of-day never changes the outcome.
package window

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the layout used to print and parse window bounds.
const DateLayout = "2006-01-02"

// Window is an inclusive [Start, End] range of calendar dates.
// Both bounds are stored as midnight UTC.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// New builds a Window from two timestamps, normalizing both to their
// calendar date. It returns an error if end falls before start.
func New(start, end time.Time) (Window, error) {
	w := Window{Start: Date(start), End: Date(end)}
	if w.End.Before(w.Start) {
		return Window{}, fmt.Errorf("window end %s is before start %s",
			w.End.Format(DateLayout), w.Start.Format(DateLayout))
	}
	return w, nil
}

// Parse builds a Window from two strings in YYYY-MM-DD or RFC 3339 form.
func Parse(start, end string) (Window, error) {
	s, err := ParseDate(start)
	if err != nil {
		return Window{}, fmt.Errorf("invalid window start: %w", err)
	}
	e, err := ParseDate(end)
	if err != nil {
		return Window{}, fmt.Errorf("invalid window end: %w", err)
	}
	return New(s, e)
}

// ParseDate parses a YYYY-MM-DD date or an RFC 3339 timestamp and returns
// its calendar date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must be YYYY-MM-DD or RFC 3339", s)
	}
	return Date(t), nil
}

// Date truncates t to midnight UTC of its UTC calendar date.
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether t falls on a date within the window.
func (w Window) Contains(t time.Time) bool {
	d := Date(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// OnOrBeforeStart reports whether t falls on or before the window's first day.
func (w Window) OnOrBeforeStart(t time.Time) bool {
	return !Date(t).After(w.Start)
}

// Days returns the number of calendar days covered, counting both ends.
func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}

// String renders the window as "YYYY-MM-DD..YYYY-MM-DD".
func (w Window) String() string {
	return w.Start.Format(DateLayout) + ".." + w.End.Format(DateLayout)
}
