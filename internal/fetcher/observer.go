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

package fetcher

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirseerhq/sirseer-report/internal/paginate"
)

// Observer receives page progress from a Fetcher.
type Observer = paginate.Observer

// PageEvent describes one fetched page.
type PageEvent = paginate.PageEvent

// NopObserver ignores all events.
type NopObserver struct{}

// PageFetched implements Observer.
func (NopObserver) PageFetched(PageEvent) {}

// ProgressObserver prints one "." per fetched page and a newline when a
// fetch completes.
type ProgressObserver struct {
	mu sync.Mutex
	w  io.Writer
}

// NewProgressObserver writes progress markers to w, typically os.Stderr.
func NewProgressObserver(w io.Writer) *ProgressObserver {
	return &ProgressObserver{w: w}
}

// PageFetched implements Observer.
func (o *ProgressObserver) PageFetched(e PageEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if e.Records > 0 {
		fmt.Fprint(o.w, ".")
	}
	if e.Final {
		fmt.Fprintln(o.w)
	}
}

// MultiObserver fans events out to every observer in order.
type MultiObserver []Observer

// PageFetched implements Observer.
func (m MultiObserver) PageFetched(e PageEvent) {
	for _, o := range m {
		if o != nil {
			o.PageFetched(e)
		}
	}
}
