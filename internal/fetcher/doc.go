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

// Package fetcher produces the window-relevant records of one repository
// resource.
//
// A Fetcher snapshots the connection's last cursor, loads the full history
// from the cache or pages it from the API, and filters it to the report
// window. The full unfiltered history is what gets cached, so one entry
// serves every window for the same repository and resource.
//
// Example usage:
//
//	f, err := fetcher.New(client, store, fetcher.Options{
//	    Owner:    "golang",
//	    Repo:     "go",
//	    Resource: github.Issues,
//	    Window:   win,
//	    Observer: fetcher.NewProgressObserver(os.Stderr),
//	})
//	if err != nil {
//	    return err
//	}
//	issues, err := f.Data(ctx)
package fetcher
