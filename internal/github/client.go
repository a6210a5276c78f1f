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

package github

import "context"

// Client is the paged query capability the fetch engine consumes.
// Both methods order the connection by creation time, ascending.
type Client interface {
	// FetchPage returns up to opts.First edges after opts.After.
	FetchPage(ctx context.Context, owner, repo string, resource ResourceType, opts PageOptions) (*Page, error)

	// FetchLast returns the final n edges of the connection as it exists at
	// call time. An empty collection yields an empty page, not an error.
	FetchLast(ctx context.Context, owner, repo string, resource ResourceType, n int) (*Page, error)
}
