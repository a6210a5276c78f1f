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

// Package github provides a client for GitHub's GraphQL API that pages over
// a repository's issues or pull requests in creation order.
//
// The package includes:
//   - A Client interface with forward paging and a "last N" mode
//   - A GraphQL implementation using the shurcooL/graphql library
//   - A RetryClient decorator with exponential backoff
//   - An in-memory MockClient that behaves like a live server
//
// Basic usage:
//
//	client := github.NewGraphQLClient("your-github-token", "https://api.github.com/graphql")
//	page, err := client.FetchPage(ctx, "golang", "go", github.Issues, github.PageOptions{
//	    First: 100,
//	})
//	if err != nil {
//	    // Handle error
//	}
//	for _, edge := range page.Edges {
//	    // Process edge.Record, remember edge.Cursor
//	}
package github
