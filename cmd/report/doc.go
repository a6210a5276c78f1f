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

// Package main implements the sirseer-report command-line interface.
// It fetches the issue and pull request history of a GitHub repository,
// caches the full history, and writes the records relevant to a date
// window in NDJSON format.
//
// The CLI supports:
//   - Issues, pull requests, or both (--type)
//   - Inclusive date windows (--since, --until)
//   - A persistent local cache that serves any window (--cache-dir,
//     --no-cache, --refresh)
//   - YAML or TOML configuration files and SIRSEER_* environment variables
//   - GitHub token via flag, environment variable, or the gh CLI
//   - Fetch metadata records for auditing (--metadata, --metadata=- for stderr)
//   - Clearing every cached history (cache clear)
//
// Usage:
//
//	sirseer-report fetch <owner>/<repo> --since YYYY-MM-DD [flags]
//	sirseer-report cache clear [--cache-dir DIR]
//
// Example:
//
//	export GITHUB_TOKEN=your_token
//	sirseer-report fetch golang/go --since 2024-01-01 --until 2024-03-31 --output q1.ndjson
//
// Exit codes:
//   - 0: Success
//   - 1: General error
//   - 2: Authentication/authorization error
//   - 3: Network error
package main
