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

// Package paginate walks a cursor-paginated connection to its end.
//
// The GraphQL connections this tool reads are ordered by creation time and
// the queries issued do not request an end-of-collection flag. Instead, a
// Paginator takes a snapshot of the connection's final cursor (the
// sentinel) before paging, then pages forward from the beginning until the
// sentinel is reached:
//
//	NotStarted --ResolveLastCursor--> (no sentinel) --> Done
//	NotStarted --first page--> Paging --sentinel reached--> Done
//	                          Paging --empty page-------> Done
//
// Records created after the snapshot are excluded from the result, which
// gives every fetch a fixed, well-defined consistency boundary.
package paginate
