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

// Package output provides utilities for writing data in NDJSON (Newline Delimited JSON) format.
// NDJSON is a convenient format for streaming large datasets where each line contains
// a valid JSON object. This format is particularly useful for log files, data exports,
// and streaming APIs.
//
// The primary type is Writer, which provides thread-safe writing of JSON records
// to an io.Writer or file. WriteReport lays out a report stream: one header
// line of type "report" followed by "issue" and "pull_request" lines, each
// carrying one record.
//
// Example usage:
//
//	w, err := output.NewFileWriter("report.ndjson")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//
//	err = output.WriteReport(w, output.Report{Repository: "golang/go", Window: win},
//	    output.Section{Resource: github.Issues, Records: issues},
//	    output.Section{Resource: github.PullRequests, Records: pulls},
//	)
package output
