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

// Package testutil provides common test helpers for sirseer-report
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// GraphQLRequest is a decoded request body as sent by the GraphQL client.
type GraphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

// Connection reports which repository connection the request targets.
func (r GraphQLRequest) Connection() string {
	if strings.Contains(r.Query, "pullRequests(") {
		return "pullRequests"
	}
	return "issues"
}

// IsLast reports whether the request uses "last N" mode.
func (r GraphQLRequest) IsLast() bool {
	return strings.Contains(r.Query, "last: $last")
}

// GraphQLServer simulates the repository issues and pullRequests
// connections of GitHub's GraphQL API, ordered by creation ascending.
type GraphQLServer struct {
	*httptest.Server

	mu       sync.Mutex
	records  map[string][]FakeRecord
	requests []GraphQLRequest

	// Token, if set, must be presented as a bearer token.
	Token string

	// BeforeServe runs before each request is answered with the request's
	// 1-based index. Records appended here are visible to that request.
	BeforeServe func(n int, req GraphQLRequest, s *GraphQLServer)

	// FailWith, if non-zero, answers every request with this status code.
	FailWith int

	// FailPagesWith, if non-zero, answers page requests with this status
	// code while "last N" requests still succeed.
	FailPagesWith int
}

// NewGraphQLServer starts a fake GraphQL endpoint. The server is closed
// when the test finishes.
func NewGraphQLServer(t *testing.T) *GraphQLServer {
	t.Helper()
	s := &GraphQLServer{records: make(map[string][]FakeRecord)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Endpoint returns the GraphQL URL of the server.
func (s *GraphQLServer) Endpoint() string {
	return s.URL + "/graphql"
}

// SetRecords replaces the records of a connection ("issues" or "pullRequests").
func (s *GraphQLServer) SetRecords(connection string, records []FakeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[connection] = append([]FakeRecord(nil), records...)
}

// Append adds newly created records to the end of a connection.
func (s *GraphQLServer) Append(connection string, records ...FakeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[connection] = append(s.records[connection], records...)
}

// Requests returns a copy of all decoded requests received so far.
func (s *GraphQLServer) Requests() []GraphQLRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]GraphQLRequest(nil), s.requests...)
}

// CountRequests returns how many requests matched the connection and mode.
func (s *GraphQLServer) CountRequests(connection string, last bool) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Connection() == connection && r.IsLast() == last {
			n++
		}
	}
	return n
}

func (s *GraphQLServer) handle(w http.ResponseWriter, r *http.Request) {
	if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "Bad credentials"}`))
		return
	}

	var req GraphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	n := len(s.requests)
	hook := s.BeforeServe
	s.mu.Unlock()

	if hook != nil {
		hook(n, req, s)
	}

	status := s.FailWith
	if status == 0 && !req.IsLast() {
		status = s.FailPagesWith
	}
	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(http.StatusText(status)))
		return
	}

	s.mu.Lock()
	records := append([]FakeRecord(nil), s.records[req.Connection()]...)
	s.mu.Unlock()

	var window []FakeRecord
	if req.IsLast() {
		last := intVar(req.Variables, "last")
		window = records[max(len(records)-last, 0):]
	} else {
		start := 0
		if after, ok := req.Variables["after"].(string); ok && after != "" {
			start = len(records)
			for i, rec := range records {
				if CursorFor(rec.Number) == after {
					start = i + 1
					break
				}
			}
		}
		end := min(start+intVar(req.Variables, "first"), len(records))
		window = records[start:end]
	}

	edges := make([]map[string]interface{}, 0, len(window))
	for _, rec := range window {
		edges = append(edges, map[string]interface{}{
			"cursor": CursorFor(rec.Number),
			"node":   rec.node(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"data": map[string]interface{}{
			"repository": map[string]interface{}{
				req.Connection(): map[string]interface{}{"edges": edges},
			},
		},
	})
}

func intVar(vars map[string]interface{}, name string) int {
	if f, ok := vars[name].(float64); ok {
		return int(f)
	}
	return 0
}
