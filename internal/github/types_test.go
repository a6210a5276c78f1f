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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResourceType(t *testing.T) {
	tests := []struct {
		in      string
		want    ResourceType
		wantErr bool
	}{
		{in: "issues", want: Issues},
		{in: "Issue", want: Issues},
		{in: "pulls", want: PullRequests},
		{in: "pull-requests", want: PullRequests},
		{in: "pullRequests", want: PullRequests},
		{in: " PR ", want: PullRequests},
		{in: "commits", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseResourceType(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}
}

func TestResourceType_CacheNameDistinct(t *testing.T) {
	assert.Equal(t, "issues", Issues.CacheName())
	assert.Equal(t, "pull-requests", PullRequests.CacheName())
	assert.NotEqual(t, Issues.CacheName(), PullRequests.CacheName())
	assert.False(t, ResourceType("commits").Valid())
}

func TestNormalizeState(t *testing.T) {
	tests := []struct {
		in     string
		want   State
		wantOK bool
	}{
		{"OPEN", StateOpen, true},
		{"open", StateOpen, true},
		{"CLOSED", StateClosed, true},
		{"MERGED", StateClosed, true},
		{"DRAFT", "", false},
	}

	for _, tt := range tests {
		got, ok := normalizeState(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestPage_LastCursor(t *testing.T) {
	var nilPage *Page
	assert.Equal(t, "", nilPage.LastCursor())
	assert.Equal(t, "", (&Page{}).LastCursor())

	page := &Page{Edges: []Edge{{Cursor: "a"}, {Cursor: "b"}}}
	assert.Equal(t, "b", page.LastCursor())
}

func TestClampPageSize(t *testing.T) {
	assert.Equal(t, MaxPageSize, clampPageSize(0))
	assert.Equal(t, MaxPageSize, clampPageSize(-3))
	assert.Equal(t, MaxPageSize, clampPageSize(500))
	assert.Equal(t, 1, clampPageSize(1))
	assert.Equal(t, 42, clampPageSize(42))
}
