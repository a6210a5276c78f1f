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
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shurcooL/graphql"
	reporterrors "github.com/sirseerhq/sirseer-report/internal/errors"
	"github.com/sirseerhq/sirseer-report/internal/giterror"
)

// GraphQLClient implements the Client interface using GitHub's GraphQL API.
type GraphQLClient struct {
	client    *graphql.Client
	inspector giterror.Inspector
}

// NewGraphQLClient creates a new GitHub GraphQL client with the provided token and endpoint.
// The client is configured with:
//   - Authentication via the provided token
//   - Custom GraphQL endpoint URL (e.g., for GitHub Enterprise)
//   - Response size limiting to prevent memory issues
//   - User-Agent header for API compliance
//   - Connection pooling for sequential page requests
func NewGraphQLClient(token string, endpoint string) *GraphQLClient {
	httpClient := &http.Client{
		Transport: newAuthTransport(token, newPooledTransport()),
	}

	return &GraphQLClient{
		client:    graphql.NewClient(endpoint, httpClient),
		inspector: giterror.NewErrorChainInspector(giterror.NewInspector()),
	}
}

// recordNode is the selection set shared by issues and pull requests.
type recordNode struct {
	Number    graphql.Int
	Title     graphql.String
	State     graphql.String
	URL       graphql.String
	CreatedAt time.Time
	UpdatedAt time.Time
	ClosedAt  *time.Time
	Labels    struct {
		Nodes []struct {
			Name graphql.String
		}
	} `graphql:"labels(first: 100)"`
}

type recordConnection struct {
	Edges []struct {
		Cursor graphql.String
		Node   recordNode
	}
}

type issuesPageQuery struct {
	Repository struct {
		Issues recordConnection `graphql:"issues(first: $first, after: $after, orderBy: {field: CREATED_AT, direction: ASC})"`
	} `graphql:"repository(owner: $owner, name: $repo)"`
}

type pullRequestsPageQuery struct {
	Repository struct {
		PullRequests recordConnection `graphql:"pullRequests(first: $first, after: $after, orderBy: {field: CREATED_AT, direction: ASC})"`
	} `graphql:"repository(owner: $owner, name: $repo)"`
}

type issuesLastQuery struct {
	Repository struct {
		Issues recordConnection `graphql:"issues(last: $last, orderBy: {field: CREATED_AT, direction: ASC})"`
	} `graphql:"repository(owner: $owner, name: $repo)"`
}

type pullRequestsLastQuery struct {
	Repository struct {
		PullRequests recordConnection `graphql:"pullRequests(last: $last, orderBy: {field: CREATED_AT, direction: ASC})"`
	} `graphql:"repository(owner: $owner, name: $repo)"`
}

// FetchPage fetches one forward page of the requested connection.
func (c *GraphQLClient) FetchPage(ctx context.Context, owner, repo string, resource ResourceType, opts PageOptions) (*Page, error) {
	var after *graphql.String
	if opts.After != "" {
		s := graphql.String(opts.After)
		after = &s
	}

	variables := map[string]interface{}{
		"owner": graphql.String(owner),
		"repo":  graphql.String(repo),
		"first": graphql.Int(int32(clampPageSize(opts.First))), // #nosec G115 - capped at MaxPageSize
		"after": after,
	}

	var conn recordConnection
	switch resource {
	case Issues:
		var q issuesPageQuery
		if err := c.client.Query(ctx, &q, variables); err != nil {
			return nil, c.mapError(err, owner, repo, resource)
		}
		conn = q.Repository.Issues
	case PullRequests:
		var q pullRequestsPageQuery
		if err := c.client.Query(ctx, &q, variables); err != nil {
			return nil, c.mapError(err, owner, repo, resource)
		}
		conn = q.Repository.PullRequests
	default:
		return nil, fmt.Errorf("unsupported resource type %q", resource)
	}

	return convertConnection(conn)
}

// FetchLast fetches the final n edges of the requested connection.
func (c *GraphQLClient) FetchLast(ctx context.Context, owner, repo string, resource ResourceType, n int) (*Page, error) {
	variables := map[string]interface{}{
		"owner": graphql.String(owner),
		"repo":  graphql.String(repo),
		"last":  graphql.Int(int32(clampPageSize(n))), // #nosec G115 - capped at MaxPageSize
	}

	var conn recordConnection
	switch resource {
	case Issues:
		var q issuesLastQuery
		if err := c.client.Query(ctx, &q, variables); err != nil {
			return nil, c.mapError(err, owner, repo, resource)
		}
		conn = q.Repository.Issues
	case PullRequests:
		var q pullRequestsLastQuery
		if err := c.client.Query(ctx, &q, variables); err != nil {
			return nil, c.mapError(err, owner, repo, resource)
		}
		conn = q.Repository.PullRequests
	default:
		return nil, fmt.Errorf("unsupported resource type %q", resource)
	}

	return convertConnection(conn)
}

// convertConnection converts GraphQL edges to our domain model
func convertConnection(conn recordConnection) (*Page, error) {
	page := &Page{Edges: make([]Edge, 0, len(conn.Edges))}

	for _, edge := range conn.Edges {
		if edge.Cursor == "" {
			return nil, fmt.Errorf("edge for #%d has no cursor: %w", edge.Node.Number, reporterrors.ErrMalformedResponse)
		}
		record, err := convertNode(edge.Node)
		if err != nil {
			return nil, err
		}
		page.Edges = append(page.Edges, Edge{Cursor: string(edge.Cursor), Record: record})
	}

	return page, nil
}

func convertNode(n recordNode) (Record, error) {
	state, ok := normalizeState(string(n.State))
	if !ok {
		return Record{}, fmt.Errorf("record #%d has unknown state %q: %w", n.Number, n.State, reporterrors.ErrMalformedResponse)
	}

	record := Record{
		Number:    int(n.Number),
		Title:     string(n.Title),
		State:     state,
		URL:       string(n.URL),
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
		Labels:    make([]string, 0, len(n.Labels.Nodes)),
	}

	// Handle optional timestamps
	if n.ClosedAt != nil {
		closed := *n.ClosedAt
		record.ClosedAt = &closed
	}

	for _, label := range n.Labels.Nodes {
		record.Labels = append(record.Labels, string(label.Name))
	}

	return record, nil
}

// mapError maps GraphQL errors to our domain errors with actionable messages
func (c *GraphQLClient) mapError(err error, owner, repo string, resource ResourceType) error {
	if err == nil {
		return nil
	}

	switch c.inspector.Classify(err) {
	case giterror.ClassRateLimit:
		return fmt.Errorf("GitHub API rate limit exceeded. Please wait before retrying: %w", reporterrors.ErrRateLimit)
	case giterror.ClassAuth:
		return fmt.Errorf("GitHub API authentication failed. Please provide a valid token via --token flag or GITHUB_TOKEN environment variable: %w", reporterrors.ErrInvalidToken)
	case giterror.ClassNotFound:
		return fmt.Errorf("repository '%s/%s' not found. Please check the repository name and your access permissions: %w", owner, repo, reporterrors.ErrRepoNotFound)
	case giterror.ClassComplexity:
		return fmt.Errorf("GraphQL query complexity exceeded. Reducing chunk size may help: %w", reporterrors.ErrQueryComplexity)
	case giterror.ClassNetwork:
		return fmt.Errorf("network error connecting to GitHub API. Please check your internet connection and try again: %w", reporterrors.ErrNetworkFailure)
	case giterror.ClassServer:
		return fmt.Errorf("GitHub API temporarily unavailable while fetching %s: %w", resource, err)
	}

	return fmt.Errorf("failed to fetch %s: %w", resource, err)
}
