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

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/cli/go-gh/v2/pkg/auth"

	"github.com/sirseerhq/sirseer-report/internal/giterror"
)

// TokenSource names where a token was found.
type TokenSource string

const (
	TokenFromFlag  TokenSource = "flag"
	TokenFromEnv   TokenSource = "env"
	TokenFromGHCLI TokenSource = "gh"
)

// tokenForHost looks up credentials stored by the gh CLI.
var tokenForHost = auth.TokenForHost

// ResolveToken returns the GitHub token to use. It checks, in order, the
// --token flag, the environment variable named by github.token_env, and
// credentials stored by the gh CLI for the endpoint's host.
func (c *Config) ResolveToken(flagToken string) (string, TokenSource, error) {
	if flagToken != "" {
		return flagToken, TokenFromFlag, nil
	}

	envName := c.GitHub.TokenEnv
	if envName == "" {
		envName = "GITHUB_TOKEN"
	}
	if token := strings.TrimSpace(os.Getenv(envName)); token != "" {
		return token, TokenFromEnv, nil
	}

	host := Host(c.GitHub.GraphQLEndpoint)
	if token, _ := tokenForHost(host); token != "" {
		return token, TokenFromGHCLI, nil
	}

	return "", "", giterror.WithUserAction(errors.New("GitHub token not found"),
		fmt.Sprintf("Set %s, use --token, or run 'gh auth login --hostname %s'", envName, host))
}

// Host returns the GitHub host a GraphQL endpoint belongs to.
// api.github.com maps to github.com; enterprise hosts are returned as is.
func Host(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Hostname() == "" {
		return "github.com"
	}
	host := u.Hostname()
	if host == "api.github.com" {
		return "github.com"
	}
	return host
}
