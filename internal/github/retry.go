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
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	reporterrors "github.com/sirseerhq/sirseer-report/internal/errors"
	"github.com/sirseerhq/sirseer-report/internal/giterror"
)

// RetryConfig configures the retry behavior for API calls
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts
	MaxRetries int
	// InitialBackoff is the initial backoff duration
	InitialBackoff time.Duration
	// MaxBackoff is the maximum backoff duration
	MaxBackoff time.Duration
	// BackoffMultiplier is the multiplier for exponential backoff
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryClient wraps a Client with automatic retry logic for rate limits,
// transient network errors and 5xx responses using exponential backoff.
// Auth, not-found and malformed-response errors are returned immediately.
type RetryClient struct {
	client    Client
	config    *RetryConfig
	inspector giterror.Inspector
	log       zerolog.Logger
}

// RetryOption customizes a RetryClient.
type RetryOption func(*RetryClient)

// WithRetryLogger routes retry warnings to l.
func WithRetryLogger(l zerolog.Logger) RetryOption {
	return func(r *RetryClient) {
		r.log = l
	}
}

// NewRetryClient creates a new RetryClient with the given configuration
func NewRetryClient(client Client, config *RetryConfig, opts ...RetryOption) *RetryClient {
	if config == nil {
		config = DefaultRetryConfig()
	}
	r := &RetryClient{
		client:    client,
		config:    config,
		inspector: giterror.NewErrorChainInspector(giterror.NewInspector()),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FetchPage implements the Client interface with retry logic
func (r *RetryClient) FetchPage(ctx context.Context, owner, repo string, resource ResourceType, opts PageOptions) (*Page, error) {
	var page *Page
	err := r.do(ctx, "page", func() error {
		var err error
		page, err = r.client.FetchPage(ctx, owner, repo, resource, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// FetchLast implements the Client interface with retry logic
func (r *RetryClient) FetchLast(ctx context.Context, owner, repo string, resource ResourceType, n int) (*Page, error) {
	var page *Page
	err := r.do(ctx, "last", func() error {
		var err error
		page, err = r.client.FetchLast(ctx, owner, repo, resource, n)
		return err
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (r *RetryClient) do(ctx context.Context, op string, fn func() error) error {
	attempts := 0
	retryable := false

	operation := func() error {
		attempts++
		err := fn()
		if err == nil {
			return nil
		}
		retryable = r.shouldRetry(err)
		if !retryable {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		r.log.Warn().
			Err(err).
			Str("op", op).
			Int("attempt", attempts).
			Int("max_retries", r.config.MaxRetries).
			Dur("wait", wait).
			Msg("retrying github request")
	}

	b := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), uint64(max(r.config.MaxRetries, 0))), ctx)
	err := backoff.RetryNotify(operation, b, notify)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if retryable {
		return giterror.WithRetryInfo(err, attempts, r.config.MaxRetries+1)
	}
	return err
}

// newBackOff returns a fresh policy; backoff.BackOff values are stateful.
func (r *RetryClient) newBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.config.InitialBackoff
	bo.MaxInterval = r.config.MaxBackoff
	if r.config.BackoffMultiplier > 0 {
		bo.Multiplier = r.config.BackoffMultiplier
	}
	bo.RandomizationFactor = 0.1
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

// shouldRetry determines if an error is retryable
func (r *RetryClient) shouldRetry(err error) bool {
	if errors.Is(err, reporterrors.ErrRateLimit) || errors.Is(err, reporterrors.ErrNetworkFailure) {
		return true
	}
	if errors.Is(err, reporterrors.ErrInvalidToken) ||
		errors.Is(err, reporterrors.ErrRepoNotFound) ||
		errors.Is(err, reporterrors.ErrQueryComplexity) ||
		errors.Is(err, reporterrors.ErrMalformedResponse) {
		return false
	}
	return r.inspector.IsRetryable(err)
}
