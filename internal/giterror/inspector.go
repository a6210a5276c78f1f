package giterror

import (
	"errors"
	"strings"
)

// Class is the category of a failed GitHub request.
type Class int

const (
	ClassUnknown Class = iota
	ClassRateLimit
	ClassAuth
	ClassNotFound
	ClassComplexity
	ClassNetwork
	ClassServer
)

func (c Class) String() string {
	switch c {
	case ClassRateLimit:
		return "rate_limit"
	case ClassAuth:
		return "auth"
	case ClassNotFound:
		return "not_found"
	case ClassComplexity:
		return "complexity"
	case ClassNetwork:
		return "network"
	case ClassServer:
		return "server"
	default:
		return "unknown"
	}
}

// Retryable reports whether a request failing with c may succeed when
// repeated unchanged.
func (c Class) Retryable() bool {
	return c == ClassRateLimit || c == ClassNetwork || c == ClassServer
}

// signatures lists message fragments per class in match order. Rate limits
// come first: GitHub reports secondary rate limits as 403.
var signatures = []struct {
	class     Class
	fragments []string
}{
	{ClassRateLimit, []string{"rate limit", "429"}},
	{ClassAuth, []string{"401", "403", "unauthorized", "forbidden", "bad credentials", "authentication"}},
	{ClassNotFound, []string{"404", "not found", "could not resolve to a repository"}},
	{ClassComplexity, []string{"complexity", "exceeds maximum"}},
	{ClassNetwork, []string{
		"connection refused", "connection reset", "no such host", "timeout",
		"temporary failure", "dial tcp", "tls handshake", "network is unreachable",
	}},
	{ClassServer, []string{"502", "503", "504", "bad gateway", "service unavailable"}},
}

// classify matches err's message against signatures.
func classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range signatures {
		for _, f := range sig.fragments {
			if strings.Contains(msg, f) {
				return sig.class
			}
		}
	}
	return ClassUnknown
}

// hasSignature reports whether err's message carries any fragment of class.
// Unlike classify it ignores match order, so one message may belong to
// several classes (a 403 secondary rate limit is also an auth message).
func hasSignature(err error, class Class) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range signatures {
		if sig.class != class {
			continue
		}
		for _, f := range sig.fragments {
			if strings.Contains(msg, f) {
				return true
			}
		}
	}
	return false
}

// Inspector provides methods for analyzing GitHub API errors.
type Inspector interface {
	// Classify returns the single class used to map err to a sentinel.
	Classify(err error) Class

	IsAuthError(err error) bool
	IsNotFoundError(err error) bool
	IsRateLimitError(err error) bool
	IsComplexityError(err error) bool
	IsNetworkError(err error) bool

	// IsServerError returns true for transient upstream failures (502, 503, 504).
	IsServerError(err error) bool

	// IsRetryable returns true if repeating the same request may succeed.
	IsRetryable(err error) bool
}

// GitHubErrorInspector classifies errors by the text GitHub and net/http
// put in their messages.
type GitHubErrorInspector struct{}

// NewInspector creates a new GitHubErrorInspector.
func NewInspector() Inspector {
	return &GitHubErrorInspector{}
}

func (i *GitHubErrorInspector) Classify(err error) Class { return classify(err) }

func (i *GitHubErrorInspector) IsAuthError(err error) bool { return hasSignature(err, ClassAuth) }

func (i *GitHubErrorInspector) IsNotFoundError(err error) bool {
	return hasSignature(err, ClassNotFound)
}

func (i *GitHubErrorInspector) IsRateLimitError(err error) bool {
	return hasSignature(err, ClassRateLimit)
}

func (i *GitHubErrorInspector) IsComplexityError(err error) bool {
	return hasSignature(err, ClassComplexity)
}

func (i *GitHubErrorInspector) IsNetworkError(err error) bool {
	return hasSignature(err, ClassNetwork)
}

func (i *GitHubErrorInspector) IsServerError(err error) bool {
	return hasSignature(err, ClassServer)
}

// IsRetryable is true for rate limits, network failures and transient
// server errors. Auth, not-found and complexity errors never are.
func (i *GitHubErrorInspector) IsRetryable(err error) bool {
	return classify(err).Retryable()
}

// ErrorChainInspector consults marker methods on errors in the chain
// (IsAuthError() bool and friends) before falling back to a base inspector.
type ErrorChainInspector struct {
	base Inspector
}

// NewErrorChainInspector creates a new ErrorChainInspector that checks both
// the error chain and falls back to string-based inspection.
func NewErrorChainInspector(base Inspector) Inspector {
	return &ErrorChainInspector{base: base}
}

// marked reports whether an error in err's chain implements the marker
// interface M and answers true through it.
func marked[M any](err error, get func(M) bool) bool {
	var m M
	return err != nil && errors.As(err, &m) && get(m)
}

type (
	authMarker       interface{ IsAuthError() bool }
	notFoundMarker   interface{ IsNotFoundError() bool }
	rateLimitMarker  interface{ IsRateLimitError() bool }
	complexityMarker interface{ IsComplexityError() bool }
	networkMarker    interface{ IsNetworkError() bool }
	serverMarker     interface{ IsServerError() bool }
	retryMarker      interface{ IsRetryable() bool }
)

func (e *ErrorChainInspector) IsAuthError(err error) bool {
	return marked(err, authMarker.IsAuthError) || e.base.IsAuthError(err)
}

func (e *ErrorChainInspector) IsNotFoundError(err error) bool {
	return marked(err, notFoundMarker.IsNotFoundError) || e.base.IsNotFoundError(err)
}

func (e *ErrorChainInspector) IsRateLimitError(err error) bool {
	return marked(err, rateLimitMarker.IsRateLimitError) || e.base.IsRateLimitError(err)
}

func (e *ErrorChainInspector) IsComplexityError(err error) bool {
	return marked(err, complexityMarker.IsComplexityError) || e.base.IsComplexityError(err)
}

func (e *ErrorChainInspector) IsNetworkError(err error) bool {
	return marked(err, networkMarker.IsNetworkError) || e.base.IsNetworkError(err)
}

func (e *ErrorChainInspector) IsServerError(err error) bool {
	return marked(err, serverMarker.IsServerError) || e.base.IsServerError(err)
}

// Classify checks markers in the same order as message matching, then
// defers to the base inspector.
func (e *ErrorChainInspector) Classify(err error) Class {
	switch {
	case marked(err, rateLimitMarker.IsRateLimitError):
		return ClassRateLimit
	case marked(err, authMarker.IsAuthError):
		return ClassAuth
	case marked(err, notFoundMarker.IsNotFoundError):
		return ClassNotFound
	case marked(err, complexityMarker.IsComplexityError):
		return ClassComplexity
	case marked(err, networkMarker.IsNetworkError):
		return ClassNetwork
	case marked(err, serverMarker.IsServerError):
		return ClassServer
	}
	return e.base.Classify(err)
}

// IsRetryable honours an explicit IsRetryable() in the chain before classifying.
func (e *ErrorChainInspector) IsRetryable(err error) bool {
	var r retryMarker
	if err != nil && errors.As(err, &r) {
		return r.IsRetryable()
	}
	return e.Classify(err).Retryable()
}
