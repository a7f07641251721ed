// Package scraper defines the boundary between the metrics pipeline and the
// sources that produce raw posts for an identity.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"engagement-dashboard/models"
	"engagement-dashboard/utils"
)

// Fetcher returns up to limit posts for a handle, newest first. A non-positive
// limit means no limit. Implementations may return posts together with an
// error when the source failed part way through.
type Fetcher interface {
	FetchPosts(ctx context.Context, handle string, limit int) ([]*models.RawPost, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, handle string, limit int) ([]*models.RawPost, error)

func (f FetcherFunc) FetchPosts(ctx context.Context, handle string, limit int) ([]*models.RawPost, error) {
	return f(ctx, handle, limit)
}

// ErrorKind classifies fetch failures.
type ErrorKind string

const (
	KindNetwork     ErrorKind = "network"
	KindNotFound    ErrorKind = "not_found"
	KindRateLimited ErrorKind = "rate_limited"
	KindInvalidData ErrorKind = "invalid_data"
)

// FetchError reports that the source could not produce posts for a handle.
type FetchError struct {
	Handle string
	Kind   ErrorKind
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: %s", e.Handle, e.Kind)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.Handle, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the fetch may succeed.
func (e *FetchError) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindRateLimited
}

// NewFetchError builds a FetchError.
func NewFetchError(handle string, kind ErrorKind, err error) *FetchError {
	return &FetchError{Handle: handle, Kind: kind, Err: err}
}

// IsRetryable reports whether err is worth retrying. Errors that are not
// FetchErrors are treated as transient, context errors are not.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Retryable()
	}
	return true
}

var profilePrefixes = []string{
	"https://twitter.com/",
	"http://twitter.com/",
	"https://www.twitter.com/",
	"https://x.com/",
	"http://x.com/",
	"https://www.x.com/",
	"twitter.com/",
	"x.com/",
}

// NormalizeHandle turns a profile URL or "@handle" into a bare handle.
func NormalizeHandle(s string) string {
	h := strings.TrimSpace(s)
	lower := strings.ToLower(h)
	for _, p := range profilePrefixes {
		if strings.HasPrefix(lower, p) {
			h = h[len(p):]
			break
		}
	}
	if i := strings.IndexAny(h, "?#"); i >= 0 {
		h = h[:i]
	}
	h = strings.Trim(h, "/")
	if i := strings.Index(h, "/"); i >= 0 {
		h = h[:i]
	}
	return strings.TrimPrefix(h, "@")
}

// RetryingFetcher retries transient failures of the wrapped fetcher with
// exponential back-off.
type RetryingFetcher struct {
	next  Fetcher
	retry *utils.RetryConfig
}

// NewRetryingFetcher wraps next. maxAttempts below 1 disables retries.
func NewRetryingFetcher(next Fetcher, maxAttempts int, baseDelay time.Duration, logger *utils.Logger) *RetryingFetcher {
	return &RetryingFetcher{
		next: next,
		retry: &utils.RetryConfig{
			MaxAttempts: maxAttempts,
			BaseDelay:   baseDelay,
			Logger:      logger,
			Retryable:   IsRetryable,
		},
	}
}

// FetchPosts implements Fetcher. A partial result from the last attempt is
// returned alongside its error.
func (f *RetryingFetcher) FetchPosts(ctx context.Context, handle string, limit int) ([]*models.RawPost, error) {
	var posts []*models.RawPost
	err := f.retry.Do(ctx, "fetch "+handle, func() error {
		var err error
		posts, err = f.next.FetchPosts(ctx, handle, limit)
		return err
	})
	return posts, err
}
