package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engagement-dashboard/models"
	"engagement-dashboard/utils"
)

func TestNormalizeHandle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://twitter.com/jairbolsonaro", "jairbolsonaro"},
		{"https://x.com/LulaOficial/", "LulaOficial"},
		{"@cirogomes", "cirogomes"},
		{"  simonetebetbr ", "simonetebetbr"},
		{"https://twitter.com/verapstu?lang=pt", "verapstu"},
		{"x.com/pablomarcal/status/1", "pablomarcal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeHandle(tt.in), tt.in)
	}
}

func TestFetchErrorClassification(t *testing.T) {
	notFound := NewFetchError("ghost", KindNotFound, errors.New("404"))
	limited := NewFetchError("busy", KindRateLimited, nil)

	assert.False(t, IsRetryable(notFound))
	assert.True(t, IsRetryable(limited))
	assert.True(t, IsRetryable(errors.New("connection reset")))
	assert.False(t, IsRetryable(context.Canceled))

	var fe *FetchError
	require.True(t, errors.As(errors.Join(errors.New("ctx"), notFound), &fe))
	assert.Equal(t, "ghost", fe.Handle)
	assert.Contains(t, notFound.Error(), "not_found")
}

func TestRetryingFetcherRetriesTransientErrors(t *testing.T) {
	calls := 0
	inner := FetcherFunc(func(ctx context.Context, handle string, limit int) ([]*models.RawPost, error) {
		calls++
		if calls == 1 {
			return nil, NewFetchError(handle, KindNetwork, errors.New("timeout"))
		}
		return []*models.RawPost{{Handle: handle, PostID: "1"}}, nil
	})

	f := NewRetryingFetcher(inner, 3, time.Millisecond, utils.NewDiscardLogger())
	posts, err := f.FetchPosts(context.Background(), "alice", 10)

	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, 2, calls)
}

func TestRetryingFetcherDoesNotRetryNotFound(t *testing.T) {
	calls := 0
	inner := FetcherFunc(func(ctx context.Context, handle string, limit int) ([]*models.RawPost, error) {
		calls++
		return nil, NewFetchError(handle, KindNotFound, nil)
	})

	f := NewRetryingFetcher(inner, 3, time.Millisecond, utils.NewDiscardLogger())
	_, err := f.FetchPosts(context.Background(), "ghost", 10)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindNotFound, fe.Kind)
	assert.Equal(t, 1, calls)
}
