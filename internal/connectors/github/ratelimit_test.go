package github

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	gh "github.com/google/go-github/v80/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quotaResponse(remaining int, reset time.Time) *http.Response {
	h := http.Header{}
	h.Set(headerRateLimit, "5000")
	h.Set(headerRateRemaining, strconv.Itoa(remaining))
	h.Set(headerRateReset, strconv.FormatInt(reset.Unix(), 10))
	return &http.Response{Header: h}
}

func TestRateLimiter_UpdateFromResponse(t *testing.T) {
	r := NewRateLimiter(-1)
	assert.Equal(t, -1, r.Remaining())
	assert.Equal(t, -1, r.Limit())

	reset := time.Unix(1704164645, 0)
	r.UpdateFromResponse(quotaResponse(42, reset))

	assert.Equal(t, 42, r.Remaining())
	assert.Equal(t, 5000, r.Limit())
	assert.True(t, reset.Equal(r.ResetTime()))

	// Responses without headers keep the last known quota.
	r.UpdateFromResponse(&http.Response{Header: http.Header{}})
	r.UpdateFromResponse(nil)
	assert.Equal(t, 42, r.Remaining())
}

func TestRateLimiter_Wait(t *testing.T) {
	t.Run("unknown quota does not block", func(t *testing.T) {
		assert.NoError(t, NewRateLimiter(-1).Wait(context.Background()))
	})

	t.Run("expired reset does not block", func(t *testing.T) {
		r := NewRateLimiter(-1)
		r.UpdateFromResponse(quotaResponse(0, time.Now().Add(-time.Minute)))

		assert.NoError(t, r.Wait(context.Background()))
	})

	t.Run("low quota blocks until the context ends", func(t *testing.T) {
		r := NewRateLimiter(-1)
		r.UpdateFromResponse(quotaResponse(MinBuffer-1, time.Now().Add(time.Hour)))
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := r.Wait(ctx)

		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("low quota resumes at reset", func(t *testing.T) {
		r := NewRateLimiter(-1)
		r.UpdateFromResponse(quotaResponse(0, time.Now().Add(2*time.Second)))

		start := time.Now()
		require.NoError(t, r.Wait(context.Background()))
		assert.Greater(t, time.Since(start), 500*time.Millisecond)
	})

	t.Run("bucket honours cancellation", func(t *testing.T) {
		r := NewRateLimiter(0.001)
		require.NoError(t, r.Wait(context.Background()))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.Error(t, r.Wait(ctx))
	})
}

func TestClient_WrapError(t *testing.T) {
	c := NewClient(context.Background(), "", NewRateLimiter(-1))

	t.Run("rate limit", func(t *testing.T) {
		reset := time.Unix(1704164645, 0)
		err := c.wrapError(&gh.RateLimitError{
			Rate: gh.Rate{Limit: 60, Remaining: 0, Reset: gh.Timestamp{Time: reset}},
		}, "get tree")

		assert.True(t, IsRateLimited(err))
		var rl *RateLimitError
		require.True(t, errors.As(err, &rl))
		assert.Equal(t, 60, rl.Limit)
		assert.True(t, reset.Equal(rl.ResetAt))
	})

	t.Run("API error", func(t *testing.T) {
		req := &http.Request{URL: &url.URL{Scheme: "https", Host: "api.github.com", Path: "/repos/o/r"}}
		err := c.wrapError(&gh.ErrorResponse{
			Response: &http.Response{StatusCode: http.StatusNotFound, Request: req},
			Message:  "Not Found",
		}, "get repo")

		assert.True(t, IsNotFound(err))
		assert.Contains(t, err.Error(), "https://api.github.com/repos/o/r")
	})

	t.Run("API error without request", func(t *testing.T) {
		err := c.wrapError(&gh.ErrorResponse{
			Response: &http.Response{StatusCode: http.StatusUnauthorized},
		}, "get repo")

		assert.True(t, IsUnauthorized(err))
	})

	t.Run("other errors keep the operation", func(t *testing.T) {
		err := c.wrapError(errors.New("connection refused"), "get commit")

		assert.EqualError(t, err, "get commit: connection refused")
		assert.NoError(t, c.wrapError(nil, "get commit"))
	})
}
