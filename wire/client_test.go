package wire

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedsync/domain/post"
	"feedsync/feed"
	"feedsync/storage"
)

func newBackend(t *testing.T, minLatency, maxLatency time.Duration) (*Client, *storage.InMemoryStorage, string, string) {
	t.Helper()
	s := storage.New()
	ctx := context.Background()
	a, err := s.CreateUser(ctx, "alice", "Alice")
	require.NoError(t, err)
	b, err := s.CreateUser(ctx, "bob", "Bob")
	require.NoError(t, err)
	c := NewClient(s, feed.NewEngine(s, 10, 100), minLatency, maxLatency)
	return c, s, a.Id, b.Id
}

func TestErrorsKeepSentinelIdentity(t *testing.T) {
	c, _, alice, bob := newBackend(t, 0, 0)
	ctx := context.Background()

	_, err := c.GetPost(ctx, "missing", alice)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, CodeNotFound, CodeOf(err))

	p, err := c.CreatePost(ctx, alice, "hello", "")
	require.NoError(t, err)
	assert.ErrorIs(t, c.DeletePost(ctx, p.Id, bob), storage.ErrForbiddenAccess)

	_, _, err = c.SetFollow(ctx, alice, alice, true)
	assert.ErrorIs(t, err, storage.ErrBadRequest)
}

func TestValidationErrorCarriesField(t *testing.T) {
	c, _, alice, _ := newBackend(t, 0, 0)

	_, err := c.CreatePost(context.Background(), alice, "", "")
	require.Error(t, err)
	var we *Error
	require.ErrorAs(t, err, &we)
	assert.Equal(t, CodeValidation, we.Code)
	assert.Equal(t, "body", we.Field)
	assert.ErrorIs(t, err, storage.ErrValidation)
}

func TestSimulatedLatencyIsApplied(t *testing.T) {
	c, _, alice, _ := newBackend(t, 20*time.Millisecond, 40*time.Millisecond)

	start := time.Now()
	_, err := c.GetUser(context.Background(), alice)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestContextCancellationAbortsBeforeStore(t *testing.T) {
	c, _, alice, _ := newBackend(t, 50*time.Millisecond, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.CreatePost(ctx, alice, "never lands", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled) || CodeOf(err) == CodeInternal)

	// the mutation never reached the authoritative store
	pg, qerr := c.QueryFeed(context.Background(), alice, feed.Request{Filter: feed.FilterHome, Limit: 10})
	require.NoError(t, qerr)
	assert.Empty(t, pg.Items)
}

func TestQueryFeedHydratesForViewer(t *testing.T) {
	c, _, alice, bob := newBackend(t, 0, 0)
	ctx := context.Background()

	p, err := c.CreatePost(ctx, alice, "hello", "")
	require.NoError(t, err)
	_, err = c.SetEngagement(ctx, p.Id, bob, post.EngagementLike, true)
	require.NoError(t, err)

	pg, err := c.QueryFeed(ctx, bob, feed.Request{Filter: feed.FilterHome, Limit: 10})
	require.NoError(t, err)
	require.Len(t, pg.Items, 1)
	assert.True(t, pg.Items[0].Liked)
	assert.Equal(t, 1, pg.Items[0].LikeCount)

	pg, err = c.QueryFeed(ctx, alice, feed.Request{Filter: feed.FilterHome, Limit: 10})
	require.NoError(t, err)
	require.Len(t, pg.Items, 1)
	assert.False(t, pg.Items[0].Liked)
}

func TestResetAllClearsState(t *testing.T) {
	c, _, alice, _ := newBackend(t, 0, 0)
	ctx := context.Background()
	_, err := c.CreatePost(ctx, alice, "hello", "")
	require.NoError(t, err)

	require.NoError(t, c.ResetAll(ctx))

	_, err = c.GetUser(ctx, alice)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
