package client

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedsync/feed"
)

func TestControllerFetchesPagesInOrder(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	var ids []string
	for i := 0; i < 5; i++ {
		p, err := f.store.CreatePost(ctx, f.alice, "post", "")
		require.NoError(t, err)
		ids = append(ids, p.Id)
	}

	fc := NewFeedController(f.backend, f.cache, f.bob, feed.FilterHome, "", 2)
	require.NoError(t, fc.FetchMore(ctx))
	posts := fc.Posts()
	require.Len(t, posts, 2)
	assert.Equal(t, ids[4], posts[0].Id)
	assert.Equal(t, ids[3], posts[1].Id)
	assert.True(t, fc.HasMore())

	require.NoError(t, fc.FetchMore(ctx))
	require.NoError(t, fc.FetchMore(ctx))
	posts = fc.Posts()
	require.Len(t, posts, 5)
	for i, p := range posts {
		assert.Equal(t, ids[len(ids)-1-i], p.Id, "position %d", i)
	}
	assert.False(t, fc.HasMore())

	// fully loaded: another fetch is a no-op
	require.NoError(t, fc.FetchMore(ctx))
	assert.Len(t, fc.Posts(), 5)
}

func TestControllerRefetchesAfterInvalidation(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	_, err := f.store.CreatePost(ctx, f.alice, "existing", "")
	require.NoError(t, err)

	fc := NewFeedController(f.backend, f.cache, f.bob, feed.FilterHome, "", 10)
	require.NoError(t, fc.FetchMore(ctx))
	assert.Len(t, fc.Posts(), 1)

	require.NoError(t, settle(t, f.coord.CreatePost(ctx, "fresh", "")))
	assert.Empty(t, fc.Posts(), "invalidated view reads empty until refetched")

	require.NoError(t, fc.FetchMore(ctx))
	assert.Len(t, fc.Posts(), 2)
}

func TestControllerRefresh(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	_, _ = f.store.CreatePost(ctx, f.alice, "one", "")

	fc := NewFeedController(f.backend, f.cache, f.bob, feed.FilterHome, "", 10)
	require.NoError(t, fc.FetchMore(ctx))
	assert.Len(t, fc.Posts(), 1)

	_, _ = f.store.CreatePost(ctx, f.alice, "two", "")
	require.NoError(t, fc.Refresh(ctx))
	assert.Len(t, fc.Posts(), 2)
}

func TestControllerSurfacesQueryErrors(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	fc := NewFeedController(f.backend, f.cache, f.bob, feed.FilterAuthor, "", 10)
	err := fc.FetchMore(ctx)
	require.Error(t, err)
	assert.Error(t, fc.Err())
	assert.False(t, fc.Loading())
}

func TestControllerSubscription(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	_, _ = f.store.CreatePost(ctx, f.alice, "one", "")

	fc := NewFeedController(f.backend, f.cache, f.bob, feed.FilterHome, "", 10)
	var fired atomic.Int32
	unsubscribe := fc.Subscribe(func() { fired.Add(1) })

	require.NoError(t, fc.FetchMore(ctx))
	assert.Greater(t, fired.Load(), int32(0))

	before := fired.Load()
	unsubscribe()
	require.NoError(t, fc.Refresh(ctx))
	assert.Equal(t, before, fired.Load())
}
