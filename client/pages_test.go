package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedsync/domain/post"
	"feedsync/feed"
	"feedsync/wire"
)

func pageOf(posts ...post.Post) *wire.FeedPage {
	pg := &wire.FeedPage{Items: posts, HasMore: true}
	if len(posts) > 0 {
		pg.NextCursor = posts[len(posts)-1].Id
	}
	return pg
}

func TestMergePageExtendsAndDedupes(t *testing.T) {
	pc := NewPageCache()
	key := PageKey{Filter: feed.FilterHome}

	pc.MergePage(key, pageOf(post.Post{Id: "a"}, post.Post{Id: "b"}))
	// overlapping refetch: "b" again plus "c"
	pc.MergePage(key, pageOf(post.Post{Id: "b"}, post.Post{Id: "c"}))

	v, ok := pc.View(key)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, v.Ids)
	assert.Equal(t, "c", v.Cursor)
}

func TestMergePageReplacesInvalidatedView(t *testing.T) {
	pc := NewPageCache()
	key := PageKey{Filter: feed.FilterHome}
	pc.MergePage(key, pageOf(post.Post{Id: "a"}))
	pc.Invalidate(key)

	pc.MergePage(key, pageOf(post.Post{Id: "b"}))
	v, _ := pc.View(key)
	assert.Equal(t, []string{"b"}, v.Ids)
	assert.True(t, v.Loaded)
}

func TestInvalidateKeepsEntityTable(t *testing.T) {
	pc := NewPageCache()
	key := PageKey{Filter: feed.FilterHome}
	pc.MergePage(key, pageOf(post.Post{Id: "a", Text: "kept"}))

	pc.Invalidate(key)

	p, ok := pc.Post("a")
	require.True(t, ok)
	assert.Equal(t, "kept", p.Text)
}

func TestRemovePostPatchesEveryViewAndResetsCursor(t *testing.T) {
	pc := NewPageCache()
	home := PageKey{Filter: feed.FilterHome}
	author := PageKey{Filter: feed.FilterAuthor, Subject: "u1"}
	pc.MergePage(home, pageOf(post.Post{Id: "a"}, post.Post{Id: "b"}))
	pc.MergePage(author, pageOf(post.Post{Id: "b"}))

	assert.Len(t, pc.KeysContaining("b"), 2)
	pc.RemovePost("b")

	hv, _ := pc.View(home)
	assert.Equal(t, []string{"a"}, hv.Ids)
	assert.Empty(t, hv.Cursor, "cursor pointing at the removed post is cleared")
	av, _ := pc.View(author)
	assert.Empty(t, av.Ids)
	assert.Empty(t, pc.KeysContaining("b"))
}

func TestPatchPostReachesAllViews(t *testing.T) {
	pc := NewPageCache()
	home := PageKey{Filter: feed.FilterHome}
	liked := PageKey{Filter: feed.FilterLiked, Subject: "u1"}
	pc.MergePage(home, pageOf(post.Post{Id: "a"}))
	pc.MergePage(liked, pageOf(post.Post{Id: "a"}))

	ok := pc.PatchPost("a", func(p *post.Post) {
		p.Liked = true
		p.AddCounter(post.EngagementLike, 1)
	})
	require.True(t, ok)

	// one entity table, so both views observe the patch
	p, _ := pc.Post("a")
	assert.True(t, p.Flag(post.EngagementLike))
	assert.Equal(t, 1, p.Counter(post.EngagementLike))

	assert.False(t, pc.PatchPost("missing", func(*post.Post) {}))
}

func TestSubscribeFiresOnChanges(t *testing.T) {
	pc := NewPageCache()
	fired := 0
	cancel := pc.Subscribe(func() { fired++ })

	pc.MergePage(PageKey{Filter: feed.FilterHome}, pageOf(post.Post{Id: "a"}))
	assert.Equal(t, 1, fired)

	cancel()
	pc.Reset()
	assert.Equal(t, 1, fired)
}
