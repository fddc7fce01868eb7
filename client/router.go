package client

import (
	"github.com/golang/glog"

	"feedsync/domain/post"
	"feedsync/feed"
)

// Router maps a settled mutation to the cache work it requires. Patching in
// place is only safe when the mutation cannot change a post's membership in
// a filtered view; membership-changing mutations invalidate instead, so a
// filtered view is never silently stale.
type Router struct {
	cache *PageCache
}

func NewRouter(cache *PageCache) *Router {
	return &Router{cache: cache}
}

// PostCreated invalidates the home view and the author's posts view.
func (r *Router) PostCreated(authorId string) {
	glog.V(2).Infof("[router] post created by %s: invalidating home and author views", authorId)
	r.cache.Invalidate(PageKey{Filter: feed.FilterHome})
	r.cache.Invalidate(PageKey{Filter: feed.FilterAuthor, Subject: authorId})
}

// PostDeleted patches the id out of every cached view.
func (r *Router) PostDeleted(postId string) {
	glog.V(2).Infof("[router] post %s deleted: patching out of %d views", postId, len(r.cache.KeysContaining(postId)))
	r.cache.RemovePost(postId)
}

// EngagementSettled patches the authoritative snapshot in place: a flag
// toggle never moves a post in or out of the views already fetched.
func (r *Router) EngagementSettled(p post.Post) {
	glog.V(2).Infof("[router] engagement settled on %s: patch in place", p.Id)
	r.cache.SetPost(p)
}

// FollowSettled invalidates both profiles so counters are refetched.
func (r *Router) FollowSettled(followerId string, followingId string) {
	glog.V(2).Infof("[router] follow edge %s->%s settled: invalidating profile views", followerId, followingId)
	r.cache.Invalidate(PageKey{Filter: feed.FilterAuthor, Subject: followerId})
	r.cache.Invalidate(PageKey{Filter: feed.FilterAuthor, Subject: followingId})
}

func (r *Router) NotificationsRead() {
	r.cache.InvalidateNotifications()
}

// EntityGone handles a not_found settle: the entity is authoritatively gone,
// so replaying a rollback would resurrect it. Drop it everywhere instead.
func (r *Router) EntityGone(postId string) {
	glog.V(2).Infof("[router] post %s gone upstream: dropping from cache", postId)
	r.cache.RemovePost(postId)
}
