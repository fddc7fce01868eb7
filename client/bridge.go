package client

import (
	"github.com/golang/glog"

	"feedsync/storage"
)

// EventBridge feeds committed store events into the session's invalidation
// router, so cached views track mutations made outside this session. Events
// whose actor is this session's own viewer are skipped: those reconcile
// through the coordinator when the mutation settles. The caller owns Close().
type EventBridge struct {
	cache       *PageCache
	router      *Router
	viewer      string
	unsubscribe func()
}

func NewEventBridge(store storage.Storage, cache *PageCache, router *Router, viewerId string) *EventBridge {
	b := &EventBridge{cache: cache, router: router, viewer: viewerId}
	b.unsubscribe = store.Subscribe(b.route)
	return b
}

// Close releases the store subscription. No events are routed after it
// returns.
func (b *EventBridge) Close() {
	b.unsubscribe()
}

func (b *EventBridge) route(e storage.Event) {
	switch e.Kind {
	case storage.EventPostCreated:
		if e.AuthorId == b.viewer {
			return
		}
		glog.V(2).Infof("[bridge] foreign post %s created by %s", e.PostId, e.AuthorId)
		b.router.PostCreated(e.AuthorId)
		// a foreign reply may have notified the viewer
		b.cache.InvalidateNotifications()
	case storage.EventPostDeleted:
		if e.AuthorId == b.viewer {
			return
		}
		b.router.PostDeleted(e.PostId)
	case storage.EventEngagementChanged:
		if e.ActorId == b.viewer {
			return
		}
		// the event carries no snapshot, so views holding the post refetch
		for _, key := range b.cache.KeysContaining(e.PostId) {
			b.cache.Invalidate(key)
		}
		b.cache.InvalidateNotifications()
	case storage.EventFollowChanged:
		if e.ActorId == b.viewer {
			return
		}
		b.router.FollowSettled(e.ActorId, e.TargetId)
		b.cache.InvalidateNotifications()
	case storage.EventReset:
		b.cache.Reset()
	}
}
