package client

import (
	"context"
	"errors"
	"sync"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"feedsync/domain/notification"
	"feedsync/domain/post"
	"feedsync/storage"
	"feedsync/wire"
)

type MutationKind string

const (
	MutationLike     MutationKind = "like"
	MutationRepost   MutationKind = "repost"
	MutationBookmark MutationKind = "bookmark"
	MutationFollow   MutationKind = "follow"
)

type mutationState int

const (
	stateApplied mutationState = iota + 1
	stateConfirmed
	stateRolledBack
)

type pendingKey struct {
	target string
	kind   MutationKind
}

// record is a pending mutation: the coalesced intent, the pre-dispatch
// snapshot for rollback, and the callers waiting on settlement. It lives
// from dispatch to settle.
type record struct {
	id       string
	key      pendingKey
	intended bool
	prior    post.Post
	hadPrior bool
	state    mutationState
	waiters  []chan error
}

// Coordinator applies mutations to the page cache before the authoritative
// round-trip completes and reconciles on settlement. At most one record is
// in flight per (entity, kind) pair; re-dispatches while one is pending are
// coalesced onto it, so a toggle can never double-count.
type Coordinator struct {
	backend *wire.Client
	cache   *PageCache
	router  *Router
	viewer  string

	mu      sync.Mutex
	pending map[pendingKey]*record
}

func NewCoordinator(backend *wire.Client, cache *PageCache, router *Router, viewerId string) *Coordinator {
	return &Coordinator{
		backend: backend,
		cache:   cache,
		router:  router,
		viewer:  viewerId,
		pending: make(map[pendingKey]*record),
	}
}

func (c *Coordinator) Viewer() string {
	return c.viewer
}

// ToggleEngagement dispatches an optimistic flag toggle. The returned channel
// settles exactly once: nil after confirmation, the classified error after
// rollback. Duplicate dispatches for the same (post, kind) while one is in
// flight coalesce onto it and share its settlement.
func (c *Coordinator) ToggleEngagement(ctx context.Context, postId string, kind post.EngagementKind, value bool) <-chan error {
	ch := make(chan error, 1)
	if !kind.Valid() {
		ch <- &wire.Error{Code: wire.CodeBadRequest, Message: "unknown engagement kind"}
		return ch
	}
	key := pendingKey{target: postId, kind: MutationKind(kind)}
	c.mu.Lock()
	if rec, ok := c.pending[key]; ok {
		rec.intended = value
		rec.waiters = append(rec.waiters, ch)
		c.mu.Unlock()
		c.applyEngagement(postId, kind, value)
		glog.V(2).Infof("[coordinator] coalesced %s on %s into record %s", kind, postId, rec.id)
		return ch
	}
	rec := &record{
		id:       uuid.NewString(),
		key:      key,
		intended: value,
		state:    stateApplied,
		waiters:  []chan error{ch},
	}
	if prior, ok := c.cache.Post(postId); ok {
		rec.prior = prior
		rec.hadPrior = true
	}
	c.pending[key] = rec
	c.mu.Unlock()

	c.applyEngagement(postId, kind, value)
	go c.settleEngagement(ctx, rec, postId, kind)
	return ch
}

func (c *Coordinator) applyEngagement(postId string, kind post.EngagementKind, value bool) {
	c.cache.PatchPost(postId, func(p *post.Post) {
		if p.Flag(kind) == value {
			return
		}
		p.SetFlag(kind, value)
		if value {
			p.AddCounter(kind, 1)
		} else {
			p.AddCounter(kind, -1)
		}
	})
}

func (c *Coordinator) settleEngagement(ctx context.Context, rec *record, postId string, kind post.EngagementKind) {
	for {
		c.mu.Lock()
		sent := rec.intended
		c.mu.Unlock()

		resp, err := c.backend.SetEngagement(ctx, postId, c.viewer, kind, sent)
		if err != nil {
			c.failPending(rec, postId, err)
			return
		}

		c.mu.Lock()
		if rec.intended != sent {
			// superseded while in flight: the coalesced intent differs from
			// what this round-trip carried, so run one more
			c.mu.Unlock()
			continue
		}
		rec.state = stateConfirmed
		delete(c.pending, rec.key)
		waiters := rec.waiters
		c.mu.Unlock()

		if resp != nil {
			// authoritative counters win over the optimistic guess
			c.router.EngagementSettled(*resp)
		}
		for _, w := range waiters {
			w <- nil
		}
		return
	}
}

func (c *Coordinator) failPending(rec *record, postId string, err error) {
	c.mu.Lock()
	rec.state = stateRolledBack
	delete(c.pending, rec.key)
	waiters := rec.waiters
	c.mu.Unlock()

	if errors.Is(err, storage.ErrNotFound) && postId != "" {
		// the entity is genuinely gone; restoring the snapshot would
		// resurrect it in cached views
		c.router.EntityGone(postId)
	} else if rec.hadPrior {
		c.cache.SetPost(rec.prior)
	}
	glog.V(2).Infof("[coordinator] record %s rolled back: %v", rec.id, err)
	for _, w := range waiters {
		w <- err
	}
}

// Follow dispatches a follow-edge toggle. There is no optimistic patch: the
// cache holds no user entries, so the change only becomes visible when the
// router invalidates the profile views on settlement. Dispatches are still
// coalesced per target while one is in flight.
func (c *Coordinator) Follow(ctx context.Context, targetId string, value bool) <-chan error {
	ch := make(chan error, 1)
	key := pendingKey{target: targetId, kind: MutationFollow}
	c.mu.Lock()
	if rec, ok := c.pending[key]; ok {
		rec.intended = value
		rec.waiters = append(rec.waiters, ch)
		c.mu.Unlock()
		return ch
	}
	rec := &record{
		id:       uuid.NewString(),
		key:      key,
		intended: value,
		state:    stateApplied,
		waiters:  []chan error{ch},
	}
	c.pending[key] = rec
	c.mu.Unlock()

	go func() {
		for {
			c.mu.Lock()
			sent := rec.intended
			c.mu.Unlock()

			_, _, err := c.backend.SetFollow(ctx, c.viewer, targetId, sent)
			if err != nil {
				c.failPending(rec, "", err)
				return
			}

			c.mu.Lock()
			if rec.intended != sent {
				c.mu.Unlock()
				continue
			}
			rec.state = stateConfirmed
			delete(c.pending, rec.key)
			waiters := rec.waiters
			c.mu.Unlock()

			c.router.FollowSettled(c.viewer, targetId)
			for _, w := range waiters {
				w <- nil
			}
			return
		}
	}()
	return ch
}

// CreatePost is not optimistic: the new post enters cached views only via
// the invalidate-and-refetch the router issues on confirmation.
func (c *Coordinator) CreatePost(ctx context.Context, text string, parentId string) <-chan error {
	ch := make(chan error, 1)
	go func() {
		_, err := c.backend.CreatePost(ctx, c.viewer, text, parentId)
		if err != nil {
			ch <- err
			return
		}
		c.router.PostCreated(c.viewer)
		ch <- nil
	}()
	return ch
}

// DeletePost is not optimistic: rolling back a removal (re-inserting with
// correct ordering) is materially harder than rolling back a flag, so the
// post leaves the cache only after authoritative confirmation.
func (c *Coordinator) DeletePost(ctx context.Context, postId string) <-chan error {
	ch := make(chan error, 1)
	go func() {
		err := c.backend.DeletePost(ctx, postId, c.viewer)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			ch <- err
			return
		}
		// confirmed, or already gone upstream: either way drop it
		c.router.PostDeleted(postId)
		ch <- err
	}()
	return ch
}

func (c *Coordinator) MarkAllRead(ctx context.Context) <-chan error {
	ch := make(chan error, 1)
	go func() {
		_, err := c.backend.MarkAllNotificationsRead(ctx, c.viewer)
		if err != nil {
			ch <- err
			return
		}
		c.router.NotificationsRead()
		ch <- nil
	}()
	return ch
}

// LoadNotifications is a read-through: the cached list is served until the
// router invalidates it.
func (c *Coordinator) LoadNotifications(ctx context.Context) ([]notification.Notification, error) {
	if cached, ok := c.cache.Notifications(); ok {
		return cached, nil
	}
	ns, err := c.backend.Notifications(ctx, c.viewer)
	if err != nil {
		return nil, err
	}
	out := make([]notification.Notification, 0, len(ns))
	for _, n := range ns {
		out = append(out, *n)
	}
	c.cache.SetNotifications(out)
	return out, nil
}

// PendingCount reports in-flight records; zero means every dispatched
// mutation has settled.
func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
