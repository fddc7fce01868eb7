package client

import (
	"context"
	"sync"

	"feedsync/domain/post"
	"feedsync/feed"
	"feedsync/wire"
)

// FeedController drives one cached page set: first page, fetch-more, refresh,
// and the loading/error flags a view layer binds to. Change notification
// comes from the shared cache; the caller owns the unsubscribe returned by
// Subscribe.
type FeedController struct {
	backend  *wire.Client
	cache    *PageCache
	key      PageKey
	viewer   string
	pageSize int

	mu      sync.Mutex
	loading bool
	err     error
}

func NewFeedController(backend *wire.Client, cache *PageCache, viewerId string, filter feed.Filter, subjectId string, pageSize int) *FeedController {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &FeedController{
		backend:  backend,
		cache:    cache,
		key:      PageKey{Filter: filter, Subject: subjectId},
		viewer:   viewerId,
		pageSize: pageSize,
	}
}

func (fc *FeedController) Key() PageKey {
	return fc.key
}

// Posts resolves the view's ids against the entity table, skipping ids whose
// snapshot has been dropped.
func (fc *FeedController) Posts() []post.Post {
	v, ok := fc.cache.View(fc.key)
	if !ok {
		return nil
	}
	out := make([]post.Post, 0, len(v.Ids))
	for _, id := range v.Ids {
		if p, ok := fc.cache.Post(id); ok {
			out = append(out, p)
		}
	}
	return out
}

func (fc *FeedController) HasMore() bool {
	v, ok := fc.cache.View(fc.key)
	if !ok || !v.Loaded {
		return true
	}
	return v.HasMore
}

func (fc *FeedController) Loading() bool {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.loading
}

func (fc *FeedController) Err() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.err
}

func (fc *FeedController) Subscribe(fn func()) func() {
	return fc.cache.Subscribe(fn)
}

// FetchMore loads the next page: the first page when the view is fresh or
// invalidated, the page after the stored cursor otherwise. A call while a
// fetch is running is a no-op, and a fully-loaded view is left alone.
func (fc *FeedController) FetchMore(ctx context.Context) error {
	fc.mu.Lock()
	if fc.loading {
		fc.mu.Unlock()
		return nil
	}
	fc.loading = true
	fc.err = nil
	fc.mu.Unlock()

	cursor := ""
	if v, ok := fc.cache.View(fc.key); ok && v.Loaded {
		if !v.HasMore {
			fc.setDone(nil)
			return nil
		}
		cursor = v.Cursor
	}
	resp, err := fc.backend.QueryFeed(ctx, fc.viewer, feed.Request{
		Filter:    fc.key.Filter,
		SubjectId: fc.key.Subject,
		Cursor:    cursor,
		Limit:     fc.pageSize,
	})
	if err != nil {
		fc.setDone(err)
		return err
	}
	fc.cache.MergePage(fc.key, resp)
	fc.setDone(nil)
	return nil
}

// Refresh invalidates the view and loads the first page again.
func (fc *FeedController) Refresh(ctx context.Context) error {
	fc.cache.Invalidate(fc.key)
	return fc.FetchMore(ctx)
}

func (fc *FeedController) setDone(err error) {
	fc.mu.Lock()
	fc.loading = false
	fc.err = err
	fc.mu.Unlock()
}
