package client

import (
	"sync"

	"feedsync/domain/notification"
	"feedsync/domain/post"
	"feedsync/feed"
	"feedsync/wire"
)

// PageKey identifies one cached page set: one exists per distinct
// (filter, subject) combination.
type PageKey struct {
	Filter  feed.Filter
	Subject string
}

type View struct {
	Ids     []string
	Cursor  string
	HasMore bool
	Loaded  bool
}

// PageCache is the client-session cache the sync layer patches and the UI
// reads. Post snapshots are normalized into one entity table, so a field
// patch reaches every cached page referencing the post in a single write.
// The whole cache is ephemeral and rebuilt per session.
type PageCache struct {
	mu          sync.RWMutex
	views       map[PageKey]*View
	posts       map[string]post.Post
	notifs      []notification.Notification
	notifsValid bool

	wmu      sync.Mutex
	nextId   int
	watchers map[int]func()
}

func NewPageCache() *PageCache {
	return &PageCache{
		views:    make(map[PageKey]*View),
		posts:    make(map[string]post.Post),
		watchers: make(map[int]func()),
	}
}

// Subscribe registers fn to run after every cache change. The caller owns
// the returned unsubscribe.
func (pc *PageCache) Subscribe(fn func()) func() {
	pc.wmu.Lock()
	defer pc.wmu.Unlock()
	id := pc.nextId
	pc.nextId++
	pc.watchers[id] = fn
	return func() {
		pc.wmu.Lock()
		defer pc.wmu.Unlock()
		delete(pc.watchers, id)
	}
}

func (pc *PageCache) notifyWatchers() {
	pc.wmu.Lock()
	fns := make([]func(), 0, len(pc.watchers))
	for _, fn := range pc.watchers {
		fns = append(fns, fn)
	}
	pc.wmu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// MergePage folds a fetched page into the view for key. A view that is not
// loaded (fresh or invalidated) is replaced; a loaded view is extended,
// skipping ids it already lists.
func (pc *PageCache) MergePage(key PageKey, pg *wire.FeedPage) {
	pc.mu.Lock()
	v := pc.views[key]
	if v == nil || !v.Loaded {
		v = &View{Loaded: true}
		pc.views[key] = v
	}
	seen := make(map[string]bool, len(v.Ids))
	for _, id := range v.Ids {
		seen[id] = true
	}
	for _, p := range pg.Items {
		pc.posts[p.Id] = p
		if !seen[p.Id] {
			v.Ids = append(v.Ids, p.Id)
		}
	}
	v.Cursor = pg.NextCursor
	v.HasMore = pg.HasMore
	pc.mu.Unlock()
	pc.notifyWatchers()
}

func (pc *PageCache) View(key PageKey) (View, bool) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	v, ok := pc.views[key]
	if !ok {
		return View{}, false
	}
	cp := *v
	cp.Ids = append([]string{}, v.Ids...)
	return cp, true
}

func (pc *PageCache) Post(id string) (post.Post, bool) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	p, ok := pc.posts[id]
	return p, ok
}

// PatchPost applies fn to the cached snapshot, if present.
func (pc *PageCache) PatchPost(id string, fn func(p *post.Post)) bool {
	pc.mu.Lock()
	p, ok := pc.posts[id]
	if !ok {
		pc.mu.Unlock()
		return false
	}
	fn(&p)
	pc.posts[id] = p
	pc.mu.Unlock()
	pc.notifyWatchers()
	return true
}

// SetPost overwrites the cached snapshot with an authoritative one.
func (pc *PageCache) SetPost(p post.Post) {
	pc.mu.Lock()
	if _, ok := pc.posts[p.Id]; !ok {
		pc.mu.Unlock()
		return
	}
	pc.posts[p.Id] = p
	pc.mu.Unlock()
	pc.notifyWatchers()
}

// RemovePost drops the snapshot and patches the id out of every view
// listing it.
func (pc *PageCache) RemovePost(id string) {
	pc.mu.Lock()
	delete(pc.posts, id)
	for _, v := range pc.views {
		for i, got := range v.Ids {
			if got == id {
				v.Ids = append(v.Ids[:i], v.Ids[i+1:]...)
				break
			}
		}
		if v.Cursor == id {
			// next fetch restarts from the head; degraded but safe
			v.Cursor = ""
		}
	}
	pc.mu.Unlock()
	pc.notifyWatchers()
}

// Invalidate discards the view so the next fetch refetches from the head.
// The entity table is left alone; other views may still reference it.
func (pc *PageCache) Invalidate(key PageKey) {
	pc.mu.Lock()
	if v, ok := pc.views[key]; ok {
		v.Loaded = false
		v.Ids = nil
		v.Cursor = ""
		v.HasMore = false
	}
	pc.mu.Unlock()
	pc.notifyWatchers()
}

func (pc *PageCache) KeysContaining(id string) []PageKey {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	var keys []PageKey
	for key, v := range pc.views {
		for _, got := range v.Ids {
			if got == id {
				keys = append(keys, key)
				break
			}
		}
	}
	return keys
}

func (pc *PageCache) SetNotifications(ns []notification.Notification) {
	pc.mu.Lock()
	pc.notifs = append([]notification.Notification{}, ns...)
	pc.notifsValid = true
	pc.mu.Unlock()
	pc.notifyWatchers()
}

func (pc *PageCache) Notifications() ([]notification.Notification, bool) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	if !pc.notifsValid {
		return nil, false
	}
	return append([]notification.Notification{}, pc.notifs...), true
}

func (pc *PageCache) InvalidateNotifications() {
	pc.mu.Lock()
	pc.notifs = nil
	pc.notifsValid = false
	pc.mu.Unlock()
	pc.notifyWatchers()
}

func (pc *PageCache) Reset() {
	pc.mu.Lock()
	pc.views = make(map[PageKey]*View)
	pc.posts = make(map[string]post.Post)
	pc.notifs = nil
	pc.notifsValid = false
	pc.mu.Unlock()
	pc.notifyWatchers()
}
