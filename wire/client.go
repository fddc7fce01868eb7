package wire

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/golang/glog"

	"feedsync/domain/follow"
	"feedsync/domain/notification"
	"feedsync/domain/post"
	"feedsync/domain/user"
	"feedsync/feed"
	"feedsync/storage"
)

// FeedPage is the hydrated pagination response: the engine's id window with
// each post resolved to a viewer-projected snapshot.
type FeedPage struct {
	Items      []post.Post `json:"items"`
	NextCursor string      `json:"nextCursor,omitempty"`
	HasMore    bool        `json:"hasMore"`
}

// Client simulates the authoritative round-trip: every call sleeps a
// pseudo-random latency drawn from [minLatency, maxLatency] before touching
// the store. The sync layer must tolerate the delay being arbitrary; it is
// never zero in production configuration and carries no upper bound the
// client may rely on.
type Client struct {
	store      storage.Storage
	engine     *feed.Engine
	minLatency time.Duration
	maxLatency time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func NewClient(store storage.Storage, engine *feed.Engine, minLatency, maxLatency time.Duration) *Client {
	if maxLatency < minLatency {
		maxLatency = minLatency
	}
	return &Client{
		store:      store,
		engine:     engine,
		minLatency: minLatency,
		maxLatency: maxLatency,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Client) delay(ctx context.Context) error {
	d := c.minLatency
	if span := c.maxLatency - c.minLatency; span > 0 {
		c.mu.Lock()
		d += time.Duration(c.rng.Int63n(int64(span) + 1))
		c.mu.Unlock()
	}
	if d <= 0 {
		return ctx.Err()
	}
	glog.V(2).Infof("[wire] simulated latency %s", d)
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) CreateUser(ctx context.Context, handle string, displayName string) (*user.User, error) {
	if err := c.delay(ctx); err != nil {
		return nil, wrap(err)
	}
	u, err := c.store.CreateUser(ctx, handle, displayName)
	return u, wrap(err)
}

func (c *Client) Following(ctx context.Context, followerId string) ([]*follow.Edge, error) {
	if err := c.delay(ctx); err != nil {
		return nil, wrap(err)
	}
	if _, err := c.store.GetUserById(ctx, followerId); err != nil {
		return nil, wrap(err)
	}
	return c.store.Following(ctx, followerId), nil
}

func (c *Client) CreatePost(ctx context.Context, authorId string, text string, parentId string) (*post.Post, error) {
	if err := c.delay(ctx); err != nil {
		return nil, wrap(err)
	}
	p, err := c.store.CreatePost(ctx, authorId, text, parentId)
	return p, wrap(err)
}

func (c *Client) GetPost(ctx context.Context, postId string, viewerId string) (*post.Post, error) {
	if err := c.delay(ctx); err != nil {
		return nil, wrap(err)
	}
	p, err := c.store.GetPostById(ctx, postId, viewerId)
	return p, wrap(err)
}

func (c *Client) SetEngagement(ctx context.Context, postId string, viewerId string, kind post.EngagementKind, value bool) (*post.Post, error) {
	if err := c.delay(ctx); err != nil {
		return nil, wrap(err)
	}
	p, err := c.store.SetEngagement(ctx, postId, viewerId, kind, value)
	return p, wrap(err)
}

func (c *Client) DeletePost(ctx context.Context, postId string, requesterId string) error {
	if err := c.delay(ctx); err != nil {
		return wrap(err)
	}
	return wrap(c.store.DeletePost(ctx, postId, requesterId))
}

func (c *Client) SetFollow(ctx context.Context, followerId string, followingId string, value bool) (*user.User, *user.User, error) {
	if err := c.delay(ctx); err != nil {
		return nil, nil, wrap(err)
	}
	a, b, err := c.store.SetFollow(ctx, followerId, followingId, value)
	return a, b, wrap(err)
}

func (c *Client) GetUser(ctx context.Context, userId string) (*user.User, error) {
	if err := c.delay(ctx); err != nil {
		return nil, wrap(err)
	}
	u, err := c.store.GetUserById(ctx, userId)
	return u, wrap(err)
}

func (c *Client) Notifications(ctx context.Context, viewerId string) ([]*notification.Notification, error) {
	if err := c.delay(ctx); err != nil {
		return nil, wrap(err)
	}
	ns, err := c.store.GetNotifications(ctx, viewerId)
	return ns, wrap(err)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context, viewerId string) (int, error) {
	if err := c.delay(ctx); err != nil {
		return 0, wrap(err)
	}
	n, err := c.store.MarkAllNotificationsRead(ctx, viewerId)
	return n, wrap(err)
}

// QueryFeed runs the id-level query and hydrates each id for viewerId. A post
// deleted between the id query and hydration is skipped rather than failing
// the page.
func (c *Client) QueryFeed(ctx context.Context, viewerId string, req feed.Request) (*FeedPage, error) {
	if err := c.delay(ctx); err != nil {
		return nil, wrap(err)
	}
	pg, err := c.engine.Query(ctx, req)
	if err != nil {
		return nil, wrap(err)
	}
	out := &FeedPage{
		Items:      make([]post.Post, 0, len(pg.PostIds)),
		NextCursor: pg.NextCursor,
		HasMore:    pg.HasMore,
	}
	for _, id := range pg.PostIds {
		p, err := c.store.GetPostById(ctx, id, viewerId)
		if err != nil {
			continue
		}
		out.Items = append(out.Items, *p)
	}
	return out, nil
}

func (c *Client) ResetAll(ctx context.Context) error {
	if err := c.delay(ctx); err != nil {
		return wrap(err)
	}
	c.store.ResetAll()
	return nil
}
