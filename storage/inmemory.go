package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"feedsync/domain/follow"
	"feedsync/domain/notification"
	"feedsync/domain/post"
	"feedsync/domain/user"
	"feedsync/utils"
)

// InMemoryStorage holds the authoritative collections. All field mutations
// happen under one lock acquisition, so a counter and its paired flag are
// never observed torn.
type InMemoryStorage struct {
	mu         sync.RWMutex
	posts      map[string]*post.Post
	order      []string // post ids, newest first
	users      map[string]*user.User
	handleToId map[string]string
	likes      map[string]map[string]bool // postId -> viewer set
	reposts    map[string]map[string]bool
	bookmarks  map[string]map[string]bool
	follows    map[string]map[string]*follow.Edge // followerId -> followingId -> edge
	notifs     []*notification.Notification
	events     *notifier
}

func New() *InMemoryStorage {
	s := &InMemoryStorage{events: newNotifier()}
	s.resetLocked()
	return s
}

func (s *InMemoryStorage) resetLocked() {
	s.posts = make(map[string]*post.Post)
	s.order = nil
	s.users = make(map[string]*user.User)
	s.handleToId = make(map[string]string)
	s.likes = make(map[string]map[string]bool)
	s.reposts = make(map[string]map[string]bool)
	s.bookmarks = make(map[string]map[string]bool)
	s.follows = make(map[string]map[string]*follow.Edge)
	s.notifs = nil
}

func (s *InMemoryStorage) Subscribe(listener Listener) func() {
	return s.events.subscribe(listener)
}

func (s *InMemoryStorage) ResetAll() {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
	s.events.emit(Event{Kind: EventReset})
}

// Seed populates a small demo dataset: two users, a followed author, a post
// with a reply, and one like. Fails if the handles are already taken.
func (s *InMemoryStorage) Seed(ctx context.Context) error {
	alice, err := s.CreateUser(ctx, "alice", "Alice")
	if err != nil {
		return err
	}
	bob, err := s.CreateUser(ctx, "bob", "Bob")
	if err != nil {
		return err
	}
	if _, _, err := s.SetFollow(ctx, bob.Id, alice.Id, true); err != nil {
		return err
	}
	first, err := s.CreatePost(ctx, alice.Id, "hello from feedsync", "")
	if err != nil {
		return err
	}
	if _, err := s.CreatePost(ctx, bob.Id, "nice to be here", first.Id); err != nil {
		return err
	}
	_, err = s.SetEngagement(ctx, first.Id, bob.Id, post.EngagementLike, true)
	return err
}

func (s *InMemoryStorage) CreateUser(_ context.Context, handle string, displayName string) (*user.User, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, &ValidationError{Field: "handle", Reason: "must not be empty"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.handleToId[handle]; taken {
		return nil, &ValidationError{Field: "handle", Reason: "already taken"}
	}
	u := &user.User{
		Id:          utils.NewId(),
		Handle:      handle,
		DisplayName: displayName,
		CreatedAt:   utils.GetCurrentTimestamp(),
	}
	s.users[u.Id] = u
	s.handleToId[handle] = u.Id
	cp := *u
	return &cp, nil
}

func (s *InMemoryStorage) GetUserById(_ context.Context, userId string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userId]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *InMemoryStorage) GetUserByHandle(ctx context.Context, handle string) (*user.User, error) {
	s.mu.RLock()
	id, ok := s.handleToId[handle]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.GetUserById(ctx, id)
}

func (s *InMemoryStorage) CreatePost(_ context.Context, authorId string, text string, parentId string) (*post.Post, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Field: "body", Reason: "must not be empty"}
	}
	if len([]rune(text)) > post.MaxBodyLength {
		return nil, &ValidationError{Field: "body", Reason: "exceeds maximum length"}
	}
	s.mu.Lock()
	author, ok := s.users[authorId]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	var parent *post.Post
	if parentId != "" {
		parent, ok = s.posts[parentId]
		if !ok {
			s.mu.Unlock()
			return nil, ErrNotFound
		}
	}
	p := &post.Post{
		Id:        utils.NewId(),
		AuthorId:  author.Id,
		Text:      text,
		ParentId:  parentId,
		CreatedAt: utils.GetCurrentTimestamp(),
	}
	s.posts[p.Id] = p
	s.order = append([]string{p.Id}, s.order...)
	if parent != nil {
		parent.ReplyCount++
		if parent.AuthorId != authorId {
			s.addNotificationLocked(notification.TypeReply, authorId, parent.AuthorId, p.Id)
		}
	}
	cp := *p
	s.mu.Unlock()
	s.events.emit(Event{Kind: EventPostCreated, PostId: cp.Id, AuthorId: cp.AuthorId})
	return &cp, nil
}

func (s *InMemoryStorage) GetPostById(_ context.Context, postId string, viewerId string) (*post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[postId]
	if !ok {
		return nil, ErrNotFound
	}
	return s.snapshotLocked(p, viewerId), nil
}

func (s *InMemoryStorage) SetEngagement(_ context.Context, postId string, viewerId string, kind post.EngagementKind, value bool) (*post.Post, error) {
	if !kind.Valid() {
		return nil, ErrBadRequest
	}
	s.mu.Lock()
	p, ok := s.posts[postId]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if _, ok := s.users[viewerId]; !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	set := s.engagementSetLocked(kind)
	current := set[postId][viewerId]
	if current == value {
		// idempotent no-op
		snap := s.snapshotLocked(p, viewerId)
		s.mu.Unlock()
		return snap, nil
	}
	if value {
		if set[postId] == nil {
			set[postId] = make(map[string]bool)
		}
		set[postId][viewerId] = true
		p.AddCounter(kind, 1)
		if p.AuthorId != viewerId {
			switch kind {
			case post.EngagementLike:
				s.addNotificationLocked(notification.TypeLike, viewerId, p.AuthorId, postId)
			case post.EngagementRepost:
				s.addNotificationLocked(notification.TypeRepost, viewerId, p.AuthorId, postId)
			}
		}
	} else {
		delete(set[postId], viewerId)
		p.AddCounter(kind, -1)
	}
	snap := s.snapshotLocked(p, viewerId)
	s.mu.Unlock()
	s.events.emit(Event{Kind: EventEngagementChanged, PostId: postId, ActorId: viewerId})
	return snap, nil
}

func (s *InMemoryStorage) DeletePost(_ context.Context, postId string, requesterId string) error {
	s.mu.Lock()
	p, ok := s.posts[postId]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if p.AuthorId != requesterId {
		s.mu.Unlock()
		return ErrForbiddenAccess
	}
	delete(s.posts, postId)
	for i, id := range s.order {
		if id == postId {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	delete(s.likes, postId)
	delete(s.reposts, postId)
	delete(s.bookmarks, postId)
	if p.ParentId != "" {
		if parent, ok := s.posts[p.ParentId]; ok && parent.ReplyCount > 0 {
			parent.ReplyCount--
		}
	}
	kept := s.notifs[:0]
	for _, n := range s.notifs {
		if n.PostId != postId {
			kept = append(kept, n)
		}
	}
	s.notifs = kept
	authorId := p.AuthorId
	s.mu.Unlock()
	s.events.emit(Event{Kind: EventPostDeleted, PostId: postId, AuthorId: authorId})
	return nil
}

func (s *InMemoryStorage) SetFollow(_ context.Context, followerId string, followingId string, value bool) (*user.User, *user.User, error) {
	if followerId == followingId {
		return nil, nil, ErrBadRequest
	}
	s.mu.Lock()
	follower, ok := s.users[followerId]
	if !ok {
		s.mu.Unlock()
		return nil, nil, ErrNotFound
	}
	following, ok := s.users[followingId]
	if !ok {
		s.mu.Unlock()
		return nil, nil, ErrNotFound
	}
	current := s.follows[followerId][followingId] != nil
	if current != value {
		if value {
			if s.follows[followerId] == nil {
				s.follows[followerId] = make(map[string]*follow.Edge)
			}
			s.follows[followerId][followingId] = &follow.Edge{
				FollowerId:  followerId,
				FollowingId: followingId,
				CreatedAt:   utils.GetCurrentTimestamp(),
			}
			follower.Following++
			following.Followers++
			s.addNotificationLocked(notification.TypeFollow, followerId, followingId, "")
		} else {
			delete(s.follows[followerId], followingId)
			if follower.Following > 0 {
				follower.Following--
			}
			if following.Followers > 0 {
				following.Followers--
			}
		}
	}
	a, b := *follower, *following
	s.mu.Unlock()
	if current != value {
		s.events.emit(Event{Kind: EventFollowChanged, ActorId: followerId, TargetId: followingId})
	}
	return &a, &b, nil
}

func (s *InMemoryStorage) IsFollowing(_ context.Context, followerId string, followingId string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.follows[followerId][followingId] != nil
}

// Following returns the viewer's outgoing edges, most recent first.
func (s *InMemoryStorage) Following(_ context.Context, followerId string) []*follow.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*follow.Edge, 0, len(s.follows[followerId]))
	for _, e := range s.follows[followerId] {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out
}

func (s *InMemoryStorage) GetNotifications(_ context.Context, viewerId string) ([]*notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.users[viewerId]; !ok {
		return nil, ErrNotFound
	}
	out := make([]*notification.Notification, 0)
	for _, n := range s.notifs {
		if n.RecipientId == viewerId {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemoryStorage) UnreadCount(_ context.Context, viewerId string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.notifs {
		if n.RecipientId == viewerId && !n.Read {
			count++
		}
	}
	return count
}

func (s *InMemoryStorage) MarkAllNotificationsRead(_ context.Context, viewerId string) (int, error) {
	s.mu.Lock()
	if _, ok := s.users[viewerId]; !ok {
		s.mu.Unlock()
		return 0, ErrNotFound
	}
	marked := 0
	for _, n := range s.notifs {
		if n.RecipientId == viewerId && !n.Read {
			n.Read = true
			marked++
		}
	}
	s.mu.Unlock()
	if marked > 0 {
		s.events.emit(Event{Kind: EventNotificationsRead, ActorId: viewerId})
	}
	return marked, nil
}

// SelectPostIds walks the feed order (newest first) and returns the ids whose
// canonical post passes pred. The posts handed to pred carry no viewer flags.
func (s *InMemoryStorage) SelectPostIds(pred func(p *post.Post) bool) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.order))
	for _, id := range s.order {
		if pred(s.posts[id]) {
			out = append(out, id)
		}
	}
	return out
}

// EngagedSet returns a copy of the post-id set the viewer has engaged with.
func (s *InMemoryStorage) EngagedSet(viewerId string, kind post.EngagementKind) map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var src map[string]map[string]bool
	switch kind {
	case post.EngagementLike:
		src = s.likes
	case post.EngagementRepost:
		src = s.reposts
	case post.EngagementBookmark:
		src = s.bookmarks
	default:
		return nil
	}
	out := make(map[string]bool)
	for postId, viewers := range src {
		if viewers[viewerId] {
			out[postId] = true
		}
	}
	return out
}

func (s *InMemoryStorage) engagementSetLocked(kind post.EngagementKind) map[string]map[string]bool {
	switch kind {
	case post.EngagementRepost:
		return s.reposts
	case post.EngagementBookmark:
		return s.bookmarks
	default:
		return s.likes
	}
}

func (s *InMemoryStorage) snapshotLocked(p *post.Post, viewerId string) *post.Post {
	cp := *p
	if viewerId != "" {
		cp.Liked = s.likes[p.Id][viewerId]
		cp.Reposted = s.reposts[p.Id][viewerId]
		cp.Bookmarked = s.bookmarks[p.Id][viewerId]
	}
	return &cp
}

func (s *InMemoryStorage) addNotificationLocked(t notification.Type, actorId string, recipientId string, postId string) {
	n := &notification.Notification{
		Id:          utils.NewId(),
		Type:        t,
		ActorId:     actorId,
		RecipientId: recipientId,
		PostId:      postId,
		CreatedAt:   utils.GetCurrentTimestamp(),
	}
	s.notifs = append([]*notification.Notification{n}, s.notifs...)
}
