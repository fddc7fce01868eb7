package storage

import "sync"

type EventKind string

const (
	EventPostCreated       EventKind = "post_created"
	EventPostDeleted       EventKind = "post_deleted"
	EventEngagementChanged EventKind = "engagement_changed"
	EventFollowChanged     EventKind = "follow_changed"
	EventNotificationsRead EventKind = "notifications_read"
	EventReset             EventKind = "reset"
)

// Event describes one committed store mutation. Listeners run after the
// store lock is released, in subscription order.
type Event struct {
	Kind     EventKind `json:"kind"`
	PostId   string    `json:"postId,omitempty"`
	AuthorId string    `json:"authorId,omitempty"`
	ActorId  string    `json:"actorId,omitempty"`
	TargetId string    `json:"targetId,omitempty"`
}

type Listener func(Event)

type notifier struct {
	mu        sync.Mutex
	nextId    int
	listeners map[int]Listener
}

func newNotifier() *notifier {
	return &notifier{listeners: map[int]Listener{}}
}

func (n *notifier) subscribe(l Listener) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextId
	n.nextId++
	n.listeners[id] = l
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.listeners, id)
	}
}

func (n *notifier) emit(e Event) {
	n.mu.Lock()
	ls := make([]Listener, 0, len(n.listeners))
	for _, l := range n.listeners {
		ls = append(ls, l)
	}
	n.mu.Unlock()
	for _, l := range ls {
		l(e)
	}
}
