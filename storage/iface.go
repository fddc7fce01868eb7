package storage

import (
	"context"

	"feedsync/domain/follow"
	"feedsync/domain/notification"
	"feedsync/domain/post"
	"feedsync/domain/user"
)

type Storage interface {
	CreateUser(ctx context.Context, handle string, displayName string) (*user.User, error)
	GetUserById(ctx context.Context, userId string) (*user.User, error)
	GetUserByHandle(ctx context.Context, handle string) (*user.User, error)

	CreatePost(ctx context.Context, authorId string, text string, parentId string) (*post.Post, error)
	GetPostById(ctx context.Context, postId string, viewerId string) (*post.Post, error)
	SetEngagement(ctx context.Context, postId string, viewerId string, kind post.EngagementKind, value bool) (*post.Post, error)
	DeletePost(ctx context.Context, postId string, requesterId string) error

	SetFollow(ctx context.Context, followerId string, followingId string, value bool) (*user.User, *user.User, error)
	IsFollowing(ctx context.Context, followerId string, followingId string) bool
	Following(ctx context.Context, followerId string) []*follow.Edge

	GetNotifications(ctx context.Context, viewerId string) ([]*notification.Notification, error)
	UnreadCount(ctx context.Context, viewerId string) int
	MarkAllNotificationsRead(ctx context.Context, viewerId string) (int, error)

	Subscribe(listener Listener) (unsubscribe func())
	Seed(ctx context.Context) error
	ResetAll()
}
