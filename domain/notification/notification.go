package notification

type Type string

const (
	TypeLike    Type = "like"
	TypeRepost  Type = "repost"
	TypeReply   Type = "reply"
	TypeFollow  Type = "follow"
	TypeMention Type = "mention"
)

type Notification struct {
	Id          string `json:"id"`
	Type        Type   `json:"type"`
	ActorId     string `json:"actorId"`
	RecipientId string `json:"recipientId"`
	PostId      string `json:"postId,omitempty"`
	Read        bool   `json:"read"`
	CreatedAt   int64  `json:"createdAt"`
}
