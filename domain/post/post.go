package post

const MaxBodyLength = 280

type EngagementKind string

const (
	EngagementLike     EngagementKind = "like"
	EngagementRepost   EngagementKind = "repost"
	EngagementBookmark EngagementKind = "bookmark"
)

func (k EngagementKind) Valid() bool {
	switch k {
	case EngagementLike, EngagementRepost, EngagementBookmark:
		return true
	}
	return false
}

// Post is a viewer-projected snapshot: Liked/Reposted/Bookmarked are the
// flags of the viewer the snapshot was produced for.
type Post struct {
	Id          string `json:"id"`
	AuthorId    string `json:"authorId"`
	Text        string `json:"text"`
	ParentId    string `json:"parentId,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
	LikeCount   int    `json:"likeCount"`
	RepostCount int    `json:"repostCount"`
	ReplyCount  int    `json:"replyCount"`
	Liked       bool   `json:"liked"`
	Reposted    bool   `json:"reposted"`
	Bookmarked  bool   `json:"bookmarked"`
}

func (p *Post) Flag(kind EngagementKind) bool {
	switch kind {
	case EngagementLike:
		return p.Liked
	case EngagementRepost:
		return p.Reposted
	case EngagementBookmark:
		return p.Bookmarked
	}
	return false
}

func (p *Post) SetFlag(kind EngagementKind, value bool) {
	switch kind {
	case EngagementLike:
		p.Liked = value
	case EngagementRepost:
		p.Reposted = value
	case EngagementBookmark:
		p.Bookmarked = value
	}
}

func (p *Post) Counter(kind EngagementKind) int {
	switch kind {
	case EngagementLike:
		return p.LikeCount
	case EngagementRepost:
		return p.RepostCount
	}
	return 0
}

// AddCounter bumps the counter paired with kind, floored at zero. Bookmarks
// carry no public counter.
func (p *Post) AddCounter(kind EngagementKind, delta int) {
	switch kind {
	case EngagementLike:
		p.LikeCount += delta
		if p.LikeCount < 0 {
			p.LikeCount = 0
		}
	case EngagementRepost:
		p.RepostCount += delta
		if p.RepostCount < 0 {
			p.RepostCount = 0
		}
	}
}
