package follow

// Edge is directional: A following B is independent of B following A.
// (FollowerId, FollowingId) is unique per pair.
type Edge struct {
	FollowerId  string `json:"followerId"`
	FollowingId string `json:"followingId"`
	CreatedAt   int64  `json:"createdAt"`
}
