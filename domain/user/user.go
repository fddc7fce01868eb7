package user

// Followers and Following are denormalized from the follow-edge collection;
// the store corrects them on every net edge change.
type User struct {
	Id          string `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	CreatedAt   int64  `json:"createdAt"`
}
