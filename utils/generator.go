package utils

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// NewId returns a ULID string. ULIDs are lexically ordered by creation time,
// which the feed cursor resolution relies on as a tiebreak.
func NewId() string {
	return ulid.Make().String()
}

func GetCurrentTimestamp() int64 {
	return time.Now().UnixMilli()
}
