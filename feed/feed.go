package feed

import (
	"context"

	"feedsync/domain/post"
)

type Filter string

const (
	FilterHome       Filter = "home"
	FilterAuthor     Filter = "author"
	FilterLiked      Filter = "liked"
	FilterBookmarked Filter = "bookmarked"
)

func (f Filter) Valid() bool {
	switch f {
	case FilterHome, FilterAuthor, FilterLiked, FilterBookmarked:
		return true
	}
	return false
}

// NeedsSubject reports whether the filter is meaningless without a subject id
// (the author for FilterAuthor, the viewer for the engagement filters).
func (f Filter) NeedsSubject() bool {
	return f != FilterHome
}

type Request struct {
	Filter    Filter `json:"filter"`
	SubjectId string `json:"subjectId,omitempty"`
	Cursor    string `json:"cursor,omitempty"`
	Limit     int    `json:"limit"`
}

// Page is a window over the filtered, time-descending sequence. NextCursor is
// the id of the last returned post, empty when the page is empty.
type Page struct {
	PostIds    []string `json:"postIds"`
	NextCursor string   `json:"nextCursor,omitempty"`
	HasMore    bool     `json:"hasMore"`
}

// Source is the slice of the authoritative store the engine reads.
type Source interface {
	SelectPostIds(pred func(p *post.Post) bool) []string
	EngagedSet(viewerId string, kind post.EngagementKind) map[string]bool
}

type Engine struct {
	source       Source
	defaultLimit int
	maxLimit     int
}

func NewEngine(source Source, defaultLimit int, maxLimit int) *Engine {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	if maxLimit <= 0 {
		maxLimit = 100
	}
	return &Engine{source: source, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// Query resolves one page of post ids. The cursor is the id of the last post
// of the previous page; a cursor that no longer appears in the filtered
// sequence (deleted concurrently, or filtered out since) restarts pagination
// from the head. That is degraded-but-safe, not an error: consecutive pages
// may repeat or skip items when the sequence changes between requests.
func (e *Engine) Query(_ context.Context, req Request) (*Page, error) {
	if !req.Filter.Valid() {
		return nil, ErrUnknownFilter
	}
	if req.Filter.NeedsSubject() && req.SubjectId == "" {
		return nil, ErrMissingSubject
	}
	limit := req.Limit
	if limit <= 0 {
		limit = e.defaultLimit
	}
	if limit > e.maxLimit {
		limit = e.maxLimit
	}

	ids := e.source.SelectPostIds(e.predicate(req))

	start := 0
	if req.Cursor != "" {
		for i, id := range ids {
			if id == req.Cursor {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(ids) {
		end = len(ids)
	}
	pg := &Page{
		PostIds: append([]string{}, ids[start:end]...),
		HasMore: end < len(ids),
	}
	if len(pg.PostIds) > 0 {
		pg.NextCursor = pg.PostIds[len(pg.PostIds)-1]
	}
	return pg, nil
}

func (e *Engine) predicate(req Request) func(p *post.Post) bool {
	switch req.Filter {
	case FilterAuthor:
		return func(p *post.Post) bool { return p.AuthorId == req.SubjectId }
	case FilterLiked:
		set := e.source.EngagedSet(req.SubjectId, post.EngagementLike)
		return func(p *post.Post) bool { return set[p.Id] }
	case FilterBookmarked:
		set := e.source.EngagedSet(req.SubjectId, post.EngagementBookmark)
		return func(p *post.Post) bool { return set[p.Id] }
	default:
		return func(*post.Post) bool { return true }
	}
}
