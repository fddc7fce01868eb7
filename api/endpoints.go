package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"feedsync/config"
	"feedsync/domain/post"
	"feedsync/feed"
	"feedsync/storage"
	"feedsync/wire"
)

type ErrorResponse struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// MakeServer assembles the HTTP surface. Requests are served through the
// simulated-latency wire client, so the configured latency band applies to
// every call crossing this boundary.
func MakeServer(store storage.Storage, engine *feed.Engine, cfg config.Config) *http.Server {
	r := mux.NewRouter()

	backend := wire.NewClient(store, engine,
		time.Duration(cfg.Wire.MinLatencyMs)*time.Millisecond,
		time.Duration(cfg.Wire.MaxLatencyMs)*time.Millisecond)
	handler := &HTTPHandler{storage: store, backend: backend}

	r.HandleFunc("/api/v1/users", handler.CreateUser).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/users/{userId}", handler.GetUser).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/users/{userId}/follow", handler.SetFollow).Methods(http.MethodPut)
	r.HandleFunc("/api/v1/users/{userId}/following", handler.GetFollowing).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/posts", handler.CreatePost).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/posts/{postId}", handler.GetPost).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/posts/{postId}", handler.DeletePost).Methods(http.MethodDelete)
	r.HandleFunc("/api/v1/posts/{postId}/engagement", handler.SetEngagement).Methods(http.MethodPut)
	r.HandleFunc("/api/v1/feed", handler.GetFeed).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/notifications", handler.GetNotifications).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/notifications/read", handler.MarkAllRead).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/reset", handler.Reset).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/events", handler.Events).Methods(http.MethodGet)

	srv := &http.Server{
		Handler:      r,
		Addr:         fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port),
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
	return srv
}

type HTTPHandler struct {
	storage storage.Storage
	backend *wire.Client
}

func writeJSON(rw http.ResponseWriter, status int, body any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	raw, _ := json.Marshal(body)
	_, _ = rw.Write(raw)
}

func writeError(rw http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	resp := ErrorResponse{Message: err.Error()}
	var we *wire.Error
	var ve *storage.ValidationError
	switch {
	case errors.As(err, &we):
		status = statusForCode(we.Code)
		resp.Field = we.Field
		resp.Message = we.Message
	case errors.As(err, &ve):
		status = http.StatusBadRequest
		resp.Field = ve.Field
		resp.Message = ve.Reason
	case errors.Is(err, storage.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, storage.ErrForbiddenAccess):
		status = http.StatusForbidden
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrBadRequest),
		errors.Is(err, feed.ErrUnknownFilter),
		errors.Is(err, feed.ErrMissingSubject):
		status = http.StatusBadRequest
	}
	writeJSON(rw, status, resp)
}

func statusForCode(code wire.Code) int {
	switch code {
	case wire.CodeValidation, wire.CodeBadRequest:
		return http.StatusBadRequest
	case wire.CodeUnauthorized:
		return http.StatusUnauthorized
	case wire.CodeForbidden:
		return http.StatusForbidden
	case wire.CodeNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// viewer returns the acting user id from the opaque credential header, or ""
// when the request carries no session.
func viewer(r *http.Request) string {
	return r.Header.Get("User-Id")
}

func (h *HTTPHandler) CreateUser(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		Handle      string `json:"handle"`
		DisplayName string `json:"displayName"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	u, err := h.backend.CreateUser(r.Context(), body.Handle, body.DisplayName)
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusCreated, u)
}

func (h *HTTPHandler) GetUser(rw http.ResponseWriter, r *http.Request) {
	u, err := h.backend.GetUser(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, u)
}

func (h *HTTPHandler) SetFollow(rw http.ResponseWriter, r *http.Request) {
	follower := viewer(r)
	if follower == "" {
		writeError(rw, storage.ErrUnauthorized)
		return
	}
	var body struct {
		Value bool `json:"value"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	a, b, err := h.backend.SetFollow(r.Context(), follower, mux.Vars(r)["userId"], body.Value)
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"follower": a, "following": b})
}

func (h *HTTPHandler) GetFollowing(rw http.ResponseWriter, r *http.Request) {
	edges, err := h.backend.Following(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"edges": edges})
}

func (h *HTTPHandler) CreatePost(rw http.ResponseWriter, r *http.Request) {
	author := viewer(r)
	if author == "" {
		writeError(rw, storage.ErrUnauthorized)
		return
	}
	var body struct {
		Text     string `json:"text"`
		ParentId string `json:"parentId"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	p, err := h.backend.CreatePost(r.Context(), author, body.Text, body.ParentId)
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusCreated, p)
}

func (h *HTTPHandler) GetPost(rw http.ResponseWriter, r *http.Request) {
	p, err := h.backend.GetPost(r.Context(), mux.Vars(r)["postId"], viewer(r))
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, p)
}

func (h *HTTPHandler) DeletePost(rw http.ResponseWriter, r *http.Request) {
	requester := viewer(r)
	if requester == "" {
		writeError(rw, storage.ErrUnauthorized)
		return
	}
	if err := h.backend.DeletePost(r.Context(), mux.Vars(r)["postId"], requester); err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"deleted": true})
}

func (h *HTTPHandler) SetEngagement(rw http.ResponseWriter, r *http.Request) {
	viewerId := viewer(r)
	if viewerId == "" {
		writeError(rw, storage.ErrUnauthorized)
		return
	}
	var body struct {
		Kind  post.EngagementKind `json:"kind"`
		Value bool                `json:"value"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	p, err := h.backend.SetEngagement(r.Context(), mux.Vars(r)["postId"], viewerId, body.Kind, body.Value)
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, p)
}

func (h *HTTPHandler) GetFeed(rw http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := feed.Request{
		Filter:    feed.Filter(q.Get("filter")),
		SubjectId: q.Get("subject"),
		Cursor:    q.Get("cursor"),
	}
	if req.Filter == "" {
		req.Filter = feed.FilterHome
	}
	if sizeStr := q.Get("limit"); sizeStr != "" {
		size, err := strconv.Atoi(sizeStr)
		if err != nil || size <= 0 {
			writeJSON(rw, http.StatusBadRequest, ErrorResponse{Message: "invalid limit"})
			return
		}
		req.Limit = size
	}
	pg, err := h.backend.QueryFeed(r.Context(), viewer(r), req)
	if err != nil {
		writeError(rw, err)
		return
	}
	resp := map[string]any{"items": pg.Items, "hasMore": pg.HasMore}
	if pg.NextCursor != "" {
		resp["nextCursor"] = pg.NextCursor
	}
	writeJSON(rw, http.StatusOK, resp)
}

func (h *HTTPHandler) GetNotifications(rw http.ResponseWriter, r *http.Request) {
	viewerId := viewer(r)
	if viewerId == "" {
		writeError(rw, storage.ErrUnauthorized)
		return
	}
	ns, err := h.backend.Notifications(r.Context(), viewerId)
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{
		"notifications": ns,
		"unread":        h.storage.UnreadCount(r.Context(), viewerId),
	})
}

func (h *HTTPHandler) MarkAllRead(rw http.ResponseWriter, r *http.Request) {
	viewerId := viewer(r)
	if viewerId == "" {
		writeError(rw, storage.ErrUnauthorized)
		return
	}
	marked, err := h.backend.MarkAllNotificationsRead(r.Context(), viewerId)
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"marked": marked})
}

func (h *HTTPHandler) Reset(rw http.ResponseWriter, r *http.Request) {
	if err := h.backend.ResetAll(r.Context()); err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"reset": true})
}
