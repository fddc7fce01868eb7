package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedsync/config"
	"feedsync/feed"
	"feedsync/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, storage.Storage) {
	t.Helper()
	store := storage.New()
	engine := feed.NewEngine(store, 10, 100)
	srv := MakeServer(store, engine, config.Config{})
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts, store
}

func doJSON(t *testing.T, method, url, userId string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if userId != "" {
		req.Header.Set("User-Id", userId)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var parsed map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&parsed)
	return resp, parsed
}

func createUser(t *testing.T, ts *httptest.Server, handle string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/users", "", map[string]any{
		"handle": handle, "displayName": handle,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["id"].(string)
}

func TestCreateAndFetchPost(t *testing.T) {
	ts, _ := newTestServer(t)
	alice := createUser(t, ts, "alice")

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/posts", alice, map[string]any{"text": "hello"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	postId := body["id"].(string)

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/v1/posts/"+postId, alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", body["text"])
}

func TestCreatePostRequiresSession(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/posts", "", map[string]any{"text": "hello"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestValidationSurfacesField(t *testing.T) {
	ts, _ := newTestServer(t)
	alice := createUser(t, ts, "alice")

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/posts", alice, map[string]any{"text": ""})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "body", body["field"])
}

func TestDeleteForbiddenForNonAuthor(t *testing.T) {
	ts, _ := newTestServer(t)
	alice := createUser(t, ts, "alice")
	bob := createUser(t, ts, "bob")

	_, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/posts", alice, map[string]any{"text": "hello"})
	postId := body["id"].(string)

	resp, _ := doJSON(t, http.MethodDelete, ts.URL+"/api/v1/posts/"+postId, bob, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/posts/"+postId, alice, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/v1/posts/"+postId, alice, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEngagementEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	alice := createUser(t, ts, "alice")
	bob := createUser(t, ts, "bob")
	_, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/posts", alice, map[string]any{"text": "hello"})
	postId := body["id"].(string)

	resp, body := doJSON(t, http.MethodPut, ts.URL+"/api/v1/posts/"+postId+"/engagement", bob, map[string]any{
		"kind": "like", "value": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["liked"])
	assert.Equal(t, float64(1), body["likeCount"])
}

func TestFeedEndpointPaginates(t *testing.T) {
	ts, _ := newTestServer(t)
	alice := createUser(t, ts, "alice")
	for i := 0; i < 5; i++ {
		resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/posts", alice, map[string]any{"text": fmt.Sprintf("post %d", i)})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/feed?limit=2", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := body["items"].([]any)
	assert.Len(t, items, 2)
	assert.Equal(t, true, body["hasMore"])
	cursor := body["nextCursor"].(string)

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/v1/feed?limit=2&cursor="+cursor, alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["items"].([]any), 2)
	assert.Equal(t, true, body["hasMore"])

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/v1/feed?limit=0", alice, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNotificationsFlow(t *testing.T) {
	ts, _ := newTestServer(t)
	alice := createUser(t, ts, "alice")
	bob := createUser(t, ts, "bob")
	_, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/posts", alice, map[string]any{"text": "hello"})
	postId := body["id"].(string)
	_, _ = doJSON(t, http.MethodPut, ts.URL+"/api/v1/posts/"+postId+"/engagement", bob, map[string]any{"kind": "like", "value": true})

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/notifications", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["unread"])

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/notifications/read", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["marked"])

	_, body = doJSON(t, http.MethodGet, ts.URL+"/api/v1/notifications", alice, nil)
	assert.Equal(t, float64(0), body["unread"])
}

func TestConfiguredLatencyBandApplies(t *testing.T) {
	store := storage.New()
	engine := feed.NewEngine(store, 10, 100)
	cfg := config.Config{}
	cfg.Wire.MinLatencyMs = 30
	cfg.Wire.MaxLatencyMs = 30
	srv := MakeServer(store, engine, cfg)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	start := time.Now()
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/users", "", map[string]any{
		"handle": "alice", "displayName": "Alice",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestResetEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	alice := createUser(t, ts, "alice")

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/reset", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/v1/users/"+alice, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
