package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readrss/readrss/app/feed"
	"github.com/readrss/readrss/app/poller"
	"github.com/readrss/readrss/app/store"
)

const handlerTestRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Handler Test Feed</title>
    <link>https://example.com</link>
    <item>
      <title>First</title>
      <link>https://example.com/1</link>
      <guid>guid-1</guid>
      <pubDate>Mon, 21 Oct 2024 07:28:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

type testEnv struct {
	router   *gin.Engine
	feeds    *store.FeedStore
	articles *store.ArticleStore
	read     *store.ReadStore
}

func newTestEnv(t *testing.T, apiAccessKey string, cascadeOnRemove bool) *testEnv {
	t.Helper()
	dir := t.TempDir()

	feeds := store.OpenFeedStore(filepath.Join(dir, "feeds.json"))
	seen := store.NewSeenStore()
	articles := store.OpenArticleStore(filepath.Join(dir, "articles_store.json"))
	read := store.OpenReadStore(filepath.Join(dir, "read_store.json"))
	fetcher := feed.NewFetcher(&http.Client{}, feed.NewParser(), "readrss-test/1.0", 5*time.Second)

	p := poller.New(feeds, seen, articles, fetcher, poller.Config{
		Interval:     time.Hour,
		MaxRetries:   0,
		RetryBackoff: time.Millisecond,
	})

	recommendations := []feed.Recommendation{
		{ID: "hn", Title: "Hacker News", URL: "https://news.ycombinator.com/rss"},
	}
	handler := NewHandler(feeds, seen, articles, read, p, recommendations, cascadeOnRemove)

	return &testEnv{
		router:   NewServer(handler, apiAccessKey),
		feeds:    feeds,
		articles: articles,
		read:     read,
	}
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestGetHealth(t *testing.T) {
	env := newTestEnv(t, "", false)

	w := env.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp, "timestamp")
	assert.EqualValues(t, 0, resp["feeds"])
}

func TestAddAndListFeeds(t *testing.T) {
	env := newTestEnv(t, "", false)

	w := env.do(http.MethodPost, "/api/feeds", AddFeedRequest{
		ID: "f1", Title: "Feed 1", URL: "https://example.com/feed",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(http.MethodGet, "/api/feeds", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var feeds []feed.Descriptor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &feeds))
	require.Len(t, feeds, 1)
	assert.Equal(t, "f1", feeds[0].ID)
}

func TestAddFeedRejectsMissingURL(t *testing.T) {
	env := newTestEnv(t, "", false)

	w := env.do(http.MethodPost, "/api/feeds", map[string]string{"id": "f1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRemoveFeedKeepsArticlesByDefault(t *testing.T) {
	env := newTestEnv(t, "", false)
	env.feeds.Add(feed.Descriptor{ID: "f1", Title: "Feed 1", URL: "https://example.com/feed"})
	entry := feed.Entry{FeedID: "f1", GUID: "guid-1", Title: "First"}
	env.articles.Upsert("f1", []feed.Entry{entry})
	env.read.MarkRead(entry)

	w := env.do(http.MethodDelete, "/api/feeds/f1", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Empty(t, env.feeds.List())
	assert.Len(t, env.articles.List("f1"), 1, "cached articles survive removal")
	assert.False(t, env.read.IsRead(entry), "read state is always cleared")
}

func TestRemoveFeedCascades(t *testing.T) {
	env := newTestEnv(t, "", true)
	env.feeds.Add(feed.Descriptor{ID: "f1", Title: "Feed 1", URL: "https://example.com/feed"})
	env.articles.Upsert("f1", []feed.Entry{{FeedID: "f1", GUID: "guid-1"}})

	w := env.do(http.MethodDelete, "/api/feeds/f1", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, env.articles.List("f1"))
}

func TestListArticlesCarriesReadState(t *testing.T) {
	env := newTestEnv(t, "", false)
	readEntry := feed.Entry{FeedID: "f1", GUID: "guid-1", Title: "Read one"}
	unreadEntry := feed.Entry{FeedID: "f1", GUID: "guid-2", Title: "Unread one"}
	env.articles.Upsert("f1", []feed.Entry{readEntry, unreadEntry})
	env.read.MarkRead(readEntry)

	w := env.do(http.MethodGet, "/api/feeds/f1/articles", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var articles []Article
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &articles))
	require.Len(t, articles, 2)

	byGUID := map[string]bool{}
	for _, a := range articles {
		byGUID[a.GUID] = a.Read
	}
	assert.True(t, byGUID["guid-1"])
	assert.False(t, byGUID["guid-2"])
}

func TestMarkRead(t *testing.T) {
	env := newTestEnv(t, "", false)
	entry := feed.Entry{FeedID: "f1", GUID: "guid-1", Title: "First"}

	w := env.do(http.MethodPost, "/api/articles/read", entry)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp["read"])
	assert.True(t, resp["updated"])

	// Marking again reports no update.
	w = env.do(http.MethodPost, "/api/articles/read", entry)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp["read"])
	assert.False(t, resp["updated"])
}

func TestMarkReadRequiresFeedID(t *testing.T) {
	env := newTestEnv(t, "", false)

	w := env.do(http.MethodPost, "/api/articles/read", feed.Entry{GUID: "guid-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefreshFeed(t *testing.T) {
	feedServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(handlerTestRSS))
	}))
	defer feedServer.Close()

	env := newTestEnv(t, "", false)
	env.feeds.Add(feed.Descriptor{ID: "f1", Title: "Feed 1", URL: feedServer.URL})

	w := env.do(http.MethodPost, "/api/feeds/f1/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var events []poller.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Len(t, events[0].Entries, 1)

	// A second refresh of the unchanged feed finds nothing new.
	w = env.do(http.MethodPost, "/api/feeds/f1/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	assert.Empty(t, events)
}

func TestRefreshUnknownFeedReturnsNotFound(t *testing.T) {
	env := newTestEnv(t, "", false)

	w := env.do(http.MethodPost, "/api/feeds/nope/refresh", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRecommendations(t *testing.T) {
	env := newTestEnv(t, "", false)

	w := env.do(http.MethodGet, "/api/recommendations", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var recommendations []feed.Recommendation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recommendations))
	require.Len(t, recommendations, 1)
	assert.Equal(t, "hn", recommendations[0].ID)
}

func TestAPIKeyAuthentication(t *testing.T) {
	env := newTestEnv(t, "secret-key", false)

	w := env.do(http.MethodGet, "/api/feeds", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/feeds", nil)
	req.Header.Set("X-API-Key", "wrong-key")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/feeds", nil)
	req.Header.Set("X-API-Key", "secret-key")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/feeds", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthBypassesAuthentication(t *testing.T) {
	env := newTestEnv(t, "secret-key", false)

	w := env.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
