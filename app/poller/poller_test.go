package poller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readrss/readrss/app/feed"
	"github.com/readrss/readrss/app/store"
)

const pollerTestRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Poller Test Feed</title>
    <link>https://example.com</link>
    <item>
      <title>First</title>
      <link>https://example.com/1</link>
      <guid>guid-1</guid>
      <pubDate>Mon, 21 Oct 2024 07:28:00 GMT</pubDate>
    </item>
    <item>
      <title>Second</title>
      <link>https://example.com/2</link>
      <guid>guid-2</guid>
      <pubDate>Mon, 21 Oct 2024 08:28:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func newTestPoller(t *testing.T, interval time.Duration) *Poller {
	t.Helper()
	dir := t.TempDir()

	feeds := store.OpenFeedStore(filepath.Join(dir, "feeds.json"))
	seen := store.NewSeenStore()
	articles := store.OpenArticleStore(filepath.Join(dir, "articles_store.json"))
	fetcher := feed.NewFetcher(&http.Client{}, feed.NewParser(), "readrss-test/1.0", 5*time.Second)

	return New(feeds, seen, articles, fetcher, Config{
		Interval:     interval,
		MaxRetries:   0,
		RetryBackoff: time.Millisecond,
	})
}

func TestPollOnceEmitsOnlyUnseenEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(pollerTestRSS))
	}))
	defer server.Close()

	p := newTestPoller(t, time.Hour)
	descriptors := []feed.Descriptor{{ID: "f1", Title: "Test", URL: server.URL}}

	events := p.PollOnce(context.Background(), descriptors)
	require.Len(t, events, 1)
	assert.Equal(t, "f1", events[0].FeedID)
	assert.Len(t, events[0].Entries, 2)

	// Identical payload on the next poll yields nothing new.
	events = p.PollOnce(context.Background(), descriptors)
	assert.Empty(t, events)

	assert.Len(t, p.articles.List("f1"), 2)
}

func TestPollOnceSkipsFailingFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pollerTestRSS))
	}))
	defer server.Close()

	p := newTestPoller(t, time.Hour)
	descriptors := []feed.Descriptor{
		{ID: "broken", Title: "Broken", URL: "ftp://example.com/feed"},
		{ID: "f1", Title: "Test", URL: server.URL},
	}

	events := p.PollOnce(context.Background(), descriptors)
	require.Len(t, events, 1, "failing feed must not abort the cycle")
	assert.Equal(t, "f1", events[0].FeedID)
	assert.Empty(t, p.articles.List("broken"))
}

func TestStartRunsFirstCycleImmediately(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pollerTestRSS))
	}))
	defer server.Close()

	// With an hour-long interval, the only way an event can arrive this soon
	// is the startup cycle.
	p := newTestPoller(t, time.Hour)
	p.feeds.Add(feed.Descriptor{ID: "f1", Title: "Test", URL: server.URL})

	p.Start()
	defer p.Stop()

	select {
	case evt := <-p.Events():
		assert.Equal(t, "f1", evt.FeedID)
		assert.Len(t, evt.Entries, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("expected the startup cycle to emit an event right after Start")
	}
}

func TestScheduledLoopDeliversEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pollerTestRSS))
	}))
	defer server.Close()

	p := newTestPoller(t, 20*time.Millisecond)
	p.feeds.Add(feed.Descriptor{ID: "f1", Title: "Test", URL: server.URL})

	p.Start()
	defer p.Stop()

	select {
	case evt := <-p.Events():
		assert.Equal(t, "f1", evt.FeedID)
		assert.Len(t, evt.Entries, 2)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a poll event")
	}
}

func TestStopClosesEventChannel(t *testing.T) {
	p := newTestPoller(t, time.Hour)
	p.Start()
	p.Stop()

	_, open := <-p.Events()
	assert.False(t, open, "event channel must be closed after Stop")
}

func TestStopWithoutStartIsSafe(t *testing.T) {
	p := newTestPoller(t, time.Hour)
	p.Stop()

	_, open := <-p.Events()
	assert.False(t, open)
}
