package store

import (
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/readrss/readrss/app/feed"
)

// MaxArticlesPerFeed bounds the cached article sequence per feed.
const MaxArticlesPerFeed = 300

// ArticleStore holds the most recent normalized articles per feed, sorted by
// published time descending, capped at MaxArticlesPerFeed and durably
// persisted on every mutation.
type ArticleStore struct {
	mu       sync.RWMutex
	articles map[string][]feed.Entry
	path     string
}

// OpenArticleStore loads the article cache from disk, rescuing from the temp
// file on a corrupt primary.
func OpenArticleStore(path string) *ArticleStore {
	articles := loadJSON[map[string][]feed.Entry](path)
	if articles == nil {
		articles = make(map[string][]feed.Entry)
	}
	return &ArticleStore{articles: articles, path: path}
}

// Upsert merges a batch of entries into a feed's cached sequence. Entries
// whose identity is already cached are dropped from the batch; the sequence
// is then re-sorted newest first and truncated to MaxArticlesPerFeed.
func (s *ArticleStore) Upsert(feedID string, entries []feed.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := s.articles[feedID]
	existing := make(map[string]struct{}, len(slot))
	for _, entry := range slot {
		existing[entry.Identity()] = struct{}{}
	}

	for _, entry := range entries {
		identity := entry.Identity()
		if _, ok := existing[identity]; ok {
			continue
		}
		existing[identity] = struct{}{}
		slot = append(slot, entry)
	}

	sortNewestFirst(slot)
	if len(slot) > MaxArticlesPerFeed {
		slot = slot[:MaxArticlesPerFeed]
	}
	s.articles[feedID] = slot

	s.persistLocked()
}

// List returns the cached articles for a feed, newest first.
func (s *ArticleStore) List(feedID string) []feed.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.articles[feedID])
}

// ListAll returns the cached articles across every feed, merged and sorted
// newest first.
func (s *ArticleStore) ListAll() []feed.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := lo.Flatten(lo.Values(s.articles))
	sortNewestFirst(all)
	return all
}

// ClearFeed drops the cached articles for a feed.
func (s *ArticleStore) ClearFeed(feedID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.articles[feedID]; !ok {
		return
	}
	delete(s.articles, feedID)
	s.persistLocked()
}

func (s *ArticleStore) persistLocked() {
	if err := saveJSON(s.path, s.articles); err != nil {
		slog.Warn("Failed to persist article store", "path", s.path, "error", err)
	}
}

// sortNewestFirst orders entries by published time descending; entries
// without a published time sort last.
func sortNewestFirst(entries []feed.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return publishedTime(entries[i]).After(publishedTime(entries[j]))
	})
}

func publishedTime(entry feed.Entry) time.Time {
	if entry.PublishedAt != nil {
		return *entry.PublishedAt
	}
	return time.Time{}
}
