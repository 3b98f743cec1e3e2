package store

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/readrss/readrss/app/feed"
)

// FeedStore owns the ordered list of subscribed feed descriptors.
type FeedStore struct {
	mu    sync.RWMutex
	feeds []feed.Descriptor
	path  string
}

// OpenFeedStore loads the feed list from disk, rescuing from the temp file
// on a corrupt primary.
func OpenFeedStore(path string) *FeedStore {
	return &FeedStore{
		feeds: loadJSON[[]feed.Descriptor](path),
		path:  path,
	}
}

// Add inserts a feed descriptor, replacing any existing feed with the same
// ID rather than appending a duplicate.
func (s *FeedStore) Add(fd feed.Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.feeds = append(s.rejectLocked(fd.ID), fd)
	s.persistLocked()
}

// Remove deletes the descriptor with the given ID, if present.
func (s *FeedStore) Remove(feedID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.feeds = s.rejectLocked(feedID)
	s.persistLocked()
}

// List returns a snapshot copy of the feed list.
func (s *FeedStore) List() []feed.Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.feeds)
}

func (s *FeedStore) rejectLocked(feedID string) []feed.Descriptor {
	return lo.Reject(s.feeds, func(existing feed.Descriptor, _ int) bool {
		return existing.ID == feedID
	})
}

func (s *FeedStore) persistLocked() {
	if err := saveJSON(s.path, s.feeds); err != nil {
		slog.Warn("Failed to persist feed list", "path", s.path, "error", err)
	}
}
