package store

import (
	"log/slog"
	"sync"

	"github.com/readrss/readrss/app/feed"
)

type readData struct {
	Read map[string]identitySet `json:"read"`
}

// ReadStore tracks which entry identities the user has marked read, per feed.
type ReadStore struct {
	mu   sync.RWMutex
	data readData
	path string
}

// OpenReadStore loads the read-state store from disk, rescuing from the temp
// file on a corrupt primary.
func OpenReadStore(path string) *ReadStore {
	data := loadJSON[readData](path)
	if data.Read == nil {
		data.Read = make(map[string]identitySet)
	}
	return &ReadStore{data: data, path: path}
}

func (s *ReadStore) IsRead(entry feed.Entry) bool {
	key := entry.Identity()

	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.data.Read[entry.FeedID]
	if !ok {
		return false
	}
	_, read := set[key]
	return read
}

// MarkRead inserts the entry's identity into its feed's read-set and reports
// whether it was newly inserted. Marking an already-read entry is a no-op
// and does not re-write the store.
func (s *ReadStore) MarkRead(entry feed.Entry) bool {
	key := entry.Identity()

	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.data.Read[entry.FeedID]
	if !ok {
		set = make(identitySet)
		s.data.Read[entry.FeedID] = set
	}
	if _, read := set[key]; read {
		slog.Debug("Entry already marked as read", "feed", entry.FeedID)
		return false
	}
	set[key] = struct{}{}

	s.persistLocked()
	return true
}

// ClearFeed drops the read-set for a feed, used when the feed is removed.
func (s *ReadStore) ClearFeed(feedID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Read[feedID]; !ok {
		return
	}
	delete(s.data.Read, feedID)
	s.persistLocked()
}

func (s *ReadStore) persistLocked() {
	if err := saveJSON(s.path, s.data); err != nil {
		slog.Warn("Failed to persist read store", "path", s.path, "error", err)
	}
}
