package store

import (
	"log/slog"
	"sync"

	"github.com/readrss/readrss/app/feed"
)

type seenData struct {
	Seen map[string]identitySet `json:"seen"`
}

// SeenStore records which entry identities have ever been observed per feed,
// so already-seen articles are not re-emitted across poll cycles. The set
// grows monotonically and is only cleared when a feed is removed.
type SeenStore struct {
	mu   sync.RWMutex
	data seenData
	path string // empty means in-memory only
}

// NewSeenStore creates an in-memory seen store that skips all persistence.
func NewSeenStore() *SeenStore {
	return &SeenStore{data: seenData{Seen: make(map[string]identitySet)}}
}

// OpenSeenStore loads a seen store from disk, rescuing from the temp file on
// a corrupt primary. A missing or unrecoverable file starts empty.
func OpenSeenStore(path string) *SeenStore {
	data := loadJSON[seenData](path)
	if data.Seen == nil {
		data.Seen = make(map[string]identitySet)
	}
	return &SeenStore{data: data, path: path}
}

// IsNewAndMark records the entry's identity for its feed if not already
// present and reports whether it was new. On a successful mark the full map
// is persisted before returning; persistence failures are logged and do not
// roll back the in-memory mark.
func (s *SeenStore) IsNewAndMark(entry feed.Entry) bool {
	key := entry.Identity()

	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.data.Seen[entry.FeedID]
	if !ok {
		set = make(identitySet)
		s.data.Seen[entry.FeedID] = set
	}
	if _, seen := set[key]; seen {
		return false
	}
	set[key] = struct{}{}

	s.persistLocked()
	return true
}

// ClearFeed drops every recorded identity for a feed.
func (s *SeenStore) ClearFeed(feedID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Seen[feedID]; !ok {
		return
	}
	delete(s.data.Seen, feedID)
	s.persistLocked()
}

func (s *SeenStore) persistLocked() {
	if s.path == "" {
		slog.Debug("Seen store is in-memory only, skipping persist")
		return
	}
	if err := saveJSON(s.path, s.data); err != nil {
		slog.Warn("Failed to persist seen store", "path", s.path, "error", err)
	}
}
