package store

import (
	"github.com/readrss/readrss/app/feed"
)

// FeedRepository is the feed-list surface consumed by the poller and the API
// layer. The poller only ever reads the list; the API layer also mutates it.
type FeedRepository interface {
	Add(fd feed.Descriptor)
	Remove(feedID string)
	List() []feed.Descriptor
}

// SeenRepository suppresses re-emission of already-observed entries.
type SeenRepository interface {
	IsNewAndMark(entry feed.Entry) bool
	ClearFeed(feedID string)
}

// ArticleRepository is the durable article cache surface.
type ArticleRepository interface {
	Upsert(feedID string, entries []feed.Entry)
	List(feedID string) []feed.Entry
	ListAll() []feed.Entry
	ClearFeed(feedID string)
}

// ReadRepository tracks per-article read state.
type ReadRepository interface {
	IsRead(entry feed.Entry) bool
	MarkRead(entry feed.Entry) bool
	ClearFeed(feedID string)
}

var _ FeedRepository = (*FeedStore)(nil)
var _ SeenRepository = (*SeenStore)(nil)
var _ ArticleRepository = (*ArticleStore)(nil)
var _ ReadRepository = (*ReadStore)(nil)
