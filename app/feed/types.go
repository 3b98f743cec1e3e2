package feed

import (
	"fmt"
	"time"
)

// Descriptor identifies a subscribed feed. The ID is user- or
// system-assigned and is the key for every per-feed store.
type Descriptor struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Entry is a normalized article produced from an RSS item or Atom entry.
// Optional fields are empty / nil when the source document does not provide
// them.
type Entry struct {
	FeedID      string     `json:"feed_id"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary,omitempty"`
	URL         string     `json:"url"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	GUID        string     `json:"guid,omitempty"`
	Author      string     `json:"author,omitempty"`
	Category    string     `json:"category,omitempty"`
	ContentHTML string     `json:"content_html,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
}

// Identity returns the deduplication key for an entry, with strict
// precedence: GUID, then URL, then title plus unix timestamp. The key is
// recomputed on demand and never stored; if a feed changes an item's GUID or
// URL between cycles the item is treated as a new article.
func (e Entry) Identity() string {
	if e.GUID != "" {
		return "guid:" + e.GUID
	}
	if e.URL != "" {
		return "url:" + e.URL
	}
	var ts int64
	if e.PublishedAt != nil {
		ts = e.PublishedAt.Unix()
	}
	return fmt.Sprintf("title:%s@%d", e.Title, ts)
}
