package feed

import (
	"bytes"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed/atom"
	"github.com/mmcdole/gofeed/rss"
)

// Parser turns raw feed bytes into normalized entries. The document is
// parsed as RSS 2.0 first; if that fails the same bytes are parsed as Atom.
// When both parsers fail the RSS error is returned, keeping error messages
// stable for feeds that are RSS-shaped but malformed.
type Parser struct {
	rssParser  *rss.Parser
	atomParser *atom.Parser
}

func NewParser() *Parser {
	return &Parser{
		rssParser:  &rss.Parser{},
		atomParser: &atom.Parser{},
	}
}

func (p *Parser) Run(feedID string, data []byte) ([]Entry, error) {
	rssFeed, rssErr := p.rssParser.Parse(bytes.NewReader(data))
	if rssErr == nil {
		now := time.Now().UTC()
		entries := make([]Entry, 0, len(rssFeed.Items))
		for _, item := range rssFeed.Items {
			entries = append(entries, p.normalizeRSSItem(feedID, item, now))
		}
		return entries, nil
	}

	atomFeed, atomErr := p.atomParser.Parse(bytes.NewReader(data))
	if atomErr != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", rssErr)
	}

	now := time.Now().UTC()
	entries := make([]Entry, 0, len(atomFeed.Entries))
	for _, entry := range atomFeed.Entries {
		entries = append(entries, p.normalizeAtomEntry(feedID, entry, now))
	}
	return entries, nil
}

func (p *Parser) normalizeRSSItem(feedID string, item *rss.Item, now time.Time) Entry {
	entry := Entry{
		FeedID:  feedID,
		Title:   item.Title,
		Summary: item.Description,
		URL:     item.Link,
	}

	if item.PubDateParsed != nil {
		publishedAt := item.PubDateParsed.UTC()
		entry.PublishedAt = &publishedAt
	} else {
		// Un-dated items are treated as "just published"
		entry.PublishedAt = &now
	}

	if item.GUID != nil {
		entry.GUID = item.GUID.Value
	}

	// Author precedence: Dublin Core creator, then the RSS author field
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		entry.Author = item.DublinCoreExt.Creator[0]
	} else {
		entry.Author = item.Author
	}

	// Category precedence: first category name, then Dublin Core subject
	if len(item.Categories) > 0 && item.Categories[0] != nil {
		entry.Category = item.Categories[0].Value
	} else if item.DublinCoreExt != nil && len(item.DublinCoreExt.Subject) > 0 {
		entry.Category = item.DublinCoreExt.Subject[0]
	}

	if contentExt, ok := item.Extensions["content"]; ok {
		if encoded, ok := contentExt["encoded"]; ok && len(encoded) > 0 {
			entry.ContentHTML = encoded[0].Value
		}
	}

	if item.Enclosure != nil {
		entry.ImageURL = item.Enclosure.URL
	}

	return entry
}

func (p *Parser) normalizeAtomEntry(feedID string, item *atom.Entry, now time.Time) Entry {
	entry := Entry{
		FeedID:  feedID,
		Title:   item.Title,
		Summary: item.Summary,
		GUID:    item.ID,
	}

	switch {
	case item.PublishedParsed != nil:
		publishedAt := item.PublishedParsed.UTC()
		entry.PublishedAt = &publishedAt
	case item.UpdatedParsed != nil:
		publishedAt := item.UpdatedParsed.UTC()
		entry.PublishedAt = &publishedAt
	default:
		entry.PublishedAt = &now
	}

	if len(item.Links) > 0 && item.Links[0] != nil {
		entry.URL = item.Links[0].Href
	}

	if len(item.Authors) > 0 && item.Authors[0] != nil {
		entry.Author = item.Authors[0].Name
	}

	if len(item.Categories) > 0 && item.Categories[0] != nil {
		entry.Category = item.Categories[0].Term
	}

	if item.Content != nil {
		entry.ContentHTML = item.Content.Value
	}

	return entry
}
