package api

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/readrss/readrss/app/feed"
	"github.com/readrss/readrss/app/poller"
	"github.com/readrss/readrss/app/store"
)

type Handler struct {
	feedRepo        store.FeedRepository
	seenRepo        store.SeenRepository
	articleRepo     store.ArticleRepository
	readRepo        store.ReadRepository
	poller          *poller.Poller
	recommendations []feed.Recommendation
	cascadeOnRemove bool
}

func NewHandler(feedRepo store.FeedRepository, seenRepo store.SeenRepository,
	articleRepo store.ArticleRepository, readRepo store.ReadRepository,
	p *poller.Poller, recommendations []feed.Recommendation, cascadeOnRemove bool) *Handler {
	return &Handler{
		feedRepo:        feedRepo,
		seenRepo:        seenRepo,
		articleRepo:     articleRepo,
		readRepo:        readRepo,
		poller:          p,
		recommendations: recommendations,
		cascadeOnRemove: cascadeOnRemove,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"feeds":     len(h.feedRepo.List()),
	})
}

func (h *Handler) ListFeeds(c *gin.Context) {
	feeds := h.feedRepo.List()
	if feeds == nil {
		feeds = []feed.Descriptor{}
	}
	c.JSON(http.StatusOK, feeds)
}

func (h *Handler) AddFeed(c *gin.Context) {
	var req AddFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fd := feed.Descriptor{ID: req.ID, Title: req.Title, URL: req.URL}
	h.feedRepo.Add(fd)

	slog.Info("Feed added", "feed", fd.ID, "url", fd.URL)
	c.JSON(http.StatusCreated, fd)
}

func (h *Handler) RemoveFeed(c *gin.Context) {
	feedID := c.Param("id")

	h.feedRepo.Remove(feedID)
	h.readRepo.ClearFeed(feedID)
	if h.cascadeOnRemove {
		h.seenRepo.ClearFeed(feedID)
		h.articleRepo.ClearFeed(feedID)
	}

	slog.Info("Feed removed", "feed", feedID, "cascade", h.cascadeOnRemove)
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListFeedArticles(c *gin.Context) {
	c.JSON(http.StatusOK, h.withReadState(h.articleRepo.List(c.Param("id"))))
}

func (h *Handler) ListAllArticles(c *gin.Context) {
	c.JSON(http.StatusOK, h.withReadState(h.articleRepo.ListAll()))
}

func (h *Handler) MarkRead(c *gin.Context) {
	var entry feed.Entry
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if entry.FeedID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "feed_id is required"})
		return
	}

	updated := h.readRepo.MarkRead(entry)
	c.JSON(http.StatusOK, gin.H{"read": true, "updated": updated})
}

// RefreshFeed runs a one-shot poll for a single feed, bypassing the
// schedule. New entries go through the same seen-filter and cache upsert as
// the scheduled path and are returned to the caller.
func (h *Handler) RefreshFeed(c *gin.Context) {
	feedID := c.Param("id")

	var target *feed.Descriptor
	for _, fd := range h.feedRepo.List() {
		if fd.ID == feedID {
			target = &fd
			break
		}
	}
	if target == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "feed not found"})
		return
	}

	events := h.poller.PollOnce(c.Request.Context(), []feed.Descriptor{*target})
	if events == nil {
		events = []poller.Event{}
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) GetRecommendations(c *gin.Context) {
	recommendations := h.recommendations
	if recommendations == nil {
		recommendations = []feed.Recommendation{}
	}
	c.JSON(http.StatusOK, recommendations)
}

// StreamEvents forwards the poller's new-article batches as server-sent
// events until the client disconnects or the poller stops.
func (h *Handler) StreamEvents(c *gin.Context) {
	c.Writer.Header().Set("Cache-Control", "no-cache")

	c.Stream(func(w io.Writer) bool {
		select {
		case evt, ok := <-h.poller.Events():
			if !ok {
				return false
			}
			c.SSEvent("articles", evt)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *Handler) withReadState(entries []feed.Entry) []Article {
	articles := make([]Article, 0, len(entries))
	for _, entry := range entries {
		articles = append(articles, Article{Entry: entry, Read: h.readRepo.IsRead(entry)})
	}
	return articles
}
