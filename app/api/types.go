package api

import (
	"github.com/readrss/readrss/app/feed"
)

type AddFeedRequest struct {
	ID    string `json:"id" binding:"required"`
	Title string `json:"title"`
	URL   string `json:"url" binding:"required"`
}

// Article is a cached entry decorated with its read state for the caller.
type Article struct {
	feed.Entry
	Read bool `json:"read"`
}
