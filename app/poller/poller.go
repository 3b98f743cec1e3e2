package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/readrss/readrss/app/feed"
	"github.com/readrss/readrss/app/store"
)

// Event is a batch of new articles observed for a single feed during one
// poll cycle.
type Event struct {
	FeedID  string       `json:"feed_id"`
	Entries []feed.Entry `json:"entries"`
}

// Config holds the scheduling knobs, already normalized by the cfg layer.
type Config struct {
	Interval     time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

const eventBufferSize = 64

// Poller owns the periodic scheduling loop: it runs one cycle immediately on
// start and then one per tick. Each cycle snapshots the feed list and, feed
// by feed, fetches with retry, filters through the seen-set, upserts
// survivors into the article cache and emits them on the event channel.
// Missed ticks are coalesced, never queued.
type Poller struct {
	feeds    store.FeedRepository
	seen     store.SeenRepository
	articles store.ArticleRepository
	fetcher  *feed.Fetcher
	config   Config
	events   chan Event
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func New(feeds store.FeedRepository, seen store.SeenRepository,
	articles store.ArticleRepository, fetcher *feed.Fetcher, config Config) *Poller {
	ctx, cancel := context.WithCancel(context.Background())

	return &Poller{
		feeds:    feeds,
		seen:     seen,
		articles: articles,
		fetcher:  fetcher,
		config:   config,
		events:   make(chan Event, eventBufferSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Events is the stream of new-article batches produced by the scheduled
// loop. It is closed after Stop returns.
func (p *Poller) Events() <-chan Event {
	return p.events
}

func (p *Poller) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.config.Interval)
		defer ticker.Stop()

		// The first cycle runs at startup, not one interval in.
		if p.ctx.Err() == nil {
			p.runCycle()
		}

		for {
			select {
			case <-p.ctx.Done():
				slog.Info("Poller shutdown requested")
				return
			case <-ticker.C:
				p.runCycle()
			}
		}
	}()
}

// Stop cancels the loop and blocks until the background goroutine has fully
// exited; no events are emitted after Stop returns. The stop signal is
// observed between cycles only, so an in-flight cycle runs to completion.
func (p *Poller) Stop() {
	p.cancel()
	p.wg.Wait()
	close(p.events)
}

// PollOnce runs one fetch/filter/emit pass over the given feeds and returns
// the resulting events synchronously. It shares the per-feed logic with the
// scheduled loop so manual refresh cannot diverge from it.
func (p *Poller) PollOnce(ctx context.Context, feeds []feed.Descriptor) []Event {
	var events []Event
	for _, fd := range feeds {
		if newEntries := p.pollFeed(ctx, fd); len(newEntries) > 0 {
			events = append(events, Event{FeedID: fd.ID, Entries: newEntries})
		}
	}
	return events
}

func (p *Poller) runCycle() {
	// Fetches deliberately do not use the poller context: cancellation is
	// cooperative and never interrupts in-flight work.
	snapshot := p.feeds.List()
	for _, fd := range snapshot {
		if newEntries := p.pollFeed(context.Background(), fd); len(newEntries) > 0 {
			p.emit(Event{FeedID: fd.ID, Entries: newEntries})
		}
	}
}

// pollFeed fetches one feed and returns the entries not seen before. A fetch
// failure is logged and yields no entries; it never aborts the cycle.
func (p *Poller) pollFeed(ctx context.Context, fd feed.Descriptor) []feed.Entry {
	entries, err := p.fetcher.RunWithRetry(ctx, fd, p.config.MaxRetries, p.config.RetryBackoff)
	if err != nil {
		slog.Warn("Failed to fetch feed", "feed", fd.URL, "error", err)
		return nil
	}

	var newEntries []feed.Entry
	for _, entry := range entries {
		if p.seen.IsNewAndMark(entry) {
			newEntries = append(newEntries, entry)
		}
	}

	if len(newEntries) > 0 {
		p.articles.Upsert(fd.ID, newEntries)
	}
	return newEntries
}

func (p *Poller) emit(evt Event) {
	select {
	case p.events <- evt:
	default:
		slog.Warn("Event channel full, dropping new-article batch",
			"feed", evt.FeedID, "entries", len(evt.Entries))
	}
}
