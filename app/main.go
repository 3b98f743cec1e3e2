package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/readrss/readrss/app/api"
	"github.com/readrss/readrss/app/cfg"
	"github.com/readrss/readrss/app/feed"
	"github.com/readrss/readrss/app/poller"
	"github.com/readrss/readrss/app/store"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	setupLogger(appCfg.Debug)
	slog.Info("Starting readrss", "version", appCfg.Version, "data_dir", appCfg.DataDir)

	// Stores: every mutation persists with atomic replace before returning,
	// so a crash mid-write never corrupts the primary files.
	feedStore := store.OpenFeedStore(filepath.Join(appCfg.DataDir, "feeds.json"))
	readStore := store.OpenReadStore(filepath.Join(appCfg.DataDir, "read_store.json"))
	articleStore := store.OpenArticleStore(filepath.Join(appCfg.DataDir, "articles_store.json"))
	seenStore := store.OpenSeenStore(appCfg.SeenStorePath)
	slog.Info("Stores loaded", "feeds", len(feedStore.List()))

	recommendations, err := feed.LoadRecommendations(appCfg.RecommendationsFile)
	if err != nil {
		slog.Warn("Failed to load recommendations, continuing without", "error", err)
	}

	fetcher := feed.NewFetcher(&http.Client{}, feed.NewParser(), appCfg.UserAgent,
		time.Duration(appCfg.RequestTimeout)*time.Second)

	feedPoller := poller.New(feedStore, seenStore, articleStore, fetcher, poller.Config{
		Interval:     time.Duration(appCfg.PollInterval) * time.Second,
		MaxRetries:   appCfg.MaxRetries,
		RetryBackoff: time.Duration(appCfg.RetryBackoffMs) * time.Millisecond,
	})
	feedPoller.Start()
	slog.Info("Background poller started", "interval_sec", appCfg.PollInterval)

	handler := api.NewHandler(feedStore, seenStore, articleStore, readStore, feedPoller,
		recommendations, appCfg.CascadeOnRemove)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Stop blocks until the poller goroutine has fully exited, so no events
	// are emitted past this point.
	feedPoller.Stop()
	slog.Info("Background poller stopped")

	slog.Info("Shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
