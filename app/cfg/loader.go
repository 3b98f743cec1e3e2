package cfg

import (
	"fmt"
	"path/filepath"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	if Version != "" {
		return Version
	}
	return "unknown"
}

const (
	defaultPollInterval   = 300 // seconds
	defaultRequestTimeout = 15  // seconds
	defaultMaxRetries     = 3
	defaultRetryBackoffMs = 500
)

type rawCfg struct {
	// Storage configuration
	DataDir       string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory holding feeds.json, read_store.json and articles_store.json"`
	SeenStorePath string `long:"seen-store" env:"SEEN_STORE" description:"Path to seen_store.json (defaults to <data-dir>/seen_store.json)"`

	// Polling configuration
	PollInterval   int `long:"poll-interval" env:"POLL_INTERVAL" default:"300" description:"Scheduled poll interval in seconds"`
	RequestTimeout int `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"15" description:"Per-request timeout in seconds"`
	MaxRetries     int `long:"max-retries" env:"MAX_RETRIES" default:"3" description:"Max fetch retries per feed"`
	RetryBackoffMs int `long:"retry-backoff-ms" env:"RETRY_BACKOFF_MS" default:"500" description:"Base backoff in milliseconds for exponential retry"`

	// HTTP API configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application configuration
	UserAgent           string `long:"user-agent" env:"USER_AGENT" default:"readrss/1.0" description:"User agent string for HTTP requests"`
	RecommendationsFile string `long:"recommendations" env:"RECOMMENDATIONS_FILE" description:"YAML file with curated feed recommendations (optional)"`
	CascadeOnRemove     bool   `long:"cascade-on-remove" env:"CASCADE_ON_REMOVE" description:"Also clear the seen-set and article cache when a feed is removed"`
	Debug               bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DataDir:             raw.DataDir,
		SeenStorePath:       raw.SeenStorePath,
		PollInterval:        raw.PollInterval,
		RequestTimeout:      raw.RequestTimeout,
		MaxRetries:          raw.MaxRetries,
		RetryBackoffMs:      raw.RetryBackoffMs,
		Port:                raw.Port,
		APIAccessKey:        raw.APIAccessKey,
		UserAgent:           raw.UserAgent,
		RecommendationsFile: raw.RecommendationsFile,
		CascadeOnRemove:     raw.CascadeOnRemove,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	normalize(cfg)

	return cfg, nil
}

// normalize falls back to safe defaults for malformed values instead of
// refusing to start.
func normalize(cfg *Cfg) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryBackoffMs <= 0 {
		cfg.RetryBackoffMs = defaultRetryBackoffMs
	}
	if cfg.SeenStorePath == "" {
		cfg.SeenStorePath = filepath.Join(cfg.DataDir, "seen_store.json")
	}
}
