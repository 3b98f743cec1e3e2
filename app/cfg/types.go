package cfg

type Cfg struct {
	// Storage configuration
	DataDir       string
	SeenStorePath string

	// Polling configuration
	PollInterval   int // seconds
	RequestTimeout int // seconds
	MaxRetries     int
	RetryBackoffMs int

	// HTTP API configuration
	Port         string
	APIAccessKey string

	// Application configuration
	UserAgent           string
	RecommendationsFile string
	CascadeOnRemove     bool
	Debug               bool
	Version             string
}
