package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// MaxFeedBytes caps how much of a response body is ever held in memory.
const MaxFeedBytes = 10 * 1024 * 1024 // 10 MiB

// ErrUnsupportedScheme is returned before any network I/O when a feed URL
// uses a scheme other than https, or http on a non-loopback host.
var ErrUnsupportedScheme = errors.New("unsupported URL scheme (https required)")

// TooLargeError reports a feed document exceeding MaxFeedBytes, either via
// its declared Content-Length or while streaming the body.
type TooLargeError struct {
	Bytes int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("feed too large: %d bytes", e.Bytes)
}

// Fetcher retrieves a feed document over HTTP and hands the bytes to the
// parser. It performs no side effects beyond the network call.
type Fetcher struct {
	httpClient *http.Client
	parser     *Parser
	userAgent  string
	timeout    time.Duration

	maxBodyBytes int64
}

func NewFetcher(httpClient *http.Client, parser *Parser, userAgent string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		httpClient:   httpClient,
		parser:       parser,
		userAgent:    userAgent,
		timeout:      timeout,
		maxBodyBytes: MaxFeedBytes,
	}
}

func (f *Fetcher) Run(ctx context.Context, fd Descriptor) ([]Entry, error) {
	u, err := url.Parse(fd.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed url: %w", err)
	}

	if err := checkScheme(u); err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	// A declared length over the cap fails before reading the body; a
	// missing or lying length is caught while streaming.
	if resp.ContentLength > f.maxBodyBytes {
		return nil, &TooLargeError{Bytes: resp.ContentLength}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > f.maxBodyBytes {
		return nil, &TooLargeError{Bytes: int64(len(data))}
	}

	return f.parser.Run(fd.ID, data)
}

// checkScheme enforces the https-only policy. Plain http is allowed solely
// for loopback hosts so local test servers stay reachable.
func checkScheme(u *url.URL) error {
	switch u.Scheme {
	case "https":
		return nil
	case "http":
		switch u.Hostname() {
		case "localhost", "127.0.0.1", "::1":
			return nil
		}
	}
	return ErrUnsupportedScheme
}
