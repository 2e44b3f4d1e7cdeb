// Package fetch downloads web pages and reduces them to plain text
// suitable for prompt context.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/aqua777/go-erik/extract"
)

const (
	// DefaultTimeout bounds a single page download.
	DefaultTimeout = 7 * time.Second
	// DefaultUserAgent is a browser-like User-Agent; some sites refuse
	// requests without one.
	DefaultUserAgent = "Mozilla/5.0"
	// DefaultMaxTextRunes caps the extracted text length.
	DefaultMaxTextRunes = 8000
	// DefaultMaxBodyBytes caps how much of a response body is read.
	DefaultMaxBodyBytes = 1 << 20
)

// Sentinel errors distinguishing why a fetch produced no text.
var (
	// ErrTimeout reports that the page did not respond within the
	// fetch timeout.
	ErrTimeout = errors.New("fetch timed out")
	// ErrUnavailable reports a transport failure or non-200 status.
	ErrUnavailable = errors.New("page unavailable")
)

// Fetcher downloads a page and extracts its visible text.
type Fetcher struct {
	httpClient   *http.Client
	userAgent    string
	timeout      time.Duration
	maxBodyBytes int64
	maxTextRunes int
	logger       *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.httpClient = client
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithMaxTextRunes caps the extracted text length in runes.
func WithMaxTextRunes(n int) Option {
	return func(f *Fetcher) {
		f.maxTextRunes = n
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher creates a Fetcher with the given options.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient:   &http.Client{},
		userAgent:    DefaultUserAgent,
		timeout:      DefaultTimeout,
		maxBodyBytes: DefaultMaxBodyBytes,
		maxTextRunes: DefaultMaxTextRunes,
		logger:       slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads url and returns its visible text, capped at the
// configured rune limit. It returns ErrTimeout when the deadline
// expires and ErrUnavailable for any other failure.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: bad request for %s: %v", ErrUnavailable, url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: %s", ErrTimeout, url)
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s returned status %d", ErrUnavailable, url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: %s", ErrTimeout, url)
		}
		return "", fmt.Errorf("%w: failed to read body: %v", ErrUnavailable, err)
	}

	text := extract.HTMLText(string(body))
	text = truncateRunes(text, f.maxTextRunes)

	f.logger.Debug("page fetched", "url", url, "text_len", len(text))
	return text, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
