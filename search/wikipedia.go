package search

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// WikipediaDefaultBaseURL is the English Wikipedia origin. Result page
// URLs are built from page IDs under the same origin.
const WikipediaDefaultBaseURL = "https://en.wikipedia.org"

// Wikipedia searches article titles and snippets through the MediaWiki
// search API.
type Wikipedia struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// WikipediaOption configures the Wikipedia provider.
type WikipediaOption func(*Wikipedia)

// WithWikipediaBaseURL sets the wiki origin, e.g. "https://de.wikipedia.org".
func WithWikipediaBaseURL(u string) WikipediaOption {
	return func(w *Wikipedia) {
		w.baseURL = strings.TrimRight(u, "/")
	}
}

// WithWikipediaUserAgent sets the User-Agent header.
func WithWikipediaUserAgent(ua string) WikipediaOption {
	return func(w *Wikipedia) {
		w.userAgent = ua
	}
}

// WithWikipediaHTTPClient sets a custom HTTP client.
func WithWikipediaHTTPClient(client *http.Client) WikipediaOption {
	return func(w *Wikipedia) {
		w.httpClient = client
	}
}

// WithWikipediaLogger sets a custom logger.
func WithWikipediaLogger(logger *slog.Logger) WikipediaOption {
	return func(w *Wikipedia) {
		w.logger = logger
	}
}

// NewWikipedia creates a Wikipedia provider.
func NewWikipedia(opts ...WikipediaOption) *Wikipedia {
	w := &Wikipedia{
		baseURL:    WikipediaDefaultBaseURL,
		userAgent:  "Mozilla/5.0",
		httpClient: &http.Client{},
		logger:     slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			PageID  int    `json:"pageid"`
		} `json:"search"`
	} `json:"query"`
}

// Search runs a MediaWiki full-text search and returns one result per
// matching article.
func (w *Wikipedia) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	u := fmt.Sprintf("%s/w/api.php?action=query&list=search&srsearch=%s&utf8=&format=json&srlimit=%d",
		w.baseURL, url.QueryEscape(query), maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", w.userAgent)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var root wikiSearchResponse
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	results := make([]Result, 0, len(root.Query.Search))
	for _, s := range root.Query.Search {
		results = append(results, Result{
			Title:   s.Title,
			URL:     fmt.Sprintf("%s/?curid=%d", w.baseURL, s.PageID),
			Snippet: stripSnippetMarkup(s.Snippet),
			Source:  SourceWikipedia,
		})
	}

	w.logger.Debug("wikipedia search complete", "query", query, "results", len(results))
	return results, nil
}

// stripSnippetMarkup removes the searchmatch spans MediaWiki embeds in
// snippets.
func stripSnippetMarkup(snippet string) string {
	text := ddgTagRe.ReplaceAllString(snippet, "")
	return strings.TrimSpace(html.UnescapeString(text))
}

var _ Provider = (*Wikipedia)(nil)
