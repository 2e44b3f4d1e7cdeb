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
	"regexp"
	"strings"
)

// Endpoints for the two DuckDuckGo surfaces. The Instant Answer API is
// keyless but only covers encyclopedic queries; the HTML endpoint is
// scraped as a fallback.
const (
	DuckDuckGoAPIURL  = "https://api.duckduckgo.com"
	DuckDuckGoHTMLURL = "https://html.duckduckgo.com/html/"
)

var (
	ddgTitleRe   = regexp.MustCompile(`(?s)<a[^>]+class="result__a"[^>]+href="([^"]+)"[^>]*>(.+?)</a>`)
	ddgSnippetRe = regexp.MustCompile(`(?s)<a[^>]+class="result__snippet"[^>]*>(.+?)</a>`)
	ddgTagRe     = regexp.MustCompile(`<[^>]*>`)
	ddgSpaceRe   = regexp.MustCompile(`\s+`)
)

// DuckDuckGo searches via the DuckDuckGo Instant Answer API with an
// HTML-scrape fallback. No API key is required.
type DuckDuckGo struct {
	apiURL     string
	htmlURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// DuckDuckGoOption configures the DuckDuckGo provider.
type DuckDuckGoOption func(*DuckDuckGo)

// WithDuckDuckGoAPIURL sets the Instant Answer endpoint.
func WithDuckDuckGoAPIURL(u string) DuckDuckGoOption {
	return func(d *DuckDuckGo) {
		d.apiURL = u
	}
}

// WithDuckDuckGoHTMLURL sets the HTML fallback endpoint.
func WithDuckDuckGoHTMLURL(u string) DuckDuckGoOption {
	return func(d *DuckDuckGo) {
		d.htmlURL = u
	}
}

// WithDuckDuckGoUserAgent sets the User-Agent header.
func WithDuckDuckGoUserAgent(ua string) DuckDuckGoOption {
	return func(d *DuckDuckGo) {
		d.userAgent = ua
	}
}

// WithDuckDuckGoHTTPClient sets a custom HTTP client.
func WithDuckDuckGoHTTPClient(client *http.Client) DuckDuckGoOption {
	return func(d *DuckDuckGo) {
		d.httpClient = client
	}
}

// WithDuckDuckGoLogger sets a custom logger.
func WithDuckDuckGoLogger(logger *slog.Logger) DuckDuckGoOption {
	return func(d *DuckDuckGo) {
		d.logger = logger
	}
}

// NewDuckDuckGo creates a DuckDuckGo provider.
func NewDuckDuckGo(opts ...DuckDuckGoOption) *DuckDuckGo {
	d := &DuckDuckGo{
		apiURL:     DuckDuckGoAPIURL,
		htmlURL:    DuckDuckGoHTMLURL,
		userAgent:  "Mozilla/5.0",
		httpClient: &http.Client{},
		logger:     slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type ddgInstantAnswer struct {
	Abstract       string `json:"Abstract"`
	AbstractSource string `json:"AbstractSource"`
	AbstractURL    string `json:"AbstractURL"`
	Heading        string `json:"Heading"`
	Answer         string `json:"Answer"`
	RelatedTopics  []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// Search queries the Instant Answer API, falling back to the HTML
// endpoint when the API has nothing for the query.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	results, err := d.searchInstantAnswer(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		d.logger.Debug("instant answer empty, scraping HTML results", "query", query)
		results, err = d.searchHTML(ctx, query)
		if err != nil {
			return nil, err
		}
	}

	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

func (d *DuckDuckGo) searchInstantAnswer(ctx context.Context, query string) ([]Result, error) {
	u := fmt.Sprintf("%s/?q=%s&format=json&no_html=1&skip_disambig=1", d.apiURL, url.QueryEscape(query))
	body, err := d.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var answer ddgInstantAnswer
	if err := json.Unmarshal(body, &answer); err != nil {
		return nil, fmt.Errorf("failed to decode instant answer: %w", err)
	}

	var results []Result
	if answer.Abstract != "" {
		title := answer.Heading
		if title == "" {
			title = answer.AbstractSource
		}
		results = append(results, Result{
			Title:   title,
			URL:     answer.AbstractURL,
			Snippet: answer.Abstract,
			Source:  SourceDuckDuckGo,
		})
	}
	if answer.Answer != "" {
		results = append(results, Result{
			Title:   answer.Heading,
			URL:     answer.AbstractURL,
			Snippet: answer.Answer,
			Source:  SourceDuckDuckGo,
		})
	}
	for _, rt := range answer.RelatedTopics {
		if rt.Text == "" {
			continue
		}
		results = append(results, Result{
			Title:   topicTitle(rt.Text),
			URL:     rt.FirstURL,
			Snippet: rt.Text,
			Source:  SourceDuckDuckGo,
		})
	}
	return results, nil
}

func (d *DuckDuckGo) searchHTML(ctx context.Context, query string) ([]Result, error) {
	u := fmt.Sprintf("%s?q=%s", d.htmlURL, url.QueryEscape(query))
	body, err := d.get(ctx, u)
	if err != nil {
		return nil, err
	}

	page := string(body)
	titleMatches := ddgTitleRe.FindAllStringSubmatch(page, 30)
	snippetMatches := ddgSnippetRe.FindAllStringSubmatch(page, 30)

	var results []Result
	for i, match := range titleMatches {
		if len(match) < 3 {
			continue
		}

		rawURL := strings.ReplaceAll(match[1], "&amp;", "&")
		actualURL := resolveRedirectURL(rawURL)
		title := cleanFragment(match[2])
		if title == "" || actualURL == "" {
			continue
		}

		snippet := ""
		if i < len(snippetMatches) && len(snippetMatches[i]) >= 2 {
			snippet = cleanFragment(snippetMatches[i][1])
		}

		results = append(results, Result{
			Title:   title,
			URL:     actualURL,
			Snippet: snippet,
			Source:  SourceDuckDuckGo,
		})
	}
	return results, nil
}

func (d *DuckDuckGo) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned status %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
}

// resolveRedirectURL unwraps DuckDuckGo's /l/?uddg= redirect links.
func resolveRedirectURL(ddgURL string) string {
	if strings.Contains(ddgURL, "uddg=") {
		if strings.HasPrefix(ddgURL, "//") {
			ddgURL = "https:" + ddgURL
		}
		parsed, err := url.Parse(ddgURL)
		if err != nil {
			return ""
		}
		if actual := parsed.Query().Get("uddg"); actual != "" {
			return actual
		}
	}
	if strings.HasPrefix(ddgURL, "http://") || strings.HasPrefix(ddgURL, "https://") {
		return ddgURL
	}
	return ""
}

// topicTitle derives a short title from a related-topic text, which
// usually leads with the topic name before a dash or period.
func topicTitle(text string) string {
	for _, sep := range []string{" - ", ". "} {
		if idx := strings.Index(text, sep); idx > 0 {
			return text[:idx]
		}
	}
	if len(text) > 60 {
		return strings.TrimSpace(text[:60])
	}
	return text
}

func cleanFragment(fragment string) string {
	text := ddgTagRe.ReplaceAllString(fragment, "")
	text = html.UnescapeString(text)
	text = ddgSpaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

var _ Provider = (*DuckDuckGo)(nil)
