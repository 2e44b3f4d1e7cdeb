package retrieval

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/aqua777/go-erik/search"
)

const (
	// DefaultFetchWorkers bounds the page-fetch fan-out.
	DefaultFetchWorkers = 3
	// DefaultBudget bounds the whole fetch phase, shared across pages.
	DefaultBudget = 20 * time.Second
)

// PageFetcher downloads one page and returns its plain text.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Assembler builds a Context for a question. Search and fetch failures
// degrade to less context, never to an error.
type Assembler struct {
	provider     search.Provider
	fetcher      PageFetcher
	maxResults   int
	workers      int
	budget       time.Duration
	excerptRunes int
	logger       *slog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithMaxResults sets how many search results are requested.
func WithMaxResults(n int) Option {
	return func(a *Assembler) {
		a.maxResults = n
	}
}

// WithWorkers sets the number of concurrent page fetches.
func WithWorkers(n int) Option {
	return func(a *Assembler) {
		a.workers = n
	}
}

// WithBudget sets the overall deadline for the fetch phase.
func WithBudget(d time.Duration) Option {
	return func(a *Assembler) {
		a.budget = d
	}
}

// WithExcerptRunes caps the excerpt length per chunk.
func WithExcerptRunes(n int) Option {
	return func(a *Assembler) {
		a.excerptRunes = n
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) {
		a.logger = logger
	}
}

// NewAssembler creates an Assembler over a search provider and a page
// fetcher.
func NewAssembler(provider search.Provider, fetcher PageFetcher, opts ...Option) *Assembler {
	a := &Assembler{
		provider:     provider,
		fetcher:      fetcher,
		maxResults:   search.DefaultMaxResults,
		workers:      DefaultFetchWorkers,
		budget:       DefaultBudget,
		excerptRunes: DefaultExcerptRunes,
		logger:       slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble searches for the query and fetches the result pages under a
// bounded worker pool. It never returns an error: a failed search
// yields an empty context, failed fetches fall back to snippet-only
// chunks, and result order is always preserved.
func (a *Assembler) Assemble(ctx context.Context, query string) Context {
	results, err := a.provider.Search(ctx, query, a.maxResults)
	if err != nil {
		a.logger.Warn("search failed, continuing without web context", "query", query, "error", err)
		return Context{}
	}
	if len(results) == 0 {
		return Context{}
	}

	excerpts := a.fetchPages(ctx, results)

	var chunks []Chunk
	for i, r := range results {
		if excerpts[i] == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Snippet,
			Excerpt: truncateRunes(excerpts[i], a.excerptRunes),
		})
	}

	// Dead pages must not discard the snippets the search returned.
	if len(chunks) == 0 {
		for _, r := range results {
			chunks = append(chunks, Chunk{
				Title:   r.Title,
				URL:     r.URL,
				Snippet: r.Snippet,
			})
		}
	}

	return Context{Chunks: chunks}
}

// fetchPages downloads the result pages with a bounded worker pool.
// The returned slice is index-aligned with results; entries are "" for
// empty URLs and failed fetches.
func (a *Assembler) fetchPages(ctx context.Context, results []search.Result) []string {
	excerpts := make([]string, len(results))
	if a.fetcher == nil {
		return excerpts
	}

	ctx, cancel := context.WithTimeout(ctx, a.budget)
	defer cancel()

	jobChan := make(chan int, len(results))
	var wg sync.WaitGroup

	for i := 0; i < a.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for jobIdx := range jobChan {
				url := results[jobIdx].URL
				text, err := a.fetcher.Fetch(ctx, url)
				if err != nil {
					a.logger.Warn("page fetch failed", "url", url, "error", err)
					continue
				}
				excerpts[jobIdx] = text
			}
		}()
	}

	for i, r := range results {
		if r.URL == "" {
			continue
		}
		jobChan <- i
	}
	close(jobChan)

	wg.Wait()
	return excerpts
}
