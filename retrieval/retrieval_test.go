package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqua777/go-erik/search"
)

type mockProvider struct {
	results []search.Result
	err     error
}

func (m *mockProvider) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(m.results) > maxResults {
		return m.results[:maxResults], nil
	}
	return m.results, nil
}

type mockFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls []string
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, url)
	m.mu.Unlock()

	if err, ok := m.errs[url]; ok {
		return "", err
	}
	if page, ok := m.pages[url]; ok {
		return page, nil
	}
	return "", errors.New("no such page")
}

func TestChunkRender(t *testing.T) {
	t.Run("full chunk", func(t *testing.T) {
		c := Chunk{
			Title:   "France",
			URL:     "https://example.com/france",
			Snippet: "A country in Europe.",
			Excerpt: "France, officially the French Republic.",
		}
		expected := "France - https://example.com/france\nA country in Europe.\nFrance, officially the French Republic."
		assert.Equal(t, expected, c.Render())
	})

	t.Run("snippet only", func(t *testing.T) {
		c := Chunk{Title: "France", URL: "https://example.com", Snippet: "A country."}
		assert.Equal(t, "France - https://example.com\nA country.", c.Render())
	})

	t.Run("missing title", func(t *testing.T) {
		c := Chunk{URL: "https://example.com", Snippet: "A country."}
		assert.Equal(t, "https://example.com\nA country.", c.Render())
	})
}

func TestContextText(t *testing.T) {
	t.Run("empty context", func(t *testing.T) {
		assert.Equal(t, "", Context{}.Text())
		assert.True(t, Context{}.Empty())
	})

	t.Run("chunks join with blank line", func(t *testing.T) {
		c := Context{Chunks: []Chunk{
			{Title: "A", URL: "https://a.example", Snippet: "first"},
			{Title: "B", URL: "https://b.example", Snippet: "second"},
		}}
		assert.Equal(t, "A - https://a.example\nfirst\n\nB - https://b.example\nsecond", c.Text())
	})
}

func TestAssembler(t *testing.T) {
	t.Run("search failure yields empty context", func(t *testing.T) {
		a := NewAssembler(&mockProvider{err: errors.New("rate limited")}, &mockFetcher{})
		ctx := a.Assemble(context.Background(), "anything")
		assert.True(t, ctx.Empty())
		assert.Equal(t, "", ctx.Text())
	})

	t.Run("no results yields empty context", func(t *testing.T) {
		a := NewAssembler(&mockProvider{}, &mockFetcher{})
		ctx := a.Assemble(context.Background(), "anything")
		assert.True(t, ctx.Empty())
	})

	t.Run("fetched pages become excerpt chunks in order", func(t *testing.T) {
		provider := &mockProvider{results: []search.Result{
			{Title: "One", URL: "https://one.example", Snippet: "s1"},
			{Title: "Two", URL: "https://two.example", Snippet: "s2"},
			{Title: "Three", URL: "https://three.example", Snippet: "s3"},
		}}
		fetcher := &mockFetcher{pages: map[string]string{
			"https://one.example":   "page one text",
			"https://two.example":   "page two text",
			"https://three.example": "page three text",
		}}

		a := NewAssembler(provider, fetcher, WithWorkers(2))
		ctx := a.Assemble(context.Background(), "q")
		require.Len(t, ctx.Chunks, 3)

		assert.Equal(t, "One", ctx.Chunks[0].Title)
		assert.Equal(t, "page one text", ctx.Chunks[0].Excerpt)
		assert.Equal(t, "Two", ctx.Chunks[1].Title)
		assert.Equal(t, "page two text", ctx.Chunks[1].Excerpt)
		assert.Equal(t, "Three", ctx.Chunks[2].Title)
		assert.Equal(t, "page three text", ctx.Chunks[2].Excerpt)
	})

	t.Run("excerpts are rune capped", func(t *testing.T) {
		provider := &mockProvider{results: []search.Result{
			{Title: "Long", URL: "https://long.example", Snippet: "s"},
		}}
		fetcher := &mockFetcher{pages: map[string]string{
			"https://long.example": strings.Repeat("ব", 50),
		}}

		a := NewAssembler(provider, fetcher, WithExcerptRunes(10))
		ctx := a.Assemble(context.Background(), "q")
		require.Len(t, ctx.Chunks, 1)
		assert.Equal(t, 10, utf8.RuneCountInString(ctx.Chunks[0].Excerpt))
	})

	t.Run("all fetches fail falls back to snippets", func(t *testing.T) {
		provider := &mockProvider{results: []search.Result{
			{Title: "One", URL: "https://one.example", Snippet: "snippet one"},
			{Title: "Two", URL: "https://two.example", Snippet: "snippet two"},
		}}
		fetcher := &mockFetcher{errs: map[string]error{
			"https://one.example": errors.New("timeout"),
			"https://two.example": errors.New("503"),
		}}

		a := NewAssembler(provider, fetcher)
		ctx := a.Assemble(context.Background(), "q")
		require.Len(t, ctx.Chunks, 2)

		assert.Equal(t, "One", ctx.Chunks[0].Title)
		assert.Equal(t, "snippet one", ctx.Chunks[0].Snippet)
		assert.Empty(t, ctx.Chunks[0].Excerpt)
		assert.Equal(t, "Two", ctx.Chunks[1].Title)
	})

	t.Run("partial fetch success keeps successful chunks only", func(t *testing.T) {
		provider := &mockProvider{results: []search.Result{
			{Title: "Dead", URL: "https://dead.example", Snippet: "s1"},
			{Title: "Live", URL: "https://live.example", Snippet: "s2"},
		}}
		fetcher := &mockFetcher{
			pages: map[string]string{"https://live.example": "live page"},
			errs:  map[string]error{"https://dead.example": errors.New("nope")},
		}

		a := NewAssembler(provider, fetcher)
		ctx := a.Assemble(context.Background(), "q")
		require.Len(t, ctx.Chunks, 1)
		assert.Equal(t, "Live", ctx.Chunks[0].Title)
		assert.Equal(t, "live page", ctx.Chunks[0].Excerpt)
	})

	t.Run("empty URLs are never fetched", func(t *testing.T) {
		provider := &mockProvider{results: []search.Result{
			{Title: "NoURL", Snippet: "answer text"},
		}}
		fetcher := &mockFetcher{}

		a := NewAssembler(provider, fetcher)
		ctx := a.Assemble(context.Background(), "q")
		require.Len(t, ctx.Chunks, 1)
		assert.Equal(t, "NoURL", ctx.Chunks[0].Title)
		assert.Empty(t, fetcher.calls)
	})

	t.Run("fetch fan-out respects the worker bound", func(t *testing.T) {
		var results []search.Result
		pages := make(map[string]string)
		for i := 0; i < 8; i++ {
			url := fmt.Sprintf("https://site%d.example", i)
			results = append(results, search.Result{Title: fmt.Sprintf("R%d", i), URL: url, Snippet: "s"})
			pages[url] = "text"
		}
		provider := &mockProvider{results: results}
		fetcher := &slowFetcher{pages: pages, delay: 10 * time.Millisecond}

		a := NewAssembler(provider, fetcher, WithMaxResults(8), WithWorkers(2))
		ctx := a.Assemble(context.Background(), "q")
		assert.Len(t, ctx.Chunks, 8)
		assert.LessOrEqual(t, fetcher.maxInFlight(), int32(2))
	})
}

// slowFetcher tracks peak concurrency across Fetch calls.
type slowFetcher struct {
	pages    map[string]string
	delay    time.Duration
	inFlight int32
	peak     int32
}

func (s *slowFetcher) Fetch(ctx context.Context, url string) (string, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	for {
		peak := atomic.LoadInt32(&s.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&s.peak, peak, n) {
			break
		}
	}
	time.Sleep(s.delay)
	atomic.AddInt32(&s.inFlight, -1)
	return s.pages[url], nil
}

func (s *slowFetcher) maxInFlight() int32 {
	return atomic.LoadInt32(&s.peak)
}
