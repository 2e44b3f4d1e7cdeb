package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuckDuckGo(t *testing.T) {
	t.Run("instant answer abstract", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "France", r.URL.Query().Get("q"))
			assert.Equal(t, "json", r.URL.Query().Get("format"))
			w.Write([]byte(`{
				"Heading": "France",
				"Abstract": "France is a country in Western Europe.",
				"AbstractSource": "Wikipedia",
				"AbstractURL": "https://en.wikipedia.org/wiki/France",
				"RelatedTopics": [
					{"Text": "Paris - The capital of France.", "FirstURL": "https://duckduckgo.com/Paris"}
				]
			}`))
		}))
		defer server.Close()

		d := NewDuckDuckGo(WithDuckDuckGoAPIURL(server.URL))
		results, err := d.Search(context.Background(), "France", 3)
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.Equal(t, "France", results[0].Title)
		assert.Equal(t, "https://en.wikipedia.org/wiki/France", results[0].URL)
		assert.Equal(t, "France is a country in Western Europe.", results[0].Snippet)
		assert.Equal(t, SourceDuckDuckGo, results[0].Source)

		assert.Equal(t, "Paris", results[1].Title)
		assert.Equal(t, "https://duckduckgo.com/Paris", results[1].URL)
	})

	t.Run("result count is capped", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{
				"RelatedTopics": [
					{"Text": "One. First topic.", "FirstURL": "https://example.com/1"},
					{"Text": "Two. Second topic.", "FirstURL": "https://example.com/2"},
					{"Text": "Three. Third topic.", "FirstURL": "https://example.com/3"},
					{"Text": "Four. Fourth topic.", "FirstURL": "https://example.com/4"}
				]
			}`))
		}))
		defer server.Close()

		d := NewDuckDuckGo(WithDuckDuckGoAPIURL(server.URL))
		results, err := d.Search(context.Background(), "numbers", 2)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("falls back to HTML scrape", func(t *testing.T) {
		htmlServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "rare query", r.URL.Query().Get("q"))
			w.Write([]byte(`<html><body>
<a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fpage&amp;rut=abc">Example <b>Result</b></a>
<a class="result__snippet" href="#">A &amp; B snippet   text</a>
</body></html>`))
		}))
		defer htmlServer.Close()

		apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer apiServer.Close()

		d := NewDuckDuckGo(
			WithDuckDuckGoAPIURL(apiServer.URL),
			WithDuckDuckGoHTMLURL(htmlServer.URL+"/"),
		)
		results, err := d.Search(context.Background(), "rare query", 3)
		require.NoError(t, err)
		require.Len(t, results, 1)

		assert.Equal(t, "Example Result", results[0].Title)
		assert.Equal(t, "https://example.com/page", results[0].URL)
		assert.Equal(t, "A & B snippet text", results[0].Snippet)
	})

	t.Run("empty everywhere is not an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/html/" {
				w.Write([]byte(`<html><body>no results</body></html>`))
				return
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		d := NewDuckDuckGo(
			WithDuckDuckGoAPIURL(server.URL),
			WithDuckDuckGoHTMLURL(server.URL+"/html/"),
		)
		results, err := d.Search(context.Background(), "nothing", 3)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer server.Close()

		d := NewDuckDuckGo(WithDuckDuckGoAPIURL(server.URL))
		_, err := d.Search(context.Background(), "France", 3)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 429")
	})
}

func TestWikipedia(t *testing.T) {
	t.Run("search results", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/w/api.php", r.URL.Path)
			assert.Equal(t, "query", r.URL.Query().Get("action"))
			assert.Equal(t, "search", r.URL.Query().Get("list"))
			assert.Equal(t, "photosynthesis", r.URL.Query().Get("srsearch"))
			assert.Equal(t, "2", r.URL.Query().Get("srlimit"))
			w.Write([]byte(`{
				"query": {
					"search": [
						{"title": "Photosynthesis", "snippet": "<span class=\"searchmatch\">Photosynthesis</span> converts light", "pageid": 24544},
						{"title": "C4 carbon fixation", "snippet": "a pathway of <span class=\"searchmatch\">photosynthesis</span>", "pageid": 246248}
					]
				}
			}`))
		}))
		defer server.Close()

		p := NewWikipedia(WithWikipediaBaseURL(server.URL))
		results, err := p.Search(context.Background(), "photosynthesis", 2)
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.Equal(t, "Photosynthesis", results[0].Title)
		assert.Equal(t, server.URL+"/?curid=24544", results[0].URL)
		assert.Equal(t, "Photosynthesis converts light", results[0].Snippet)
		assert.Equal(t, SourceWikipedia, results[0].Source)
	})

	t.Run("no matches", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"query": {"search": []}}`))
		}))
		defer server.Close()

		p := NewWikipedia(WithWikipediaBaseURL(server.URL))
		results, err := p.Search(context.Background(), "qwzxv", 3)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		p := NewWikipedia(WithWikipediaBaseURL(server.URL))
		_, err := p.Search(context.Background(), "anything", 3)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 503")
	})
}

func TestResolveRedirectURL(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"uddg redirect", "//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fa", "https://example.com/a"},
		{"direct https", "https://example.com/b", "https://example.com/b"},
		{"direct http", "http://example.com/c", "http://example.com/c"},
		{"garbage", "javascript:void(0)", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resolveRedirectURL(tt.in))
		})
	}
}
