// Package search queries public web search endpoints and returns
// result snippets for retrieval context.
package search

import "context"

// Source labels identifying which provider produced a result.
const (
	SourceDuckDuckGo = "duckduckgo"
	SourceWikipedia  = "wikipedia"
)

// DefaultMaxResults is the number of results returned when the caller
// does not ask for a specific count.
const DefaultMaxResults = 3

// Result is one search hit. Snippet may be empty; URL may be empty for
// answer-only hits.
type Result struct {
	Title   string
	URL     string
	Snippet string
	Source  string
}

// Provider performs a web search. Implementations return an error on
// transport or decode failure; an empty result list is not an error.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}
