// Package retrieval turns a question into web context: it searches,
// fetches the result pages concurrently, and assembles excerpt chunks
// for the prompt.
package retrieval

import (
	"strings"
)

// DefaultExcerptRunes caps the page excerpt carried in a chunk.
const DefaultExcerptRunes = 1200

// Chunk is one formatted context unit derived from a single search
// result, optionally carrying a page excerpt.
type Chunk struct {
	Title   string
	URL     string
	Snippet string
	Excerpt string
}

// Render formats the chunk as prompt text. The first line names the
// source ("Title - URL") so the model can cite it; snippet and excerpt
// follow on their own lines. Empty parts are omitted.
func (c Chunk) Render() string {
	var lines []string

	switch {
	case c.Title != "" && c.URL != "":
		lines = append(lines, c.Title+" - "+c.URL)
	case c.Title != "":
		lines = append(lines, c.Title)
	case c.URL != "":
		lines = append(lines, c.URL)
	}
	if c.Snippet != "" {
		lines = append(lines, c.Snippet)
	}
	if c.Excerpt != "" {
		lines = append(lines, c.Excerpt)
	}

	return strings.Join(lines, "\n")
}

// Context is the ordered web context for one question. It is
// request-scoped and may be empty.
type Context struct {
	Chunks []Chunk
}

// Empty reports whether the context carries no chunks.
func (c Context) Empty() bool {
	return len(c.Chunks) == 0
}

// Text joins the rendered chunks with blank lines. It returns "" for
// an empty context.
func (c Context) Text() string {
	if len(c.Chunks) == 0 {
		return ""
	}

	rendered := make([]string, 0, len(c.Chunks))
	for _, chunk := range c.Chunks {
		rendered = append(rendered, chunk.Render())
	}
	return strings.Join(rendered, "\n\n")
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
