package textsplit

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

const (
	// DefaultChunkSize is the token budget per chunk.
	DefaultChunkSize = 256
	// DefaultChunkOverlap is the token budget carried between adjacent
	// chunks.
	DefaultChunkOverlap = 32
)

// Splitter breaks text into chunks along sentence boundaries. Chunks
// hold at most ChunkSize tokens; adjacent chunks share trailing
// sentences up to ChunkOverlap tokens.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	tokenizer    Tokenizer
	sentenceTok  *sentences.DefaultSentenceTokenizer
	logger       *slog.Logger
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithChunkSize sets the token budget per chunk.
func WithChunkSize(n int) Option {
	return func(s *Splitter) {
		s.chunkSize = n
	}
}

// WithChunkOverlap sets the overlap token budget.
func WithChunkOverlap(n int) Option {
	return func(s *Splitter) {
		s.chunkOverlap = n
	}
}

// WithTokenizer sets the token counter.
func WithTokenizer(tok Tokenizer) Option {
	return func(s *Splitter) {
		s.tokenizer = tok
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Splitter) {
		s.logger = logger
	}
}

// NewSplitter creates a Splitter with an English sentence tokenizer.
// Without an explicit Tokenizer it tries tiktoken and falls back to
// word counting when the encoding is unavailable.
func NewSplitter(opts ...Option) (*Splitter, error) {
	s := &Splitter{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		logger:       slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", s.chunkSize)
	}
	if s.chunkOverlap < 0 || s.chunkOverlap >= s.chunkSize {
		return nil, fmt.Errorf("chunk overlap (%d) must be in [0, chunk size %d)", s.chunkOverlap, s.chunkSize)
	}

	if s.tokenizer == nil {
		tok, err := NewTiktokenTokenizer("")
		if err != nil {
			s.logger.Warn("tiktoken unavailable, counting words instead", "error", err)
			s.tokenizer = WordTokenizer{}
		} else {
			s.tokenizer = tok
		}
	}

	sentenceTok, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load sentence tokenizer: %w", err)
	}
	s.sentenceTok = sentenceTok

	return s, nil
}

// Split chunks text. Empty or whitespace-only text yields nil.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	units := s.units(text)
	if len(units) == 0 {
		return nil
	}

	var chunks []string
	var cur []string
	curLen := 0
	fresh := 0 // units added since the last flush

	flush := func() {
		chunks = append(chunks, strings.Join(cur, " "))

		// Seed the next chunk with trailing units within the overlap
		// budget.
		var keep []string
		keepLen := 0
		for i := len(cur) - 1; i >= 0; i-- {
			n := s.tokenizer.Count(cur[i])
			if keepLen+n > s.chunkOverlap {
				break
			}
			keep = append([]string{cur[i]}, keep...)
			keepLen += n
		}
		cur = keep
		curLen = keepLen
		fresh = 0
	}

	for _, unit := range units {
		n := s.tokenizer.Count(unit)
		if curLen+n > s.chunkSize && fresh > 0 {
			flush()
		}
		cur = append(cur, unit)
		curLen += n
		fresh++
	}
	if fresh > 0 {
		chunks = append(chunks, strings.Join(cur, " "))
	}

	return chunks
}

// units returns the sentences of text, with any sentence longer than
// the chunk budget pre-split on word boundaries.
func (s *Splitter) units(text string) []string {
	var sents []string
	for _, sent := range s.sentenceTok.Tokenize(text) {
		trimmed := strings.TrimSpace(sent.Text)
		if trimmed != "" {
			sents = append(sents, trimmed)
		}
	}
	if len(sents) == 0 {
		sents = []string{text}
	}

	var units []string
	for _, sent := range sents {
		if s.tokenizer.Count(sent) <= s.chunkSize {
			units = append(units, sent)
			continue
		}
		units = append(units, s.splitWords(sent)...)
	}
	return units
}

// splitWords breaks an over-long sentence into word groups within the
// chunk budget.
func (s *Splitter) splitWords(sent string) []string {
	var pieces []string
	var cur []string
	curLen := 0

	for _, word := range strings.Fields(sent) {
		n := s.tokenizer.Count(word)
		if n == 0 {
			n = 1
		}
		if curLen+n > s.chunkSize && len(cur) > 0 {
			pieces = append(pieces, strings.Join(cur, " "))
			cur = nil
			curLen = 0
		}
		cur = append(cur, word)
		curLen += n
	}
	if len(cur) > 0 {
		pieces = append(pieces, strings.Join(cur, " "))
	}
	return pieces
}
