// Package textsplit chunks document text into sentence-aligned pieces
// sized by token count, for embedding and retrieval.
package textsplit

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer counts tokens for chunk sizing.
type Tokenizer interface {
	Count(text string) int
}

// WordTokenizer approximates tokens as whitespace-separated words.
type WordTokenizer struct{}

func (WordTokenizer) Count(text string) int {
	return len(strings.Fields(text))
}

// TiktokenTokenizer counts tokens with OpenAI's BPE vocabularies.
type TiktokenTokenizer struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenTokenizer creates a tokenizer using the encoding for the
// given model name.
func NewTiktokenTokenizer(model string) (*TiktokenTokenizer, error) {
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding for model %s: %w", model, err)
	}
	return &TiktokenTokenizer{encoding: encoding}, nil
}

func (t *TiktokenTokenizer) Count(text string) int {
	return len(t.encoding.Encode(text, nil, nil))
}

var (
	_ Tokenizer = WordTokenizer{}
	_ Tokenizer = (*TiktokenTokenizer)(nil)
)
