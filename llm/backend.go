// Package llm provides the generation backends of the assistant: a local
// model-serving chat backend (Ollama), a packaged offline backend (GPT4All
// API server over a local model file), and a small seq2seq fallback pipeline.
// Backends are constructed through a memoizing Registry keyed by identity.
package llm

import (
	"context"
	"fmt"
)

// Kind identifies a backend implementation.
type Kind string

const (
	// KindOllama is the locally running model-serving chat backend.
	KindOllama Kind = "ollama"
	// KindGPT4All is the fully offline packaged-model backend.
	KindGPT4All Kind = "gpt4all"
	// KindSeqPipeline is the CPU fallback sequence-to-sequence backend.
	KindSeqPipeline Kind = "seq2seq"
)

// Identity names one backend handle: the kind plus the model name or path.
// The Registry constructs at most one handle per distinct identity.
type Identity struct {
	Kind  Kind
	Model string
}

// String returns the identity in kind/model form.
func (id Identity) String() string {
	return string(id.Kind) + "/" + id.Model
}

// Sampling defaults shared by all backends.
const (
	DefaultMaxTokens   = 256
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9

	// MaxTemperature is the upper bound of the accepted temperature range.
	MaxTemperature = 1.5
)

// GenerationRequest carries one prompt and its sampling parameters.
// Constructed fresh per turn and never persisted.
type GenerationRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// NewGenerationRequest returns a request for prompt with default sampling.
func NewGenerationRequest(prompt string) GenerationRequest {
	return GenerationRequest{
		Prompt:      prompt,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		TopP:        DefaultTopP,
	}
}

// Validate checks the sampling parameter ranges: MaxTokens > 0,
// Temperature in [0, 1.5], TopP in (0, 1].
func (r GenerationRequest) Validate() error {
	if r.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", r.MaxTokens)
	}
	if r.Temperature < 0 || r.Temperature > MaxTemperature {
		return fmt.Errorf("temperature must be in [0, %g], got %g", MaxTemperature, r.Temperature)
	}
	if r.TopP <= 0 || r.TopP > 1 {
		return fmt.Errorf("top_p must be in (0, 1], got %g", r.TopP)
	}
	return nil
}

// Backend produces one answer per generation request. Implementations wrap
// their transport errors with enough detail for the orchestration layer to
// render a single explanatory failure message.
type Backend interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}
