package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// GPT4AllDefaultURL is the OpenAI-compatible endpoint of the local
	// GPT4All API server.
	GPT4AllDefaultURL = "http://localhost:4891/v1"

	// GPT4AllDefaultModelFile is the packaged model file looked up when no
	// path is configured.
	GPT4AllDefaultModelFile = "ggml-gpt4all-j-v1.3-groovy.bin"
)

// GPT4AllBackend generates answers fully offline through the local GPT4All
// API server. Construction verifies the packaged model file exists; a missing
// file is a fatal configuration error and is not retried.
type GPT4AllBackend struct {
	client     *openai.Client
	baseURL    string
	modelPath  string
	modelName  string
	httpClient *http.Client
	logger     *slog.Logger
}

// GPT4AllOption configures a GPT4AllBackend.
type GPT4AllOption func(*GPT4AllBackend)

// WithGPT4AllBaseURL sets the API server base URL.
func WithGPT4AllBaseURL(baseURL string) GPT4AllOption {
	return func(g *GPT4AllBackend) {
		g.baseURL = baseURL
	}
}

// WithGPT4AllHTTPClient sets a custom HTTP client.
func WithGPT4AllHTTPClient(client *http.Client) GPT4AllOption {
	return func(g *GPT4AllBackend) {
		g.httpClient = client
	}
}

// WithGPT4AllLogger sets the logger.
func WithGPT4AllLogger(logger *slog.Logger) GPT4AllOption {
	return func(g *GPT4AllBackend) {
		g.logger = logger
	}
}

// NewGPT4AllBackend creates a backend over the packaged model file at
// modelPath. The model must already be on disk; the server loads it lazily on
// the first completion.
func NewGPT4AllBackend(modelPath string, opts ...GPT4AllOption) (*GPT4AllBackend, error) {
	if modelPath == "" {
		modelPath = GPT4AllDefaultModelFile
	}

	g := &GPT4AllBackend{
		baseURL:   GPT4AllDefaultURL,
		modelPath: modelPath,
		logger:    slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}

	for _, opt := range opts {
		opt(g)
	}

	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("gpt4all model file not found at %q (download a model with the GPT4All app or point model_path at an existing file): %w", modelPath, err)
	}

	g.modelName = strings.TrimSuffix(filepath.Base(modelPath), filepath.Ext(modelPath))

	config := openai.DefaultConfig("")
	config.BaseURL = g.baseURL
	if g.httpClient != nil {
		config.HTTPClient = g.httpClient
	}
	g.client = openai.NewClientWithConfig(config)

	return g, nil
}

// Generate opens one scoped chat completion against the packaged model and
// returns the completion text.
func (g *GPT4AllBackend) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	g.logger.Debug("generate", "model", g.modelName, "prompt_len", len(req.Prompt))

	resp, err := g.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: g.modelName,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: req.Prompt,
				},
			},
			MaxTokens:   req.MaxTokens,
			Temperature: float32(req.Temperature),
			TopP:        float32(req.TopP),
		},
	)
	if err != nil {
		return "", fmt.Errorf("gpt4all completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("gpt4all returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ModelName returns the model name derived from the packaged file.
func (g *GPT4AllBackend) ModelName() string {
	return g.modelName
}

var _ Backend = (*GPT4AllBackend)(nil)
