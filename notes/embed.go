package notes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
)

const (
	// OllamaDefaultURL is the default Ollama API endpoint.
	OllamaDefaultURL = "http://localhost:11434"
	// DefaultEmbedModel is the default embedding model.
	DefaultEmbedModel = "nomic-embed-text"
)

// Embedder turns a piece of text into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// OllamaEmbedder generates embeddings through the Ollama embeddings API.
type OllamaEmbedder struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// OllamaEmbedderOption configures an OllamaEmbedder.
type OllamaEmbedderOption func(*OllamaEmbedder)

// WithEmbedderBaseURL sets the base URL.
func WithEmbedderBaseURL(baseURL string) OllamaEmbedderOption {
	return func(o *OllamaEmbedder) {
		o.baseURL = baseURL
	}
}

// WithEmbedderModel sets the model.
func WithEmbedderModel(model string) OllamaEmbedderOption {
	return func(o *OllamaEmbedder) {
		o.model = model
	}
}

// WithEmbedderHTTPClient sets a custom HTTP client.
func WithEmbedderHTTPClient(client *http.Client) OllamaEmbedderOption {
	return func(o *OllamaEmbedder) {
		o.httpClient = client
	}
}

// WithEmbedderLogger sets the logger.
func WithEmbedderLogger(logger *slog.Logger) OllamaEmbedderOption {
	return func(o *OllamaEmbedder) {
		o.logger = logger
	}
}

// NewOllamaEmbedder creates a new Ollama embedding client.
func NewOllamaEmbedder(opts ...OllamaEmbedderOption) *OllamaEmbedder {
	baseURL := os.Getenv("OLLAMA_HOST")
	if baseURL == "" {
		baseURL = OllamaDefaultURL
	}

	o := &OllamaEmbedder{
		baseURL:    baseURL,
		model:      DefaultEmbedModel,
		httpClient: http.DefaultClient,
		logger:     slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Model returns the embedding model name.
func (o *OllamaEmbedder) Model() string {
	return o.model
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed generates an embedding for the given text.
func (o *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := ollamaEmbedRequest{
		Model:  o.model,
		Prompt: text,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	embedding := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

var _ Embedder = (*OllamaEmbedder)(nil)
