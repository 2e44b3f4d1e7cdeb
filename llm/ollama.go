package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
)

const (
	// OllamaDefaultURL is the default Ollama API endpoint.
	OllamaDefaultURL = "http://localhost:11434"

	// DefaultOllamaSystemPrompt is sent as the system message ahead of the
	// composed user prompt.
	DefaultOllamaSystemPrompt = "You are a helpful, concise assistant."
)

// Common Ollama model names.
const (
	OllamaMistral = "mistral"
	OllamaLlama3  = "llama3"
	OllamaLlama31 = "llama3.1"
	OllamaGemma2  = "gemma2"
	OllamaQwen2   = "qwen2"
)

// OllamaBackend generates answers through a locally running Ollama server.
// Each request sends a system and a user message plus the sampling options.
type OllamaBackend struct {
	baseURL      string
	model        string
	systemPrompt string
	httpClient   *http.Client
	logger       *slog.Logger
}

// OllamaOption configures an OllamaBackend.
type OllamaOption func(*OllamaBackend)

// WithOllamaBaseURL sets the base URL.
func WithOllamaBaseURL(baseURL string) OllamaOption {
	return func(o *OllamaBackend) {
		o.baseURL = baseURL
	}
}

// WithOllamaModel sets the model.
func WithOllamaModel(model string) OllamaOption {
	return func(o *OllamaBackend) {
		o.model = model
	}
}

// WithOllamaSystemPrompt sets the system message sent with every request.
func WithOllamaSystemPrompt(prompt string) OllamaOption {
	return func(o *OllamaBackend) {
		o.systemPrompt = prompt
	}
}

// WithOllamaHTTPClient sets a custom HTTP client.
func WithOllamaHTTPClient(client *http.Client) OllamaOption {
	return func(o *OllamaBackend) {
		o.httpClient = client
	}
}

// WithOllamaLogger sets the logger.
func WithOllamaLogger(logger *slog.Logger) OllamaOption {
	return func(o *OllamaBackend) {
		o.logger = logger
	}
}

// NewOllamaBackend creates a new Ollama backend. The base URL is taken from
// the OLLAMA_HOST environment variable when set.
func NewOllamaBackend(opts ...OllamaOption) *OllamaBackend {
	baseURL := os.Getenv("OLLAMA_HOST")
	if baseURL == "" {
		baseURL = OllamaDefaultURL
	}

	o := &OllamaBackend{
		baseURL:      baseURL,
		model:        OllamaMistral,
		systemPrompt: DefaultOllamaSystemPrompt,
		httpClient:   http.DefaultClient,
		logger:       slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// ollamaChatRequest represents a request to the Ollama chat API.
type ollamaChatRequest struct {
	Model    string                 `json:"model"`
	Messages []ollamaMessage        `json:"messages"`
	Stream   bool                   `json:"stream"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

// ollamaMessage represents a message in the Ollama API format.
type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ollamaChatResponse represents a response from the Ollama chat API.
type ollamaChatResponse struct {
	Model     string        `json:"model"`
	CreatedAt string        `json:"created_at"`
	Message   ollamaMessage `json:"message"`
	Done      bool          `json:"done"`
}

// Generate sends system and user messages with the sampling options bundle
// and returns the assistant message content.
func (o *OllamaBackend) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	o.logger.Debug("generate", "model", o.model, "prompt_len", len(req.Prompt))

	messages := make([]ollamaMessage, 0, 2)
	if o.systemPrompt != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: o.systemPrompt})
	}
	messages = append(messages, ollamaMessage{Role: "user", Content: req.Prompt})

	body := ollamaChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   false,
		Options: map[string]interface{}{
			"temperature": req.Temperature,
			"top_p":       req.TopP,
			"num_predict": req.MaxTokens,
		},
	}

	resp, err := o.doChatRequest(ctx, body)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(resp.Message.Content), nil
}

// doChatRequest performs a chat request to the Ollama API.
func (o *OllamaBackend) doChatRequest(ctx context.Context, body ollamaChatRequest) (*ollamaChatResponse, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/api/chat", bytes.NewReader(jsonBody))
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

	var result ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// Ensure OllamaBackend implements the interface.
var _ Backend = (*OllamaBackend)(nil)
