package language

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

// Translator converts text between languages. Implementations return
// an error on failure; callers decide whether to degrade.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// TranslatorDefaultURL is the default local LibreTranslate endpoint.
const TranslatorDefaultURL = "http://localhost:5000"

// HTTPTranslator speaks the LibreTranslate JSON API.
type HTTPTranslator struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// TranslatorOption configures an HTTPTranslator.
type TranslatorOption func(*HTTPTranslator)

// WithTranslatorBaseURL sets the translation server URL.
func WithTranslatorBaseURL(u string) TranslatorOption {
	return func(t *HTTPTranslator) {
		t.baseURL = strings.TrimRight(u, "/")
	}
}

// WithTranslatorAPIKey sets an API key sent with each request.
func WithTranslatorAPIKey(key string) TranslatorOption {
	return func(t *HTTPTranslator) {
		t.apiKey = key
	}
}

// WithTranslatorHTTPClient sets a custom HTTP client.
func WithTranslatorHTTPClient(client *http.Client) TranslatorOption {
	return func(t *HTTPTranslator) {
		t.httpClient = client
	}
}

// WithTranslatorLogger sets a custom logger.
func WithTranslatorLogger(logger *slog.Logger) TranslatorOption {
	return func(t *HTTPTranslator) {
		t.logger = logger
	}
}

// NewHTTPTranslator creates a translator against a LibreTranslate
// compatible server.
func NewHTTPTranslator(opts ...TranslatorOption) *HTTPTranslator {
	t := &HTTPTranslator{
		baseURL:    TranslatorDefaultURL,
		httpClient: &http.Client{},
		logger:     slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// Translate sends one translation request.
func (t *HTTPTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	reqBody := translateRequest{
		Q:      text,
		Source: source,
		Target: target,
		Format: "text",
		APIKey: t.apiKey,
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/translate", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("translate API error (%d): %s", resp.StatusCode, string(body))
	}

	var result translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return result.TranslatedText, nil
}

var _ Translator = (*HTTPTranslator)(nil)
