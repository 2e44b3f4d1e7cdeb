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
	// SeqPipelineDefaultURL is the default endpoint of the local
	// text-generation pipeline server.
	SeqPipelineDefaultURL = "http://localhost:8080"

	// SeqPipelineDefaultModel is the small seq2seq model the pipeline server
	// is expected to serve.
	SeqPipelineDefaultModel = "google/flan-t5-base"
)

// SeqPipelineBackend is the CPU fallback: a small sequence-to-sequence model
// behind a local pipeline server, sampled with nucleus sampling. The server
// loads the model once; the process-wide handle is cached by the Registry.
type SeqPipelineBackend struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// SeqPipelineOption configures a SeqPipelineBackend.
type SeqPipelineOption func(*SeqPipelineBackend)

// WithSeqPipelineBaseURL sets the pipeline server base URL.
func WithSeqPipelineBaseURL(baseURL string) SeqPipelineOption {
	return func(s *SeqPipelineBackend) {
		s.baseURL = baseURL
	}
}

// WithSeqPipelineModel sets the model label.
func WithSeqPipelineModel(model string) SeqPipelineOption {
	return func(s *SeqPipelineBackend) {
		s.model = model
	}
}

// WithSeqPipelineHTTPClient sets a custom HTTP client.
func WithSeqPipelineHTTPClient(client *http.Client) SeqPipelineOption {
	return func(s *SeqPipelineBackend) {
		s.httpClient = client
	}
}

// WithSeqPipelineLogger sets the logger.
func WithSeqPipelineLogger(logger *slog.Logger) SeqPipelineOption {
	return func(s *SeqPipelineBackend) {
		s.logger = logger
	}
}

// NewSeqPipelineBackend creates a new seq2seq pipeline backend.
func NewSeqPipelineBackend(opts ...SeqPipelineOption) *SeqPipelineBackend {
	s := &SeqPipelineBackend{
		baseURL:    SeqPipelineDefaultURL,
		model:      SeqPipelineDefaultModel,
		httpClient: http.DefaultClient,
		logger:     slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// seqGenerateRequest represents a request to the pipeline generate API.
type seqGenerateRequest struct {
	Inputs     string                `json:"inputs"`
	Parameters seqGenerateParameters `json:"parameters"`
}

// seqGenerateParameters carries the sampling parameters of one call.
type seqGenerateParameters struct {
	MaxNewTokens int     `json:"max_new_tokens"`
	Temperature  float64 `json:"temperature"`
	TopP         float64 `json:"top_p"`
	DoSample     bool    `json:"do_sample"`
}

// seqGenerateResponse represents a response from the pipeline generate API.
type seqGenerateResponse struct {
	GeneratedText string `json:"generated_text"`
}

// Generate runs one pipeline call and returns the generated text.
func (s *SeqPipelineBackend) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	s.logger.Debug("generate", "model", s.model, "prompt_len", len(req.Prompt))

	body := seqGenerateRequest{
		Inputs: req.Prompt,
		Parameters: seqGenerateParameters{
			MaxNewTokens: req.MaxTokens,
			Temperature:  req.Temperature,
			TopP:         req.TopP,
			DoSample:     true,
		},
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("seq2seq API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result seqGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return strings.TrimSpace(result.GeneratedText), nil
}

var _ Backend = (*SeqPipelineBackend)(nil)
