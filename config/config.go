// Package config provides configuration loading for the assistant.
//
// Configuration is a TOML file with sensible defaults, environment variable
// overrides, and validation. The default location is ~/.erik/config.toml;
// built-in defaults are used when no file exists.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/aqua777/go-erik/fetch"
	"github.com/aqua777/go-erik/language"
	"github.com/aqua777/go-erik/llm"
	"github.com/aqua777/go-erik/notes"
	"github.com/aqua777/go-erik/retrieval"
	"github.com/aqua777/go-erik/search"
	"github.com/aqua777/go-erik/textsplit"
)

// Config represents the complete assistant configuration.
type Config struct {
	Backend     BackendConfig     `toml:"backend"`
	Search      SearchConfig      `toml:"search"`
	Translation TranslationConfig `toml:"translation"`
	Sampling    SamplingConfig    `toml:"sampling"`
	Fetch       FetchConfig       `toml:"fetch"`
	Notes       NotesConfig       `toml:"notes"`
}

// BackendConfig selects and locates the generation backend.
type BackendConfig struct {
	// Kind is the backend implementation: "ollama", "gpt4all", "seq2seq".
	Kind string `toml:"kind"`
	// Model is the model name, or the model file path for gpt4all.
	Model string `toml:"model"`
	// OllamaURL is the address of the Ollama server.
	OllamaURL string `toml:"ollama_url"`
	// GPT4AllURL is the OpenAI-compatible endpoint of the GPT4All server.
	GPT4AllURL string `toml:"gpt4all_url"`
	// GPT4AllModelPath is the packaged model file used when Model is empty.
	GPT4AllModelPath string `toml:"gpt4all_model_path"`
	// SeqPipelineURL is the address of the seq2seq fallback server.
	SeqPipelineURL string `toml:"seq_pipeline_url"`
}

// SearchConfig controls web context retrieval.
type SearchConfig struct {
	// Enabled turns web search on or off for every question.
	Enabled bool `toml:"enabled"`
	// Provider is the search backend: "duckduckgo" or "wikipedia".
	Provider string `toml:"provider"`
	// MaxResults caps the number of search results used per question.
	MaxResults int `toml:"max_results"`
	// Workers is the number of concurrent page fetches.
	Workers int `toml:"workers"`
	// BudgetSeconds bounds the total time spent fetching pages.
	BudgetSeconds int `toml:"budget_seconds"`
}

// TranslationConfig controls the translation gate.
type TranslationConfig struct {
	// Enabled turns translation of flagged questions on or off.
	Enabled bool `toml:"enabled"`
	// URL is the address of the LibreTranslate-compatible server.
	URL string `toml:"url"`
	// APIKey is sent with translate requests when the server requires one.
	APIKey string `toml:"api_key"`
	// SourceLang is the translator code of the flagged language.
	SourceLang string `toml:"source_lang"`
	// PivotLang is the translator code prompts are composed in.
	PivotLang string `toml:"pivot_lang"`
}

// SamplingConfig carries the generation sampling parameters.
type SamplingConfig struct {
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
	TopP        float64 `toml:"top_p"`
}

// FetchConfig controls page fetching.
type FetchConfig struct {
	// TimeoutSeconds is the per-page fetch timeout.
	TimeoutSeconds int `toml:"timeout_seconds"`
	// MaxTextRunes caps the text extracted from one page.
	MaxTextRunes int `toml:"max_text_runes"`
	// UserAgent is sent with every page request.
	UserAgent string `toml:"user_agent"`
}

// NotesConfig controls the personal notes index.
type NotesConfig struct {
	// Enabled turns the notes index on or off.
	Enabled bool `toml:"enabled"`
	// EmbedURL is the address of the Ollama server used for embeddings.
	EmbedURL string `toml:"embed_url"`
	// EmbedModel is the embedding model name.
	EmbedModel string `toml:"embed_model"`
	// ChunkSize is the token budget per indexed chunk.
	ChunkSize int `toml:"chunk_size"`
	// ChunkOverlap is the token overlap between consecutive chunks.
	ChunkOverlap int `toml:"chunk_overlap"`
	// TopK is the number of note chunks retrieved per question.
	TopK int `toml:"top_k"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Kind:             string(llm.KindOllama),
			Model:            llm.OllamaMistral,
			OllamaURL:        llm.OllamaDefaultURL,
			GPT4AllURL:       llm.GPT4AllDefaultURL,
			GPT4AllModelPath: llm.GPT4AllDefaultModelFile,
			SeqPipelineURL:   llm.SeqPipelineDefaultURL,
		},
		Search: SearchConfig{
			Enabled:       true,
			Provider:      search.SourceDuckDuckGo,
			MaxResults:    search.DefaultMaxResults,
			Workers:       retrieval.DefaultFetchWorkers,
			BudgetSeconds: int(retrieval.DefaultBudget / time.Second),
		},
		Translation: TranslationConfig{
			Enabled:    true,
			URL:        language.TranslatorDefaultURL,
			SourceLang: language.DefaultSourceLang,
			PivotLang:  language.DefaultPivotLang,
		},
		Sampling: SamplingConfig{
			MaxTokens:   llm.DefaultMaxTokens,
			Temperature: llm.DefaultTemperature,
			TopP:        llm.DefaultTopP,
		},
		Fetch: FetchConfig{
			TimeoutSeconds: int(fetch.DefaultTimeout / time.Second),
			MaxTextRunes:   fetch.DefaultMaxTextRunes,
			UserAgent:      fetch.DefaultUserAgent,
		},
		Notes: NotesConfig{
			Enabled:      false,
			EmbedURL:     notes.OllamaDefaultURL,
			EmbedModel:   notes.DefaultEmbedModel,
			ChunkSize:    textsplit.DefaultChunkSize,
			ChunkOverlap: textsplit.DefaultChunkOverlap,
			TopK:         notes.DefaultTopK,
		},
	}
}

// Dir returns the assistant's configuration directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".erik"), nil
}

// Path returns the path of the TOML config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file when present and falls back to defaults.
// Environment overrides are applied last, then the result is validated.
func Load() (*Config, error) {
	cfg := Default()

	path, err := Path()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", path, err)
			}
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath reads configuration from a specific TOML file. Keys absent
// from the file keep their default values.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to path, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - ERIK_BACKEND: overrides backend.kind
//   - ERIK_MODEL: overrides backend.model
//   - ERIK_OLLAMA_URL: overrides backend.ollama_url
//   - ERIK_GPT4ALL_URL: overrides backend.gpt4all_url
//   - ERIK_GPT4ALL_MODEL_PATH: overrides backend.gpt4all_model_path
//   - ERIK_SEQ_PIPELINE_URL: overrides backend.seq_pipeline_url
//   - ERIK_SEARCH: set to "1"/"true" or "0"/"false" to toggle search.enabled
//   - ERIK_SEARCH_PROVIDER: overrides search.provider
//   - ERIK_TRANSLATE: toggles translation.enabled
//   - ERIK_TRANSLATE_URL: overrides translation.url
//   - ERIK_TRANSLATE_API_KEY: overrides translation.api_key
//   - ERIK_NOTES: toggles notes.enabled
//   - ERIK_EMBED_URL: overrides notes.embed_url
func (c *Config) ApplyEnvOverrides() {
	if kind := os.Getenv("ERIK_BACKEND"); kind != "" {
		c.Backend.Kind = kind
	}
	if model := os.Getenv("ERIK_MODEL"); model != "" {
		c.Backend.Model = model
	}
	if u := os.Getenv("ERIK_OLLAMA_URL"); u != "" {
		c.Backend.OllamaURL = u
	}
	if u := os.Getenv("ERIK_GPT4ALL_URL"); u != "" {
		c.Backend.GPT4AllURL = u
	}
	if p := os.Getenv("ERIK_GPT4ALL_MODEL_PATH"); p != "" {
		c.Backend.GPT4AllModelPath = p
	}
	if u := os.Getenv("ERIK_SEQ_PIPELINE_URL"); u != "" {
		c.Backend.SeqPipelineURL = u
	}

	if v := os.Getenv("ERIK_SEARCH"); v != "" {
		c.Search.Enabled = envBool(v)
	}
	if provider := os.Getenv("ERIK_SEARCH_PROVIDER"); provider != "" {
		c.Search.Provider = provider
	}

	if v := os.Getenv("ERIK_TRANSLATE"); v != "" {
		c.Translation.Enabled = envBool(v)
	}
	if u := os.Getenv("ERIK_TRANSLATE_URL"); u != "" {
		c.Translation.URL = u
	}
	if key := os.Getenv("ERIK_TRANSLATE_API_KEY"); key != "" {
		c.Translation.APIKey = key
	}

	if v := os.Getenv("ERIK_NOTES"); v != "" {
		c.Notes.Enabled = envBool(v)
	}
	if u := os.Getenv("ERIK_EMBED_URL"); u != "" {
		c.Notes.EmbedURL = u
	}
}

func envBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	validKinds := map[string]bool{
		string(llm.KindOllama):      true,
		string(llm.KindGPT4All):     true,
		string(llm.KindSeqPipeline): true,
	}
	if !validKinds[strings.ToLower(c.Backend.Kind)] {
		errs = append(errs, ValidationError{
			Field:   "backend.kind",
			Message: fmt.Sprintf("invalid kind '%s', must be one of: ollama, gpt4all, seq2seq", c.Backend.Kind),
		})
	}
	for field, value := range map[string]string{
		"backend.ollama_url":       c.Backend.OllamaURL,
		"backend.gpt4all_url":      c.Backend.GPT4AllURL,
		"backend.seq_pipeline_url": c.Backend.SeqPipelineURL,
	} {
		if value == "" {
			continue
		}
		if _, err := url.Parse(value); err != nil {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		}
	}

	validProviders := map[string]bool{
		search.SourceDuckDuckGo: true,
		search.SourceWikipedia:  true,
	}
	if !validProviders[strings.ToLower(c.Search.Provider)] {
		errs = append(errs, ValidationError{
			Field:   "search.provider",
			Message: fmt.Sprintf("invalid provider '%s', must be one of: duckduckgo, wikipedia", c.Search.Provider),
		})
	}
	if c.Search.MaxResults < 1 {
		errs = append(errs, ValidationError{
			Field:   "search.max_results",
			Message: fmt.Sprintf("must be at least 1, got %d", c.Search.MaxResults),
		})
	}
	if c.Search.Workers < 1 {
		errs = append(errs, ValidationError{
			Field:   "search.workers",
			Message: fmt.Sprintf("must be at least 1, got %d", c.Search.Workers),
		})
	}
	if c.Search.BudgetSeconds < 1 {
		errs = append(errs, ValidationError{
			Field:   "search.budget_seconds",
			Message: fmt.Sprintf("must be at least 1, got %d", c.Search.BudgetSeconds),
		})
	}

	if c.Translation.Enabled {
		if c.Translation.URL == "" {
			errs = append(errs, ValidationError{
				Field:   "translation.url",
				Message: "required when translation is enabled",
			})
		}
		if c.Translation.SourceLang == "" {
			errs = append(errs, ValidationError{
				Field:   "translation.source_lang",
				Message: "required when translation is enabled",
			})
		}
		if c.Translation.PivotLang == "" {
			errs = append(errs, ValidationError{
				Field:   "translation.pivot_lang",
				Message: "required when translation is enabled",
			})
		}
	}

	if c.Sampling.MaxTokens <= 0 {
		errs = append(errs, ValidationError{
			Field:   "sampling.max_tokens",
			Message: fmt.Sprintf("must be positive, got %d", c.Sampling.MaxTokens),
		})
	}
	if c.Sampling.Temperature < 0 || c.Sampling.Temperature > llm.MaxTemperature {
		errs = append(errs, ValidationError{
			Field:   "sampling.temperature",
			Message: fmt.Sprintf("must be in [0, %g], got %g", llm.MaxTemperature, c.Sampling.Temperature),
		})
	}
	if c.Sampling.TopP <= 0 || c.Sampling.TopP > 1 {
		errs = append(errs, ValidationError{
			Field:   "sampling.top_p",
			Message: fmt.Sprintf("must be in (0, 1], got %g", c.Sampling.TopP),
		})
	}

	if c.Fetch.TimeoutSeconds < 1 {
		errs = append(errs, ValidationError{
			Field:   "fetch.timeout_seconds",
			Message: fmt.Sprintf("must be at least 1, got %d", c.Fetch.TimeoutSeconds),
		})
	}
	if c.Fetch.MaxTextRunes < 1 {
		errs = append(errs, ValidationError{
			Field:   "fetch.max_text_runes",
			Message: fmt.Sprintf("must be at least 1, got %d", c.Fetch.MaxTextRunes),
		})
	}

	if c.Notes.Enabled {
		if c.Notes.ChunkSize < 1 {
			errs = append(errs, ValidationError{
				Field:   "notes.chunk_size",
				Message: fmt.Sprintf("must be at least 1, got %d", c.Notes.ChunkSize),
			})
		}
		if c.Notes.ChunkOverlap < 0 || c.Notes.ChunkOverlap >= c.Notes.ChunkSize {
			errs = append(errs, ValidationError{
				Field:   "notes.chunk_overlap",
				Message: fmt.Sprintf("must be in [0, chunk_size), got %d", c.Notes.ChunkOverlap),
			})
		}
		if c.Notes.TopK < 1 {
			errs = append(errs, ValidationError{
				Field:   "notes.top_k",
				Message: fmt.Sprintf("must be at least 1, got %d", c.Notes.TopK),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
