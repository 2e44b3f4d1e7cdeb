package session

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/aqua777/go-erik/config"
	"github.com/aqua777/go-erik/fetch"
	"github.com/aqua777/go-erik/language"
	"github.com/aqua777/go-erik/llm"
	"github.com/aqua777/go-erik/notes"
	"github.com/aqua777/go-erik/retrieval"
	"github.com/aqua777/go-erik/search"
	"github.com/aqua777/go-erik/textsplit"
)

// FromConfig builds a session wired according to cfg. The config is assumed
// to be validated.
func FromConfig(cfg *config.Config) (*Session, error) {
	fetcher := fetch.NewFetcher(
		fetch.WithTimeout(time.Duration(cfg.Fetch.TimeoutSeconds)*time.Second),
		fetch.WithMaxTextRunes(cfg.Fetch.MaxTextRunes),
		fetch.WithUserAgent(cfg.Fetch.UserAgent),
	)

	var provider search.Provider
	switch strings.ToLower(cfg.Search.Provider) {
	case search.SourceWikipedia:
		provider = search.NewWikipedia()
	default:
		provider = search.NewDuckDuckGo()
	}

	assembler := retrieval.NewAssembler(provider, fetcher,
		retrieval.WithMaxResults(cfg.Search.MaxResults),
		retrieval.WithWorkers(cfg.Search.Workers),
		retrieval.WithBudget(time.Duration(cfg.Search.BudgetSeconds)*time.Second),
	)

	var gateOpts []language.GateOption
	if cfg.Translation.Enabled {
		translatorOpts := []language.TranslatorOption{
			language.WithTranslatorBaseURL(cfg.Translation.URL),
		}
		if cfg.Translation.APIKey != "" {
			translatorOpts = append(translatorOpts, language.WithTranslatorAPIKey(cfg.Translation.APIKey))
		}
		gateOpts = append(gateOpts, language.WithTranslator(language.NewHTTPTranslator(translatorOpts...)))

		if cfg.Translation.PivotLang != "" {
			gateOpts = append(gateOpts, language.WithPivotLanguage(cfg.Translation.PivotLang))
		}
		if cfg.Translation.SourceLang != "" && cfg.Translation.SourceLang != language.DefaultSourceLang {
			gateOpts = append(gateOpts, language.WithMarkedLanguage(language.DefaultMarkedLang, unicode.Bengali, cfg.Translation.SourceLang))
		}
	}

	opts := []Option{
		WithAssembler(assembler),
		WithGate(language.NewGate(gateOpts...)),
		WithRegistry(llm.NewRegistry(factoryFromConfig(cfg))),
		WithBackend(llm.Kind(strings.ToLower(cfg.Backend.Kind)), cfg.Backend.Model),
		WithSampling(cfg.Sampling.MaxTokens, cfg.Sampling.Temperature, cfg.Sampling.TopP),
		WithSearchEnabled(cfg.Search.Enabled),
		WithTranslationEnabled(cfg.Translation.Enabled),
	}

	if cfg.Notes.Enabled {
		embedder := notes.NewOllamaEmbedder(
			notes.WithEmbedderBaseURL(cfg.Notes.EmbedURL),
			notes.WithEmbedderModel(cfg.Notes.EmbedModel),
		)
		splitter, err := textsplit.NewSplitter(
			textsplit.WithChunkSize(cfg.Notes.ChunkSize),
			textsplit.WithChunkOverlap(cfg.Notes.ChunkOverlap),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to build notes splitter: %w", err)
		}
		index, err := notes.NewIndex(embedder, notes.WithSplitter(splitter))
		if err != nil {
			return nil, fmt.Errorf("failed to build notes index: %w", err)
		}
		opts = append(opts, WithNotes(index), WithNotesTopK(cfg.Notes.TopK))
	}

	return NewSession(opts...), nil
}

// factoryFromConfig returns a backend factory honoring the configured
// endpoints. Empty identity models fall back to the configured defaults.
func factoryFromConfig(cfg *config.Config) llm.Factory {
	backend := cfg.Backend
	return func(id llm.Identity) (llm.Backend, error) {
		switch id.Kind {
		case llm.KindOllama:
			var opts []llm.OllamaOption
			if id.Model != "" {
				opts = append(opts, llm.WithOllamaModel(id.Model))
			}
			if backend.OllamaURL != "" {
				opts = append(opts, llm.WithOllamaBaseURL(backend.OllamaURL))
			}
			return llm.NewOllamaBackend(opts...), nil
		case llm.KindGPT4All:
			path := id.Model
			if path == "" {
				path = backend.GPT4AllModelPath
			}
			var opts []llm.GPT4AllOption
			if backend.GPT4AllURL != "" {
				opts = append(opts, llm.WithGPT4AllBaseURL(backend.GPT4AllURL))
			}
			return llm.NewGPT4AllBackend(path, opts...)
		case llm.KindSeqPipeline:
			var opts []llm.SeqPipelineOption
			if id.Model != "" {
				opts = append(opts, llm.WithSeqPipelineModel(id.Model))
			}
			if backend.SeqPipelineURL != "" {
				opts = append(opts, llm.WithSeqPipelineBaseURL(backend.SeqPipelineURL))
			}
			return llm.NewSeqPipelineBackend(opts...), nil
		default:
			return nil, fmt.Errorf("unknown backend kind %q", id.Kind)
		}
	}
}
