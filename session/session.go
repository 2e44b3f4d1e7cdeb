// Package session owns one conversation with the assistant: the transcript,
// the language gate, web context assembly, prompt composition, and backend
// selection. A Session is not safe for concurrent use by multiple goroutines.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/aqua777/go-erik/extract"
	"github.com/aqua777/go-erik/fetch"
	"github.com/aqua777/go-erik/language"
	"github.com/aqua777/go-erik/llm"
	"github.com/aqua777/go-erik/notes"
	"github.com/aqua777/go-erik/prompt"
	"github.com/aqua777/go-erik/retrieval"
	"github.com/aqua777/go-erik/search"
	"github.com/aqua777/go-erik/transcript"
)

const generationFailedPrefix = "generation failed: "

// Session is one conversation. Every component it needs is owned by the
// session; there is no package-level state.
type Session struct {
	id         string
	transcript *transcript.Transcript
	gate       *language.Gate
	assembler  *retrieval.Assembler
	composer   *prompt.Composer
	registry   *llm.Registry
	notes      *notes.Index

	identity    llm.Identity
	maxTokens   int
	temperature float64
	topP        float64

	searchEnabled      bool
	translationEnabled bool
	notesTopK          int

	logger *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithGate sets the language gate.
func WithGate(gate *language.Gate) Option {
	return func(s *Session) {
		s.gate = gate
	}
}

// WithAssembler sets the web context assembler.
func WithAssembler(assembler *retrieval.Assembler) Option {
	return func(s *Session) {
		s.assembler = assembler
	}
}

// WithComposer sets the prompt composer.
func WithComposer(composer *prompt.Composer) Option {
	return func(s *Session) {
		s.composer = composer
	}
}

// WithRegistry sets the backend registry.
func WithRegistry(registry *llm.Registry) Option {
	return func(s *Session) {
		s.registry = registry
	}
}

// WithNotes attaches a notes index to the session.
func WithNotes(index *notes.Index) Option {
	return func(s *Session) {
		s.notes = index
	}
}

// WithNotesTopK sets how many note chunks are retrieved per question.
func WithNotesTopK(topK int) Option {
	return func(s *Session) {
		s.notesTopK = topK
	}
}

// WithBackend selects the initial generation backend.
func WithBackend(kind llm.Kind, model string) Option {
	return func(s *Session) {
		s.identity = llm.Identity{Kind: kind, Model: model}
	}
}

// WithSampling sets the initial sampling parameters.
func WithSampling(maxTokens int, temperature, topP float64) Option {
	return func(s *Session) {
		s.maxTokens = maxTokens
		s.temperature = temperature
		s.topP = topP
	}
}

// WithSearchEnabled turns web search on or off.
func WithSearchEnabled(enabled bool) Option {
	return func(s *Session) {
		s.searchEnabled = enabled
	}
}

// WithTranslationEnabled turns the language gate on or off.
func WithTranslationEnabled(enabled bool) Option {
	return func(s *Session) {
		s.translationEnabled = enabled
	}
}

// WithMaxTurns caps the transcript, dropping the oldest turns at overflow.
func WithMaxTurns(n int) Option {
	return func(s *Session) {
		s.transcript = transcript.NewTranscript(transcript.WithMaxTurns(n))
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a session with an unbounded transcript, the default
// Bengali-English gate, a DuckDuckGo assembler, and the default backends.
func NewSession(opts ...Option) *Session {
	s := &Session{
		id:                 uuid.New().String(),
		transcript:         transcript.NewTranscript(),
		gate:               language.NewGate(),
		composer:           prompt.NewComposer(),
		registry:           llm.NewRegistry(nil),
		identity:           llm.Identity{Kind: llm.KindOllama, Model: llm.OllamaMistral},
		maxTokens:          llm.DefaultMaxTokens,
		temperature:        llm.DefaultTemperature,
		topP:               llm.DefaultTopP,
		searchEnabled:      true,
		translationEnabled: true,
		notesTopK:          notes.DefaultTopK,
		logger:             slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.assembler == nil {
		s.assembler = retrieval.NewAssembler(search.NewDuckDuckGo(), fetch.NewFetcher())
	}

	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Ask answers one question. Past input validation it always appends exactly
// one user turn and one assistant turn: backend failures become an
// explanatory assistant message rather than an error.
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return "", fmt.Errorf("question is empty")
	}

	s.transcript.Append(transcript.RoleUser, question)

	composeText := trimmed
	flagged := false
	if s.translationEnabled {
		flagged = s.gate.IsMarked(trimmed)
		if flagged {
			composeText = s.gate.ToPivot(ctx, trimmed)
		}
	}

	// Web search runs on the question as the user typed it.
	webContext := retrieval.Context{}
	if s.searchEnabled {
		webContext = s.assembler.Assemble(ctx, trimmed)
	}
	if s.notes != nil {
		for _, sc := range s.notes.Retrieve(ctx, composeText, s.notesTopK) {
			webContext.Chunks = append(webContext.Chunks, retrieval.Chunk{
				Title:   sc.Source,
				Excerpt: sc.Text,
			})
		}
	}

	promptText := s.composer.Compose(composeText, webContext.Text())
	req := llm.GenerationRequest{
		Prompt:      promptText,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
		TopP:        s.topP,
	}

	answer, err := s.generate(ctx, req)
	if err != nil {
		s.logger.Warn("generation failed", "session", s.id, "backend", s.identity.String(), "error", err)
		answer = generationFailedPrefix + err.Error()
		s.transcript.Append(transcript.RoleAssistant, answer)
		return answer, nil
	}

	if flagged {
		answer = s.gate.FromPivot(ctx, answer)
	}

	s.transcript.Append(transcript.RoleAssistant, answer)
	s.logger.Info("turn completed", "session", s.id, "flagged", flagged, "context_chunks", len(webContext.Chunks))
	return answer, nil
}

func (s *Session) generate(ctx context.Context, req llm.GenerationRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	backend, err := s.registry.Backend(s.identity)
	if err != nil {
		return "", err
	}
	return backend.Generate(ctx, req)
}

// History returns a copy of the conversation so far.
func (s *Session) History() []transcript.Turn {
	return s.transcript.All()
}

// Clear empties the transcript. The session stays usable.
func (s *Session) Clear() {
	s.transcript.Clear()
}

// Backend returns the identity of the currently selected backend.
func (s *Session) Backend() llm.Identity {
	return s.identity
}

// SelectBackend switches the generation backend for subsequent questions.
func (s *Session) SelectBackend(kind llm.Kind, model string) error {
	switch kind {
	case llm.KindOllama, llm.KindGPT4All, llm.KindSeqPipeline:
	default:
		return fmt.Errorf("unknown backend kind %q", kind)
	}
	s.identity = llm.Identity{Kind: kind, Model: model}
	return nil
}

// SetSampling updates the sampling parameters after validating them.
func (s *Session) SetSampling(maxTokens int, temperature, topP float64) error {
	req := llm.GenerationRequest{MaxTokens: maxTokens, Temperature: temperature, TopP: topP}
	if err := req.Validate(); err != nil {
		return err
	}
	s.maxTokens = maxTokens
	s.temperature = temperature
	s.topP = topP
	return nil
}

// AddDocument indexes a document into the session's notes. The document
// kind is detected from the file name.
func (s *Session) AddDocument(ctx context.Context, name string, data []byte) (int, error) {
	if s.notes == nil {
		return 0, fmt.Errorf("notes are not enabled for this session")
	}
	return s.notes.AddDocument(ctx, name, data, extract.DetectKind(name))
}
