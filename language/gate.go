package language

import (
	"context"
	"log/slog"
	"os"
	"unicode"
)

// Defaults cover the Bengali-to-English gate the assistant ships with.
const (
	// DefaultMarkedLang is the detector code of the gated language.
	DefaultMarkedLang = "ben"
	// DefaultSourceLang is the translator code of the gated language.
	DefaultSourceLang = "bn"
	// DefaultPivotLang is the language models answer in.
	DefaultPivotLang = "en"
)

// Gate routes marked-language questions through translation. Detection
// and translation failures never propagate: detection falls back to a
// script test and translation falls back to identity.
type Gate struct {
	detector     Detector
	translator   Translator
	markedLang   string
	markedScript *unicode.RangeTable
	sourceLang   string
	pivotLang    string
	logger       *slog.Logger
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithDetector sets the statistical language detector. A nil detector
// leaves only the script fallback.
func WithDetector(d Detector) GateOption {
	return func(g *Gate) {
		g.detector = d
	}
}

// WithTranslator sets the translator. A nil translator makes ToPivot
// and FromPivot identity functions.
func WithTranslator(t Translator) GateOption {
	return func(g *Gate) {
		g.translator = t
	}
}

// WithMarkedLanguage sets the detector code, script range, and
// translator code of the gated language.
func WithMarkedLanguage(detectorCode string, script *unicode.RangeTable, translatorCode string) GateOption {
	return func(g *Gate) {
		g.markedLang = detectorCode
		g.markedScript = script
		g.sourceLang = translatorCode
	}
}

// WithPivotLanguage sets the translator code of the pivot language.
func WithPivotLanguage(code string) GateOption {
	return func(g *Gate) {
		g.pivotLang = code
	}
}

// WithGateLogger sets a custom logger.
func WithGateLogger(logger *slog.Logger) GateOption {
	return func(g *Gate) {
		g.logger = logger
	}
}

// NewGate creates a Gate. By default it detects with whatlanggo, falls
// back to the Bengali script test, and has no translator.
func NewGate(opts ...GateOption) *Gate {
	g := &Gate{
		detector:     WhatLangDetector{},
		markedLang:   DefaultMarkedLang,
		markedScript: unicode.Bengali,
		sourceLang:   DefaultSourceLang,
		pivotLang:    DefaultPivotLang,
		logger:       slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// IsMarked reports whether text is in the gated language. The
// statistical detector decides when it is confident; otherwise the
// script membership test decides.
func (g *Gate) IsMarked(text string) bool {
	if g.detector != nil {
		if lang, reliable := g.detector.Detect(text); reliable {
			return lang == g.markedLang
		}
	}
	return ContainsScript(text, g.markedScript)
}

// ToPivot translates text from the gated language into the pivot
// language. On any failure the input is returned unchanged.
func (g *Gate) ToPivot(ctx context.Context, text string) string {
	return g.translate(ctx, text, g.sourceLang, g.pivotLang)
}

// FromPivot translates text from the pivot language back into the
// gated language. On any failure the input is returned unchanged.
func (g *Gate) FromPivot(ctx context.Context, text string) string {
	return g.translate(ctx, text, g.pivotLang, g.sourceLang)
}

func (g *Gate) translate(ctx context.Context, text, source, target string) string {
	if g.translator == nil {
		return text
	}
	translated, err := g.translator.Translate(ctx, text, source, target)
	if err != nil {
		g.logger.Warn("translation failed, keeping original text", "source", source, "target", target, "error", err)
		return text
	}
	return translated
}
