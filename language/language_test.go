package language

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDetector struct {
	lang     string
	reliable bool
}

func (s stubDetector) Detect(text string) (string, bool) {
	return s.lang, s.reliable
}

type stubTranslator struct {
	out   string
	err   error
	calls []struct{ text, source, target string }
}

func (s *stubTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	s.calls = append(s.calls, struct{ text, source, target string }{text, source, target})
	if s.err != nil {
		return "", s.err
	}
	if s.out == "" {
		return text, nil
	}
	return s.out, nil
}

func TestContainsScript(t *testing.T) {
	t.Run("flags a single Bengali rune", func(t *testing.T) {
		assert.True(t, ContainsScript("hello ব world", unicode.Bengali))
	})

	t.Run("flags full Bengali text", func(t *testing.T) {
		assert.True(t, ContainsScript("বাংলা", unicode.Bengali))
	})

	t.Run("never flags pure ASCII", func(t *testing.T) {
		assert.False(t, ContainsScript("What is the capital of France?", unicode.Bengali))
	})

	t.Run("nil script flags nothing", func(t *testing.T) {
		assert.False(t, ContainsScript("ব", nil))
	})
}

func TestGateIsMarked(t *testing.T) {
	t.Run("reliable detector decides", func(t *testing.T) {
		g := NewGate(WithDetector(stubDetector{lang: "ben", reliable: true}))
		assert.True(t, g.IsMarked("anything"))

		g = NewGate(WithDetector(stubDetector{lang: "eng", reliable: true}))
		assert.False(t, g.IsMarked("বাংলা"))
	})

	t.Run("unreliable detector falls back to script test", func(t *testing.T) {
		g := NewGate(WithDetector(stubDetector{reliable: false}))
		assert.True(t, g.IsMarked("ব"))
		assert.False(t, g.IsMarked("plain ascii"))
	})

	t.Run("nil detector uses script test", func(t *testing.T) {
		g := NewGate(WithDetector(nil))
		assert.True(t, g.IsMarked("ব"))
		assert.False(t, g.IsMarked("plain ascii"))
	})

	t.Run("whatlanggo detects Bengali text", func(t *testing.T) {
		g := NewGate()
		assert.True(t, g.IsMarked("বাংলাদেশের রাজধানী কোথায়?"))
		assert.False(t, g.IsMarked("What is the capital of France?"))
	})
}

func TestGateTranslate(t *testing.T) {
	t.Run("nil translator is identity", func(t *testing.T) {
		g := NewGate()
		assert.Equal(t, "hello", g.ToPivot(context.Background(), "hello"))
		assert.Equal(t, "hello", g.FromPivot(context.Background(), "hello"))
	})

	t.Run("translator receives the language pair", func(t *testing.T) {
		tr := &stubTranslator{out: "translated"}
		g := NewGate(WithTranslator(tr))

		assert.Equal(t, "translated", g.ToPivot(context.Background(), "input"))
		require.Len(t, tr.calls, 1)
		assert.Equal(t, "bn", tr.calls[0].source)
		assert.Equal(t, "en", tr.calls[0].target)

		assert.Equal(t, "translated", g.FromPivot(context.Background(), "input"))
		require.Len(t, tr.calls, 2)
		assert.Equal(t, "en", tr.calls[1].source)
		assert.Equal(t, "bn", tr.calls[1].target)
	})

	t.Run("translate failure keeps the original text", func(t *testing.T) {
		tr := &stubTranslator{err: errors.New("server down")}
		g := NewGate(WithTranslator(tr))

		assert.Equal(t, "original", g.ToPivot(context.Background(), "original"))
		assert.Equal(t, "original", g.FromPivot(context.Background(), "original"))
	})

	t.Run("custom language pair", func(t *testing.T) {
		tr := &stubTranslator{out: "hola"}
		g := NewGate(
			WithTranslator(tr),
			WithMarkedLanguage("spa", unicode.Latin, "es"),
			WithPivotLanguage("en"),
		)

		g.ToPivot(context.Background(), "hello")
		require.Len(t, tr.calls, 1)
		assert.Equal(t, "es", tr.calls[0].source)
		assert.Equal(t, "en", tr.calls[0].target)
	})
}

func TestHTTPTranslator(t *testing.T) {
	t.Run("posts the LibreTranslate shape", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "/translate", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var req translateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "hello", req.Q)
			assert.Equal(t, "en", req.Source)
			assert.Equal(t, "bn", req.Target)
			assert.Equal(t, "text", req.Format)

			json.NewEncoder(w).Encode(translateResponse{TranslatedText: "হ্যালো"})
		}))
		defer server.Close()

		tr := NewHTTPTranslator(WithTranslatorBaseURL(server.URL))
		out, err := tr.Translate(context.Background(), "hello", "en", "bn")
		require.NoError(t, err)
		assert.Equal(t, "হ্যালো", out)
	})

	t.Run("surfaces API errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"unsupported pair"}`, http.StatusBadRequest)
		}))
		defer server.Close()

		tr := NewHTTPTranslator(WithTranslatorBaseURL(server.URL))
		_, err := tr.Translate(context.Background(), "hello", "en", "xx")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "translate API error (400)")
	})

	t.Run("unreachable server", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		tr := NewHTTPTranslator(WithTranslatorBaseURL(server.URL))
		_, err := tr.Translate(context.Background(), "hello", "en", "bn")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "request failed")
	})
}
