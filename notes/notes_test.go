package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqua777/go-erik/extract"
	"github.com/aqua777/go-erik/textsplit"
)

// stubEmbedder maps keywords to fixed vectors so similarity is deterministic.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
	queries []string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.queries = append(s.queries, text)
	for key, vec := range s.vectors {
		if strings.Contains(text, key) {
			return vec, nil
		}
	}
	return []float32{0, 0, 1}, nil
}

func newTestIndex(t *testing.T, embedder Embedder, chunkSize int) *Index {
	t.Helper()

	splitter, err := textsplit.NewSplitter(
		textsplit.WithTokenizer(textsplit.WordTokenizer{}),
		textsplit.WithChunkSize(chunkSize),
		textsplit.WithChunkOverlap(0),
	)
	require.NoError(t, err)

	idx, err := NewIndex(embedder, WithSplitter(splitter))
	require.NoError(t, err)
	return idx
}

func TestOllamaEmbedder(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("OLLAMA_HOST", "")

		e := NewOllamaEmbedder()
		assert.Equal(t, OllamaDefaultURL, e.baseURL)
		assert.Equal(t, DefaultEmbedModel, e.Model())
	})

	t.Run("honors OLLAMA_HOST", func(t *testing.T) {
		t.Setenv("OLLAMA_HOST", "http://ollama.lan:11434")

		e := NewOllamaEmbedder()
		assert.Equal(t, "http://ollama.lan:11434", e.baseURL)
	})

	t.Run("options", func(t *testing.T) {
		e := NewOllamaEmbedder(
			WithEmbedderBaseURL("http://localhost:9999"),
			WithEmbedderModel("all-minilm"),
			WithEmbedderHTTPClient(&http.Client{}),
		)
		assert.Equal(t, "http://localhost:9999", e.baseURL)
		assert.Equal(t, "all-minilm", e.Model())
	})

	t.Run("embed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/embeddings", r.URL.Path)

			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "nomic-embed-text", req["model"])
			assert.Equal(t, "what is photosynthesis", req["prompt"])

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"embedding": [0.5, 0.25, -1]}`)
		}))
		defer server.Close()

		e := NewOllamaEmbedder(WithEmbedderBaseURL(server.URL))
		embedding, err := e.Embed(context.Background(), "what is photosynthesis")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.5, 0.25, -1}, embedding)
	})

	t.Run("api error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}))
		defer server.Close()

		e := NewOllamaEmbedder(WithEmbedderBaseURL(server.URL))
		_, err := e.Embed(context.Background(), "anything")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ollama API error (404)")
	})
}

func TestNewIndex(t *testing.T) {
	_, err := NewIndex(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedder is required")
}

func TestIndexAddDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("indexes a short document as one chunk", func(t *testing.T) {
		embedder := &stubEmbedder{}
		idx := newTestIndex(t, embedder, 32)

		added, err := idx.AddDocument(ctx, "biology.txt", []byte("Plants convert light into chemical energy."), extract.KindText)
		require.NoError(t, err)
		assert.Equal(t, 1, added)
		assert.Equal(t, 1, idx.Count())
	})

	t.Run("splits longer documents into chunks", func(t *testing.T) {
		embedder := &stubEmbedder{}
		idx := newTestIndex(t, embedder, 4)

		text := "Apples are red. Bananas are yellow. Grapes are green."
		added, err := idx.AddDocument(ctx, "fruit.txt", []byte(text), extract.KindText)
		require.NoError(t, err)
		assert.Equal(t, 3, added)
		assert.Equal(t, 3, idx.Count())
	})

	t.Run("strips markup from html documents", func(t *testing.T) {
		embedder := &stubEmbedder{}
		idx := newTestIndex(t, embedder, 32)

		raw := "<html><body><p>Tigers hunt at night.</p><script>alert(1)</script></body></html>"
		added, err := idx.AddDocument(ctx, "page.html", []byte(raw), extract.KindHTML)
		require.NoError(t, err)
		require.Equal(t, 1, added)

		scored := idx.Retrieve(ctx, "tigers", 1)
		require.Len(t, scored, 1)
		assert.Equal(t, "Tigers hunt at night.", scored[0].Text)
		assert.Equal(t, "page.html", scored[0].Source)
	})

	t.Run("blank document adds nothing", func(t *testing.T) {
		embedder := &stubEmbedder{}
		idx := newTestIndex(t, embedder, 32)

		added, err := idx.AddDocument(ctx, "empty.txt", []byte("   \n\t "), extract.KindText)
		require.NoError(t, err)
		assert.Equal(t, 0, added)
		assert.Equal(t, 0, idx.Count())
	})

	t.Run("unsupported kind", func(t *testing.T) {
		embedder := &stubEmbedder{}
		idx := newTestIndex(t, embedder, 32)

		_, err := idx.AddDocument(ctx, "notes.md", []byte("# Heading"), extract.Kind("markdown"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported document kind")
	})

	t.Run("embedding failure surfaces", func(t *testing.T) {
		embedder := &stubEmbedder{err: errors.New("embedder down")}
		idx := newTestIndex(t, embedder, 32)

		_, err := idx.AddDocument(ctx, "biology.txt", []byte("Plants convert light into chemical energy."), extract.KindText)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to embed chunk of biology.txt")
		assert.Contains(t, err.Error(), "embedder down")
		assert.Equal(t, 0, idx.Count())
	})
}

func TestIndexRetrieve(t *testing.T) {
	ctx := context.Background()

	vectors := map[string][]float32{
		"Apple":  {1, 0, 0},
		"Engine": {0, 1, 0},
	}

	seed := func(t *testing.T, idx *Index) {
		t.Helper()
		_, err := idx.AddDocument(ctx, "fruit.txt", []byte("Apples are red fruits that grow on trees."), extract.KindText)
		require.NoError(t, err)
		_, err = idx.AddDocument(ctx, "cars.txt", []byte("Engines burn fuel to move a car forward."), extract.KindText)
		require.NoError(t, err)
	}

	t.Run("returns the most similar chunk", func(t *testing.T) {
		embedder := &stubEmbedder{vectors: vectors}
		idx := newTestIndex(t, embedder, 32)
		seed(t, idx)

		scored := idx.Retrieve(ctx, "Which Apple variety is sweetest?", 1)
		require.Len(t, scored, 1)
		assert.Contains(t, scored[0].Text, "Apples")
		assert.Equal(t, "fruit.txt", scored[0].Source)
		assert.InDelta(t, 1.0, scored[0].Score, 0.0001)
	})

	t.Run("clamps topK to stored chunks", func(t *testing.T) {
		embedder := &stubEmbedder{vectors: vectors}
		idx := newTestIndex(t, embedder, 32)
		seed(t, idx)

		scored := idx.Retrieve(ctx, "Apple", 10)
		assert.Len(t, scored, 2)
	})

	t.Run("zero topK uses the default", func(t *testing.T) {
		embedder := &stubEmbedder{vectors: vectors}
		idx := newTestIndex(t, embedder, 32)
		seed(t, idx)

		scored := idx.Retrieve(ctx, "Apple", 0)
		assert.Len(t, scored, 2)
	})

	t.Run("empty index returns nil", func(t *testing.T) {
		embedder := &stubEmbedder{vectors: vectors}
		idx := newTestIndex(t, embedder, 32)

		assert.Nil(t, idx.Retrieve(ctx, "Apple", 3))
	})

	t.Run("query embedding failure degrades to nil", func(t *testing.T) {
		embedder := &stubEmbedder{vectors: vectors}
		idx := newTestIndex(t, embedder, 32)
		seed(t, idx)

		embedder.err = errors.New("ollama offline")
		assert.Nil(t, idx.Retrieve(ctx, "Apple", 1))
	})
}
