// Package notes indexes personal documents in an in-memory vector store
// so their most relevant chunks can be recalled for a question.
package notes

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"

	"github.com/aqua777/go-erik/extract"
	"github.com/aqua777/go-erik/textsplit"
)

const (
	// DefaultCollection is the name of the in-memory chunk collection.
	DefaultCollection = "notes"
	// DefaultTopK is the number of chunks Retrieve returns when none is given.
	DefaultTopK = 3
)

// Scored is one retrieved chunk with its cosine similarity to the query.
type Scored struct {
	Text   string
	Source string
	Score  float32
}

// Index stores embedded document chunks and answers similarity queries.
// Embeddings are computed externally and passed to the store explicitly.
type Index struct {
	collection *chromem.Collection
	embedder   Embedder
	splitter   *textsplit.Splitter
	logger     *slog.Logger
}

// IndexOption configures an Index.
type IndexOption func(*Index)

// WithSplitter sets the splitter used to chunk documents.
func WithSplitter(splitter *textsplit.Splitter) IndexOption {
	return func(i *Index) {
		i.splitter = splitter
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) IndexOption {
	return func(i *Index) {
		i.logger = logger
	}
}

// NewIndex creates an empty in-memory index backed by the given embedder.
func NewIndex(embedder Embedder, opts ...IndexOption) (*Index, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection(DefaultCollection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	idx := &Index{
		collection: collection,
		embedder:   embedder,
		logger:     slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}

	for _, opt := range opts {
		opt(idx)
	}

	if idx.splitter == nil {
		splitter, err := textsplit.NewSplitter()
		if err != nil {
			return nil, fmt.Errorf("failed to create splitter: %w", err)
		}
		idx.splitter = splitter
	}

	return idx, nil
}

// AddDocument extracts text from data, splits it into chunks, embeds each
// chunk, and stores them under the document name. It returns the number of
// chunks indexed.
func (i *Index) AddDocument(ctx context.Context, name string, data []byte, kind extract.Kind) (int, error) {
	text, err := extract.Text(data, kind)
	if err != nil {
		return 0, fmt.Errorf("failed to extract %s: %w", name, err)
	}

	chunks := i.splitter.Split(text)
	if len(chunks) == 0 {
		return 0, nil
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, chunk := range chunks {
		embedding, err := i.embedder.Embed(ctx, chunk)
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunk of %s: %w", name, err)
		}
		docs = append(docs, chromem.Document{
			ID:        uuid.New().String(),
			Content:   chunk,
			Metadata:  map[string]string{"source": name},
			Embedding: embedding,
		})
	}

	if err := i.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return 0, fmt.Errorf("failed to add documents: %w", err)
	}

	i.logger.Info("document indexed", "source", name, "chunks", len(docs))
	return len(docs), nil
}

// Retrieve returns the topK stored chunks most similar to the query.
// Retrieval is best effort: on any failure it logs a warning and returns nil
// so the caller can continue without notes context.
func (i *Index) Retrieve(ctx context.Context, query string, topK int) []Scored {
	if topK <= 0 {
		topK = DefaultTopK
	}

	count := i.collection.Count()
	if count == 0 {
		return nil
	}
	if topK > count {
		topK = count
	}

	embedding, err := i.embedder.Embed(ctx, query)
	if err != nil {
		i.logger.Warn("query embedding failed", "error", err)
		return nil
	}

	results, err := i.collection.QueryEmbedding(ctx, embedding, topK, nil, nil)
	if err != nil {
		i.logger.Warn("notes lookup failed", "error", err)
		return nil
	}

	scored := make([]Scored, len(results))
	for idx, res := range results {
		scored[idx] = Scored{
			Text:   res.Content,
			Source: res.Metadata["source"],
			Score:  res.Similarity,
		}
	}
	return scored
}

// Count reports how many chunks are stored.
func (i *Index) Count() int {
	return i.collection.Count()
}
