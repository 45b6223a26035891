package analyzer

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/marcus/bujo/internal/llm"
)

//go:embed documents.yaml
var defaultDocumentsYAML []byte

type documentFile struct {
	Documents []string `yaml:"documents"`
}

// DefaultDocuments returns the built-in retrieval corpus.
func DefaultDocuments() []string {
	docs, err := parseDocuments(defaultDocumentsYAML)
	if err != nil {
		panic("analyzer: built-in documents: " + err.Error())
	}
	return docs
}

// LoadDocuments reads a YAML corpus file with a top-level "documents" list.
func LoadDocuments(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}
	return parseDocuments(data)
}

func parseDocuments(data []byte) ([]string, error) {
	var f documentFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse documents: %w", err)
	}
	var docs []string
	for _, d := range f.Documents {
		if d = strings.TrimSpace(d); d != "" {
			docs = append(docs, d)
		}
	}
	if len(docs) == 0 {
		return nil, errors.New("parse documents: no documents")
	}
	return docs, nil
}

// Retriever finds the corpus documents closest to a query by embedding
// similarity. Document embeddings are computed on first use and kept;
// a failed attempt is retried on the next call.
type Retriever struct {
	client llm.Client
	docs   []string

	mu      sync.Mutex
	vectors [][]float32
}

// NewRetriever creates a Retriever over docs.
func NewRetriever(client llm.Client, docs []string) *Retriever {
	return &Retriever{client: client, docs: docs}
}

// TopK returns up to k documents ranked by cosine similarity to query.
func (r *Retriever) TopK(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 || len(r.docs) == 0 {
		return nil, nil
	}
	vectors, err := r.documentVectors(ctx)
	if err != nil {
		return nil, err
	}
	q, err := r.client.Embed(ctx, []string{query}, llm.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(q) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(q))
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(vectors))
	for i, v := range vectors {
		ranked[i] = scored{i, llm.Cosine(q[0], v)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	k = min(k, len(ranked))
	out := make([]string, k)
	for i := range k {
		out[i] = r.docs[ranked[i].idx]
	}
	return out, nil
}

func (r *Retriever) documentVectors(ctx context.Context) ([][]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.vectors != nil {
		return r.vectors, nil
	}
	vectors, err := r.client.Embed(ctx, r.docs, llm.TaskRetrievalDocument)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(r.docs) {
		return nil, fmt.Errorf("embed documents: got %d vectors for %d documents", len(vectors), len(r.docs))
	}
	r.vectors = vectors
	return vectors, nil
}
