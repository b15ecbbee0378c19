// Package embedding turns item descriptions and catalog labels into vectors
// for the restriction catalog's similarity search.
package embedding

import (
	"context"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tradecheck/internal/resilience"
	"github.com/sells-group/tradecheck/pkg/jina"
)

// Embedder produces vectors for search queries and for catalog documents.
// Providers with asymmetric models embed the two sides differently.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
}

// Jina embeds through the Jina embeddings API.
type Jina struct {
	client jina.Client
	model  string
	dims   int
}

// NewJina creates a Jina-backed Embedder. dims of 0 keeps the model default.
func NewJina(client jina.Client, model string, dims int) *Jina {
	if model == "" {
		model = "jina-embeddings-v3"
	}
	return &Jina{client: client, model: model, dims: dims}
}

// EmbedQuery implements Embedder.
func (j *Jina) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := j.embed(ctx, []string{text}, jina.TaskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedDocuments implements Embedder.
func (j *Jina) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return j.embed(ctx, texts, jina.TaskRetrievalPassage)
}

func (j *Jina) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	resp, err := j.client.Embed(ctx, jina.EmbedRequest{
		Model:      j.model,
		Input:      texts,
		Task:       task,
		Dimensions: j.dims,
		Normalized: true,
	})
	if err != nil {
		return nil, eris.Wrap(err, "embedding: jina")
	}
	if len(resp.Data) != len(texts) {
		return nil, eris.Errorf("embedding: jina returned %d vectors for %d texts", len(resp.Data), len(texts))
	}

	data := slices.Clone(resp.Data)
	slices.SortFunc(data, func(a, b jina.EmbeddingData) int { return a.Index - b.Index })
	out := make([][]float32, len(data))
	for i, d := range data {
		out[i] = d.Embedding
	}
	return out, nil
}

// Dimensions implements Embedder.
func (j *Jina) Dimensions() int {
	if j.dims > 0 {
		return j.dims
	}
	return 1024
}

// Name implements Embedder.
func (j *Jina) Name() string { return "jina:" + j.model }

// WithPolicy wraps e so every call is rate limited and retried under p.
func WithPolicy(e Embedder, p resilience.Policy) Embedder {
	return &policyEmbedder{next: e, policy: p}
}

type policyEmbedder struct {
	next   Embedder
	policy resilience.Policy
}

func (p *policyEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return resilience.Call(ctx, p.policy, func(ctx context.Context) ([]float32, error) {
		return p.next.EmbedQuery(ctx, text)
	})
}

func (p *policyEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return resilience.Call(ctx, p.policy, func(ctx context.Context) ([][]float32, error) {
		return p.next.EmbedDocuments(ctx, texts)
	})
}

func (p *policyEmbedder) Dimensions() int { return p.next.Dimensions() }
func (p *policyEmbedder) Name() string    { return p.next.Name() }
