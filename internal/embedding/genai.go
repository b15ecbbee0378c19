package embedding

import (
	"context"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

// GenAI embeds through Google's Gemini embedding models.
type GenAI struct {
	client *genai.Client
	model  string
	dims   int
}

// NewGenAI creates a Gemini-backed Embedder.
func NewGenAI(ctx context.Context, apiKey, model string, dims int) (*GenAI, error) {
	if apiKey == "" {
		return nil, eris.New("embedding: genai API key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	if dims <= 0 {
		dims = 768
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, eris.Wrap(err, "embedding: create genai client")
	}
	return &GenAI{client: client, model: model, dims: dims}, nil
}

// EmbedQuery implements Embedder.
func (g *GenAI) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.embed(ctx, []string{text}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedDocuments implements Embedder.
func (g *GenAI) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return g.embed(ctx, texts, "RETRIEVAL_DOCUMENT")
}

func (g *GenAI) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	dims := int32(g.dims)
	result, err := g.client.Models.EmbedContent(ctx, g.model, contents, &genai.EmbedContentConfig{
		TaskType:             task,
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, eris.Wrap(err, "embedding: genai embed")
	}
	if len(result.Embeddings) != len(texts) {
		return nil, eris.Errorf("embedding: genai returned %d vectors for %d texts", len(result.Embeddings), len(texts))
	}

	out := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

// Dimensions implements Embedder.
func (g *GenAI) Dimensions() int { return g.dims }

// Name implements Embedder.
func (g *GenAI) Name() string { return "genai:" + g.model }
