package ai

import (
	"context"
	"fmt"
	"net/http"

	embedding "github.com/matthewjhunter/go-embedding"
	"github.com/ollama/ollama/api"
)

// OllamaEmbedder produces embeddings with an Ollama embedding model.
type OllamaEmbedder struct {
	client *api.Client
	model  string
}

var _ embedding.Embedder = (*OllamaEmbedder)(nil)

func NewOllamaEmbedder(baseURL, model string, httpClient *http.Client) (*OllamaEmbedder, error) {
	client, err := newClient(baseURL, httpClient)
	if err != nil {
		return nil, err
	}
	return &OllamaEmbedder{client: client, model: model}, nil
}

// Embed returns one vector per input text, in order.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed failed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}

func (e *OllamaEmbedder) Model() string { return e.model }
