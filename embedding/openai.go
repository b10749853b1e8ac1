package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

// OpenAIOptions configure the OpenAI embedder.
type OpenAIOptions struct {
	Model string
}

// OpenAI implements Embedder using the OpenAI Embeddings API.
type OpenAI struct {
	client *openai.Client
	opts   OpenAIOptions
}

// Interface compliance (compile-time assertion)
var _ Embedder = (*OpenAI)(nil)

// NewOpenAI creates an embedder using the official client.
func NewOpenAI(optFns ...func(o *OpenAIOptions)) *OpenAI {
	client := openai.NewClient()
	return NewOpenAIFromClient(&client, optFns...)
}

// NewOpenAIFromClient creates an embedder from an existing client.
func NewOpenAIFromClient(client *openai.Client, optFns ...func(o *OpenAIOptions)) *OpenAI {
	opts := OpenAIOptions{Model: openai.EmbeddingModelTextEmbedding3Small}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &OpenAI{client: client, opts: opts}
}

// Embed implements Embedder.
func (e *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: e.opts.Model,
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embeddings: empty response")
	}
	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}
