package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/sashabaranov/go-openai"
)

// EmbeddingDimensions matches the snippet table's vector column.
const EmbeddingDimensions = 1536

type Embedder interface {
	Embed(ctx context.Context, text string) (pgvector.Vector, error)
}

type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIEmbedder(apiKey, model string) *OpenAIEmbedder {
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAIEmbedder{client: openai.NewClient(apiKey), model: openai.EmbeddingModel(model)}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) (pgvector.Vector, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return pgvector.Vector{}, ErrEmpty
	}
	return pgvector.NewVector(resp.Data[0].Embedding), nil
}

// HashEmbedder is a keyless bag-of-words embedding. Similar word sets give
// similar vectors, which is enough for ranking a small snippet table.
type HashEmbedder struct{}

func (HashEmbedder) Embed(_ context.Context, text string) (pgvector.Vector, error) {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	vector := make([]float32, EmbeddingDimensions)

	for _, word := range words {
		hash := hashWord(word)
		for i := 0; i < EmbeddingDimensions; i++ {
			vector[i] += float32(math.Sin(float64(hash+uint32(i))) * 0.1)
		}
	}

	var magnitude float64
	for _, v := range vector {
		magnitude += float64(v * v)
	}
	magnitude = math.Sqrt(magnitude)
	if magnitude > 0 {
		for i := range vector {
			vector[i] /= float32(magnitude)
		}
	}
	return pgvector.NewVector(vector), nil
}

func hashWord(word string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(word))
	return h.Sum32()
}
