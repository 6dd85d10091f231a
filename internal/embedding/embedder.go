// Package embedding turns job and query text into the vectors candidates are
// compared against.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/jonathan/candidate-ranker/internal/logging"
)

const (
	// DefaultModel is the Gemini embedding model.
	DefaultModel = "gemini-embedding-001"
	// DefaultDimensions matches the stored candidate vectors.
	DefaultDimensions = 3072
	// taskType asks for vectors tuned for similarity comparisons.
	taskType = "SEMANTIC_SIMILARITY"
)

// Embedder embeds a batch of texts, returning one vector per text in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// UnavailableError reports that target vectors could not be produced.
type UnavailableError struct {
	Message string
	Cause   error
}

func (e *UnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("embedding unavailable: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("embedding unavailable: %s", e.Message)
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// modelsAPI is the part of genai.Models the embedder uses.
type modelsAPI interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// GenAIEmbedder calls the Gemini embedding endpoint.
type GenAIEmbedder struct {
	models     modelsAPI
	model      string
	dimensions int32
	logger     *zap.Logger
}

// NewGenAIEmbedder creates an embedder for the Gemini API backend.
func NewGenAIEmbedder(ctx context.Context, apiKey, model string, dimensions int, logger *zap.Logger) (*GenAIEmbedder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenAIEmbedder(client.Models, model, dimensions, logger), nil
}

func newGenAIEmbedder(models modelsAPI, model string, dimensions int, logger *zap.Logger) *GenAIEmbedder {
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &GenAIEmbedder{
		models:     models,
		model:      model,
		dimensions: int32(dimensions),
		logger:     logging.OrNop(logger),
	}
}

// Model returns the embedding model name.
func (g *GenAIEmbedder) Model() string {
	return g.model
}

// Embed implements Embedder.
func (g *GenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	dims := g.dimensions
	resp, err := g.models.EmbedContent(ctx, g.model, contents, &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("embed content: expected %d embeddings, got %d", len(texts), got)
	}

	out := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("embed content: empty embedding at index %d", i)
		}
		out[i] = e.Values
	}

	g.logger.Debug("embedded texts",
		zap.String("model", g.model),
		zap.Int("count", len(texts)),
		zap.Int("dimensions", len(out[0])))
	return out, nil
}
