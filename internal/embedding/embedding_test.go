package embedding

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/jonathan/candidate-ranker/internal/aspects"
	"github.com/jonathan/candidate-ranker/internal/types"
)

// fakeModels implements modelsAPI for testing
type fakeModels struct {
	model    string
	config   *genai.EmbedContentConfig
	contents []*genai.Content
	resp     *genai.EmbedContentResponse
	err      error
}

func (f *fakeModels) EmbedContent(_ context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.model, f.contents, f.config = model, contents, config
	return f.resp, f.err
}

// fakeEmbedder maps each text to a vector derived from its length.
type fakeEmbedder struct {
	calls  atomic.Int32
	texts  [][]string
	err    error
	vector func(text string) []float32
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls.Add(1)
	f.texts = append(f.texts, texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if f.vector != nil {
			out[i] = f.vector(t)
		} else {
			out[i] = []float32{float32(len(t)), 1}
		}
	}
	return out, nil
}

func TestGenAIEmbedder_Embed(t *testing.T) {
	models := &fakeModels{resp: &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{
			{Values: []float32{1, 0}},
			{Values: []float32{0, 1}},
		},
	}}
	e := newGenAIEmbedder(models, "", 0, nil)

	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
	assert.Equal(t, DefaultModel, models.model)
	assert.Equal(t, DefaultModel, e.Model())
	require.Len(t, models.contents, 2)
	assert.Equal(t, "a", models.contents[0].Parts[0].Text)
	assert.Equal(t, taskType, models.config.TaskType)
	require.NotNil(t, models.config.OutputDimensionality)
	assert.Equal(t, int32(DefaultDimensions), *models.config.OutputDimensionality)
}

func TestGenAIEmbedder_Embed_Errors(t *testing.T) {
	tests := []struct {
		name   string
		models *fakeModels
		want   string
	}{
		{
			name:   "api error",
			models: &fakeModels{err: errors.New("quota exceeded")},
			want:   "quota exceeded",
		},
		{
			name:   "short response",
			models: &fakeModels{resp: &genai.EmbedContentResponse{Embeddings: []*genai.ContentEmbedding{{Values: []float32{1}}}}},
			want:   "expected 2 embeddings, got 1",
		},
		{
			name: "empty vector",
			models: &fakeModels{resp: &genai.EmbedContentResponse{Embeddings: []*genai.ContentEmbedding{
				{Values: []float32{1}}, {},
			}}},
			want: "empty embedding at index 1",
		},
		{
			name:   "nil response",
			models: &fakeModels{},
			want:   "got 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newGenAIEmbedder(tt.models, "text-embedding-004", 768, nil)
			_, err := e.Embed(context.Background(), []string{"a", "b"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewGenAIEmbedder_RequiresKey(t *testing.T) {
	_, err := NewGenAIEmbedder(context.Background(), "  ", "", 0, nil)
	assert.Error(t, err)
}

func TestCachedEmbedder(t *testing.T) {
	inner := &fakeEmbedder{}
	c := NewCachedEmbedder(inner, "model-a", 0)

	first, err := c.Embed(context.Background(), []string{"one", "three"})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	second, err := c.Embed(context.Background(), []string{"three", "fives", "one"})
	require.NoError(t, err)

	assert.Equal(t, first[1], second[0])
	assert.Equal(t, first[0], second[2])
	assert.Equal(t, []float32{5, 1}, second[1])
	assert.Equal(t, []string{"fives"}, inner.texts[1], "only misses reach the inner embedder")

	_, err = c.Embed(context.Background(), []string{"one", "three"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCachedEmbedder_FailureLeavesCacheUntouched(t *testing.T) {
	inner := &fakeEmbedder{err: errors.New("boom")}
	c := NewCachedEmbedder(inner, "model-a", 0)

	_, err := c.Embed(context.Background(), []string{"one"})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 0, c.Len())
}

func TestCachedEmbedder_NamespacesAreSeparate(t *testing.T) {
	a := NewCachedEmbedder(&fakeEmbedder{}, "model-a", 0)
	assert.NotEqual(t, a.key("text"), NewCachedEmbedder(&fakeEmbedder{}, "model-b", 0).key("text"))
	assert.Equal(t, a.key("text"), a.key("text"))
}

func testCatalog() *aspects.Catalog {
	return aspects.MustCatalog(
		aspects.Aspect{Key: "skills", Description: "Technical skills"},
		aspects.Aspect{Key: "experience", Description: "Work history"},
	)
}

func TestTargetBuilder_Build(t *testing.T) {
	inner := &fakeEmbedder{vector: func(text string) []float32 {
		switch {
		case strings.HasPrefix(text, "Aspect: skills"):
			return []float32{1, 0, 0}
		case strings.HasPrefix(text, "Aspect: experience"):
			return []float32{0, 1, 0}
		default:
			return []float32{0, 0, 1}
		}
	}}
	b := NewTargetBuilder(inner, testCatalog(), nil)
	job := &types.JobContext{ID: "job-1", Title: "Go Engineer", Description: "Build services"}

	target, fallback, err := b.Build(context.Background(), job, "senior")
	require.NoError(t, err)

	assert.False(t, fallback)
	assert.Equal(t, []float32{0, 0, 1}, target.Job)
	assert.Equal(t, []float32{1, 0, 0}, target.Aspects["skills"])
	assert.Equal(t, []float32{0, 1, 0}, target.Aspects["experience"])

	require.Len(t, inner.texts, 1, "one batch per target")
	batch := inner.texts[0]
	require.Len(t, batch, 3)
	assert.Equal(t, "Job title: Go Engineer\nJob description: Build services\nRecruiter request: senior", batch[0])
	assert.Equal(t, "Aspect: skills (Technical skills)\n"+batch[0], batch[1])
}

func TestTargetBuilder_Build_Fallback(t *testing.T) {
	b := NewTargetBuilder(&fakeEmbedder{err: errors.New("unavailable")}, testCatalog(), nil)

	job := &types.JobContext{ID: "job-1", Embedding: []float32{0.5, 0.5}}
	target, fallback, err := b.Build(context.Background(), job, "")
	require.NoError(t, err)
	assert.True(t, fallback)
	assert.Equal(t, job.Embedding, target.Job)
	assert.Equal(t, job.Embedding, target.For("skills"))

	_, _, err = b.Build(context.Background(), &types.JobContext{ID: "job-2"}, "")
	var unavailable *UnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.EqualError(t, errors.Unwrap(err), "unavailable")
}

func TestTargetBuilder_Build_DimensionMismatchFallsBack(t *testing.T) {
	inner := &fakeEmbedder{vector: func(string) []float32 { return []float32{1, 0, 0} }}
	b := NewTargetBuilder(inner, testCatalog(), nil)

	job := &types.JobContext{ID: "job-1", Embedding: []float32{0.5, 0.5, 0.5, 0.5}}
	target, fallback, err := b.Build(context.Background(), job, "q")
	require.NoError(t, err)
	assert.True(t, fallback)
	assert.Equal(t, job.Embedding, target.Job)
	assert.Empty(t, target.Aspects)
	assert.Equal(t, job.Embedding, target.For("experience"))
}

func TestTargetBuilder_Build_NoEmbedder(t *testing.T) {
	b := NewTargetBuilder(nil, testCatalog(), nil)

	target, fallback, err := b.Build(context.Background(), &types.JobContext{ID: "job-1", Embedding: []float32{1}}, "q")
	require.NoError(t, err)
	assert.True(t, fallback)
	assert.Equal(t, []float32{1}, target.Job)

	_, _, err = b.Build(context.Background(), &types.JobContext{ID: "job-1"}, "q")
	var unavailable *UnavailableError
	assert.True(t, errors.As(err, &unavailable))
}

func TestTargetBuilder_Build_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := NewTargetBuilder(&fakeEmbedder{err: context.Canceled}, testCatalog(), nil)

	_, _, err := b.Build(ctx, &types.JobContext{ID: "job-1", Embedding: []float32{1}}, "q")
	assert.ErrorIs(t, err, context.Canceled)
}
