package ranking

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/jonathan/candidate-ranker/internal/aspects"
	"github.com/jonathan/candidate-ranker/internal/store"
	"github.com/jonathan/candidate-ranker/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbeddings implements store.EmbeddingStore over plain maps.
type fakeEmbeddings struct {
	aspectVecs map[string]map[aspects.Key][]float32
	overall    map[string][]float32
	failOn     string
	calls      atomic.Int64
}

func (f *fakeEmbeddings) GetAspectEmbeddings(ctx context.Context, id string) (map[aspects.Key][]float32, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == f.failOn {
		return nil, errors.New("connection reset")
	}
	v, ok := f.aspectVecs[id]
	if !ok {
		return nil, &store.NotFoundError{Kind: store.KindEmbeddings, ID: id}
	}
	return v, nil
}

func (f *fakeEmbeddings) GetCandidateEmbedding(_ context.Context, id string) ([]float32, error) {
	v, ok := f.overall[id]
	if !ok {
		return nil, &store.NotFoundError{Kind: store.KindEmbeddings, ID: id}
	}
	return v, nil
}

func (f *fakeEmbeddings) ListCandidates(_ context.Context, _ string) ([]string, error) {
	ids := make([]string, 0, len(f.aspectVecs))
	for id := range f.aspectVecs {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestScorer_Score_Order(t *testing.T) {
	catalog := skillsExperience()
	emb := &fakeEmbeddings{
		aspectVecs: map[string]map[aspects.Key][]float32{
			"B": {"skills": vecWithSimilarity(0), "experience": vecWithSimilarity(1)},
			"A": {"skills": vecWithSimilarity(1), "experience": vecWithSimilarity(0)},
			"C": {"skills": vecWithSimilarity(0.6)},
		},
		overall: map[string][]float32{"A": {1, 0}},
	}
	scorer := NewScorer(emb, catalog, 2, nil)
	w := types.WeightVector{"skills": 0.8, "experience": 0.2}

	result, err := scorer.Score(context.Background(), unitTarget(), w, []string{"B", "C", "A"})
	require.NoError(t, err)

	require.Equal(t, []string{"A", "C", "B"}, result.IDs())
	assert.InDelta(t, 0.8, result[0].CompositeScore, 1e-6)
	assert.InDelta(t, 0.48, result[1].CompositeScore, 1e-6)
	assert.InDelta(t, 0.2, result[2].CompositeScore, 1e-6)
	assert.InDelta(t, 1.0, result[0].Breakdown.OverallSimilarity, 1e-9)
	assert.Equal(t, 0.0, result[1].Breakdown.OverallSimilarity)
	assert.Equal(t, []aspects.Key{"experience"}, result[1].Breakdown.MissingAspects)
	for i, c := range result {
		assert.Equal(t, i+1, c.Rank)
	}
}

func TestScorer_Score_Deterministic(t *testing.T) {
	catalog := aspects.Default()
	rng := rand.New(rand.NewSource(7))
	emb := &fakeEmbeddings{aspectVecs: map[string]map[aspects.Key][]float32{}}
	ids := make([]string, 0, 200)
	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("cand-%03d", i)
		ids = append(ids, id)
		vecs := map[aspects.Key][]float32{}
		for _, key := range catalog.Keys() {
			if rng.Intn(5) == 0 {
				continue
			}
			vecs[key] = []float32{rng.Float32() - 0.5, rng.Float32() - 0.5, rng.Float32() - 0.5}
		}
		if i%10 == 0 {
			// force ties on an empty-similarity candidate
			vecs = map[aspects.Key][]float32{aspects.Other: {0, 0, 0}}
		}
		emb.aspectVecs[id] = vecs
	}

	target := Target{Job: []float32{0.3, -0.1, 0.8}}
	w := types.WeightVector{}
	for _, key := range catalog.Keys() {
		w[key] = 1.0 / float64(catalog.Len())
	}
	scorer := NewScorer(emb, catalog, 16, nil)

	first, err := scorer.Score(context.Background(), target, w, ids)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := scorer.Score(context.Background(), target, w, ids)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	for i := 1; i < len(first); i++ {
		prev, cur := first[i-1], first[i]
		require.True(t, prev.CompositeScore > cur.CompositeScore ||
			(prev.CompositeScore == cur.CompositeScore && prev.CandidateID < cur.CandidateID),
			"result not totally ordered at %d", i)
	}
}

func TestScorer_Score_SkipsCandidatesWithoutEmbeddings(t *testing.T) {
	emb := &fakeEmbeddings{aspectVecs: map[string]map[aspects.Key][]float32{
		"A": {"skills": {1, 0}},
	}}
	scorer := NewScorer(emb, skillsExperience(), 0, nil)

	result, err := scorer.Score(context.Background(), unitTarget(),
		types.WeightVector{"skills": 0.5, "experience": 0.5}, []string{"ghost", "A", "A"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, result.IDs())
	assert.EqualValues(t, 2, emb.calls.Load(), "duplicates are scored once")
}

func TestScorer_Score_AllMissingIsNotFound(t *testing.T) {
	emb := &fakeEmbeddings{aspectVecs: map[string]map[aspects.Key][]float32{}}
	scorer := NewScorer(emb, skillsExperience(), 4, nil)

	_, err := scorer.Score(context.Background(), unitTarget(), types.WeightVector{}, []string{"x", "y"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestScorer_Score_EmptyInput(t *testing.T) {
	scorer := NewScorer(&fakeEmbeddings{}, skillsExperience(), 4, nil)

	result, err := scorer.Score(context.Background(), unitTarget(), types.WeightVector{}, nil)
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Empty(t, result)
}

func TestScorer_Score_StoreErrorPropagates(t *testing.T) {
	emb := &fakeEmbeddings{
		aspectVecs: map[string]map[aspects.Key][]float32{"A": {"skills": {1, 0}}},
		failOn:     "B",
	}
	scorer := NewScorer(emb, skillsExperience(), 1, nil)

	_, err := scorer.Score(context.Background(), unitTarget(), types.WeightVector{}, []string{"A", "B"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NotErrorIs(t, err, store.ErrNotFound)
}

func TestScorer_Score_Cancelled(t *testing.T) {
	emb := &fakeEmbeddings{aspectVecs: map[string]map[aspects.Key][]float32{"A": {"skills": {1, 0}}}}
	scorer := NewScorer(emb, skillsExperience(), 1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := scorer.Score(ctx, unitTarget(), types.WeightVector{}, []string{"A"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScorer_Score_DimensionMismatch(t *testing.T) {
	emb := &fakeEmbeddings{aspectVecs: map[string]map[aspects.Key][]float32{
		"z-best":  {"skills": {1, 1, 1, 1}, "experience": {1, 1, 1, 1}},
		"a-worst": {"skills": {-1, -1, -1, -1}, "experience": {-1, -1, -1, -1}},
	}}
	scorer := NewScorer(emb, skillsExperience(), 2, nil)
	target := Target{Job: []float32{1, 1, 1}}

	result, err := scorer.Score(context.Background(), target,
		types.WeightVector{"skills": 0.5, "experience": 0.5}, []string{"z-best", "a-worst"})
	require.Error(t, err)
	assert.Nil(t, result)

	var dimErr *DimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 4, dimErr.Got)
	assert.Equal(t, 3, dimErr.Want)
	assert.NotErrorIs(t, err, store.ErrNotFound)
}

func TestScorer_Score_OverallDimensionMismatchIsInformational(t *testing.T) {
	emb := &fakeEmbeddings{
		aspectVecs: map[string]map[aspects.Key][]float32{"A": {"skills": vecWithSimilarity(1)}},
		overall:    map[string][]float32{"A": {1, 0, 0}},
	}
	scorer := NewScorer(emb, skillsExperience(), 1, nil)

	result, err := scorer.Score(context.Background(), unitTarget(),
		types.WeightVector{"skills": 1}, []string{"A"})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result[0].CompositeScore, 1e-6)
	assert.Equal(t, 0.0, result[0].Breakdown.OverallSimilarity)
}
