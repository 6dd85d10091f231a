package sqlite

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/candidate-ranker/internal/aspects"
	"github.com/jonathan/candidate-ranker/internal/store"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"), aspects.Default())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	posted := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := &store.Fixture{
		Jobs: []store.FixtureJob{
			{ID: "job-1", Title: "Backend Engineer", Description: "Go services", PostedAt: &posted,
				Embedding: []float32{0.1, 0.2}, CandidateIDs: []string{"cand-b", "cand-a"}},
			{ID: "job-empty", Title: "Empty"},
		},
		Candidates: []store.FixtureCandidate{
			{ID: "cand-a", Name: "Ada", Title: "SRE", Embedding: []float32{1, 0},
				Aspects: map[string][]float32{"technical_skills": {1, 0}, "Experience": {0, 1}, "hobbies": {1, 1}}},
			{ID: "cand-b", Name: "Bo", Summary: "Generalist"},
		},
	}
	require.NoError(t, s.ImportFixture(context.Background(), f))
}

func TestStore_GetJob(t *testing.T) {
	s := tempDB(t)
	seed(t, s)

	job, err := s.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", job.Title)
	assert.Equal(t, "Go services", job.Description)
	assert.Equal(t, []float32{0.1, 0.2}, job.Embedding)
	assert.True(t, job.PostedAt.Equal(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)))

	_, err = s.GetJob(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_ListCandidateIDs(t *testing.T) {
	s := tempDB(t)
	seed(t, s)

	ids, err := s.ListCandidateIDs(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"cand-b", "cand-a"}, ids, "fixture order is kept")

	ids, err = s.ListCandidates(context.Background(), "job-empty")
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)

	_, err = s.ListCandidateIDs(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_GetCandidateProfiles(t *testing.T) {
	s := tempDB(t)
	seed(t, s)

	profiles, err := s.GetCandidateProfiles(context.Background(), []string{"cand-a", "cand-b", "ghost"})
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "Ada", profiles["cand-a"].Name)
	assert.Equal(t, "Generalist", profiles["cand-b"].Summary)

	profiles, err = s.GetCandidateProfiles(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestStore_GetAspectEmbeddings(t *testing.T) {
	s := tempDB(t)
	seed(t, s)

	vecs, err := s.GetAspectEmbeddings(context.Background(), "cand-a")
	require.NoError(t, err)
	assert.Equal(t, map[aspects.Key][]float32{
		aspects.TechnicalSkills: {1, 0},
		aspects.Experience:      {0, 1},
	}, vecs, "labels outside the catalog are dropped")

	_, err = s.GetAspectEmbeddings(context.Background(), "cand-b")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_GetCandidateEmbedding(t *testing.T) {
	s := tempDB(t)
	seed(t, s)

	vec, err := s.GetCandidateEmbedding(context.Background(), "cand-a")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)

	_, err = s.GetCandidateEmbedding(context.Background(), "cand-b")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetCandidateEmbedding(context.Background(), "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_IncrementalWrites(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	require.NoError(t, s.SaveJob(ctx, store.FixtureJob{ID: "job-2", Title: "Data"}))
	require.NoError(t, s.SaveCandidate(ctx, store.FixtureCandidate{ID: "cand-z", Name: "Zed"}))
	require.NoError(t, s.LinkCandidate(ctx, "job-2", "cand-z", 0))
	require.NoError(t, s.SaveAspectEmbedding(ctx, "cand-z", "education", []float32{0.5}))

	ids, err := s.ListCandidateIDs(ctx, "job-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"cand-z"}, ids)

	vecs, err := s.GetAspectEmbeddings(ctx, "cand-z")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5}, vecs[aspects.Education])

	assert.Error(t, s.LinkCandidate(ctx, "job-2", "ghost", 1), "foreign keys are enforced")
}

func TestStore_ImportFixtureIsIdempotent(t *testing.T) {
	s := tempDB(t)
	seed(t, s)
	seed(t, s)

	ids, err := s.ListCandidateIDs(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestStore_ImportFixtureRejectsInvalid(t *testing.T) {
	s := tempDB(t)
	err := s.ImportFixture(context.Background(), &store.Fixture{
		Jobs: []store.FixtureJob{{ID: "job-1", CandidateIDs: []string{"ghost"}}},
	})
	assert.Error(t, err)
}

func TestVectorRoundTrip(t *testing.T) {
	v := []float32{0, -1.5, math.MaxFloat32, float32(math.Inf(1))}
	assert.Equal(t, v, decodeVector(encodeVector(v)))
	assert.Nil(t, encodeVector(nil))
	assert.Nil(t, decodeVector([]byte{1, 2}))
}
