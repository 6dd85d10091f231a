package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonathan/candidate-ranker/internal/aspects"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureJSON = `{
  "jobs": [
    {"id": "job-1", "title": "Backend Engineer", "description": "Go services", "candidate_ids": ["cand-a", "cand-b"]},
    {"id": "job-empty", "title": "Nobody Applied", "description": "none", "candidate_ids": []}
  ],
  "candidates": [
    {"id": "cand-a", "name": "Ada", "title": "SRE", "embedding": [1, 0],
     "aspects": {"skills": [1, 0], "experience": [0, 1], "bogus": [1, 1]}},
    {"id": "cand-b", "name": "Bob", "title": "Dev", "aspects": {}}
  ]
}`

func testCatalog() *aspects.Catalog {
	return aspects.MustCatalog(aspects.Aspect{Key: "skills"}, aspects.Aspect{Key: "experience"})
}

func newTestMemory(t *testing.T) *Memory {
	t.Helper()
	f, err := ParseFixture([]byte(fixtureJSON))
	require.NoError(t, err)
	return NewMemory(f, testCatalog())
}

func TestMemory_GetJob(t *testing.T) {
	m := newTestMemory(t)
	ctx := context.Background()

	job, err := m.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", job.Title)

	_, err = m.GetJob(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, KindJob, nf.Kind)
}

func TestMemory_ListCandidateIDs(t *testing.T) {
	m := newTestMemory(t)
	ctx := context.Background()

	ids, err := m.ListCandidateIDs(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"cand-a", "cand-b"}, ids)

	ids, err = m.ListCandidates(ctx, "job-empty")
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.NotNil(t, ids)

	_, err = m.ListCandidateIDs(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_GetAspectEmbeddings(t *testing.T) {
	m := newTestMemory(t)
	ctx := context.Background()

	vecs, err := m.GetAspectEmbeddings(ctx, "cand-a")
	require.NoError(t, err)
	assert.Len(t, vecs, 2, "unknown aspect labels are dropped")
	assert.Equal(t, []float32{1, 0}, vecs["skills"])

	_, err = m.GetAspectEmbeddings(ctx, "cand-b")
	assert.ErrorIs(t, err, ErrNotFound, "no embeddings at all is NotFound")
}

func TestMemory_GetCandidateEmbeddingAndProfiles(t *testing.T) {
	m := newTestMemory(t)
	ctx := context.Background()

	vec, err := m.GetCandidateEmbedding(ctx, "cand-a")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)

	_, err = m.GetCandidateEmbedding(ctx, "cand-b")
	assert.ErrorIs(t, err, ErrNotFound)

	profiles, err := m.GetCandidateProfiles(ctx, []string{"cand-a", "ghost"})
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
	assert.Equal(t, "Ada", profiles["cand-a"].Name)
}

func TestMemory_RespectsCancellation(t *testing.T) {
	m := newTestMemory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.GetAspectEmbeddings(ctx, "cand-a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseFixture_Invalid(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{name: "bad json", json: `{`},
		{name: "duplicate candidate", json: `{"candidates": [{"id": "a"}, {"id": "a"}]}`},
		{name: "missing job id", json: `{"jobs": [{"title": "x"}]}`},
		{name: "unknown reference", json: `{"jobs": [{"id": "j", "candidate_ids": ["ghost"]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFixture([]byte(tt.json))
			assert.Error(t, err)
		})
	}
}

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, os.WriteFile(path, []byte(fixtureJSON), 0644))

	f, err := LoadFixture(path)
	require.NoError(t, err)
	assert.Len(t, f.Jobs, 2)
	assert.Len(t, f.Candidates, 2)

	_, err = LoadFixture(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestFilterAspects_PrefersExactLabel(t *testing.T) {
	got := FilterAspects(map[string][]float32{
		"Skills": {9},
		"skills": {1},
		"other":  {2},
		"empty":  {},
	}, testCatalog())

	assert.Equal(t, []float32{1}, got["skills"])
	assert.Len(t, got, 1)
}
