package store

import (
	"context"

	"github.com/jonathan/candidate-ranker/internal/aspects"
	"github.com/jonathan/candidate-ranker/internal/types"
)

// Memory is a read-only in-memory Backend built from a Fixture.
type Memory struct {
	jobs       map[string]types.JobContext
	jobMembers map[string][]string
	profiles   map[string]types.CandidateProfile
	overall    map[string][]float32
	aspectVecs map[string]map[aspects.Key][]float32
}

var _ Backend = (*Memory)(nil)

// NewMemory indexes the fixture. Aspect labels outside the catalog are dropped.
func NewMemory(f *Fixture, catalog *aspects.Catalog) *Memory {
	m := &Memory{
		jobs:       make(map[string]types.JobContext, len(f.Jobs)),
		jobMembers: make(map[string][]string, len(f.Jobs)),
		profiles:   make(map[string]types.CandidateProfile, len(f.Candidates)),
		overall:    make(map[string][]float32, len(f.Candidates)),
		aspectVecs: make(map[string]map[aspects.Key][]float32, len(f.Candidates)),
	}

	for _, j := range f.Jobs {
		job := types.JobContext{
			ID:          j.ID,
			Title:       j.Title,
			Description: j.Description,
			Embedding:   j.Embedding,
		}
		if j.PostedAt != nil {
			job.PostedAt = *j.PostedAt
		}
		m.jobs[j.ID] = job
		m.jobMembers[j.ID] = append([]string(nil), j.CandidateIDs...)
	}

	for _, c := range f.Candidates {
		m.profiles[c.ID] = types.CandidateProfile{ID: c.ID, Name: c.Name, Title: c.Title, Summary: c.Summary}
		if len(c.Embedding) > 0 {
			m.overall[c.ID] = c.Embedding
		}
		if vecs := FilterAspects(c.Aspects, catalog); len(vecs) > 0 {
			m.aspectVecs[c.ID] = vecs
		}
	}
	return m
}

// GetJob implements Directory.
func (m *Memory) GetJob(ctx context.Context, jobID string) (*types.JobContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, &NotFoundError{Kind: KindJob, ID: jobID}
	}
	return &job, nil
}

// ListCandidateIDs implements Directory.
func (m *Memory) ListCandidateIDs(ctx context.Context, jobID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	members, ok := m.jobMembers[jobID]
	if !ok {
		return nil, &NotFoundError{Kind: KindJob, ID: jobID}
	}
	return append([]string{}, members...), nil
}

// ListCandidates implements EmbeddingStore.
func (m *Memory) ListCandidates(ctx context.Context, jobID string) ([]string, error) {
	return m.ListCandidateIDs(ctx, jobID)
}

// GetCandidateProfiles implements Directory.
func (m *Memory) GetCandidateProfiles(ctx context.Context, candidateIDs []string) (map[string]types.CandidateProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]types.CandidateProfile, len(candidateIDs))
	for _, id := range candidateIDs {
		if p, ok := m.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// GetAspectEmbeddings implements EmbeddingStore.
func (m *Memory) GetAspectEmbeddings(ctx context.Context, candidateID string) (map[aspects.Key][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vecs, ok := m.aspectVecs[candidateID]
	if !ok {
		return nil, &NotFoundError{Kind: KindEmbeddings, ID: candidateID}
	}
	out := make(map[aspects.Key][]float32, len(vecs))
	for k, v := range vecs {
		out[k] = v
	}
	return out, nil
}

// GetCandidateEmbedding implements EmbeddingStore.
func (m *Memory) GetCandidateEmbedding(ctx context.Context, candidateID string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec, ok := m.overall[candidateID]
	if !ok {
		return nil, &NotFoundError{Kind: KindEmbeddings, ID: candidateID}
	}
	return vec, nil
}

// Close implements Backend.
func (m *Memory) Close() error {
	return nil
}
