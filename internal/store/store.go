// Package store defines the read-only boundaries the ranking engine consumes:
// the job/candidate directory and the candidate embedding store.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/candidate-ranker/internal/aspects"
	"github.com/jonathan/candidate-ranker/internal/types"
)

// ErrNotFound is matched by every NotFoundError.
var ErrNotFound = errors.New("not found")

// NotFoundError reports a missing job, candidate, or embedding set.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// Is makes errors.Is(err, ErrNotFound) hold for any NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Kinds used in NotFoundError.
const (
	KindJob        = "job"
	KindCandidate  = "candidate"
	KindEmbeddings = "embeddings"
)

// Directory resolves jobs and the candidates associated with them.
type Directory interface {
	// GetJob returns a NotFoundError when the job is unknown.
	GetJob(ctx context.Context, jobID string) (*types.JobContext, error)
	// ListCandidateIDs returns a NotFoundError when the job is unknown and an
	// empty slice when the job has no candidates.
	ListCandidateIDs(ctx context.Context, jobID string) ([]string, error)
	// GetCandidateProfiles returns display fields for the IDs it knows.
	// Unknown IDs are omitted.
	GetCandidateProfiles(ctx context.Context, candidateIDs []string) (map[string]types.CandidateProfile, error)
}

// EmbeddingStore serves candidate vectors. It is read-only for the engine.
type EmbeddingStore interface {
	// GetAspectEmbeddings returns the per-aspect vectors of a candidate.
	// Partial coverage yields a partial map; a candidate with no aspect
	// embeddings at all yields a NotFoundError.
	GetAspectEmbeddings(ctx context.Context, candidateID string) (map[aspects.Key][]float32, error)
	// GetCandidateEmbedding returns the candidate-level vector.
	GetCandidateEmbedding(ctx context.Context, candidateID string) ([]float32, error)
	// ListCandidates returns the candidate IDs associated with a job.
	ListCandidates(ctx context.Context, jobID string) ([]string, error)
}

// Backend is implemented by stores that serve both boundaries.
type Backend interface {
	Directory
	EmbeddingStore
	Close() error
}

// FilterAspects keeps only catalog aspects, keyed by their canonical key.
// Stores call it so unknown aspect labels in storage never reach scoring.
// A label spelled exactly like its key wins over looser spellings.
func FilterAspects(raw map[string][]float32, catalog *aspects.Catalog) map[aspects.Key][]float32 {
	out := make(map[aspects.Key][]float32, len(raw))
	for label, vec := range raw {
		key, ok := catalog.Parse(label)
		if !ok || len(vec) == 0 {
			continue
		}
		if _, seen := out[key]; seen && label != string(key) {
			continue
		}
		out[key] = vec
	}
	return out
}
