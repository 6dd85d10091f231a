package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/jonathan/candidate-ranker/internal/aspects"
	"github.com/jonathan/candidate-ranker/internal/store"
	"github.com/jonathan/candidate-ranker/internal/types"
)

// -----------------------------------------------------------------------------
// Directory
// -----------------------------------------------------------------------------

// GetJob retrieves a job by ID
func (db *DB) GetJob(ctx context.Context, jobID string) (*types.JobContext, error) {
	var job types.JobContext
	var embedding *pgvector.Vector
	var postedAt *time.Time

	err := db.pool.QueryRow(ctx,
		`SELECT id, title, description, posted_at, embedding FROM jobs WHERE id = $1`,
		jobID,
	).Scan(&job.ID, &job.Title, &job.Description, &postedAt, &embedding)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &store.NotFoundError{Kind: store.KindJob, ID: jobID}
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	if postedAt != nil {
		job.PostedAt = *postedAt
	}
	job.Embedding = vectorSlice(embedding)
	return &job, nil
}

// ListCandidateIDs returns the candidates linked to a job in position order
func (db *DB) ListCandidateIDs(ctx context.Context, jobID string) ([]string, error) {
	var exists bool
	err := db.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM jobs WHERE id = $1)`, jobID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check job: %w", err)
	}
	if !exists {
		return nil, &store.NotFoundError{Kind: store.KindJob, ID: jobID}
	}

	rows, err := db.pool.Query(ctx,
		`SELECT candidate_id FROM job_candidates WHERE job_id = $1 ORDER BY position, candidate_id`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan candidate ids: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// GetCandidateProfiles retrieves display fields for the given candidates
func (db *DB) GetCandidateProfiles(ctx context.Context, candidateIDs []string) (map[string]types.CandidateProfile, error) {
	out := make(map[string]types.CandidateProfile, len(candidateIDs))
	if len(candidateIDs) == 0 {
		return out, nil
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, name, title, summary FROM candidates WHERE id = ANY($1)`,
		candidateIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p types.CandidateProfile
		if err := rows.Scan(&p.ID, &p.Name, &p.Title, &p.Summary); err != nil {
			return nil, fmt.Errorf("failed to scan candidate profile: %w", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidate profiles: %w", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// Embedding Store
// -----------------------------------------------------------------------------

// ListCandidates implements store.EmbeddingStore
func (db *DB) ListCandidates(ctx context.Context, jobID string) ([]string, error) {
	return db.ListCandidateIDs(ctx, jobID)
}

// GetAspectEmbeddings retrieves the per-aspect vectors of a candidate
func (db *DB) GetAspectEmbeddings(ctx context.Context, candidateID string) (map[aspects.Key][]float32, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT aspect, embedding FROM candidate_aspect_embeddings WHERE candidate_id = $1`,
		candidateID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get aspect embeddings: %w", err)
	}
	defer rows.Close()

	raw := make(map[string][]float32)
	for rows.Next() {
		var label string
		var vec pgvector.Vector
		if err := rows.Scan(&label, &vec); err != nil {
			return nil, fmt.Errorf("failed to scan aspect embedding: %w", err)
		}
		raw[label] = vec.Slice()
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate aspect embeddings: %w", err)
	}

	vecs := store.FilterAspects(raw, db.catalog)
	if len(vecs) == 0 {
		return nil, &store.NotFoundError{Kind: store.KindEmbeddings, ID: candidateID}
	}
	return vecs, nil
}

// GetCandidateEmbedding retrieves the candidate-level vector
func (db *DB) GetCandidateEmbedding(ctx context.Context, candidateID string) ([]float32, error) {
	var embedding *pgvector.Vector
	err := db.pool.QueryRow(ctx,
		`SELECT embedding FROM candidates WHERE id = $1`,
		candidateID,
	).Scan(&embedding)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &store.NotFoundError{Kind: store.KindCandidate, ID: candidateID}
		}
		return nil, fmt.Errorf("failed to get candidate embedding: %w", err)
	}

	vec := vectorSlice(embedding)
	if len(vec) == 0 {
		return nil, &store.NotFoundError{Kind: store.KindEmbeddings, ID: candidateID}
	}
	return vec, nil
}
