package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/jonathan/candidate-ranker/internal/store"
)

// -----------------------------------------------------------------------------
// Loading
// -----------------------------------------------------------------------------

// ImportFixture upserts every job, candidate, link and aspect vector in one
// transaction
func (db *DB) ImportFixture(ctx context.Context, f *store.Fixture) error {
	if err := f.Validate(); err != nil {
		return err
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, c := range f.Candidates {
		queueCandidate(batch, c)
	}
	for _, j := range f.Jobs {
		queueJob(batch, j)
		for i, id := range j.CandidateIDs {
			batch.Queue(
				`INSERT INTO job_candidates (job_id, candidate_id, position) VALUES ($1, $2, $3)
				 ON CONFLICT (job_id, candidate_id) DO UPDATE SET position = $3`,
				j.ID, id, i,
			)
		}
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to import fixture: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit fixture: %w", err)
	}
	return nil
}

// SaveJob upserts a single job
func (db *DB) SaveJob(ctx context.Context, j store.FixtureJob) error {
	batch := &pgx.Batch{}
	queueJob(batch, j)
	if err := db.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save job %s: %w", j.ID, err)
	}
	return nil
}

// SaveCandidate upserts a candidate with its aspect vectors
func (db *DB) SaveCandidate(ctx context.Context, c store.FixtureCandidate) error {
	batch := &pgx.Batch{}
	queueCandidate(batch, c)
	if err := db.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save candidate %s: %w", c.ID, err)
	}
	return nil
}

func queueJob(batch *pgx.Batch, j store.FixtureJob) {
	batch.Queue(
		`INSERT INTO jobs (id, title, description, posted_at, embedding) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET title = $2, description = $3, posted_at = $4, embedding = $5`,
		j.ID, j.Title, j.Description, j.PostedAt, vectorArg(j.Embedding),
	)
}

func queueCandidate(batch *pgx.Batch, c store.FixtureCandidate) {
	batch.Queue(
		`INSERT INTO candidates (id, name, title, summary, embedding) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET name = $2, title = $3, summary = $4, embedding = $5`,
		c.ID, c.Name, c.Title, c.Summary, vectorArg(c.Embedding),
	)
	for _, label := range sortedLabels(c.Aspects) {
		vec := c.Aspects[label]
		if len(vec) == 0 {
			continue
		}
		batch.Queue(
			`INSERT INTO candidate_aspect_embeddings (candidate_id, aspect, embedding) VALUES ($1, $2, $3)
			 ON CONFLICT (candidate_id, aspect) DO UPDATE SET embedding = $3`,
			c.ID, label, pgvector.NewVector(vec),
		)
	}
}
