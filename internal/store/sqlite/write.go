package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jonathan/candidate-ranker/internal/store"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SaveJob inserts or replaces a job.
func (s *Store) SaveJob(ctx context.Context, j store.FixtureJob) error {
	return saveJob(ctx, s.db, j)
}

// SaveCandidate inserts or replaces a candidate profile and its vectors.
func (s *Store) SaveCandidate(ctx context.Context, c store.FixtureCandidate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := saveCandidate(ctx, tx, c); err != nil {
		return err
	}
	return tx.Commit()
}

// LinkCandidate associates a candidate with a job at position.
func (s *Store) LinkCandidate(ctx context.Context, jobID, candidateID string, position int) error {
	return linkCandidate(ctx, s.db, jobID, candidateID, position)
}

// SaveAspectEmbedding inserts or replaces one aspect vector of a candidate.
func (s *Store) SaveAspectEmbedding(ctx context.Context, candidateID, aspect string, vec []float32) error {
	return saveAspect(ctx, s.db, candidateID, aspect, vec)
}

// ImportFixture writes every job, candidate and link in one transaction.
func (s *Store) ImportFixture(ctx context.Context, f *store.Fixture) error {
	if err := f.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, c := range f.Candidates {
		if err := saveCandidate(ctx, tx, c); err != nil {
			return err
		}
	}
	for _, j := range f.Jobs {
		if err := saveJob(ctx, tx, j); err != nil {
			return err
		}
		for i, id := range j.CandidateIDs {
			if err := linkCandidate(ctx, tx, j.ID, id, i); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

func saveJob(ctx context.Context, db execer, j store.FixtureJob) error {
	var postedAt any
	if j.PostedAt != nil {
		postedAt = j.PostedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO jobs (id, title, description, posted_at, embedding) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, description = excluded.description,
		 posted_at = excluded.posted_at, embedding = excluded.embedding`,
		j.ID, j.Title, j.Description, postedAt, encodeVector(j.Embedding),
	)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", j.ID, err)
	}
	return nil
}

func saveCandidate(ctx context.Context, db execer, c store.FixtureCandidate) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO candidates (id, name, title, summary, embedding) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, title = excluded.title,
		 summary = excluded.summary, embedding = excluded.embedding`,
		c.ID, c.Name, c.Title, c.Summary, encodeVector(c.Embedding),
	)
	if err != nil {
		return fmt.Errorf("insert candidate %s: %w", c.ID, err)
	}

	for label, vec := range c.Aspects {
		if err := saveAspect(ctx, db, c.ID, label, vec); err != nil {
			return err
		}
	}
	return nil
}

func linkCandidate(ctx context.Context, db execer, jobID, candidateID string, position int) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO job_candidates (job_id, candidate_id, position) VALUES (?, ?, ?)
		 ON CONFLICT(job_id, candidate_id) DO UPDATE SET position = excluded.position`,
		jobID, candidateID, position,
	)
	if err != nil {
		return fmt.Errorf("link candidate %s to job %s: %w", candidateID, jobID, err)
	}
	return nil
}

func saveAspect(ctx context.Context, db execer, candidateID, aspect string, vec []float32) error {
	if len(vec) == 0 {
		return nil
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO candidate_aspect_embeddings (candidate_id, aspect, vector) VALUES (?, ?, ?)
		 ON CONFLICT(candidate_id, aspect) DO UPDATE SET vector = excluded.vector`,
		candidateID, aspect, encodeVector(vec),
	)
	if err != nil {
		return fmt.Errorf("insert %s embedding for %s: %w", aspect, candidateID, err)
	}
	return nil
}
