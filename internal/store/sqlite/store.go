// Package sqlite is a single-file store.Backend on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jonathan/candidate-ranker/internal/aspects"
	"github.com/jonathan/candidate-ranker/internal/store"
	"github.com/jonathan/candidate-ranker/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	posted_at   TEXT,
	embedding   BLOB
);

CREATE TABLE IF NOT EXISTS candidates (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL DEFAULT '',
	title     TEXT NOT NULL DEFAULT '',
	summary   TEXT NOT NULL DEFAULT '',
	embedding BLOB
);

CREATE TABLE IF NOT EXISTS job_candidates (
	job_id       TEXT NOT NULL,
	candidate_id TEXT NOT NULL,
	position     INTEGER NOT NULL,
	PRIMARY KEY (job_id, candidate_id),
	FOREIGN KEY (job_id) REFERENCES jobs(id) ON DELETE CASCADE,
	FOREIGN KEY (candidate_id) REFERENCES candidates(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS candidate_aspect_embeddings (
	candidate_id TEXT NOT NULL,
	aspect       TEXT NOT NULL,
	vector       BLOB NOT NULL,
	PRIMARY KEY (candidate_id, aspect),
	FOREIGN KEY (candidate_id) REFERENCES candidates(id) ON DELETE CASCADE
);
`

// Store implements store.Backend over a SQLite file.
type Store struct {
	db      *sql.DB
	catalog *aspects.Catalog
}

var _ store.Backend = (*Store)(nil)

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string, catalog *aspects.Catalog) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, catalog: catalog}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetJob implements store.Directory.
func (s *Store) GetJob(ctx context.Context, jobID string) (*types.JobContext, error) {
	var job types.JobContext
	var postedAt sql.NullString
	var vec []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, posted_at, embedding FROM jobs WHERE id = ?`, jobID,
	).Scan(&job.ID, &job.Title, &job.Description, &postedAt, &vec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &store.NotFoundError{Kind: store.KindJob, ID: jobID}
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if postedAt.Valid {
		job.PostedAt, _ = time.Parse(time.RFC3339Nano, postedAt.String)
	}
	job.Embedding = decodeVector(vec)
	return &job, nil
}

// ListCandidateIDs implements store.Directory.
func (s *Store) ListCandidateIDs(ctx context.Context, jobID string) ([]string, error) {
	if _, err := s.jobExists(ctx, jobID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT candidate_id FROM job_candidates WHERE job_id = ? ORDER BY position, candidate_id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan candidate id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListCandidates implements store.EmbeddingStore.
func (s *Store) ListCandidates(ctx context.Context, jobID string) ([]string, error) {
	return s.ListCandidateIDs(ctx, jobID)
}

// GetCandidateProfiles implements store.Directory.
func (s *Store) GetCandidateProfiles(ctx context.Context, candidateIDs []string) (map[string]types.CandidateProfile, error) {
	out := make(map[string]types.CandidateProfile, len(candidateIDs))
	if len(candidateIDs) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(candidateIDs)), ",")
	args := make([]any, len(candidateIDs))
	for i, id := range candidateIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, title, summary FROM candidates WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("get candidate profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p types.CandidateProfile
		if err := rows.Scan(&p.ID, &p.Name, &p.Title, &p.Summary); err != nil {
			return nil, fmt.Errorf("scan candidate profile: %w", err)
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// GetAspectEmbeddings implements store.EmbeddingStore.
func (s *Store) GetAspectEmbeddings(ctx context.Context, candidateID string) (map[aspects.Key][]float32, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT aspect, vector FROM candidate_aspect_embeddings WHERE candidate_id = ?`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("get aspect embeddings: %w", err)
	}
	defer rows.Close()

	raw := make(map[string][]float32)
	for rows.Next() {
		var label string
		var blob []byte
		if err := rows.Scan(&label, &blob); err != nil {
			return nil, fmt.Errorf("scan aspect embedding: %w", err)
		}
		raw[label] = decodeVector(blob)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get aspect embeddings: %w", err)
	}

	vecs := store.FilterAspects(raw, s.catalog)
	if len(vecs) == 0 {
		return nil, &store.NotFoundError{Kind: store.KindEmbeddings, ID: candidateID}
	}
	return vecs, nil
}

// GetCandidateEmbedding implements store.EmbeddingStore.
func (s *Store) GetCandidateEmbedding(ctx context.Context, candidateID string) ([]float32, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT embedding FROM candidates WHERE id = ?`, candidateID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &store.NotFoundError{Kind: store.KindCandidate, ID: candidateID}
	}
	if err != nil {
		return nil, fmt.Errorf("get candidate embedding: %w", err)
	}
	if len(blob) == 0 {
		return nil, &store.NotFoundError{Kind: store.KindEmbeddings, ID: candidateID}
	}
	return decodeVector(blob), nil
}

func (s *Store) jobExists(ctx context.Context, jobID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM jobs WHERE id = ?`, jobID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, &store.NotFoundError{Kind: store.KindJob, ID: jobID}
	}
	if err != nil {
		return false, fmt.Errorf("check job: %w", err)
	}
	return true, nil
}

// encodeVector stores float32 values little-endian.
func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	if len(buf) < 4 {
		return nil
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
