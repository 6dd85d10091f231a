package ranking

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/candidate-ranker/internal/aspects"
	"github.com/jonathan/candidate-ranker/internal/store"
	"github.com/jonathan/candidate-ranker/internal/types"
)

// DefaultWorkers bounds concurrent embedding lookups per request.
const DefaultWorkers = 8

// Scorer ranks candidates using embeddings read from an EmbeddingStore.
type Scorer struct {
	store   store.EmbeddingStore
	catalog *aspects.Catalog
	workers int
	logger  *zap.Logger
}

// NewScorer creates a Scorer. workers <= 0 selects DefaultWorkers.
func NewScorer(embeddings store.EmbeddingStore, catalog *aspects.Catalog, workers int, logger *zap.Logger) *Scorer {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{store: embeddings, catalog: catalog, workers: workers, logger: logger}
}

// Score ranks candidateIDs against target under weights w.
//
// Candidates the store has no embeddings for are skipped. If that leaves
// nothing to rank from a non-empty input, the returned error matches
// store.ErrNotFound. Duplicate IDs are scored once.
func (s *Scorer) Score(ctx context.Context, target Target, w types.WeightVector, candidateIDs []string) (types.RankedResult, error) {
	ids := dedupe(candidateIDs)
	if len(ids) == 0 {
		return types.RankedResult{}, nil
	}

	breakdowns := make([]*types.ScoreBreakdown, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, id := range ids {
		g.Go(func() error {
			b, err := s.scoreOne(gctx, id, target, w)
			if err != nil {
				return err
			}
			breakdowns[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	result := make(types.RankedResult, 0, len(ids))
	for _, b := range breakdowns {
		if b == nil {
			continue
		}
		result = append(result, types.RankedCandidate{
			CandidateID:    b.CandidateID,
			CompositeScore: b.CompositeScore,
			Breakdown:      *b,
		})
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("no embeddings for any of %d candidates: %w", len(ids), store.ErrNotFound)
	}

	Sort(result)
	return result, nil
}

// DimensionError reports a stored candidate vector whose length differs from
// the target it is compared against, typically because candidates were
// embedded with a different model or dimensionality than the target.
type DimensionError struct {
	CandidateID string
	Aspect      aspects.Key
	Got         int
	Want        int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("candidate %s aspect %s has %d dimensions, target has %d", e.CandidateID, e.Aspect, e.Got, e.Want)
}

// checkDimensions rejects candidate vectors whose length differs from the
// target vector they are compared against.
func checkDimensions(id string, vecs map[aspects.Key][]float32, target Target, catalog *aspects.Catalog) error {
	for _, key := range catalog.Keys() {
		vec := vecs[key]
		if len(vec) == 0 {
			continue
		}
		if want := len(target.For(key)); len(vec) != want {
			return &DimensionError{CandidateID: id, Aspect: key, Got: len(vec), Want: want}
		}
	}
	return nil
}

// scoreOne returns nil without error when the candidate has no embeddings.
func (s *Scorer) scoreOne(ctx context.Context, id string, target Target, w types.WeightVector) (*types.ScoreBreakdown, error) {
	vecs, err := s.store.GetAspectEmbeddings(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("skipping candidate without embeddings", zap.String("candidate_id", id))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load embeddings for candidate %s: %w", id, err)
	}
	if err := checkDimensions(id, vecs, target, s.catalog); err != nil {
		s.logger.Warn("embedding dimension mismatch", zap.Error(err))
		return nil, err
	}

	b := Breakdown(id, vecs, target, w, s.catalog)
	if len(b.MissingAspects) > 0 {
		s.logger.Debug("partial aspect coverage",
			zap.String("candidate_id", id),
			zap.Int("missing", len(b.MissingAspects)))
	}

	if len(target.Job) > 0 {
		overall, err := s.store.GetCandidateEmbedding(ctx, id)
		switch {
		case err == nil && len(overall) != len(target.Job):
			s.logger.Debug("overall embedding dimension mismatch",
				zap.String("candidate_id", id),
				zap.Int("got", len(overall)),
				zap.Int("want", len(target.Job)))
		case err == nil:
			b.OverallSimilarity = Cosine(overall, target.Job)
		case errors.Is(err, store.ErrNotFound):
			// informational only
		default:
			return nil, fmt.Errorf("failed to load embedding for candidate %s: %w", id, err)
		}
	}
	return &b, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
