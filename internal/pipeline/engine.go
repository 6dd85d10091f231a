// Package pipeline orchestrates a ranking request: weighting, scoring and
// explanation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/candidate-ranker/internal/aspects"
	"github.com/jonathan/candidate-ranker/internal/embedding"
	"github.com/jonathan/candidate-ranker/internal/logging"
	"github.com/jonathan/candidate-ranker/internal/oracle"
	"github.com/jonathan/candidate-ranker/internal/ranking"
	"github.com/jonathan/candidate-ranker/internal/store"
	"github.com/jonathan/candidate-ranker/internal/types"
	"github.com/jonathan/candidate-ranker/internal/weights"
)

const (
	// DefaultWeightsTimeout bounds the weighting oracle call.
	DefaultWeightsTimeout = 30 * time.Second
	// DefaultExplanationTimeout bounds the explanation oracle call.
	DefaultExplanationTimeout = 60 * time.Second
	// DefaultPreviewQuery is used when a weight preview has no query.
	DefaultPreviewQuery = "general analysis"
)

// WeightGenerator produces raw, untrusted aspect weights.
type WeightGenerator interface {
	GenerateWeights(ctx context.Context, jobDescription, query string) (weights.Raw, string, error)
}

// Explainer writes a narrative over a ranking.
type Explainer interface {
	Explain(ctx context.Context, in oracle.ExplainInput) (*oracle.Explanation, error)
}

// TargetBuilder produces the vectors candidates are compared against.
type TargetBuilder interface {
	Build(ctx context.Context, job *types.JobContext, query string) (ranking.Target, bool, error)
}

// Deps are the engine's collaborators. Weigher, Explainer and Targets are
// optional: without a weigher every request uses uniform weights, without an
// explainer no narrative is produced, and without a target builder the job's
// stored vector is used.
type Deps struct {
	Directory  store.Directory
	Embeddings store.EmbeddingStore
	Catalog    *aspects.Catalog
	Weigher    WeightGenerator
	Explainer  Explainer
	Targets    TargetBuilder
	Logger     *zap.Logger
}

// Options tune a ranking request.
type Options struct {
	Workers            int
	WeightsTimeout     time.Duration
	ExplanationTimeout time.Duration
	Explain            bool
	TopN               int
	HistoryWindow      int
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		Workers:            ranking.DefaultWorkers,
		WeightsTimeout:     DefaultWeightsTimeout,
		ExplanationTimeout: DefaultExplanationTimeout,
		Explain:            true,
		TopN:               oracle.DefaultTopN,
		HistoryWindow:      types.DefaultHistoryWindow,
	}
}

// Engine runs ranking requests. It holds no per-request state and is safe
// for concurrent use.
type Engine struct {
	dir       store.Directory
	catalog   *aspects.Catalog
	weigher   WeightGenerator
	explainer Explainer
	targets   TargetBuilder
	scorer    *ranking.Scorer
	opts      Options
	logger    *zap.Logger
}

// NewEngine validates deps and fills unset options with defaults.
func NewEngine(deps Deps, opts Options) (*Engine, error) {
	if deps.Directory == nil {
		return nil, errors.New("engine requires a directory")
	}
	if deps.Embeddings == nil {
		return nil, errors.New("engine requires an embedding store")
	}
	if deps.Catalog == nil {
		return nil, errors.New("engine requires an aspect catalog")
	}

	def := DefaultOptions()
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if opts.WeightsTimeout <= 0 {
		opts.WeightsTimeout = def.WeightsTimeout
	}
	if opts.ExplanationTimeout <= 0 {
		opts.ExplanationTimeout = def.ExplanationTimeout
	}
	if opts.TopN <= 0 {
		opts.TopN = def.TopN
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = def.HistoryWindow
	}

	logger := logging.OrNop(deps.Logger)
	targets := deps.Targets
	if targets == nil {
		targets = embedding.NewTargetBuilder(nil, deps.Catalog, logger)
	}

	return &Engine{
		dir:       deps.Directory,
		catalog:   deps.Catalog,
		weigher:   deps.Weigher,
		explainer: deps.Explainer,
		targets:   targets,
		scorer:    ranking.NewScorer(deps.Embeddings, deps.Catalog, opts.Workers, logger),
		opts:      opts,
		logger:    logger,
	}, nil
}

// Catalog returns the engine's aspect catalog.
func (e *Engine) Catalog() *aspects.Catalog {
	return e.catalog
}

// Error reports the phase a request failed in.
type Error struct {
	Phase string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Phase, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Phase names used in Error and ProgressEvent.
const (
	PhaseJob         = "job"
	PhaseWeighting   = "weighting"
	PhaseCandidates  = "candidates"
	PhaseTarget      = "target"
	PhaseScoring     = "scoring"
	PhaseRanked      = "ranked"
	PhaseExplanation = "explanation"
)

// weighResult is the outcome of the weighting phase.
type weighResult struct {
	weights   types.WeightVector
	reasoning string
	degraded  bool
}

// weigh never fails on oracle errors: they fall back to uniform weights.
// Only cancellation of ctx itself is returned.
func (e *Engine) weigh(ctx context.Context, job *types.JobContext, query string, log *zap.Logger) (weighResult, error) {
	if e.weigher == nil {
		return weighResult{
			weights:   weights.Uniform(e.catalog),
			reasoning: "Equal weights were applied because no weighting service is configured.",
			degraded:  true,
		}, nil
	}

	wctx, cancel := context.WithTimeout(ctx, e.opts.WeightsTimeout)
	defer cancel()

	start := time.Now()
	raw, reasoning, err := e.weigher.GenerateWeights(wctx, job.Description, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return weighResult{}, ctxErr
		}
		log.Warn("weighting failed, using uniform weights",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return weighResult{
			weights:   weights.Uniform(e.catalog),
			reasoning: "Equal weights were applied because the weighting service did not return usable weights.",
			degraded:  true,
		}, nil
	}

	res := weighResult{weights: weights.Normalize(raw, e.catalog), reasoning: reasoning}
	if weights.IsZero(raw, e.catalog) {
		log.Warn("oracle weights carry no positive catalog aspect, using uniform weights",
			zap.Int("raw_keys", len(raw)))
		res.degraded = true
		if res.reasoning == "" {
			res.reasoning = "Equal weights were applied because no aspect received a positive weight."
		}
	}
	log.Debug("weights generated", zap.Duration("elapsed", time.Since(start)), zap.Any("weights", res.weights))
	return res, nil
}

// PreviewWeights runs only the weighting phase for a job.
func (e *Engine) PreviewWeights(ctx context.Context, jobID, query string) (*types.WeightPreview, error) {
	if query == "" {
		query = DefaultPreviewQuery
	}
	log := logging.WithRequest(e.logger, "", jobID)

	job, err := e.dir.GetJob(ctx, jobID)
	if err != nil {
		return nil, &Error{Phase: PhaseJob, Err: err}
	}

	res, err := e.weigh(ctx, job, query, log)
	if err != nil {
		return nil, err
	}

	return &types.WeightPreview{
		JobID:        jobID,
		Query:        query,
		Weights:      res.weights,
		Reasoning:    res.reasoning,
		TotalAspects: e.catalog.Len(),
		Degraded:     res.degraded,
	}, nil
}
