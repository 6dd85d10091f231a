package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/candidate-ranker/internal/logging"
	"github.com/jonathan/candidate-ranker/internal/oracle"
	"github.com/jonathan/candidate-ranker/internal/ranking"
	"github.com/jonathan/candidate-ranker/internal/types"
	"github.com/jonathan/candidate-ranker/internal/weights"
)

// ProgressEvent represents a progress update during a ranking request
type ProgressEvent struct {
	Step      string `json:"step"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Content   any    `json:"content,omitempty"`
}

// ProgressCallback is called when ranking progress occurs
type ProgressCallback func(event ProgressEvent)

// RankRequest is one ranking request.
type RankRequest struct {
	// RequestID is generated when empty.
	RequestID string
	JobID     string
	Query     string
	// History is caller-owned conversation state folded into the query.
	History types.Conversation
	// Weights, when non-nil, is used instead of the weighting oracle. It
	// must be a distribution over exactly the catalog's keys; anything else
	// fails with ErrInvalidWeights.
	Weights    map[string]float64
	OnProgress ProgressCallback
}

// ErrInvalidWeights is returned for caller-supplied weights that are not a
// distribution over the catalog.
var ErrInvalidWeights = errors.New("invalid aspect weights")

// callerWeights converts caller-supplied weights to a WeightVector and checks
// it against the catalog.
func (e *Engine) callerWeights(raw map[string]float64) (types.WeightVector, error) {
	w := make(types.WeightVector, len(raw))
	for rawKey, value := range raw {
		key, ok := e.catalog.Parse(rawKey)
		if !ok {
			return nil, fmt.Errorf("%w: unknown aspect %q", ErrInvalidWeights, rawKey)
		}
		if _, dup := w[key]; dup {
			return nil, fmt.Errorf("%w: aspect %q given twice", ErrInvalidWeights, key)
		}
		w[key] = value
	}
	if err := weights.Validate(w, e.catalog); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWeights, err)
	}
	return w, nil
}

// emitProgress calls the progress callback if configured
func emitProgress(req *RankRequest, step, message string, content any) {
	if req.OnProgress != nil {
		req.OnProgress(ProgressEvent{
			Step:      step,
			Message:   message,
			RequestID: req.RequestID,
			Content:   content,
		})
	}
}

// Rank runs weighting, scoring and explanation for a job.
//
// Unknown jobs and jobs whose candidates all lack embeddings fail with an
// error matching store.ErrNotFound. Oracle failures degrade the report
// instead of failing it. Cancellation of ctx is returned as ctx.Err().
func (e *Engine) Rank(ctx context.Context, req RankRequest) (*types.AnalysisReport, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}
	log := logging.WithRequest(e.logger, req.RequestID, req.JobID)
	start := time.Now()

	var supplied types.WeightVector
	if req.Weights != nil {
		w, err := e.callerWeights(req.Weights)
		if err != nil {
			return nil, &Error{Phase: PhaseWeighting, Err: err}
		}
		supplied = w
	}

	job, err := e.dir.GetJob(ctx, req.JobID)
	if err != nil {
		return nil, &Error{Phase: PhaseJob, Err: err}
	}

	query := req.History.AccumulatedQuery(req.Query, e.opts.HistoryWindow)
	report := &types.AnalysisReport{
		RequestID:      req.RequestID,
		JobID:          job.ID,
		JobTitle:       job.Title,
		QueryProcessed: query,
		Status:         types.StatusCompleted,
	}

	var (
		weighed   weighResult
		ids       []string
		target    ranking.Target
		fallback  bool
		targetErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if supplied != nil {
			weighed = weighResult{weights: supplied, reasoning: "Weights were supplied with the request."}
			return nil
		}
		var err error
		weighed, err = e.weigh(gctx, job, query, log)
		return err
	})
	g.Go(func() error {
		var err error
		ids, err = e.dir.ListCandidateIDs(gctx, job.ID)
		if err != nil {
			return &Error{Phase: PhaseCandidates, Err: err}
		}
		return nil
	})
	g.Go(func() error {
		target, fallback, targetErr = e.targets.Build(gctx, job, query)
		if targetErr != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	report.Weights = weighed.weights
	report.Reasoning = weighed.reasoning
	if weighed.degraded {
		report.Degrade(types.DegradedWeights)
	}
	emitProgress(&req, PhaseWeighting, fmt.Sprintf("Weighted %d aspects", e.catalog.Len()), report.Weights)

	if len(ids) == 0 {
		report.TopCandidates = types.RankedResult{}
		report.Analysis = fmt.Sprintf("No candidates are associated with job %s, so there is nothing to rank.", job.ID)
		emitProgress(&req, PhaseRanked, "No candidates to rank", report.TopCandidates)
		log.Info("ranking completed with no candidates", zap.String("status", string(report.Status)))
		return report, nil
	}

	if targetErr != nil {
		return nil, &Error{Phase: PhaseTarget, Err: targetErr}
	}
	if fallback {
		report.Degrade(types.DegradedTarget)
	}

	emitProgress(&req, PhaseScoring, fmt.Sprintf("Scoring %d candidates", len(ids)), nil)
	ranked, err := e.scorer.Score(ctx, target, report.Weights, ids)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &Error{Phase: PhaseScoring, Err: err}
	}

	if err := e.attachProfiles(ctx, ranked); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Warn("candidate profiles unavailable", zap.Error(err))
		report.Degrade(types.DegradedProfiles)
	}

	report.TopCandidates = ranked
	report.AspectCoverage = ranked.Coverage(e.catalog)
	emitProgress(&req, PhaseRanked, fmt.Sprintf("Ranked %d candidates", len(ranked)), ranked)

	if e.opts.Explain {
		if err := e.explain(ctx, job, query, report, log); err != nil {
			return nil, err
		}
		emitProgress(&req, PhaseExplanation, "Explanation finished", report)
	}

	log.Info("ranking completed",
		zap.Int("candidates", len(ranked)),
		zap.String("status", string(report.Status)),
		zap.Strings("degradations", report.Degradations),
		zap.Duration("elapsed", time.Since(start)))
	return report, nil
}

func (e *Engine) attachProfiles(ctx context.Context, ranked types.RankedResult) error {
	profiles, err := e.dir.GetCandidateProfiles(ctx, ranked.IDs())
	if err != nil {
		return err
	}
	for i := range ranked {
		if p, ok := profiles[ranked[i].CandidateID]; ok {
			ranked[i].Name = p.Name
			ranked[i].Title = p.Title
			ranked[i].Summary = p.Summary
		}
	}
	return nil
}

// explain fills the narrative fields. Failures degrade the report; only
// cancellation of ctx is returned.
func (e *Engine) explain(ctx context.Context, job *types.JobContext, query string, report *types.AnalysisReport, log *zap.Logger) error {
	if e.explainer == nil {
		report.Degrade(types.DegradedExplanation)
		return nil
	}

	ectx, cancel := context.WithTimeout(ctx, e.opts.ExplanationTimeout)
	defer cancel()

	exp, err := e.explainer.Explain(ectx, oracle.ExplainInput{
		Job:     job,
		Query:   query,
		Weights: report.Weights,
		Ranked:  report.TopCandidates,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		log.Warn("explanation failed, omitting narrative", zap.Error(err))
		report.Degrade(types.DegradedExplanation)
		return nil
	}

	report.Analysis = exp.Analysis
	report.Recommendations = exp.Recommendations
	report.KeyInsights = exp.KeyInsights
	return nil
}
