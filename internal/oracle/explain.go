package oracle

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/candidate-ranker/internal/aspects"
	"github.com/jonathan/candidate-ranker/internal/logging"
	"github.com/jonathan/candidate-ranker/internal/types"
)

const (
	// DefaultTopN is how many ranked candidates the narrative covers.
	DefaultTopN = 10
	// topAspectsShown per candidate in the prompt.
	topAspectsShown = 5
	// summaryLimit caps the candidate summary in the prompt, in runes.
	summaryLimit = 200
)

// ExplainInput is the ranked context the narrative is written about.
type ExplainInput struct {
	Job     *types.JobContext
	Query   string
	Weights types.WeightVector
	Ranked  types.RankedResult
}

// Explanation is the narrative produced for a ranking.
type Explanation struct {
	Analysis        string `json:"analysis"`
	Recommendations string `json:"recommendations"`
	KeyInsights     string `json:"key_insights"`
}

// Explainer asks the oracle for a narrative over the top of a ranking.
type Explainer struct {
	oracle  Oracle
	catalog *aspects.Catalog
	topN    int
	logger  *zap.Logger
}

// NewExplainer creates an Explainer. topN <= 0 selects DefaultTopN.
func NewExplainer(o Oracle, catalog *aspects.Catalog, topN int, logger *zap.Logger) *Explainer {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Explainer{oracle: o, catalog: catalog, topN: topN, logger: logging.OrNop(logger)}
}

// Explain returns the narrative. The ranking itself is never altered.
func (e *Explainer) Explain(ctx context.Context, in ExplainInput) (*Explanation, error) {
	if in.Job == nil {
		return nil, fmt.Errorf("explanation requires a job")
	}

	top := in.Ranked.Top(e.topN)
	query := strings.TrimSpace(in.Query)
	if query == "" {
		query = noQuery
	}

	out, err := e.oracle.Infer(ctx, KindExplanation, Input{
		"JobTitle":        in.Job.Title,
		"JobDescription":  strings.TrimSpace(in.Job.Description),
		"Query":           query,
		"Weights":         formatWeights(in.Weights, e.catalog),
		"CandidateCount":  strconv.Itoa(len(top)),
		"TotalCandidates": strconv.Itoa(len(in.Ranked)),
		"Candidates":      formatCandidates(top),
	})
	if err != nil {
		return nil, err
	}

	exp := &Explanation{
		Analysis:        coerceString(out["analysis"]),
		Recommendations: coerceString(out["recommendations"]),
		KeyInsights:     coerceString(out["key_insights"]),
	}
	if exp.Analysis == "" && exp.Recommendations == "" && exp.KeyInsights == "" {
		return nil, &MalformedOutputError{Kind: KindExplanation, Message: "all narrative fields are empty"}
	}

	e.logger.Debug("oracle explanation received", zap.Int("candidates", len(top)))
	return exp, nil
}

func formatWeights(w types.WeightVector, catalog *aspects.Catalog) string {
	var sb strings.Builder
	for _, key := range catalog.Keys() {
		sb.WriteString(fmt.Sprintf("- %s: %.3f\n", key, w[key]))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatCandidates(ranked types.RankedResult) string {
	if len(ranked) == 0 {
		return "(no candidates)"
	}

	blocks := make([]string, 0, len(ranked))
	for _, c := range ranked {
		name := c.Name
		if name == "" {
			name = c.CandidateID
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Candidate %d: %s\n", c.Rank, name))
		if c.Title != "" {
			sb.WriteString(fmt.Sprintf("Title: %s\n", c.Title))
		}
		sb.WriteString(fmt.Sprintf("Weighted Score: %.3f\n", c.CompositeScore))

		top := c.Breakdown.TopAspects(topAspectsShown)
		parts := make([]string, len(top))
		for i, key := range top {
			parts[i] = fmt.Sprintf("%s (%.3f)", key, c.Breakdown.AspectScores[key])
		}
		sb.WriteString(fmt.Sprintf("Top Aspects: %s\n", strings.Join(parts, ", ")))

		if summary := logging.TruncateForLog(c.Summary, summaryLimit); summary != "" {
			sb.WriteString(fmt.Sprintf("Summary: %s\n", summary))
		}
		blocks = append(blocks, strings.TrimRight(sb.String(), "\n"))
	}
	return strings.Join(blocks, "\n\n")
}
