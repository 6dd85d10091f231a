package oracle

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/candidate-ranker/internal/aspects"
	"github.com/jonathan/candidate-ranker/internal/logging"
	"github.com/jonathan/candidate-ranker/internal/weights"
)

// noQuery stands in for an empty recruiter request.
const noQuery = "No specific request. Rank for overall fit with the job."

// WeightAdapter asks the oracle for raw aspect weights.
type WeightAdapter struct {
	oracle  Oracle
	catalog *aspects.Catalog
	logger  *zap.Logger
}

// NewWeightAdapter creates a WeightAdapter over o for catalog.
func NewWeightAdapter(o Oracle, catalog *aspects.Catalog, logger *zap.Logger) *WeightAdapter {
	return &WeightAdapter{oracle: o, catalog: catalog, logger: logging.OrNop(logger)}
}

// GenerateWeights returns the oracle's raw weights and reasoning. The raw map
// is untrusted: it may be incomplete, carry unknown keys or negative values,
// and must go through weights.Normalize. Non-numeric values, a missing
// weights object, or an empty one are reported as MalformedOutputError.
func (a *WeightAdapter) GenerateWeights(ctx context.Context, jobDescription, query string) (weights.Raw, string, error) {
	if strings.TrimSpace(query) == "" {
		query = noQuery
	}

	out, err := a.oracle.Infer(ctx, KindWeights, Input{
		"JobDescription": strings.TrimSpace(jobDescription),
		"Query":          strings.TrimSpace(query),
		"Aspects":        formatAspects(a.catalog),
	})
	if err != nil {
		return nil, "", err
	}

	raw, err := parseWeights(out)
	if err != nil {
		return nil, "", err
	}

	reasoning := coerceString(out["reasoning"])
	a.logger.Debug("oracle weights received",
		zap.Int("aspects", len(raw)),
		zap.String("reasoning_preview", logging.TruncateForLog(reasoning, 120)))
	return raw, reasoning, nil
}

func parseWeights(out Output) (weights.Raw, error) {
	obj, ok := out["aspect_weights"].(map[string]any)
	if !ok {
		return nil, &MalformedOutputError{Kind: KindWeights, Message: "aspect_weights is not an object"}
	}
	if len(obj) == 0 {
		return nil, &MalformedOutputError{Kind: KindWeights, Message: "aspect_weights is empty"}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	raw := make(weights.Raw, len(obj))
	for _, k := range keys {
		f := coerceFloat(obj[k])
		if math.IsNaN(f) {
			return nil, &MalformedOutputError{
				Kind:    KindWeights,
				Message: fmt.Sprintf("weight for %q is not numeric: %v", k, obj[k]),
			}
		}
		raw[k] = f
	}
	return raw, nil
}

func formatAspects(catalog *aspects.Catalog) string {
	var sb strings.Builder
	for _, a := range catalog.Aspects() {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", a.Key, a.Description))
	}
	return strings.TrimRight(sb.String(), "\n")
}
