package oracle

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/candidate-ranker/internal/llm"
	"github.com/jonathan/candidate-ranker/internal/logging"
	"github.com/jonathan/candidate-ranker/internal/prompts"
	"github.com/jonathan/candidate-ranker/internal/schemas"
)

//go:embed schemas/*.json
var outputSchemas embed.FS

const promptFile = "ranking.json"

// kindSpec binds a Kind to its prompt and output schema.
type kindSpec struct {
	promptKey  string
	schemaFile string
	tier       llm.ModelTier
}

var kindSpecs = map[Kind]kindSpec{
	KindWeights:     {promptKey: "aspect-weights", schemaFile: "schemas/weights.schema.json", tier: llm.TierStandard},
	KindExplanation: {promptKey: "candidate-analysis", schemaFile: "schemas/explanation.schema.json", tier: llm.TierAdvanced},
}

// LLMOracle implements Oracle over an llm.Client. Responses are stripped of
// markdown, validated against the Kind's JSON Schema, and decoded.
type LLMOracle struct {
	client llm.Client
	tiers  map[Kind]llm.ModelTier
	logger *zap.Logger
}

// NewLLMOracle creates an oracle backed by client.
func NewLLMOracle(client llm.Client, logger *zap.Logger) *LLMOracle {
	tiers := make(map[Kind]llm.ModelTier, len(kindSpecs))
	for kind, spec := range kindSpecs {
		tiers[kind] = spec.tier
	}
	return &LLMOracle{client: client, tiers: tiers, logger: logging.OrNop(logger)}
}

// WithTier overrides the model tier used for kind. An empty tier keeps the
// default.
func (o *LLMOracle) WithTier(kind Kind, tier llm.ModelTier) *LLMOracle {
	if tier != "" {
		o.tiers[kind] = tier
	}
	return o
}

// Tier returns the model tier used for kind.
func (o *LLMOracle) Tier(kind Kind) llm.ModelTier {
	return o.tiers[kind]
}

// Infer implements Oracle.
func (o *LLMOracle) Infer(ctx context.Context, kind Kind, input Input) (Output, error) {
	spec, ok := kindSpecs[kind]
	if !ok {
		return nil, fmt.Errorf("unknown oracle kind %q", kind)
	}

	prompt, err := prompts.Render(promptFile, spec.promptKey, input)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s prompt: %w", kind, err)
	}

	tier := o.tiers[kind]
	log := o.logger.With(zap.String("oracle_kind", string(kind)), zap.String("ai_model", o.client.GetModel(tier)))

	raw, err := o.client.GenerateJSON(ctx, prompt, tier)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		log.Warn("oracle call failed", zap.Error(err))
		return nil, &UnavailableError{Kind: kind, Cause: err}
	}

	payload := llm.ExtractJSONObject(raw)
	schema, err := outputSchemas.ReadFile(spec.schemaFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s output schema: %w", kind, err)
	}
	if err := schemas.ValidateJSONString(string(schema), payload); err != nil {
		log.Warn("oracle output failed validation",
			zap.String("response_preview", logging.TruncateForLog(payload, 200)),
			zap.Error(err))
		return nil, &MalformedOutputError{Kind: kind, Message: "response does not match schema", Cause: err}
	}

	var out Output
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return nil, &MalformedOutputError{Kind: kind, Message: "response is not a JSON object", Cause: err}
	}
	return out, nil
}
