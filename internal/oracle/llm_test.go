package oracle

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jonathan/candidate-ranker/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var weightsInput = Input{
	"JobDescription": "Build Go services",
	"Query":          "senior engineers",
	"Aspects":        "- experience: work history",
}

func TestLLMOracle_Infer_Weights(t *testing.T) {
	var gotPrompt string
	var gotTier llm.ModelTier
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
			gotPrompt, gotTier = prompt, tier
			return "```json\n{\"aspect_weights\": {\"experience\": 0.7, \"education\": \"0.3\"}, \"reasoning\": \"Seniority matters\"}\n```", nil
		},
	}

	out, err := NewLLMOracle(client, nil).Infer(context.Background(), KindWeights, weightsInput)
	require.NoError(t, err)

	assert.Equal(t, llm.TierStandard, gotTier)
	assert.Contains(t, gotPrompt, "Build Go services")
	assert.Contains(t, gotPrompt, "senior engineers")
	assert.Equal(t, "Seniority matters", out["reasoning"])
	assert.Equal(t, 0.7, out["aspect_weights"].(map[string]any)["experience"])
}

func TestLLMOracle_Infer_Tiers(t *testing.T) {
	explainInput := Input{
		"JobTitle": "t", "JobDescription": "d", "Query": "q", "Weights": "w",
		"CandidateCount": "1", "TotalCandidates": "1", "Candidates": "c",
	}

	tests := []struct {
		name     string
		override llm.ModelTier
		want     llm.ModelTier
	}{
		{name: "default", want: llm.TierAdvanced},
		{name: "override", override: llm.TierLite, want: llm.TierLite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotTier llm.ModelTier
			client := &MockLLMClient{
				GenerateJSONFunc: func(_ context.Context, _ string, tier llm.ModelTier) (string, error) {
					gotTier = tier
					return `{"analysis": "fine"}`, nil
				},
			}

			o := NewLLMOracle(client, nil).WithTier(KindExplanation, tt.override)
			_, err := o.Infer(context.Background(), KindExplanation, explainInput)
			require.NoError(t, err)
			assert.Equal(t, tt.want, gotTier)
			assert.Equal(t, tt.want, o.Tier(KindExplanation))
			assert.Equal(t, llm.TierStandard, o.Tier(KindWeights))
		})
	}
}

func TestLLMOracle_Infer_Unavailable(t *testing.T) {
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return "", errors.New("503 service unavailable")
		},
	}

	_, err := NewLLMOracle(client, nil).Infer(context.Background(), KindWeights, weightsInput)
	var unavailable *UnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, KindWeights, unavailable.Kind)
	assert.Contains(t, err.Error(), "503")
}

func TestLLMOracle_Infer_ContextErrorIsVisible(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			cancel()
			return "", errors.New("rpc aborted")
		},
	}

	_, err := NewLLMOracle(client, nil).Infer(ctx, KindWeights, weightsInput)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLLMOracle_Infer_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{name: "not json", response: "I think experience matters most."},
		{name: "missing weights", response: `{"reasoning": "none"}`},
		{name: "weights not an object", response: `{"aspect_weights": [0.5, 0.5]}`},
		{name: "boolean weight", response: `{"aspect_weights": {"experience": true}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MockLLMClient{
				GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
					return tt.response, nil
				},
			}

			_, err := NewLLMOracle(client, nil).Infer(context.Background(), KindWeights, weightsInput)
			var malformed *MalformedOutputError
			require.True(t, errors.As(err, &malformed), "got %v", err)
			assert.Equal(t, KindWeights, malformed.Kind)
		})
	}
}

func TestLLMOracle_Infer_PromptErrors(t *testing.T) {
	o := NewLLMOracle(&MockLLMClient{}, nil)

	_, err := o.Infer(context.Background(), "summary", Input{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown oracle kind")

	_, err = o.Infer(context.Background(), KindWeights, Input{"JobDescription": "only"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "prompt"))
}
