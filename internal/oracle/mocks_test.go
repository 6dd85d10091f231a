package oracle

import (
	"context"

	"github.com/jonathan/candidate-ranker/internal/llm"
)

// MockLLMClient implements llm.Client for testing
type MockLLMClient struct {
	GenerateJSONFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	GetModelFunc     func(tier llm.ModelTier) string
	CloseFunc        func() error
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	return `{"aspect_weights": {"experience": 1}, "reasoning": "Mock reasoning"}`, nil
}

func (m *MockLLMClient) GetModel(tier llm.ModelTier) string {
	if m.GetModelFunc != nil {
		return m.GetModelFunc(tier)
	}
	return "mock-model"
}

func (m *MockLLMClient) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// stubOracle returns a fixed output or error and records the last input.
type stubOracle struct {
	out       Output
	err       error
	lastKind  Kind
	lastInput Input
}

func (s *stubOracle) Infer(_ context.Context, kind Kind, input Input) (Output, error) {
	s.lastKind = kind
	s.lastInput = input
	return s.out, s.err
}
