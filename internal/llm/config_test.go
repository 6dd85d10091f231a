package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, ProviderGemini, config.Provider)
	assert.Equal(t, "gemini-2.5-flash-lite", config.GetModel(TierLite))
	assert.Equal(t, "gemini-2.5-flash", config.GetModel(TierStandard))
	assert.Equal(t, "gemini-2.5-pro", config.GetModel(TierAdvanced))
	assert.Equal(t, DefaultTemperature, config.Temperature)
}

func TestGetModel_Fallback(t *testing.T) {
	config := &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "fallback-model",
			TierAdvanced: "",
		},
	}

	assert.Equal(t, "fallback-model", config.GetModel("unknown"))
	assert.Equal(t, "fallback-model", config.GetModel(TierAdvanced), "empty entries fall through")
	assert.Equal(t, "", (&Config{}).GetModel(TierAdvanced))
}

func TestWithModel(t *testing.T) {
	base := DefaultConfig()
	custom := base.WithModel(TierStandard, "gemini-custom")

	assert.Equal(t, "gemini-custom", custom.GetModel(TierStandard))
	assert.Equal(t, "gemini-2.5-flash", base.GetModel(TierStandard), "original must be unchanged")
	assert.Equal(t, base.Temperature, custom.Temperature)

	unchanged := base.WithModel(TierLite, "")
	assert.Equal(t, "gemini-2.5-flash-lite", unchanged.GetModel(TierLite))
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(context.Background(), DefaultConfig(), "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")

	_, err = NewClient(context.Background(), &Config{Provider: "openai"}, "key", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported LLM provider")
}
