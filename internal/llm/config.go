// Package llm provides the generation client the oracle runs on.
// Callers pick a model tier; the configuration maps tiers to concrete models.
package llm

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is the cheapest, lowest-latency model
	TierLite ModelTier = "lite"
	// TierStandard is the default for aspect weights
	TierStandard ModelTier = "standard"
	// TierAdvanced is the default for ranking explanations
	TierAdvanced ModelTier = "advanced"
)


// Provider represents an LLM provider
type Provider string

// ProviderGemini is the only provider wired today.
const ProviderGemini Provider = "gemini"

// DefaultTemperature keeps oracle output stable across identical prompts.
const DefaultTemperature float32 = 0.1

// Config holds the model configuration for the application
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	Temperature float32
}

// DefaultConfig returns the default Gemini configuration
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature: DefaultTemperature,
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok && model != "" {
		return model
	}
	// Fallback chain: try standard, then lite
	for _, fallback := range []ModelTier{TierStandard, TierLite} {
		if model, ok := c.Models[fallback]; ok && model != "" {
			return model
		}
	}
	return ""
}

// WithModel returns a copy of the config with tier mapped to model.
// An empty model leaves the config unchanged.
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	out := &Config{
		Provider:    c.Provider,
		Models:      make(map[ModelTier]string, len(c.Models)+1),
		Temperature: c.Temperature,
	}
	for k, v := range c.Models {
		out.Models[k] = v
	}
	if model != "" {
		out.Models[tier] = model
	}
	return out
}
