// Package config loads the ranker configuration from an optional YAML file,
// RANKER_* environment variables and bound CLI flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/jonathan/candidate-ranker/internal/aspects"
	"github.com/jonathan/candidate-ranker/internal/embedding"
	"github.com/jonathan/candidate-ranker/internal/llm"
	"github.com/jonathan/candidate-ranker/internal/logging"
	"github.com/jonathan/candidate-ranker/internal/oracle"
	"github.com/jonathan/candidate-ranker/internal/pipeline"
	"github.com/jonathan/candidate-ranker/internal/server"
	"github.com/jonathan/candidate-ranker/internal/server/ratelimit"
)

const (
	// AppName is the config file base name and env prefix source.
	AppName = "ranker"
	// EnvPrefix prefixes every environment override, e.g. RANKER_STORE_DRIVER.
	EnvPrefix = "RANKER"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverFixture  = "fixture"
)

// Config is the full ranker configuration.
type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Aspects   []AspectConfig  `mapstructure:"aspects" validate:"dive"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
}

// StoreConfig selects and configures the job/candidate backend.
type StoreConfig struct {
	Driver      string `mapstructure:"driver" validate:"oneof=postgres sqlite fixture"`
	DatabaseURL string `mapstructure:"database_url" validate:"required_if=Driver postgres"`
	SQLitePath  string `mapstructure:"sqlite_path" validate:"required_if=Driver sqlite"`
	FixturePath string `mapstructure:"fixture_path" validate:"required_if=Driver fixture"`
	MaxConns    int    `mapstructure:"max_conns" validate:"gte=0"`
}

// LLMConfig configures the reasoning oracle.
type LLMConfig struct {
	APIKey        string  `mapstructure:"api_key"`
	Provider      string  `mapstructure:"provider" validate:"oneof=gemini"`
	LiteModel     string  `mapstructure:"lite_model"`
	StandardModel string  `mapstructure:"standard_model"`
	AdvancedModel string  `mapstructure:"advanced_model"`
	Temperature   float32 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	// WeightsTier and ExplanationTier pick the model tier per oracle call.
	WeightsTier     string `mapstructure:"weights_tier" validate:"oneof=lite standard advanced"`
	ExplanationTier string `mapstructure:"explanation_tier" validate:"oneof=lite standard advanced"`
}

// EmbeddingConfig configures target embedding.
type EmbeddingConfig struct {
	Model      string        `mapstructure:"model" validate:"required"`
	Dimensions int           `mapstructure:"dimensions" validate:"gte=1"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
}

// EngineConfig tunes ranking requests.
type EngineConfig struct {
	Workers            int           `mapstructure:"workers" validate:"gte=1,lte=256"`
	WeightsTimeout     time.Duration `mapstructure:"weights_timeout" validate:"gt=0"`
	ExplanationTimeout time.Duration `mapstructure:"explanation_timeout" validate:"gt=0"`
	Explain            bool          `mapstructure:"explain"`
	TopN               int           `mapstructure:"top_n" validate:"gte=1"`
	HistoryWindow      int           `mapstructure:"history_window" validate:"gte=1"`
}

// AspectConfig overrides the default aspect catalog.
type AspectConfig struct {
	Key         string `mapstructure:"key" validate:"required"`
	Description string `mapstructure:"description"`
}

// ServerConfig configures the HTTP adapter.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"gte=1,lte=65535"`
	PreviewCacheTTL time.Duration `mapstructure:"preview_cache_ttl" validate:"gte=0"`
	// RankRateLimit is ranking requests per client per hour; 0 disables limiting.
	RankRateLimit int `mapstructure:"rank_rate_limit" validate:"gte=0"`
	// RateLimit is other requests per client per minute.
	RateLimit int `mapstructure:"rate_limit" validate:"gte=0"`
}

// LogConfig configures zap.
type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Debug bool   `mapstructure:"debug"`
	File  string `mapstructure:"file"`
}

// SetDefaults registers every key with its default so environment variables
// are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	llmDefaults := llm.DefaultConfig()
	engine := pipeline.DefaultOptions()

	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", AppName+".db")
	v.SetDefault("store.fixture_path", "")
	v.SetDefault("store.max_conns", engine.Workers)

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.provider", string(llm.ProviderGemini))
	v.SetDefault("llm.lite_model", llmDefaults.Models[llm.TierLite])
	v.SetDefault("llm.standard_model", llmDefaults.Models[llm.TierStandard])
	v.SetDefault("llm.advanced_model", llmDefaults.Models[llm.TierAdvanced])
	v.SetDefault("llm.temperature", llmDefaults.Temperature)
	v.SetDefault("llm.weights_tier", string(llm.TierStandard))
	v.SetDefault("llm.explanation_tier", string(llm.TierAdvanced))

	v.SetDefault("embedding.model", embedding.DefaultModel)
	v.SetDefault("embedding.dimensions", embedding.DefaultDimensions)
	v.SetDefault("embedding.cache_ttl", embedding.DefaultCacheTTL)

	v.SetDefault("engine.workers", engine.Workers)
	v.SetDefault("engine.weights_timeout", engine.WeightsTimeout)
	v.SetDefault("engine.explanation_timeout", engine.ExplanationTimeout)
	v.SetDefault("engine.explain", engine.Explain)
	v.SetDefault("engine.top_n", engine.TopN)
	v.SetDefault("engine.history_window", engine.HistoryWindow)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.preview_cache_ttl", 5*time.Minute)
	v.SetDefault("server.rank_rate_limit", 60)
	v.SetDefault("server.rate_limit", 600)

	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)
	v.SetDefault("log.file", "")
}

// New returns a viper instance with defaults and environment overrides.
// GEMINI_API_KEY is honoured when RANKER_LLM_API_KEY is unset.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "GEMINI_API_KEY")
	return v
}

// ReadFile reads path, or ranker.yaml from the working directory when path
// is empty. A missing default file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and driver requirements.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if _, err := c.Catalog(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// Catalog returns the configured aspect catalog, or the default one.
func (c *Config) Catalog() (*aspects.Catalog, error) {
	if len(c.Aspects) == 0 {
		return aspects.Default(), nil
	}
	defs := make([]aspects.Aspect, len(c.Aspects))
	for i, a := range c.Aspects {
		defs[i] = aspects.Aspect{Key: aspects.Key(a.Key), Description: a.Description}
	}
	return aspects.NewCatalog(defs...)
}

// EngineOptions maps the engine section to pipeline options.
func (c *Config) EngineOptions() pipeline.Options {
	return pipeline.Options{
		Workers:            c.Engine.Workers,
		WeightsTimeout:     c.Engine.WeightsTimeout,
		ExplanationTimeout: c.Engine.ExplanationTimeout,
		Explain:            c.Engine.Explain,
		TopN:               c.Engine.TopN,
		HistoryWindow:      c.Engine.HistoryWindow,
	}
}

// LLMClientConfig maps the llm section to an llm.Config.
func (c *Config) LLMClientConfig() *llm.Config {
	cfg := llm.DefaultConfig().
		WithModel(llm.TierLite, c.LLM.LiteModel).
		WithModel(llm.TierStandard, c.LLM.StandardModel).
		WithModel(llm.TierAdvanced, c.LLM.AdvancedModel)
	cfg.Provider = llm.Provider(c.LLM.Provider)
	cfg.Temperature = c.LLM.Temperature
	return cfg
}

// OracleTiers maps the llm section to the model tier of each oracle kind.
func (c *Config) OracleTiers() map[oracle.Kind]llm.ModelTier {
	return map[oracle.Kind]llm.ModelTier{
		oracle.KindWeights:     llm.ModelTier(c.LLM.WeightsTier),
		oracle.KindExplanation: llm.ModelTier(c.LLM.ExplanationTier),
	}
}

// ServerOptions maps the server section to server options.
func (c *Config) ServerOptions() server.Config {
	opts := server.Config{
		Port:            c.Server.Port,
		PreviewCacheTTL: c.Server.PreviewCacheTTL,
	}
	if c.Server.RankRateLimit > 0 {
		opts.RateLimit = ratelimit.DefaultConfig(c.Server.RankRateLimit, c.Server.RateLimit)
	}
	return opts
}

// LogOptions maps the log section to logging options.
func (c *Config) LogOptions() logging.Options {
	return logging.Options{JSON: c.Log.JSON, Debug: c.Log.Debug, File: c.Log.File}
}
