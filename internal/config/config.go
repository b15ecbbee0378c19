package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Embedding   EmbeddingConfig   `yaml:"embedding" mapstructure:"embedding"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	Arbitration ArbitrationConfig `yaml:"arbitration" mapstructure:"arbitration"`
	Retry       RetryConfig       `yaml:"retry" mapstructure:"retry"`
	Batch       BatchConfig       `yaml:"batch" mapstructure:"batch"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Pricing     PricingConfig     `yaml:"pricing" mapstructure:"pricing"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the restriction catalog backend.
type StoreConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL   string `yaml:"database_url" mapstructure:"database_url"`
	Table         string `yaml:"table" mapstructure:"table"`
	MaxCandidates int    `yaml:"max_candidates" mapstructure:"max_candidates"`
	MaxConns      int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns      int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"`
	Model             string  `yaml:"model" mapstructure:"model"`
	Key               string  `yaml:"key" mapstructure:"key"`
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	Dimensions        int     `yaml:"dimensions" mapstructure:"dimensions"`
	BatchSize         int     `yaml:"batch_size" mapstructure:"batch_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key               string  `yaml:"key" mapstructure:"key"`
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	Model             string  `yaml:"model" mapstructure:"model"`
	MaxTokens         int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature       float64 `yaml:"temperature" mapstructure:"temperature"`
	CacheTTL          string  `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// ArbitrationConfig configures the arbitration prompt.
type ArbitrationConfig struct {
	// Label is the candidate field listed to the model: item or restriction.
	Label string `yaml:"label" mapstructure:"label"`
}

// RetryConfig configures retries of embedding and model calls.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMS int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMS     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// BatchConfig configures batch classification.
type BatchConfig struct {
	Concurrency   int    `yaml:"concurrency" mapstructure:"concurrency"`
	OnError       string `yaml:"on_error" mapstructure:"on_error"`
	Encoding      string `yaml:"encoding" mapstructure:"encoding"`
	Limit         int    `yaml:"limit" mapstructure:"limit"`
	ProgressEvery int    `yaml:"progress_every" mapstructure:"progress_every"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// PricingConfig holds per-model pricing rates.
type PricingConfig struct {
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TRADECHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Keys without a real default are registered empty so the
	// environment can still supply them.
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.table", "restrictions")
	v.SetDefault("store.max_candidates", 0)
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("embedding.provider", "jina")
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.key", "")
	v.SetDefault("embedding.base_url", "https://api.jina.ai")
	v.SetDefault("embedding.dimensions", 1024)
	v.SetDefault("embedding.batch_size", 64)
	v.SetDefault("embedding.requests_per_second", 5)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 256)
	v.SetDefault("anthropic.temperature", 0.0)
	v.SetDefault("anthropic.cache_ttl", "5m")
	v.SetDefault("anthropic.requests_per_second", 4)
	v.SetDefault("arbitration.label", "item")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 20000)
	v.SetDefault("batch.concurrency", 1)
	v.SetDefault("batch.on_error", "skip")
	v.SetDefault("batch.encoding", "utf-8")
	v.SetDefault("batch.limit", 0)
	v.SetDefault("batch.progress_every", 10)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings the given command mode needs. Modes are
// migrate, ingest, classify, search and serve.
func (c *Config) Validate(mode string) error {
	var errs []string
	needStore := func() {
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	}
	needEmbedding := func() {
		if c.Embedding.Key == "" {
			errs = append(errs, "embedding.key is required")
		}
	}
	needAnthropic := func() {
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
	}

	switch mode {
	case "migrate":
		needStore()
	case "ingest", "search":
		needStore()
		needEmbedding()
	case "classify":
		needStore()
		needEmbedding()
		needAnthropic()
	case "serve":
		needStore()
		needEmbedding()
		needAnthropic()
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, "store.driver must be postgres or sqlite")
	}
	switch c.Embedding.Provider {
	case "jina", "genai":
	default:
		errs = append(errs, "embedding.provider must be jina or genai")
	}
	switch c.Batch.OnError {
	case "skip", "abort":
	default:
		errs = append(errs, "batch.on_error must be skip or abort")
	}
	switch strings.ToLower(c.Batch.Encoding) {
	case "", "utf-8", "utf8", "latin1", "latin-1", "iso-8859-1", "windows-1252", "cp1252":
	default:
		errs = append(errs, "batch.encoding must be utf-8, latin1 or windows-1252")
	}
	switch c.Arbitration.Label {
	case "", "item", "restriction":
	default:
		errs = append(errs, "arbitration.label must be item or restriction")
	}
	if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 64 {
		errs = append(errs, "batch.concurrency must be between 1 and 64")
	}
	if c.Store.MaxCandidates < 0 {
		errs = append(errs, "store.max_candidates must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
