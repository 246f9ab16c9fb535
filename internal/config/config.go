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
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Auth         AuthConfig         `yaml:"auth" mapstructure:"auth"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Generative   GenerativeConfig   `yaml:"generative" mapstructure:"generative"`
	VectorSearch VectorSearchConfig `yaml:"vector_search" mapstructure:"vector_search"`
	Pipeline     PipelineConfig     `yaml:"pipeline" mapstructure:"pipeline"`
	Telemetry    TelemetryConfig    `yaml:"telemetry" mapstructure:"telemetry"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the analysis API server.
type ServerConfig struct {
	Port        int    `yaml:"port" mapstructure:"port"`
	Environment string `yaml:"environment" mapstructure:"environment"`
}

// AuthConfig configures bearer-token auth. When Secret is empty the
// Authorization header is not checked.
type AuthConfig struct {
	Secret string `yaml:"secret" mapstructure:"secret"`
}

// StoreConfig configures the exam-result and telemetry database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// GenerativeConfig holds generative-model API settings for stages 3 and 5.
type GenerativeConfig struct {
	Key               string  `yaml:"key" mapstructure:"key"`
	Model             string  `yaml:"model" mapstructure:"model"`
	MaxTokens         int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries        int     `yaml:"max_retries" mapstructure:"max_retries"`
}

// VectorSearchConfig holds course vector-index query settings for stage 4.
type VectorSearchConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Key         string `yaml:"key" mapstructure:"key"`
	IndexID     string `yaml:"index_id" mapstructure:"index_id"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// PipelineConfig configures orchestrator behavior.
type PipelineConfig struct {
	DefaultMaxCourses int `yaml:"default_max_courses" mapstructure:"default_max_courses"`
	MaxTotalCourses   int `yaml:"max_total_courses" mapstructure:"max_total_courses"`
	MatchConcurrency  int `yaml:"match_concurrency" mapstructure:"match_concurrency"`
}

// TelemetryConfig configures the token-usage recorder.
type TelemetryConfig struct {
	BufferSize int `yaml:"buffer_size" mapstructure:"buffer_size"`
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
	v.SetEnvPrefix("ANALYSIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "dev")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "analysis.db")
	v.SetDefault("generative.model", "claude-haiku-4-5-20251001")
	v.SetDefault("generative.max_tokens", 4096)
	v.SetDefault("generative.requests_per_second", 2.0)
	v.SetDefault("generative.timeout_secs", 60)
	v.SetDefault("generative.max_retries", 2)
	v.SetDefault("vector_search.index_id", "courses_deployment")
	v.SetDefault("vector_search.timeout_secs", 15)
	v.SetDefault("vector_search.max_retries", 2)
	v.SetDefault("pipeline.default_max_courses", 5)
	v.SetDefault("pipeline.max_total_courses", 5)
	v.SetDefault("pipeline.match_concurrency", 4)
	v.SetDefault("telemetry.buffer_size", 256)
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

// Validate checks settings the serve/analyze commands cannot run without.
func (c *Config) Validate() error {
	var missing []string
	if c.Generative.Key == "" {
		missing = append(missing, "generative.key")
	}
	if c.VectorSearch.BaseURL == "" {
		missing = append(missing, "vector_search.base_url")
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		missing = append(missing, "store.database_url")
	}
	if len(missing) > 0 {
		return eris.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
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
