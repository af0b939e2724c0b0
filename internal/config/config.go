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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	FMP       FMPConfig       `yaml:"fmp" mapstructure:"fmp"`
	Edgar     EdgarConfig     `yaml:"edgar" mapstructure:"edgar"`
	AppStore  AppStoreConfig  `yaml:"app_store" mapstructure:"app_store"`
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-history database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds the reasoning service settings. Key is required:
// the pipeline refuses to start without it.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Model       string `yaml:"model" mapstructure:"model"`
	MaxTokens   int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// FMPConfig holds Financial Modeling Prep settings. An empty key degrades
// gracefully: transcripts and press releases are skipped with a warning.
type FMPConfig struct {
	Key                string `yaml:"key" mapstructure:"key"`
	BaseURL            string `yaml:"base_url" mapstructure:"base_url"`
	TranscriptQuarters int    `yaml:"transcript_quarters" mapstructure:"transcript_quarters"`
	PressReleaseLimit  int    `yaml:"press_release_limit" mapstructure:"press_release_limit"`
}

// EdgarConfig holds SEC EDGAR settings. The SEC requires a contact
// address in the User-Agent.
type EdgarConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
}

// AppStoreConfig holds the iTunes review feed settings.
type AppStoreConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ScoringConfig selects the scoring policy. "weighted" (canonical) sums
// the five weighted signal scores; "app_rating" derives the score from
// the app rating alone and skips signal extraction for no-data companies.
type ScoringConfig struct {
	Policy string `yaml:"policy" mapstructure:"policy"`
}

// PipelineConfig configures orchestration behavior.
type PipelineConfig struct {
	OutputPath       string `yaml:"output_path" mapstructure:"output_path"`
	PaceIntervalMS   int    `yaml:"pace_interval_ms" mapstructure:"pace_interval_ms"`
	FetchTimeoutSecs int    `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
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
	v.SetEnvPrefix("SCORER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "scorer.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("fmp.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.timeout_secs", 120)
	v.SetDefault("fmp.base_url", "https://financialmodelingprep.com/api/v3")
	v.SetDefault("fmp.transcript_quarters", 2)
	v.SetDefault("fmp.press_release_limit", 50)
	v.SetDefault("edgar.base_url", "https://data.sec.gov")
	v.SetDefault("edgar.user_agent", "FSAccountScorer david@thisisluminary.co")
	v.SetDefault("app_store.base_url", "https://itunes.apple.com")
	v.SetDefault("scoring.policy", "weighted")
	v.SetDefault("pipeline.output_path", "data/companies.json")
	v.SetDefault("pipeline.pace_interval_ms", 1000)
	v.SetDefault("pipeline.fetch_timeout_secs", 60)

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
