package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	DART      DARTConfig      `yaml:"dart" mapstructure:"dart"`
	Calc      CalcConfig      `yaml:"calc" mapstructure:"calc"`
	Benchmark BenchmarkConfig `yaml:"benchmark" mapstructure:"benchmark"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// DARTConfig holds Open DART API settings.
type DARTConfig struct {
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxPages    int     `yaml:"max_pages" mapstructure:"max_pages"`
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	BackoffMs   int     `yaml:"backoff_ms" mapstructure:"backoff_ms"`
}

// CalcConfig configures the calculation pipeline. Empty paths select the
// built-in tables.
type CalcConfig struct {
	AccountMapPath        string  `yaml:"account_map_path" mapstructure:"account_map_path"`
	RatioRequirementsPath string  `yaml:"ratio_requirements_path" mapstructure:"ratio_requirements_path"`
	ToleranceAbs          float64 `yaml:"tolerance_abs" mapstructure:"tolerance_abs"`
	ToleranceRel          float64 `yaml:"tolerance_rel" mapstructure:"tolerance_rel"`
	RatioWarnAbs          float64 `yaml:"ratio_warn_abs" mapstructure:"ratio_warn_abs"`
	EvidenceTopK          int     `yaml:"evidence_topk" mapstructure:"evidence_topk"`
	EvidenceMaxNotes      int     `yaml:"evidence_max_notes" mapstructure:"evidence_max_notes"`
}

// BenchmarkConfig configures peer resolution.
type BenchmarkConfig struct {
	PeersPath      string `yaml:"peers_path" mapstructure:"peers_path"`
	EnableExternal bool   `yaml:"enable_external" mapstructure:"enable_external"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
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
	v.SetEnvPrefix("DARTRPT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "dart-report.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("dart.api_key", "")
	v.SetDefault("dart.base_url", "https://opendart.fss.or.kr/api")
	v.SetDefault("dart.rate_per_sec", 8.0)
	v.SetDefault("dart.timeout_secs", 20)
	v.SetDefault("dart.max_pages", 6)
	v.SetDefault("dart.max_attempts", 3)
	v.SetDefault("dart.backoff_ms", 500)
	v.SetDefault("calc.account_map_path", "")
	v.SetDefault("calc.ratio_requirements_path", "")
	v.SetDefault("calc.tolerance_abs", 1e-9)
	v.SetDefault("calc.tolerance_rel", 1e-9)
	v.SetDefault("calc.ratio_warn_abs", 5.0)
	v.SetDefault("calc.evidence_topk", 5)
	v.SetDefault("calc.evidence_max_notes", 8)
	v.SetDefault("benchmark.peers_path", "")
	v.SetDefault("benchmark.enable_external", false)
	v.SetDefault("batch.concurrency", 4)

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

// Validate checks the settings a command mode depends on. Modes: migrate,
// seed, calc, benchmark.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			errs = append(errs, "store.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}

	switch mode {
	case "migrate", "seed":
	case "calc":
		errs = append(errs, c.validateCalc()...)
		if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 64 {
			errs = append(errs, "batch.concurrency must be between 1 and 64")
		}
	case "benchmark":
		if c.Benchmark.EnableExternal {
			errs = append(errs, c.validateDART()...)
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateCalc() []string {
	var errs []string
	if c.Calc.ToleranceAbs < 0 || c.Calc.ToleranceRel < 0 {
		errs = append(errs, "calc tolerances must be >= 0")
	}
	if c.Calc.RatioWarnAbs <= 0 {
		errs = append(errs, "calc.ratio_warn_abs must be > 0")
	}
	if c.Calc.EvidenceTopK < 1 {
		errs = append(errs, "calc.evidence_topk must be >= 1")
	}
	if c.Calc.EvidenceMaxNotes < 1 {
		errs = append(errs, "calc.evidence_max_notes must be >= 1")
	}
	return errs
}

func (c *Config) validateDART() []string {
	var errs []string
	if c.DART.APIKey == "" {
		errs = append(errs, "dart.api_key is required when benchmark.enable_external is set")
	}
	if c.DART.RatePerSec <= 0 {
		errs = append(errs, "dart.rate_per_sec must be > 0")
	}
	if c.DART.MaxPages < 1 {
		errs = append(errs, "dart.max_pages must be >= 1")
	}
	return errs
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
