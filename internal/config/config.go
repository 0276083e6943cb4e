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
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Reference ReferenceConfig `yaml:"reference" mapstructure:"reference"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"` // sqlite file
}

// ServerConfig configures the ingest webhook server.
type ServerConfig struct {
	Port          int     `yaml:"port" mapstructure:"port"`
	IngestRate    float64 `yaml:"ingest_rate" mapstructure:"ingest_rate"`         // records/sec
	IngestBurst   int     `yaml:"ingest_burst" mapstructure:"ingest_burst"`       // token bucket burst
	AllowedOrigin string  `yaml:"allowed_origin" mapstructure:"allowed_origin"`   // CORS
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ExportConfig configures spreadsheet export.
type ExportConfig struct {
	Path      string `yaml:"path" mapstructure:"path"`
	SheetName string `yaml:"sheet_name" mapstructure:"sheet_name"`
}

// ReferenceConfig points at the external reference data set (municipality
// aliases, extraction-method reliability, source-domain reliability).
type ReferenceConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// QualityWeights holds the composite quality score weights. They are
// re-normalized before use when they do not sum to 1.0.
type QualityWeights struct {
	Confidence   float64 `yaml:"confidence" mapstructure:"confidence"`
	Validation   float64 `yaml:"validation" mapstructure:"validation"`
	Method       float64 `yaml:"method" mapstructure:"method"`
	Completeness float64 `yaml:"completeness" mapstructure:"completeness"`
	Source       float64 `yaml:"source" mapstructure:"source"`
}

// Sum returns the total weight.
func (w QualityWeights) Sum() float64 {
	return w.Confidence + w.Validation + w.Method + w.Completeness + w.Source
}

// Detection strategy names accepted in pipeline.detection_strategies.
const (
	StrategyExact    = "exact_match"
	StrategyFuzzy    = "fuzzy_match"
	StrategySemantic = "semantic_match"
)

// PipelineConfig configures validation, scoring, duplicate detection and
// merging.
type PipelineConfig struct {
	QualityWeights      QualityWeights `yaml:"quality_weights" mapstructure:"quality_weights"`
	DetectionStrategies []string       `yaml:"detection_strategies" mapstructure:"detection_strategies"`

	// QualityThreshold is the acceptance floor used for reporting; it is
	// deliberately independent of SemanticAmountTolerance (the legacy
	// system conflated the two).
	QualityThreshold        float64 `yaml:"quality_threshold" mapstructure:"quality_threshold"`
	FuzzyNameThreshold      float64 `yaml:"fuzzy_name_threshold" mapstructure:"fuzzy_name_threshold"`
	FuzzyAmountTolerance    float64 `yaml:"fuzzy_amount_tolerance" mapstructure:"fuzzy_amount_tolerance"`
	SemanticAmountTolerance float64 `yaml:"semantic_amount_tolerance" mapstructure:"semantic_amount_tolerance"`

	EnableMerging bool `yaml:"enable_merging" mapstructure:"enable_merging"`

	AmountMin     float64 `yaml:"amount_min" mapstructure:"amount_min"`
	AmountMax     float64 `yaml:"amount_max" mapstructure:"amount_max"`
	FeeNameMinLen int     `yaml:"fee_name_min_len" mapstructure:"fee_name_min_len"`
	FeeNameMaxLen int     `yaml:"fee_name_max_len" mapstructure:"fee_name_max_len"`

	// Workers bounds the parallel validate+score stage; the match+merge
	// step is always serialized.
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TAXA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "taxa.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.ingest_rate", 50.0)
	v.SetDefault("server.ingest_burst", 100)
	v.SetDefault("server.allowed_origin", "*")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("export.path", "avgifter.xlsx")
	v.SetDefault("export.sheet_name", "Avgifter")
	v.SetDefault("pipeline.quality_weights.confidence", 0.30)
	v.SetDefault("pipeline.quality_weights.validation", 0.25)
	v.SetDefault("pipeline.quality_weights.method", 0.20)
	v.SetDefault("pipeline.quality_weights.completeness", 0.15)
	v.SetDefault("pipeline.quality_weights.source", 0.10)
	v.SetDefault("pipeline.detection_strategies", []string{StrategyExact, StrategyFuzzy, StrategySemantic})
	v.SetDefault("pipeline.quality_threshold", 0.6)
	v.SetDefault("pipeline.fuzzy_name_threshold", 0.85)
	v.SetDefault("pipeline.fuzzy_amount_tolerance", 0.05)
	v.SetDefault("pipeline.semantic_amount_tolerance", 0.15)
	v.SetDefault("pipeline.enable_merging", true)
	v.SetDefault("pipeline.amount_min", 50.0)
	v.SetDefault("pipeline.amount_max", 100000.0)
	v.SetDefault("pipeline.fee_name_min_len", 3)
	v.SetDefault("pipeline.fee_name_max_len", 500)
	v.SetDefault("pipeline.workers", 4)

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

	if err := cfg.Pipeline.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the pipeline configuration. Any failure here is fatal:
// the run must halt before the first record is processed.
func (c PipelineConfig) Validate() error {
	w := c.QualityWeights
	for name, val := range map[string]float64{
		"confidence":   w.Confidence,
		"validation":   w.Validation,
		"method":       w.Method,
		"completeness": w.Completeness,
		"source":       w.Source,
	} {
		if val < 0 {
			return eris.Errorf("config: quality weight %s is negative", name)
		}
	}
	if w.Sum() <= 0 {
		return eris.New("config: quality weights sum to zero")
	}

	if len(c.DetectionStrategies) == 0 {
		return eris.New("config: no detection strategies configured")
	}
	for _, s := range c.DetectionStrategies {
		switch s {
		case StrategyExact, StrategyFuzzy, StrategySemantic:
		default:
			return eris.Errorf("config: unknown detection strategy %q", s)
		}
	}

	for name, val := range map[string]float64{
		"quality_threshold":         c.QualityThreshold,
		"fuzzy_name_threshold":      c.FuzzyNameThreshold,
		"fuzzy_amount_tolerance":    c.FuzzyAmountTolerance,
		"semantic_amount_tolerance": c.SemanticAmountTolerance,
	} {
		if val < 0 || val > 1 {
			return eris.Errorf("config: %s %v outside [0,1]", name, val)
		}
	}

	if c.AmountMin < 0 || c.AmountMax <= c.AmountMin {
		return eris.New("config: invalid amount range")
	}
	if c.FeeNameMinLen < 1 || c.FeeNameMaxLen < c.FeeNameMinLen {
		return eris.New("config: invalid fee name length bounds")
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
