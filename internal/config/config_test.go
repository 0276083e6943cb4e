package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// chdir changes into dir for the duration of the test, like t.Chdir
// (testing.T.Chdir needs Go 1.24; this module builds with Go 1.21).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir()) // no config file present

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)

	p := cfg.Pipeline
	assert.InDelta(t, 1.0, p.QualityWeights.Sum(), 0.001)
	assert.Equal(t, []string{StrategyExact, StrategyFuzzy, StrategySemantic}, p.DetectionStrategies)
	assert.Equal(t, 0.85, p.FuzzyNameThreshold)
	assert.Equal(t, 0.05, p.FuzzyAmountTolerance)
	assert.Equal(t, 0.15, p.SemanticAmountTolerance)
	assert.True(t, p.EnableMerging)
	assert.Equal(t, 50.0, p.AmountMin)
	assert.Equal(t, 100000.0, p.AmountMax)
}

func TestLoad_EnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TAXA_STORE_DRIVER", "postgres")
	t.Setenv("TAXA_PIPELINE_FUZZY_NAME_THRESHOLD", "0.9")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 0.9, cfg.Pipeline.FuzzyNameThreshold)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir+"/config.yaml", `
pipeline:
  enable_merging: false
  detection_strategies:
    - exact_match
`)
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Pipeline.EnableMerging)
	assert.Equal(t, []string{StrategyExact}, cfg.Pipeline.DetectionStrategies)
}

func TestLoad_RejectsInvalidPipeline(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir+"/config.yaml", `
pipeline:
  detection_strategies:
    - telepathy_match
`)
	chdir(t, dir)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown detection strategy")
}

func TestPipelineValidate(t *testing.T) {
	valid := PipelineConfig{
		QualityWeights:      QualityWeights{Confidence: 0.5, Validation: 0.5},
		DetectionStrategies: []string{StrategyExact},
		AmountMin:           50,
		AmountMax:           100000,
		FeeNameMinLen:       3,
		FeeNameMaxLen:       500,
	}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*PipelineConfig)
		want   string
	}{
		{"negative weight", func(c *PipelineConfig) { c.QualityWeights.Method = -0.1 }, "negative"},
		{"zero weights", func(c *PipelineConfig) { c.QualityWeights = QualityWeights{} }, "sum to zero"},
		{"no strategies", func(c *PipelineConfig) { c.DetectionStrategies = nil }, "no detection strategies"},
		{"unknown strategy", func(c *PipelineConfig) { c.DetectionStrategies = []string{"guesswork"} }, "unknown detection strategy"},
		{"threshold out of range", func(c *PipelineConfig) { c.FuzzyNameThreshold = 1.5 }, "outside [0,1]"},
		{"inverted amount range", func(c *PipelineConfig) { c.AmountMin = 200; c.AmountMax = 100 }, "invalid amount range"},
		{"zero name length", func(c *PipelineConfig) { c.FeeNameMinLen = 0 }, "fee name length"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	require.Error(t, InitLogger(LogConfig{Level: "chatty", Format: "json"}))
}
