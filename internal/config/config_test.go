package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "findable.db", cfg.Store.SQLitePath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.Equal(t, 250, cfg.Crawl.MaxPages)
	assert.Equal(t, 3, cfg.Crawl.MaxDepth)
	assert.Equal(t, 30, cfg.Crawl.TimeoutSecs)
	assert.Equal(t, "FindableBot/1.0 (+https://findable.ai/bot)", cfg.Crawl.UserAgent)
	assert.True(t, cfg.Crawl.RespectRobots)
	assert.False(t, cfg.Crawl.FollowExternalLinks)
	assert.Equal(t, 5, cfg.Crawl.Concurrency)
	assert.Equal(t, 500, cfg.Crawl.MinDelayMS)
	assert.Contains(t, cfg.Crawl.PriorityPaths, "/about")
	assert.Contains(t, cfg.Crawl.PriorityPaths, "/pricing")

	assert.Equal(t, 50, cfg.Pipeline.MaxPages)
	assert.Equal(t, 2, cfg.Pipeline.MaxDepth)
	assert.Equal(t, 24, cfg.Pipeline.CacheTTLHours)
	assert.True(t, cfg.Pipeline.RunTechnical)
	assert.True(t, cfg.Pipeline.RunSimulation)
	assert.Equal(t, 5, cfg.Pipeline.ConcurrentExtractions)

	assert.Equal(t, "hash-v1", cfg.Index.EmbeddingModel)
	assert.Equal(t, 384, cfg.Index.Dimensions)
	assert.Equal(t, 5, cfg.Index.TopK)
	assert.InDelta(t, 0.65, cfg.Index.VectorWeight, 0.001)
	assert.InDelta(t, 0.35, cfg.Index.LexicalWeight, 0.001)

	assert.Equal(t, 30, cfg.Calibrate.WindowDays)
	assert.Equal(t, 90, cfg.Calibrate.BaselineDays)
	assert.InDelta(t, 0.10, cfg.Calibrate.DriftThreshold, 0.001)

	assert.Equal(t, 3, cfg.Validation.MaxConcurrentSites)
	assert.Equal(t, 2, cfg.Validation.MaxConcurrentQueries)
	assert.Equal(t, "none", cfg.Replay.Mode)
	assert.EqualValues(t, 42, cfg.Replay.Seed)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/findable
log:
  level: debug
  format: console
crawl:
  max_pages: 100
  min_delay_ms: 250
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 100, cfg.Crawl.MaxPages)
	assert.Equal(t, 250, cfg.Crawl.MinDelayMS)
	// Defaults still apply for unset values
	assert.Equal(t, 3, cfg.Crawl.MaxDepth)
	assert.Equal(t, 384, cfg.Index.Dimensions)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("FINDABLE_STORE_DRIVER", "postgres")
	t.Setenv("FINDABLE_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("FINDABLE_CRAWL_MAX_PAGES", "25")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Crawl.MaxPages)
}

func TestDurationHelpers(t *testing.T) {
	cfg := CrawlConfig{TimeoutSecs: 30, MinDelayMS: 500}
	assert.Equal(t, "30s", cfg.Timeout().String())
	assert.Equal(t, "500ms", cfg.MinDelay().String())

	p := PipelineConfig{CacheTTLHours: 24, DeadlineSecs: 600}
	assert.Equal(t, "24h0m0s", p.CacheTTL().String())
	assert.Equal(t, "10m0s", p.Deadline().String())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with the fields validation looks at.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Crawl.MaxPages = 250
	cfg.Crawl.MaxDepth = 3
	cfg.Crawl.UserAgent = "FindableBot/1.0"
	cfg.Index.Dimensions = 384
	cfg.Index.VectorWeight = 0.65
	cfg.Index.LexicalWeight = 0.35
	cfg.Calibrate.WindowDays = 30
	cfg.Calibrate.BaselineDays = 90
	cfg.Calibrate.DriftThreshold = 0.1
	cfg.Validation.MaxConcurrentSites = 3
	cfg.Store.Driver = "sqlite"
	return cfg
}

func TestValidateAudit_AllPresent(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("audit"))
}

func TestValidateAudit_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Crawl.MaxPages = 0
	cfg.Crawl.UserAgent = ""

	err := cfg.Validate("audit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crawl.max_pages must be positive")
	assert.Contains(t, err.Error(), "crawl.user_agent is required")
}

func TestValidateAudit_PostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"

	err := cfg.Validate("audit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/findable"
	assert.NoError(t, cfg.Validate("audit"))
}

func TestValidateCalibrate_WindowOrdering(t *testing.T) {
	cfg := validDefaults()
	cfg.Calibrate.BaselineDays = 10 // shorter than window

	err := cfg.Validate("calibrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "baseline_days must exceed")
}

func TestValidateUnknownModeIsNoop(t *testing.T) {
	cfg := &Config{}
	assert.NoError(t, cfg.Validate("status"))
}

func TestDefaultPriorityPaths(t *testing.T) {
	paths := DefaultPriorityPaths()
	assert.GreaterOrEqual(t, len(paths), 20)
	for _, p := range paths {
		assert.True(t, p[0] == '/', "priority path %q must start with /", p)
	}
}
