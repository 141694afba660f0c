package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Crawl     CrawlConfig     `yaml:"crawl" mapstructure:"crawl"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Analyze   AnalyzeConfig   `yaml:"analyze" mapstructure:"analyze"`
	Index     IndexConfig     `yaml:"index" mapstructure:"index"`
	Simulate  SimulateConfig  `yaml:"simulate" mapstructure:"simulate"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Calibrate  CalibrateConfig  `yaml:"calibrate" mapstructure:"calibrate"`
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
	Replay     ReplayConfig     `yaml:"replay" mapstructure:"replay"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// CrawlConfig configures the BFS crawler and fetcher.
type CrawlConfig struct {
	MaxPages            int      `yaml:"max_pages" mapstructure:"max_pages"`
	MaxDepth            int      `yaml:"max_depth" mapstructure:"max_depth"`
	TimeoutSecs         int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent           string   `yaml:"user_agent" mapstructure:"user_agent"`
	RespectRobots       bool     `yaml:"respect_robots" mapstructure:"respect_robots"`
	FollowExternalLinks bool     `yaml:"follow_external_links" mapstructure:"follow_external_links"`
	Concurrency         int      `yaml:"concurrency" mapstructure:"concurrency"`
	MinDelayMS          int      `yaml:"min_delay_ms" mapstructure:"min_delay_ms"`
	MaxRedirects        int      `yaml:"max_redirects" mapstructure:"max_redirects"`
	MaxSitemaps         int      `yaml:"max_sitemaps" mapstructure:"max_sitemaps"`
	PriorityPaths       []string `yaml:"priority_paths" mapstructure:"priority_paths"`
	ExcludePaths        []string `yaml:"exclude_paths" mapstructure:"exclude_paths"`
}

// Timeout returns the per-request timeout as a duration.
func (c CrawlConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// MinDelay returns the per-host minimum inter-request delay.
func (c CrawlConfig) MinDelay() time.Duration {
	return time.Duration(c.MinDelayMS) * time.Millisecond
}

// ExtractConfig configures HTML cleaning and content extraction.
type ExtractConfig struct {
	MinContentLength int      `yaml:"min_content_length" mapstructure:"min_content_length"`
	MaxContentLength int      `yaml:"max_content_length" mapstructure:"max_content_length"`
	RemoveSelectors  []string `yaml:"remove_selectors" mapstructure:"remove_selectors"`
}

// AnalyzeConfig configures the per-page analyzers.
type AnalyzeConfig struct {
	Concurrency        int `yaml:"concurrency" mapstructure:"concurrency"`
	OptimalInternalMin int `yaml:"optimal_internal_min" mapstructure:"optimal_internal_min"`
	OptimalInternalMax int `yaml:"optimal_internal_max" mapstructure:"optimal_internal_max"`
	ThinContentWords   int `yaml:"thin_content_words" mapstructure:"thin_content_words"`
}

// IndexConfig configures chunking, embedding, and retrieval.
type IndexConfig struct {
	ChunkTargetChars int     `yaml:"chunk_target_chars" mapstructure:"chunk_target_chars"`
	ChunkMaxChars    int     `yaml:"chunk_max_chars" mapstructure:"chunk_max_chars"`
	EmbeddingModel   string  `yaml:"embedding_model" mapstructure:"embedding_model"`
	Dimensions       int     `yaml:"dimensions" mapstructure:"dimensions"`
	TopK             int     `yaml:"top_k" mapstructure:"top_k"`
	VectorWeight     float64 `yaml:"vector_weight" mapstructure:"vector_weight"`
	LexicalWeight    float64 `yaml:"lexical_weight" mapstructure:"lexical_weight"`
}

// SimulateConfig configures the question simulation phase.
type SimulateConfig struct {
	QuestionCount  int     `yaml:"question_count" mapstructure:"question_count"`
	Concurrency    int     `yaml:"concurrency" mapstructure:"concurrency"`
	RelevanceFloor float64 `yaml:"relevance_floor" mapstructure:"relevance_floor"`
}

// PipelineConfig configures the audit run orchestration.
type PipelineConfig struct {
	MaxPages              int  `yaml:"max_pages" mapstructure:"max_pages"`
	MaxDepth              int  `yaml:"max_depth" mapstructure:"max_depth"`
	CacheTTLHours         int  `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	RunTechnical          bool `yaml:"run_technical" mapstructure:"run_technical"`
	RunStructure          bool `yaml:"run_structure" mapstructure:"run_structure"`
	RunSchema             bool `yaml:"run_schema" mapstructure:"run_schema"`
	RunAuthority          bool `yaml:"run_authority" mapstructure:"run_authority"`
	RunSimulation         bool `yaml:"run_simulation" mapstructure:"run_simulation"`
	ConcurrentExtractions int  `yaml:"concurrent_extractions" mapstructure:"concurrent_extractions"`
	DeadlineSecs          int  `yaml:"deadline_secs" mapstructure:"deadline_secs"`
}

// CacheTTL returns the crawl cache TTL as a duration.
func (c PipelineConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// Deadline returns the overall run deadline as a duration.
func (c PipelineConfig) Deadline() time.Duration {
	return time.Duration(c.DeadlineSecs) * time.Second
}

// CalibrateConfig configures drift detection and weight optimization.
type CalibrateConfig struct {
	WindowDays         int     `yaml:"window_days" mapstructure:"window_days"`
	BaselineDays       int     `yaml:"baseline_days" mapstructure:"baseline_days"`
	MinWindowSamples   int     `yaml:"min_window_samples" mapstructure:"min_window_samples"`
	MinBaselineSamples int     `yaml:"min_baseline_samples" mapstructure:"min_baseline_samples"`
	DriftThreshold     float64 `yaml:"drift_threshold" mapstructure:"drift_threshold"`
	OptimizeMinSamples int     `yaml:"optimize_min_samples" mapstructure:"optimize_min_samples"`
}

// ValidationConfig configures ground-truth validation batches.
type ValidationConfig struct {
	MaxConcurrentSites   int `yaml:"max_concurrent_sites" mapstructure:"max_concurrent_sites"`
	MaxConcurrentQueries int `yaml:"max_concurrent_queries" mapstructure:"max_concurrent_queries"`
}

// ReplayConfig configures the record/replay harness.
type ReplayConfig struct {
	CassetteDir string `yaml:"cassette_dir" mapstructure:"cassette_dir"`
	Mode        string `yaml:"mode" mapstructure:"mode"`
	Seed        int64  `yaml:"seed" mapstructure:"seed"`
}

// RateLimitConfig holds per-plan limits. The core does not enforce
// these; they are consumed by the API layer and recorded here so one
// config file can describe a deployment.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	RequestsPerHour   int `yaml:"requests_per_hour" mapstructure:"requests_per_hour"`
	Burst             int `yaml:"burst" mapstructure:"burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultPriorityPaths are the high-value paths seeded into every crawl
// frontier at depth 0.
func DefaultPriorityPaths() []string {
	return []string{
		"/about",
		"/about-us",
		"/pricing",
		"/plans",
		"/products",
		"/product",
		"/services",
		"/solutions",
		"/features",
		"/docs",
		"/documentation",
		"/faq",
		"/faqs",
		"/help",
		"/support",
		"/contact",
		"/blog",
		"/getting-started",
		"/how-it-works",
		"/integrations",
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FINDABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "findable.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("crawl.max_pages", 250)
	v.SetDefault("crawl.max_depth", 3)
	v.SetDefault("crawl.timeout_secs", 30)
	v.SetDefault("crawl.user_agent", "FindableBot/1.0 (+https://findable.ai/bot)")
	v.SetDefault("crawl.respect_robots", true)
	v.SetDefault("crawl.follow_external_links", false)
	v.SetDefault("crawl.concurrency", 5)
	v.SetDefault("crawl.min_delay_ms", 500)
	v.SetDefault("crawl.max_redirects", 10)
	v.SetDefault("crawl.max_sitemaps", 10)
	v.SetDefault("crawl.priority_paths", DefaultPriorityPaths())
	v.SetDefault("crawl.exclude_paths", []string{"/wp-admin/*", "/cart/*", "/checkout/*", "/login/*"})
	v.SetDefault("extract.min_content_length", 50)
	v.SetDefault("extract.max_content_length", 500_000)
	v.SetDefault("extract.remove_selectors", []string{"script", "style", "nav", "header", "footer"})
	v.SetDefault("analyze.concurrency", 0) // 0 = GOMAXPROCS
	v.SetDefault("analyze.optimal_internal_min", 3)
	v.SetDefault("analyze.optimal_internal_max", 30)
	v.SetDefault("analyze.thin_content_words", 300)
	v.SetDefault("index.chunk_target_chars", 800)
	v.SetDefault("index.chunk_max_chars", 1600)
	v.SetDefault("index.embedding_model", "hash-v1")
	v.SetDefault("index.dimensions", 384)
	v.SetDefault("index.top_k", 5)
	v.SetDefault("index.vector_weight", 0.65)
	v.SetDefault("index.lexical_weight", 0.35)
	v.SetDefault("simulate.question_count", 24)
	v.SetDefault("simulate.concurrency", 4)
	v.SetDefault("simulate.relevance_floor", 0.2)
	v.SetDefault("pipeline.max_pages", 50)
	v.SetDefault("pipeline.max_depth", 2)
	v.SetDefault("pipeline.cache_ttl_hours", 24)
	v.SetDefault("pipeline.run_technical", true)
	v.SetDefault("pipeline.run_structure", true)
	v.SetDefault("pipeline.run_schema", true)
	v.SetDefault("pipeline.run_authority", true)
	v.SetDefault("pipeline.run_simulation", true)
	v.SetDefault("pipeline.concurrent_extractions", 5)
	v.SetDefault("pipeline.deadline_secs", 600)
	v.SetDefault("calibrate.window_days", 30)
	v.SetDefault("calibrate.baseline_days", 90)
	v.SetDefault("calibrate.min_window_samples", 50)
	v.SetDefault("calibrate.min_baseline_samples", 200)
	v.SetDefault("calibrate.drift_threshold", 0.10)
	v.SetDefault("calibrate.optimize_min_samples", 500)
	v.SetDefault("validation.max_concurrent_sites", 3)
	v.SetDefault("validation.max_concurrent_queries", 2)
	v.SetDefault("replay.cassette_dir", "testdata/cassettes")
	v.SetDefault("replay.mode", "none")
	v.SetDefault("replay.seed", 42)
	v.SetDefault("rate_limit.requests_per_minute", 60)
	v.SetDefault("rate_limit.requests_per_hour", 1000)
	v.SetDefault("rate_limit.burst", 10)

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

// Validate checks that the configuration is usable for the given
// command mode. Errors name every missing or out-of-range field.
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	switch mode {
	case "audit", "batch":
		check(c.Crawl.MaxPages > 0, "crawl.max_pages must be positive")
		check(c.Crawl.MaxDepth >= 0, "crawl.max_depth must be non-negative")
		check(c.Crawl.UserAgent != "", "crawl.user_agent is required")
		check(c.Index.Dimensions > 0, "index.dimensions must be positive")
		check(c.Index.VectorWeight >= 0 && c.Index.LexicalWeight >= 0,
			"index.vector_weight and index.lexical_weight must be non-negative")
		if c.Store.Driver == "postgres" {
			check(c.Store.DatabaseURL != "", "store.database_url is required for postgres")
		}
	case "calibrate":
		check(c.Calibrate.WindowDays > 0, "calibrate.window_days must be positive")
		check(c.Calibrate.BaselineDays > c.Calibrate.WindowDays,
			"calibrate.baseline_days must exceed calibrate.window_days")
		check(c.Calibrate.DriftThreshold > 0, "calibrate.drift_threshold must be positive")
	case "validate":
		check(c.Validation.MaxConcurrentSites > 0, "validation.max_concurrent_sites must be positive")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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
