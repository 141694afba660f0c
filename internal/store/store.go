package store

import (
	"context"
	"time"

	"github.com/findablehq/findable-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	SiteID string          `json:"site_id,omitempty"`
	Status model.RunStatus `json:"status,omitempty"`
	Since  *time.Time      `json:"since,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// SampleFilter specifies criteria for listing calibration samples.
type SampleFilter struct {
	SiteID       string     `json:"site_id,omitempty"`
	ExperimentID string     `json:"experiment_id,omitempty"`
	Arm          model.Arm  `json:"arm,omitempty"`
	Since        *time.Time `json:"since,omitempty"`
	Limit        int        `json:"limit,omitempty"`
}

// Store defines the persistence interface the audit pipeline consumes.
type Store interface {
	// Sites
	UpsertSite(ctx context.Context, site *model.Site) error
	GetSite(ctx context.Context, id string) (*model.Site, error)
	GetSiteByDomain(ctx context.Context, domain string) (*model.Site, error)

	// Runs
	CreateRun(ctx context.Context, siteID string, runType model.RunType) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunScore(ctx context.Context, runID string, score *model.FindableScore, status model.RunStatus) error
	FailRun(ctx context.Context, runID string, runErr string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Phases
	CreatePhase(ctx context.Context, runID, name string) (*model.RunPhase, error)
	CompletePhase(ctx context.Context, runID, name, status, phaseErr string) error

	// Crawl cache
	GetCachedCrawl(ctx context.Context, domain string) (*model.CrawlCacheEntry, error)
	SetCachedCrawl(ctx context.Context, domain string, result *model.CrawlResult, ttl time.Duration) error
	InvalidateCrawl(ctx context.Context, domain string) error
	DeleteExpiredCrawls(ctx context.Context) (int, error)

	// Embeddings. Upsert keeps (content_hash, site_id) unique.
	UpsertEmbeddings(ctx context.Context, embeddings []model.StoredEmbedding) error
	GetEmbeddings(ctx context.Context, siteID string) ([]model.StoredEmbedding, error)
	DeleteEmbeddings(ctx context.Context, siteID string) (int, error)

	// Calibration configs. SaveConfig rejects configs whose weights do
	// not sum to 100 within epsilon.
	SaveConfig(ctx context.Context, cfg *model.CalibrationConfig) error
	GetConfig(ctx context.Context, id string) (*model.CalibrationConfig, error)
	GetActiveConfig(ctx context.Context) (*model.CalibrationConfig, error)
	ActivateConfig(ctx context.Context, id string) error

	// Experiments
	SaveExperiment(ctx context.Context, exp *model.Experiment) error
	GetActiveExperiment(ctx context.Context) (*model.Experiment, error)

	// Calibration samples, append-only.
	AppendSamples(ctx context.Context, samples []model.CalibrationSample) error
	ListSamples(ctx context.Context, filter SampleFilter) ([]model.CalibrationSample, error)

	// Drift alerts
	SaveDriftAlert(ctx context.Context, alert *model.DriftAlert) error
	ListDriftAlerts(ctx context.Context, status model.DriftStatus) ([]model.DriftAlert, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
