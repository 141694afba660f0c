package model

import "time"

// RunStatus represents the current state of an audit run.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusCrawling   RunStatus = "crawling"
	RunStatusExtracting RunStatus = "extracting"
	RunStatusAnalyzing  RunStatus = "analyzing"
	RunStatusIndexing   RunStatus = "indexing"
	RunStatusSimulating RunStatus = "simulating"
	RunStatusScoring    RunStatus = "scoring"

	// Terminal states. CompletedPartial means at least one pillar was not
	// evaluated and evaluated_score_pct is the headline metric.
	RunStatusCompleted        RunStatus = "completed"
	RunStatusCompletedPartial RunStatus = "completed_partial"
	RunStatusFailed           RunStatus = "failed"
	RunStatusCancelled        RunStatus = "cancelled"
)

// IsTerminal reports whether the status ends a run's lifecycle.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusCompletedPartial, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// RunType distinguishes ordinary audits from validation runs.
type RunType string

const (
	RunTypeAudit      RunType = "audit"
	RunTypeValidation RunType = "validation"
)

// Site is an audited website registered with the system.
type Site struct {
	ID            string    `json:"id"`
	Domain        string    `json:"domain"`
	Name          string    `json:"name,omitempty"`
	UserID        string    `json:"user_id,omitempty"`
	BusinessModel string    `json:"business_model,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Run represents a single audit run for a site.
type Run struct {
	ID          string         `json:"id"`
	SiteID      string         `json:"site_id"`
	RunType     RunType        `json:"run_type"`
	Status      RunStatus      `json:"status"`
	Config      map[string]any `json:"config,omitempty"`
	Score       *FindableScore `json:"score,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// RunPhase names one timed stage within a run.
type RunPhase struct {
	RunID      string        `json:"run_id"`
	Name       string        `json:"name"`
	Status     string        `json:"status"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Duration   time.Duration `json:"duration_ns,omitempty"`
}
