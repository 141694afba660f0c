package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/findablehq/findable-cli/internal/model"
)

// MemoryStore is an in-memory Store for tests and cache-less one-shot
// audits.
type MemoryStore struct {
	mu          sync.RWMutex
	sites       map[string]*model.Site
	runs        map[string]*model.Run
	phases      map[string][]*model.RunPhase
	crawls      map[string]*model.CrawlCacheEntry
	embeddings  map[string]map[string]model.StoredEmbedding // siteID -> contentHash -> row
	configs     map[string]*model.CalibrationConfig
	experiments []*model.Experiment
	samples     []model.CalibrationSample
	alerts      map[string]*model.DriftAlert
}

// NewMemory returns an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		sites:      make(map[string]*model.Site),
		runs:       make(map[string]*model.Run),
		phases:     make(map[string][]*model.RunPhase),
		crawls:     make(map[string]*model.CrawlCacheEntry),
		embeddings: make(map[string]map[string]model.StoredEmbedding),
		configs:    make(map[string]*model.CalibrationConfig),
		alerts:     make(map[string]*model.DriftAlert),
	}
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }
func (s *MemoryStore) Close() error                  { return nil }

func (s *MemoryStore) UpsertSite(_ context.Context, site *model.Site) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.sites {
		if existing.Domain == site.Domain {
			existing.Name = site.Name
			existing.BusinessModel = site.BusinessModel
			site.ID = existing.ID
			site.CreatedAt = existing.CreatedAt
			return nil
		}
	}
	if site.ID == "" {
		site.ID = uuid.New().String()
	}
	if site.CreatedAt.IsZero() {
		site.CreatedAt = time.Now().UTC()
	}
	cp := *site
	s.sites[site.ID] = &cp
	return nil
}

func (s *MemoryStore) GetSite(_ context.Context, id string) (*model.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if site, ok := s.sites[id]; ok {
		cp := *site
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryStore) GetSiteByDomain(_ context.Context, domain string) (*model.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, site := range s.sites {
		if site.Domain == domain {
			cp := *site
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) CreateRun(_ context.Context, siteID string, runType model.RunType) (*model.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	r := &model.Run{
		ID:        uuid.New().String(),
		SiteID:    siteID,
		RunType:   runType,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.runs[r.ID] = r
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) UpdateRunStatus(_ context.Context, runID string, status model.RunStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[runID]
	if !ok {
		return eris.Errorf("run not found: %s", runID)
	}
	r.Status = status
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) UpdateRunScore(_ context.Context, runID string, score *model.FindableScore, status model.RunStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[runID]
	if !ok {
		return eris.Errorf("run not found: %s", runID)
	}
	now := time.Now().UTC()
	r.Score = score
	r.Status = status
	r.UpdatedAt = now
	r.CompletedAt = &now
	return nil
}

func (s *MemoryStore) FailRun(_ context.Context, runID string, runErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[runID]
	if !ok {
		return eris.Errorf("run not found: %s", runID)
	}
	now := time.Now().UTC()
	r.Status = model.RunStatusFailed
	r.Error = runErr
	r.UpdatedAt = now
	r.CompletedAt = &now
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, runID string) (*model.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[runID]
	if !ok {
		return nil, eris.New("run not found")
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) ListRuns(_ context.Context, filter RunFilter) ([]model.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Run
	for _, r := range s.runs {
		if filter.SiteID != "" && r.SiteID != filter.SiteID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.Since != nil && r.CreatedAt.Before(*filter.Since) {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) CreatePhase(_ context.Context, runID, name string) (*model.RunPhase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &model.RunPhase{RunID: runID, Name: name, Status: "running", StartedAt: time.Now().UTC()}
	s.phases[runID] = append(s.phases[runID], p)
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) CompletePhase(_ context.Context, runID, name, status, phaseErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.phases[runID] {
		if p.Name == name {
			now := time.Now().UTC()
			p.Status = status
			p.Error = phaseErr
			p.FinishedAt = &now
			p.Duration = now.Sub(p.StartedAt)
			return nil
		}
	}
	return eris.Errorf("phase not found: %s", name)
}

// Phases returns a run's phases in creation order.
func (s *MemoryStore) Phases(runID string) []model.RunPhase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.RunPhase, 0, len(s.phases[runID]))
	for _, p := range s.phases[runID] {
		out = append(out, *p)
	}
	return out
}

func (s *MemoryStore) GetCachedCrawl(_ context.Context, domain string) (*model.CrawlCacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.crawls[domain]
	if !ok || e.Expired(time.Now().UTC()) {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) SetCachedCrawl(_ context.Context, domain string, result *model.CrawlResult, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	s.crawls[domain] = &model.CrawlCacheEntry{
		ID:        uuid.New().String(),
		Domain:    domain,
		Result:    *result,
		CrawledAt: now,
		ExpiresAt: now.Add(ttl),
	}
	return nil
}

func (s *MemoryStore) InvalidateCrawl(_ context.Context, domain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.crawls, domain)
	return nil
}

func (s *MemoryStore) DeleteExpiredCrawls(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	n := 0
	for domain, e := range s.crawls {
		if e.Expired(now) {
			delete(s.crawls, domain)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) UpsertEmbeddings(_ context.Context, embeddings []model.StoredEmbedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range embeddings {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now().UTC()
		}
		bySite, ok := s.embeddings[e.SiteID]
		if !ok {
			bySite = make(map[string]model.StoredEmbedding)
			s.embeddings[e.SiteID] = bySite
		}
		bySite[e.ContentHash] = e
	}
	return nil
}

func (s *MemoryStore) GetEmbeddings(_ context.Context, siteID string) ([]model.StoredEmbedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bySite := s.embeddings[siteID]
	out := make([]model.StoredEmbedding, 0, len(bySite))
	for _, e := range bySite {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkID < out[j].ChunkID })
	return out, nil
}

func (s *MemoryStore) DeleteEmbeddings(_ context.Context, siteID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.embeddings[siteID])
	delete(s.embeddings, siteID)
	return n, nil
}

func (s *MemoryStore) SaveConfig(_ context.Context, cfg *model.CalibrationConfig) error {
	if err := cfg.Validate(); err != nil {
		return eris.Wrap(err, "memory: save config")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	cfg.UpdatedAt = time.Now().UTC()
	cp := *cfg
	s.configs[cfg.ID] = &cp
	return nil
}

func (s *MemoryStore) GetConfig(_ context.Context, id string) (*model.CalibrationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cfg, ok := s.configs[id]; ok {
		cp := *cfg
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryStore) GetActiveConfig(context.Context) (*model.CalibrationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active *model.CalibrationConfig
	for _, cfg := range s.configs {
		if cfg.Status != model.ConfigStatusActive {
			continue
		}
		if active == nil || cfg.UpdatedAt.After(active.UpdatedAt) {
			active = cfg
		}
	}
	if active == nil {
		return nil, nil
	}
	cp := *active
	return &cp, nil
}

func (s *MemoryStore) ActivateConfig(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.configs[id]
	if !ok {
		return eris.Errorf("config not found: %s", id)
	}
	now := time.Now().UTC()
	for _, cfg := range s.configs {
		if cfg.Status == model.ConfigStatusActive {
			cfg.Status = model.ConfigStatusRetired
			cfg.UpdatedAt = now
		}
	}
	target.Status = model.ConfigStatusActive
	target.UpdatedAt = now
	return nil
}

func (s *MemoryStore) SaveExperiment(_ context.Context, exp *model.Experiment) error {
	if err := exp.Validate(); err != nil {
		return eris.Wrap(err, "memory: save experiment")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if exp.ID == "" {
		exp.ID = uuid.New().String()
	}
	for i, existing := range s.experiments {
		if existing.ID == exp.ID {
			cp := *exp
			s.experiments[i] = &cp
			return nil
		}
	}
	cp := *exp
	s.experiments = append(s.experiments, &cp)
	return nil
}

func (s *MemoryStore) GetActiveExperiment(context.Context) (*model.Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active *model.Experiment
	for _, exp := range s.experiments {
		if exp.EndedAt != nil {
			continue
		}
		if active == nil || exp.StartedAt.After(active.StartedAt) {
			active = exp
		}
	}
	if active == nil {
		return nil, nil
	}
	cp := *active
	return &cp, nil
}

func (s *MemoryStore) AppendSamples(_ context.Context, samples []model.CalibrationSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, samples...)
	return nil
}

func (s *MemoryStore) ListSamples(_ context.Context, filter SampleFilter) ([]model.CalibrationSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.CalibrationSample
	for _, smp := range s.samples {
		if filter.SiteID != "" && smp.SiteID != filter.SiteID {
			continue
		}
		if filter.ExperimentID != "" && smp.ExperimentID != filter.ExperimentID {
			continue
		}
		if filter.Arm != "" && smp.Arm != filter.Arm {
			continue
		}
		if filter.Since != nil && smp.CreatedAt.Before(*filter.Since) {
			continue
		}
		out = append(out, smp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) SaveDriftAlert(_ context.Context, alert *model.DriftAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	cp := *alert
	s.alerts[alert.ID] = &cp
	return nil
}

func (s *MemoryStore) ListDriftAlerts(_ context.Context, status model.DriftStatus) ([]model.DriftAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.DriftAlert
	for _, a := range s.alerts {
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DetectedAt.After(out[j].DetectedAt) })
	return out, nil
}
