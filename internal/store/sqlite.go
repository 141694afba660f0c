package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/findablehq/findable-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sites (
	id             TEXT PRIMARY KEY,
	domain         TEXT NOT NULL UNIQUE,
	name           TEXT,
	user_id        TEXT,
	business_model TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	site_id      TEXT NOT NULL REFERENCES sites(id),
	run_type     TEXT NOT NULL DEFAULT 'audit',
	status       TEXT NOT NULL DEFAULT 'queued',
	config       TEXT,
	score        TEXT,
	error        TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS run_phases (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	name        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	error       TEXT,
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME,
	PRIMARY KEY (run_id, name)
);

CREATE TABLE IF NOT EXISTS crawl_cache (
	id         TEXT PRIMARY KEY,
	domain     TEXT NOT NULL,
	result     TEXT NOT NULL,
	crawled_at DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS embeddings (
	id           TEXT PRIMARY KEY,
	chunk_id     TEXT NOT NULL,
	page_id      TEXT NOT NULL,
	site_id      TEXT NOT NULL,
	content      TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	embedding    TEXT NOT NULL,
	model_name   TEXT NOT NULL,
	dimensions   INTEGER NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (content_hash, site_id)
);

CREATE TABLE IF NOT EXISTS calibration_configs (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'draft',
	body       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS experiments (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	body       TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	ended_at   DATETIME
);

CREATE TABLE IF NOT EXISTS calibration_samples (
	id         TEXT PRIMARY KEY,
	site_id    TEXT NOT NULL,
	run_id     TEXT,
	body       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS drift_alerts (
	id          TEXT PRIMARY KEY,
	metric      TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'open',
	body        TEXT NOT NULL,
	detected_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_site_id ON runs(site_id);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_crawl_cache_domain ON crawl_cache(domain);
CREATE INDEX IF NOT EXISTS idx_crawl_cache_expires_at ON crawl_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_embeddings_site_id ON embeddings(site_id);
CREATE INDEX IF NOT EXISTS idx_samples_site_id ON calibration_samples(site_id);
CREATE INDEX IF NOT EXISTS idx_samples_created_at ON calibration_samples(created_at);
CREATE INDEX IF NOT EXISTS idx_drift_alerts_status ON drift_alerts(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertSite(ctx context.Context, site *model.Site) error {
	if site.ID == "" {
		site.ID = uuid.New().String()
	}
	if site.CreatedAt.IsZero() {
		site.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sites (id, domain, name, user_id, business_model, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(domain) DO UPDATE SET name = excluded.name, business_model = excluded.business_model`,
		site.ID, site.Domain, site.Name, site.UserID, site.BusinessModel, site.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: upsert site %s", site.Domain)
}

func (s *SQLiteStore) GetSite(ctx context.Context, id string) (*model.Site, error) {
	return scanSite(s.db.QueryRowContext(ctx,
		`SELECT id, domain, name, user_id, business_model, created_at FROM sites WHERE id = ?`, id))
}

func (s *SQLiteStore) GetSiteByDomain(ctx context.Context, domain string) (*model.Site, error) {
	return scanSite(s.db.QueryRowContext(ctx,
		`SELECT id, domain, name, user_id, business_model, created_at FROM sites WHERE domain = ?`, domain))
}

func (s *SQLiteStore) CreateRun(ctx context.Context, siteID string, runType model.RunType) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, site_id, run_type, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, siteID, string(runType), string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert run for site %s", siteID)
	}

	return &model.Run{
		ID:        id,
		SiteID:    siteID,
		RunType:   runType,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) UpdateRunScore(ctx context.Context, runID string, score *model.FindableScore, status model.RunStatus) error {
	scoreJSON, err := json.Marshal(score)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal score")
	}
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET score = ?, status = ?, updated_at = ?, completed_at = ? WHERE id = ?`,
		string(scoreJSON), string(status), now, now, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run score %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, runErr string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ?, completed_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), runErr, now, now, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	return scanRun(s.db.QueryRowContext(ctx,
		`SELECT id, site_id, run_type, status, config, score, error, created_at, updated_at, completed_at
		 FROM runs WHERE id = ?`, runID))
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, site_id, run_type, status, config, score, error, created_at, updated_at, completed_at
	          FROM runs WHERE 1=1`
	var args []any

	if filter.SiteID != "" {
		query += ` AND site_id = ?`
		args = append(args, filter.SiteID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) CreatePhase(ctx context.Context, runID, name string) (*model.RunPhase, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_phases (run_id, name, status, started_at) VALUES (?, ?, 'running', ?)
		 ON CONFLICT(run_id, name) DO UPDATE SET status = 'running', started_at = excluded.started_at`,
		runID, name, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert phase %s for run %s", name, runID)
	}
	return &model.RunPhase{RunID: runID, Name: name, Status: "running", StartedAt: now}, nil
}

func (s *SQLiteStore) CompletePhase(ctx context.Context, runID, name, status, phaseErr string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE run_phases SET status = ?, error = ?, finished_at = ? WHERE run_id = ? AND name = ?`,
		status, phaseErr, time.Now().UTC(), runID, name,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete phase %s", name)
	}
	return checkRowsAffected(res, "phase", name)
}

func (s *SQLiteStore) GetCachedCrawl(ctx context.Context, domain string) (*model.CrawlCacheEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, domain, result, crawled_at, expires_at FROM crawl_cache
		 WHERE domain = ? AND expires_at > datetime('now')
		 ORDER BY crawled_at DESC LIMIT 1`,
		domain,
	)

	var e model.CrawlCacheEntry
	var resultJSON string
	err := row.Scan(&e.ID, &e.Domain, &resultJSON, &e.CrawledAt, &e.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached crawl")
	}
	if err := json.Unmarshal([]byte(resultJSON), &e.Result); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached crawl")
	}
	return &e, nil
}

func (s *SQLiteStore) SetCachedCrawl(ctx context.Context, domain string, result *model.CrawlResult, ttl time.Duration) error {
	now := time.Now().UTC()
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal crawl result")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO crawl_cache (id, domain, result, crawled_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), domain, string(resultJSON), now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set cached crawl")
}

func (s *SQLiteStore) InvalidateCrawl(ctx context.Context, domain string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM crawl_cache WHERE domain = ?`, domain)
	return eris.Wrapf(err, "sqlite: invalidate crawl %s", domain)
}

func (s *SQLiteStore) DeleteExpiredCrawls(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM crawl_cache WHERE expires_at <= datetime('now')`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired crawls")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) UpsertEmbeddings(ctx context.Context, embeddings []model.StoredEmbedding) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin embeddings tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO embeddings (id, chunk_id, page_id, site_id, content, content_hash, embedding, model_name, dimensions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(content_hash, site_id) DO UPDATE SET
		   chunk_id = excluded.chunk_id, page_id = excluded.page_id,
		   embedding = excluded.embedding, model_name = excluded.model_name`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare embedding upsert")
	}
	defer stmt.Close()

	for _, e := range embeddings {
		id := e.ID
		if id == "" {
			id = uuid.New().String()
		}
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		vecJSON, err := json.Marshal(e.Embedding)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal embedding")
		}
		if _, err := stmt.ExecContext(ctx,
			id, e.ChunkID, e.PageID, e.SiteID, e.Content, e.ContentHash,
			string(vecJSON), e.ModelName, e.Dimensions, createdAt,
		); err != nil {
			return eris.Wrapf(err, "sqlite: upsert embedding %s", e.ChunkID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit embeddings")
}

func (s *SQLiteStore) GetEmbeddings(ctx context.Context, siteID string) ([]model.StoredEmbedding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chunk_id, page_id, site_id, content, content_hash, embedding, model_name, dimensions, created_at
		 FROM embeddings WHERE site_id = ? ORDER BY chunk_id`,
		siteID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get embeddings")
	}
	defer rows.Close()

	var out []model.StoredEmbedding
	for rows.Next() {
		var e model.StoredEmbedding
		var vecJSON string
		if err := rows.Scan(&e.ID, &e.ChunkID, &e.PageID, &e.SiteID, &e.Content,
			&e.ContentHash, &vecJSON, &e.ModelName, &e.Dimensions, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan embedding")
		}
		if err := json.Unmarshal([]byte(vecJSON), &e.Embedding); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal embedding")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: embeddings iterate")
}

func (s *SQLiteStore) DeleteEmbeddings(ctx context.Context, siteID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM embeddings WHERE site_id = ?`, siteID)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: delete embeddings %s", siteID)
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) SaveConfig(ctx context.Context, cfg *model.CalibrationConfig) error {
	if err := cfg.Validate(); err != nil {
		return eris.Wrap(err, "sqlite: save config")
	}
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	body, err := json.Marshal(cfg)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal config")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO calibration_configs (id, name, status, body, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, status = excluded.status,
		   body = excluded.body, updated_at = excluded.updated_at`,
		cfg.ID, cfg.Name, string(cfg.Status), string(body), cfg.CreatedAt, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save config %s", cfg.ID)
}

func (s *SQLiteStore) GetConfig(ctx context.Context, id string) (*model.CalibrationConfig, error) {
	return scanConfig(s.db.QueryRowContext(ctx,
		`SELECT body FROM calibration_configs WHERE id = ?`, id))
}

func (s *SQLiteStore) GetActiveConfig(ctx context.Context) (*model.CalibrationConfig, error) {
	return scanConfig(s.db.QueryRowContext(ctx,
		`SELECT body FROM calibration_configs WHERE status = 'active'
		 ORDER BY updated_at DESC LIMIT 1`))
}

// ActivateConfig promotes one config and retires any other active one
// in the same transaction.
func (s *SQLiteStore) ActivateConfig(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin activate tx")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE calibration_configs SET status = 'retired', updated_at = ? WHERE status = 'active'`, now,
	); err != nil {
		return eris.Wrap(err, "sqlite: retire active configs")
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE calibration_configs SET status = 'active', updated_at = ? WHERE id = ?`, now, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: activate config %s", id)
	}
	if err := checkRowsAffected(res, "config", id); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit activate")
}

func (s *SQLiteStore) SaveExperiment(ctx context.Context, exp *model.Experiment) error {
	if err := exp.Validate(); err != nil {
		return eris.Wrap(err, "sqlite: save experiment")
	}
	if exp.ID == "" {
		exp.ID = uuid.New().String()
	}
	body, err := json.Marshal(exp)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal experiment")
	}
	var endedAt any
	if exp.EndedAt != nil {
		endedAt = exp.EndedAt.UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO experiments (id, name, body, started_at, ended_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, body = excluded.body, ended_at = excluded.ended_at`,
		exp.ID, exp.Name, string(body), exp.StartedAt.UTC(), endedAt,
	)
	return eris.Wrapf(err, "sqlite: save experiment %s", exp.ID)
}

func (s *SQLiteStore) GetActiveExperiment(ctx context.Context) (*model.Experiment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT body FROM experiments WHERE ended_at IS NULL ORDER BY started_at DESC LIMIT 1`)

	var body string
	err := row.Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get active experiment")
	}
	var exp model.Experiment
	if err := json.Unmarshal([]byte(body), &exp); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal experiment")
	}
	return &exp, nil
}

func (s *SQLiteStore) AppendSamples(ctx context.Context, samples []model.CalibrationSample) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin samples tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO calibration_samples (id, site_id, run_id, body, created_at) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare sample insert")
	}
	defer stmt.Close()

	for _, smp := range samples {
		body, err := json.Marshal(smp)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal sample")
		}
		if _, err := stmt.ExecContext(ctx, smp.ID, smp.SiteID, smp.RunID, string(body), smp.CreatedAt); err != nil {
			return eris.Wrapf(err, "sqlite: insert sample %s", smp.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit samples")
}

func (s *SQLiteStore) ListSamples(ctx context.Context, filter SampleFilter) ([]model.CalibrationSample, error) {
	query := `SELECT body FROM calibration_samples WHERE 1=1`
	var args []any

	if filter.SiteID != "" {
		query += ` AND site_id = ?`
		args = append(args, filter.SiteID)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list samples")
	}
	defer rows.Close()

	var out []model.CalibrationSample
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sample")
		}
		var smp model.CalibrationSample
		if err := json.Unmarshal([]byte(body), &smp); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal sample")
		}
		// Experiment and arm filters need the decoded body.
		if filter.ExperimentID != "" && smp.ExperimentID != filter.ExperimentID {
			continue
		}
		if filter.Arm != "" && smp.Arm != filter.Arm {
			continue
		}
		out = append(out, smp)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: samples iterate")
}

func (s *SQLiteStore) SaveDriftAlert(ctx context.Context, alert *model.DriftAlert) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	body, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal drift alert")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO drift_alerts (id, metric, status, body, detected_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET status = excluded.status, body = excluded.body`,
		alert.ID, alert.Metric, string(alert.Status), string(body), alert.DetectedAt,
	)
	return eris.Wrapf(err, "sqlite: save drift alert %s", alert.ID)
}

func (s *SQLiteStore) ListDriftAlerts(ctx context.Context, status model.DriftStatus) ([]model.DriftAlert, error) {
	query := `SELECT body FROM drift_alerts`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY detected_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list drift alerts")
	}
	defer rows.Close()

	var out []model.DriftAlert
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan drift alert")
		}
		var a model.DriftAlert
		if err := json.Unmarshal([]byte(body), &a); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal drift alert")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: drift alerts iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSite(row scannable) (*model.Site, error) {
	var s model.Site
	var name, userID, businessModel sql.NullString
	err := row.Scan(&s.ID, &s.Domain, &name, &userID, &businessModel, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan site")
	}
	s.Name = name.String
	s.UserID = userID.String
	s.BusinessModel = businessModel.String
	return &s, nil
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var config, score, runErr sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(&r.ID, &r.SiteID, &r.RunType, &r.Status, &config, &score, &runErr,
		&r.CreatedAt, &r.UpdatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if config.Valid && config.String != "" {
		if err := json.Unmarshal([]byte(config.String), &r.Config); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal run config")
		}
	}
	if score.Valid && score.String != "" {
		r.Score = &model.FindableScore{}
		if err := json.Unmarshal([]byte(score.String), r.Score); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal run score")
		}
	}
	r.Error = runErr.String
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	return &r, nil
}

func scanConfig(row scannable) (*model.CalibrationConfig, error) {
	var body string
	err := row.Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan config")
	}
	var cfg model.CalibrationConfig
	if err := json.Unmarshal([]byte(body), &cfg); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal config")
	}
	return &cfg, nil
}
