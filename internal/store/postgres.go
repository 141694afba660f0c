package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/rotisserie/eris"

	"github.com/findablehq/findable-cli/internal/db"
	"github.com/findablehq/findable-cli/internal/model"
)

// PostgresStore implements Store using pgxpool, with pgvector for
// embedding similarity search.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_run":        `INSERT INTO runs (id, site_id, run_type, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"update_run_status": `UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
	"get_run":           `SELECT id, site_id, run_type, status, config, score, error, created_at, updated_at, completed_at FROM runs WHERE id = $1`,
	"get_cached_crawl":  `SELECT id, domain, result, crawled_at, expires_at FROM crawl_cache WHERE domain = $1 AND expires_at > now() ORDER BY crawled_at DESC LIMIT 1`,
	"append_sample":     `INSERT INTO calibration_samples (id, site_id, run_id, body, created_at) VALUES ($1, $2, $3, $4, $5)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; tests inject pgxmock here.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS sites (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	domain         TEXT NOT NULL UNIQUE,
	name           TEXT,
	user_id        TEXT,
	business_model TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	site_id      TEXT NOT NULL REFERENCES sites(id),
	run_type     TEXT NOT NULL DEFAULT 'audit',
	status       TEXT NOT NULL DEFAULT 'queued',
	config       JSONB,
	score        JSONB,
	error        TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS run_phases (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	name        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	error       TEXT,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ,
	PRIMARY KEY (run_id, name)
);

CREATE TABLE IF NOT EXISTS crawl_cache (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	domain     TEXT NOT NULL,
	result     JSONB NOT NULL,
	crawled_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS embeddings (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	chunk_id     TEXT NOT NULL,
	page_id      TEXT NOT NULL,
	site_id      TEXT NOT NULL,
	content      TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	embedding    vector(384) NOT NULL,
	model_name   TEXT NOT NULL,
	dimensions   INTEGER NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (content_hash, site_id)
);

CREATE TABLE IF NOT EXISTS calibration_configs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'draft',
	body       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS experiments (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL,
	body       JSONB NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	ended_at   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS calibration_samples (
	id         TEXT PRIMARY KEY,
	site_id    TEXT NOT NULL,
	run_id     TEXT,
	body       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS drift_alerts (
	id          TEXT PRIMARY KEY,
	metric      TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'open',
	body        JSONB NOT NULL,
	detected_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_site_id ON runs(site_id);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_crawl_cache_domain_expires ON crawl_cache(domain, expires_at DESC);
CREATE INDEX IF NOT EXISTS idx_embeddings_site_id ON embeddings(site_id);
CREATE INDEX IF NOT EXISTS idx_embeddings_ann ON embeddings
	USING hnsw (embedding vector_cosine_ops);
CREATE INDEX IF NOT EXISTS idx_samples_site_created ON calibration_samples(site_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_drift_alerts_status ON drift_alerts(status);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertSite(ctx context.Context, site *model.Site) error {
	if site.ID == "" {
		site.ID = uuid.New().String()
	}
	if site.CreatedAt.IsZero() {
		site.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sites (id, domain, name, user_id, business_model, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (domain) DO UPDATE SET name = EXCLUDED.name, business_model = EXCLUDED.business_model`,
		site.ID, site.Domain, site.Name, site.UserID, site.BusinessModel, site.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: upsert site %s", site.Domain)
}

func (s *PostgresStore) GetSite(ctx context.Context, id string) (*model.Site, error) {
	return s.scanSiteRow(s.pool.QueryRow(ctx,
		`SELECT id, domain, name, user_id, business_model, created_at FROM sites WHERE id = $1`, id))
}

func (s *PostgresStore) GetSiteByDomain(ctx context.Context, domain string) (*model.Site, error) {
	return s.scanSiteRow(s.pool.QueryRow(ctx,
		`SELECT id, domain, name, user_id, business_model, created_at FROM sites WHERE domain = $1`, domain))
}

func (s *PostgresStore) scanSiteRow(row pgx.Row) (*model.Site, error) {
	var site model.Site
	var name, userID, businessModel *string
	err := row.Scan(&site.ID, &site.Domain, &name, &userID, &businessModel, &site.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan site")
	}
	if name != nil {
		site.Name = *name
	}
	if userID != nil {
		site.UserID = *userID
	}
	if businessModel != nil {
		site.BusinessModel = *businessModel
	}
	return &site, nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, siteID string, runType model.RunType) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, site_id, run_type, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, siteID, string(runType), string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert run for site %s", siteID)
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

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) UpdateRunScore(ctx context.Context, runID string, score *model.FindableScore, status model.RunStatus) error {
	scoreJSON, err := json.Marshal(score)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal score")
	}
	now := time.Now().UTC()

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET score = $1, status = $2, updated_at = $3, completed_at = $4 WHERE id = $5`,
		scoreJSON, string(status), now, now, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run score %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, runErr string) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, updated_at = $3, completed_at = $4 WHERE id = $5`,
		string(model.RunStatusFailed), runErr, now, now, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	return s.scanRunRow(s.pool.QueryRow(ctx,
		`SELECT id, site_id, run_type, status, config, score, error, created_at, updated_at, completed_at
		 FROM runs WHERE id = $1`, runID))
}

func (s *PostgresStore) scanRunRow(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var configJSON, scoreJSON []byte
	var runErr *string

	err := row.Scan(&r.ID, &r.SiteID, &r.RunType, &r.Status, &configJSON, &scoreJSON, &runErr,
		&r.CreatedAt, &r.UpdatedAt, &r.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}

	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &r.Config); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal run config")
		}
	}
	if len(scoreJSON) > 0 {
		r.Score = &model.FindableScore{}
		if err := json.Unmarshal(scoreJSON, r.Score); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal run score")
		}
	}
	if runErr != nil {
		r.Error = *runErr
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, site_id, run_type, status, config, score, error, created_at, updated_at, completed_at
	          FROM runs WHERE true`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if filter.SiteID != "" {
		query += ` AND site_id = ` + arg(filter.SiteID)
	}
	if filter.Status != "" {
		query += ` AND status = ` + arg(string(filter.Status))
	}
	if filter.Since != nil {
		query += ` AND created_at >= ` + arg(filter.Since.UTC())
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := s.scanRunRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) CreatePhase(ctx context.Context, runID, name string) (*model.RunPhase, error) {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_phases (run_id, name, status, started_at) VALUES ($1, $2, 'running', $3)
		 ON CONFLICT (run_id, name) DO UPDATE SET status = 'running', started_at = EXCLUDED.started_at`,
		runID, name, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert phase %s for run %s", name, runID)
	}
	return &model.RunPhase{RunID: runID, Name: name, Status: "running", StartedAt: now}, nil
}

func (s *PostgresStore) CompletePhase(ctx context.Context, runID, name, status, phaseErr string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE run_phases SET status = $1, error = $2, finished_at = $3 WHERE run_id = $4 AND name = $5`,
		status, phaseErr, time.Now().UTC(), runID, name,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete phase %s", name)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("phase not found: %s", name)
	}
	return nil
}

func (s *PostgresStore) GetCachedCrawl(ctx context.Context, domain string) (*model.CrawlCacheEntry, error) {
	var e model.CrawlCacheEntry
	var resultJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, domain, result, crawled_at, expires_at FROM crawl_cache
		 WHERE domain = $1 AND expires_at > now()
		 ORDER BY crawled_at DESC LIMIT 1`,
		domain,
	).Scan(&e.ID, &e.Domain, &resultJSON, &e.CrawledAt, &e.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cached crawl")
	}
	if err := json.Unmarshal(resultJSON, &e.Result); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cached crawl")
	}
	return &e, nil
}

func (s *PostgresStore) SetCachedCrawl(ctx context.Context, domain string, result *model.CrawlResult, ttl time.Duration) error {
	now := time.Now().UTC()
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal crawl result")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO crawl_cache (id, domain, result, crawled_at, expires_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), domain, resultJSON, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached crawl")
}

func (s *PostgresStore) InvalidateCrawl(ctx context.Context, domain string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM crawl_cache WHERE domain = $1`, domain)
	return eris.Wrapf(err, "postgres: invalidate crawl %s", domain)
}

func (s *PostgresStore) DeleteExpiredCrawls(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM crawl_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired crawls")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) UpsertEmbeddings(ctx context.Context, embeddings []model.StoredEmbedding) error {
	rows := make([][]any, 0, len(embeddings))
	for _, e := range embeddings {
		id := e.ID
		if id == "" {
			id = uuid.New().String()
		}
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		rows = append(rows, []any{
			id, e.ChunkID, e.PageID, e.SiteID, e.Content, e.ContentHash,
			pgvector.NewVector(e.Embedding), e.ModelName, e.Dimensions, createdAt,
		})
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "embeddings",
		Columns:      []string{"id", "chunk_id", "page_id", "site_id", "content", "content_hash", "embedding", "model_name", "dimensions", "created_at"},
		ConflictKeys: []string{"content_hash", "site_id"},
		UpdateCols:   []string{"chunk_id", "page_id", "embedding", "model_name"},
	}, rows)
	if err != nil {
		return eris.Wrap(err, "postgres: upsert embeddings")
	}
	return nil
}

func (s *PostgresStore) GetEmbeddings(ctx context.Context, siteID string) ([]model.StoredEmbedding, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, chunk_id, page_id, site_id, content, content_hash, embedding, model_name, dimensions, created_at
		 FROM embeddings WHERE site_id = $1 ORDER BY chunk_id`,
		siteID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get embeddings")
	}
	defer rows.Close()

	var out []model.StoredEmbedding
	for rows.Next() {
		var e model.StoredEmbedding
		var vec pgvector.Vector
		if err := rows.Scan(&e.ID, &e.ChunkID, &e.PageID, &e.SiteID, &e.Content,
			&e.ContentHash, &vec, &e.ModelName, &e.Dimensions, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan embedding")
		}
		e.Embedding = vec.Slice()
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: embeddings iterate")
}

// SearchEmbeddings runs cosine ANN over a site's vectors, nearest
// first. Distance is pgvector's cosine distance in [0,2].
func (s *PostgresStore) SearchEmbeddings(ctx context.Context, siteID string, query []float32, k int) ([]model.RetrievedChunk, error) {
	if k <= 0 {
		k = 5
	}
	rows, err := s.pool.Query(ctx,
		`SELECT chunk_id, content, embedding <=> $1 AS distance
		 FROM embeddings WHERE site_id = $2
		 ORDER BY embedding <=> $1 LIMIT $3`,
		pgvector.NewVector(query), siteID, k,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search embeddings")
	}
	defer rows.Close()

	var out []model.RetrievedChunk
	for rows.Next() {
		var c model.RetrievedChunk
		if err := rows.Scan(&c.DocID, &c.Content, &c.Distance); err != nil {
			return nil, eris.Wrap(err, "postgres: scan search hit")
		}
		c.Score = 1 - c.Distance/2
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: search iterate")
}

func (s *PostgresStore) DeleteEmbeddings(ctx context.Context, siteID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM embeddings WHERE site_id = $1`, siteID)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: delete embeddings %s", siteID)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) SaveConfig(ctx context.Context, cfg *model.CalibrationConfig) error {
	if err := cfg.Validate(); err != nil {
		return eris.Wrap(err, "postgres: save config")
	}
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	body, err := json.Marshal(cfg)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal config")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO calibration_configs (id, name, status, body, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, status = EXCLUDED.status,
		   body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`,
		cfg.ID, cfg.Name, string(cfg.Status), body, cfg.CreatedAt, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save config %s", cfg.ID)
}

func (s *PostgresStore) GetConfig(ctx context.Context, id string) (*model.CalibrationConfig, error) {
	return s.scanConfigRow(s.pool.QueryRow(ctx,
		`SELECT body FROM calibration_configs WHERE id = $1`, id))
}

func (s *PostgresStore) GetActiveConfig(ctx context.Context) (*model.CalibrationConfig, error) {
	return s.scanConfigRow(s.pool.QueryRow(ctx,
		`SELECT body FROM calibration_configs WHERE status = 'active'
		 ORDER BY updated_at DESC LIMIT 1`))
}

func (s *PostgresStore) scanConfigRow(row pgx.Row) (*model.CalibrationConfig, error) {
	var body []byte
	err := row.Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan config")
	}
	var cfg model.CalibrationConfig
	if err := json.Unmarshal(body, &cfg); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal config")
	}
	return &cfg, nil
}

func (s *PostgresStore) ActivateConfig(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin activate tx")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx,
		`UPDATE calibration_configs SET status = 'retired', updated_at = $1 WHERE status = 'active'`, now,
	); err != nil {
		return eris.Wrap(err, "postgres: retire active configs")
	}
	tag, err := tx.Exec(ctx,
		`UPDATE calibration_configs SET status = 'active', updated_at = $1 WHERE id = $2`, now, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: activate config %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("config not found: %s", id)
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit activate")
}

func (s *PostgresStore) SaveExperiment(ctx context.Context, exp *model.Experiment) error {
	if err := exp.Validate(); err != nil {
		return eris.Wrap(err, "postgres: save experiment")
	}
	if exp.ID == "" {
		exp.ID = uuid.New().String()
	}
	body, err := json.Marshal(exp)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal experiment")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO experiments (id, name, body, started_at, ended_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, body = EXCLUDED.body, ended_at = EXCLUDED.ended_at`,
		exp.ID, exp.Name, body, exp.StartedAt.UTC(), exp.EndedAt,
	)
	return eris.Wrapf(err, "postgres: save experiment %s", exp.ID)
}

func (s *PostgresStore) GetActiveExperiment(ctx context.Context) (*model.Experiment, error) {
	var body []byte
	err := s.pool.QueryRow(ctx,
		`SELECT body FROM experiments WHERE ended_at IS NULL ORDER BY started_at DESC LIMIT 1`,
	).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get active experiment")
	}
	var exp model.Experiment
	if err := json.Unmarshal(body, &exp); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal experiment")
	}
	return &exp, nil
}

func (s *PostgresStore) AppendSamples(ctx context.Context, samples []model.CalibrationSample) error {
	if len(samples) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(samples))
	for _, smp := range samples {
		body, err := json.Marshal(smp)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal sample")
		}
		rows = append(rows, []any{smp.ID, smp.SiteID, smp.RunID, body, smp.CreatedAt})
	}
	_, err := db.CopyFrom(ctx, s.pool, "calibration_samples",
		[]string{"id", "site_id", "run_id", "body", "created_at"}, rows)
	return eris.Wrap(err, "postgres: append samples")
}

func (s *PostgresStore) ListSamples(ctx context.Context, filter SampleFilter) ([]model.CalibrationSample, error) {
	query := `SELECT body FROM calibration_samples WHERE true`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if filter.SiteID != "" {
		query += ` AND site_id = ` + arg(filter.SiteID)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ` + arg(filter.Since.UTC())
	}
	if filter.ExperimentID != "" {
		query += ` AND body->>'experiment_id' = ` + arg(filter.ExperimentID)
	}
	if filter.Arm != "" {
		query += ` AND body->>'arm' = ` + arg(string(filter.Arm))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list samples")
	}
	defer rows.Close()

	var out []model.CalibrationSample
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, eris.Wrap(err, "postgres: scan sample")
		}
		var smp model.CalibrationSample
		if err := json.Unmarshal(body, &smp); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal sample")
		}
		out = append(out, smp)
	}
	return out, eris.Wrap(rows.Err(), "postgres: samples iterate")
}

func (s *PostgresStore) SaveDriftAlert(ctx context.Context, alert *model.DriftAlert) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	body, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal drift alert")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO drift_alerts (id, metric, status, body, detected_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, body = EXCLUDED.body`,
		alert.ID, alert.Metric, string(alert.Status), body, alert.DetectedAt,
	)
	return eris.Wrapf(err, "postgres: save drift alert %s", alert.ID)
}

func (s *PostgresStore) ListDriftAlerts(ctx context.Context, status model.DriftStatus) ([]model.DriftAlert, error) {
	query := `SELECT body FROM drift_alerts`
	var args []any
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY detected_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list drift alerts")
	}
	defer rows.Close()

	var out []model.DriftAlert
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, eris.Wrap(err, "postgres: scan drift alert")
		}
		var a model.DriftAlert
		if err := json.Unmarshal(body, &a); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal drift alert")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: drift alerts iterate")
}

// Pool returns the underlying database pool for subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}
