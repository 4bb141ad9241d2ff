package company

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/leadgrid/tracker-cli/internal/db"
	"github.com/leadgrid/tracker-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

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

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS companies (
	tenant_id    TEXT NOT NULL,
	domain       TEXT NOT NULL,
	name         TEXT NOT NULL DEFAULT '',
	industry     TEXT NOT NULL DEFAULT '',
	size         TEXT NOT NULL DEFAULT '',
	location     JSONB,
	email        TEXT NOT NULL DEFAULT '',
	phone        TEXT NOT NULL DEFAULT '',
	website      TEXT NOT NULL DEFAULT '',
	sources      JSONB NOT NULL DEFAULT '[]',
	confidence   DOUBLE PRECISION NOT NULL DEFAULT 0,
	enriched_at  TIMESTAMPTZ,
	total_visits INTEGER NOT NULL DEFAULT 0,
	last_visit   TIMESTAMPTZ NOT NULL DEFAULT now(),
	score        INTEGER NOT NULL DEFAULT 0,
	status       TEXT NOT NULL DEFAULT 'cold',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (tenant_id, domain)
);

CREATE INDEX IF NOT EXISTS idx_companies_tenant_status ON companies(tenant_id, status);
CREATE INDEX IF NOT EXISTS idx_companies_tenant_score ON companies(tenant_id, score DESC);
`

// upsertSQL inserts the profile or, on conflict, increments the visit
// counter and fills only columns that are still empty. The whole visit is
// one statement so concurrent sessions for the same (tenant, domain) never
// lose an increment.
const upsertSQL = `
INSERT INTO companies (
	tenant_id, domain, name, industry, size, location, email, phone, website,
	sources, confidence, enriched_at, total_visits, last_visit, score, status,
	created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1, $13, $14, $15, $13, $13)
ON CONFLICT (tenant_id, domain) DO UPDATE SET
	name         = COALESCE(NULLIF(companies.name, ''), EXCLUDED.name),
	industry     = COALESCE(NULLIF(companies.industry, ''), EXCLUDED.industry),
	size         = COALESCE(NULLIF(companies.size, ''), EXCLUDED.size),
	location     = COALESCE(companies.location, EXCLUDED.location),
	email        = COALESCE(NULLIF(companies.email, ''), EXCLUDED.email),
	phone        = COALESCE(NULLIF(companies.phone, ''), EXCLUDED.phone),
	website      = COALESCE(NULLIF(companies.website, ''), EXCLUDED.website),
	sources      = CASE WHEN companies.sources = '[]'::jsonb THEN EXCLUDED.sources ELSE companies.sources END,
	confidence   = CASE WHEN companies.confidence = 0 THEN EXCLUDED.confidence ELSE companies.confidence END,
	enriched_at  = COALESCE(companies.enriched_at, EXCLUDED.enriched_at),
	total_visits = companies.total_visits + 1,
	last_visit   = EXCLUDED.last_visit,
	score        = EXCLUDED.score,
	status       = EXCLUDED.status,
	updated_at   = EXCLUDED.updated_at
RETURNING tenant_id, domain, name, industry, size, location, email, phone, website,
	sources, confidence, enriched_at, total_visits, last_visit, score, status,
	created_at, updated_at
`

const selectColumns = `tenant_id, domain, name, industry, size, location, email, phone, website,
	sources, confidence, enriched_at, total_visits, last_visit, score, status,
	created_at, updated_at`

func (s *PostgresStore) Upsert(ctx context.Context, tenantID string, profile *model.CompanyProfile, score int, status model.LeadStatus) (*model.CompanyProfile, error) {
	if tenantID == "" {
		return nil, model.ErrMissingTenant
	}
	now := time.Now().UTC()

	locationJSON, err := marshalLocation(profile.Location)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal location")
	}
	sourcesJSON, err := marshalSources(profile.Enrichment.Sources)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal sources")
	}
	var enrichedAt *time.Time
	if !profile.Enrichment.EnrichedAt.IsZero() {
		t := profile.Enrichment.EnrichedAt
		enrichedAt = &t
	}

	row := s.pool.QueryRow(ctx, upsertSQL,
		tenantID, profile.Domain, profile.Name, profile.Industry, profile.Size,
		locationJSON, profile.Email, profile.Phone, profile.Website,
		sourcesJSON, profile.Enrichment.Confidence, enrichedAt,
		now, score, string(status),
	)
	stored, err := scanProfile(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert company %s", profile.Domain)
	}
	return stored, nil
}

func (s *PostgresStore) SetScore(ctx context.Context, tenantID, domain string, score int, status model.LeadStatus) error {
	if tenantID == "" {
		return model.ErrMissingTenant
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE companies SET score = $1, status = $2, updated_at = $3 WHERE tenant_id = $4 AND domain = $5`,
		score, string(status), time.Now().UTC(), tenantID, domain,
	)
	return eris.Wrapf(err, "postgres: set score %s", domain)
}

func (s *PostgresStore) Get(ctx context.Context, tenantID, domain string) (*model.CompanyProfile, error) {
	if tenantID == "" {
		return nil, model.ErrMissingTenant
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM companies WHERE tenant_id = $1 AND domain = $2`,
		tenantID, domain,
	)
	stored, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get company %s", domain)
	}
	return stored, nil
}

func (s *PostgresStore) List(ctx context.Context, tenantID string, filter Filter) ([]model.CompanyProfile, error) {
	if tenantID == "" {
		return nil, model.ErrMissingTenant
	}
	query := `SELECT ` + selectColumns + ` FROM companies WHERE tenant_id = $1`
	args := []any{tenantID}
	if filter.Status != "" {
		query += ` AND status = $2`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY score DESC, domain ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list companies")
	}
	defer rows.Close()

	var out []model.CompanyProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list companies")
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

func scanProfile(row pgx.Row) (*model.CompanyProfile, error) {
	var p model.CompanyProfile
	var locationJSON, sourcesJSON []byte
	var enrichedAt *time.Time
	var status string

	err := row.Scan(
		&p.TenantID, &p.Domain, &p.Name, &p.Industry, &p.Size,
		&locationJSON, &p.Email, &p.Phone, &p.Website,
		&sourcesJSON, &p.Enrichment.Confidence, &enrichedAt,
		&p.TotalVisits, &p.LastVisit, &p.Score, &status,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = model.LeadStatus(status)
	if enrichedAt != nil {
		p.Enrichment.EnrichedAt = *enrichedAt
	}
	if len(locationJSON) > 0 {
		var loc model.Location
		if err := json.Unmarshal(locationJSON, &loc); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal location")
		}
		p.Location = &loc
	}
	if len(sourcesJSON) > 0 {
		if err := json.Unmarshal(sourcesJSON, &p.Enrichment.Sources); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal sources")
		}
	}
	return &p, nil
}

func marshalLocation(loc *model.Location) ([]byte, error) {
	if loc == nil {
		return nil, nil
	}
	return json.Marshal(loc)
}

func marshalSources(sources []string) ([]byte, error) {
	if sources == nil {
		sources = []string{}
	}
	return json.Marshal(sources)
}
