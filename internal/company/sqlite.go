package company

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/leadgrid/tracker-cli/internal/model"
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
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	tenant_id    TEXT NOT NULL,
	domain       TEXT NOT NULL,
	name         TEXT NOT NULL DEFAULT '',
	industry     TEXT NOT NULL DEFAULT '',
	size         TEXT NOT NULL DEFAULT '',
	location     TEXT,
	email        TEXT NOT NULL DEFAULT '',
	phone        TEXT NOT NULL DEFAULT '',
	website      TEXT NOT NULL DEFAULT '',
	sources      TEXT NOT NULL DEFAULT '[]',
	confidence   REAL NOT NULL DEFAULT 0,
	enriched_at  DATETIME,
	total_visits INTEGER NOT NULL DEFAULT 0,
	last_visit   DATETIME NOT NULL,
	score        INTEGER NOT NULL DEFAULT 0,
	status       TEXT NOT NULL DEFAULT 'cold',
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL,
	PRIMARY KEY (tenant_id, domain)
);

CREATE INDEX IF NOT EXISTS idx_companies_tenant_status ON companies(tenant_id, status);
CREATE INDEX IF NOT EXISTS idx_companies_tenant_score ON companies(tenant_id, score DESC);
`

// sqliteUpsertSQL matches the postgres upsert: insert on first sight, else
// increment the visit counter and fill only empty columns.
const sqliteUpsertSQL = `
INSERT INTO companies (
	tenant_id, domain, name, industry, size, location, email, phone, website,
	sources, confidence, enriched_at, total_visits, last_visit, score, status,
	created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?, ?)
ON CONFLICT (tenant_id, domain) DO UPDATE SET
	name         = COALESCE(NULLIF(companies.name, ''), excluded.name),
	industry     = COALESCE(NULLIF(companies.industry, ''), excluded.industry),
	size         = COALESCE(NULLIF(companies.size, ''), excluded.size),
	location     = COALESCE(companies.location, excluded.location),
	email        = COALESCE(NULLIF(companies.email, ''), excluded.email),
	phone        = COALESCE(NULLIF(companies.phone, ''), excluded.phone),
	website      = COALESCE(NULLIF(companies.website, ''), excluded.website),
	sources      = CASE WHEN companies.sources = '[]' THEN excluded.sources ELSE companies.sources END,
	confidence   = CASE WHEN companies.confidence = 0 THEN excluded.confidence ELSE companies.confidence END,
	enriched_at  = COALESCE(companies.enriched_at, excluded.enriched_at),
	total_visits = companies.total_visits + 1,
	last_visit   = excluded.last_visit,
	score        = excluded.score,
	status       = excluded.status,
	updated_at   = excluded.updated_at
`

const sqliteSelectColumns = `tenant_id, domain, name, industry, size, location, email, phone, website,
	sources, confidence, enriched_at, total_visits, last_visit, score, status,
	created_at, updated_at`

func (s *SQLiteStore) Upsert(ctx context.Context, tenantID string, profile *model.CompanyProfile, score int, status model.LeadStatus) (*model.CompanyProfile, error) {
	if tenantID == "" {
		return nil, model.ErrMissingTenant
	}
	now := time.Now().UTC()

	var locationJSON any
	if profile.Location != nil {
		b, err := json.Marshal(profile.Location)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal location")
		}
		locationJSON = string(b)
	}
	sources := profile.Enrichment.Sources
	if sources == nil {
		sources = []string{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal sources")
	}
	var enrichedAt any
	if !profile.Enrichment.EnrichedAt.IsZero() {
		enrichedAt = profile.Enrichment.EnrichedAt
	}

	_, err = s.db.ExecContext(ctx, sqliteUpsertSQL,
		tenantID, profile.Domain, profile.Name, profile.Industry, profile.Size,
		locationJSON, profile.Email, profile.Phone, profile.Website,
		string(sourcesJSON), profile.Enrichment.Confidence, enrichedAt,
		now, score, string(status), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert company %s", profile.Domain)
	}
	return s.Get(ctx, tenantID, profile.Domain)
}

func (s *SQLiteStore) SetScore(ctx context.Context, tenantID, domain string, score int, status model.LeadStatus) error {
	if tenantID == "" {
		return model.ErrMissingTenant
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE companies SET score = ?, status = ?, updated_at = ? WHERE tenant_id = ? AND domain = ?`,
		score, string(status), time.Now().UTC(), tenantID, domain,
	)
	return eris.Wrapf(err, "sqlite: set score %s", domain)
}

func (s *SQLiteStore) Get(ctx context.Context, tenantID, domain string) (*model.CompanyProfile, error) {
	if tenantID == "" {
		return nil, model.ErrMissingTenant
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteSelectColumns+` FROM companies WHERE tenant_id = ? AND domain = ?`,
		tenantID, domain,
	)
	p, err := scanSQLiteProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get company %s", domain)
	}
	return p, nil
}

func (s *SQLiteStore) List(ctx context.Context, tenantID string, filter Filter) ([]model.CompanyProfile, error) {
	if tenantID == "" {
		return nil, model.ErrMissingTenant
	}
	query := `SELECT ` + sqliteSelectColumns + ` FROM companies WHERE tenant_id = ?`
	args := []any{tenantID}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY score DESC, domain ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list companies")
	}
	defer rows.Close()

	var out []model.CompanyProfile
	for rows.Next() {
		p, err := scanSQLiteProfile(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list companies")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteProfile(row rowScanner) (*model.CompanyProfile, error) {
	var p model.CompanyProfile
	var locationJSON sql.NullString
	var sourcesJSON string
	var enrichedAt sql.NullTime
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
	if enrichedAt.Valid {
		p.Enrichment.EnrichedAt = enrichedAt.Time
	}
	if locationJSON.Valid && locationJSON.String != "" {
		var loc model.Location
		if err := json.Unmarshal([]byte(locationJSON.String), &loc); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal location")
		}
		p.Location = &loc
	}
	if sourcesJSON != "" {
		if err := json.Unmarshal([]byte(sourcesJSON), &p.Enrichment.Sources); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal sources")
		}
	}
	return &p, nil
}
