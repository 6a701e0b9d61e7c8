package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	_ "modernc.org/sqlite"

	"socflow/internal/application/port/output"
	"socflow/internal/domain/entity"
)

const KeyIncidents = "incidents"

var _ output.LookupProvider = (*Provider)(nil)

const schemaVersionsDDL = `
CREATE TABLE IF NOT EXISTS schema_versions (
    version     INTEGER PRIMARY KEY,
    applied_at  INTEGER NOT NULL
)`

var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS incidents (
    id               TEXT NOT NULL,
    organization_id  TEXT NOT NULL,
    title            TEXT NOT NULL,
    category         TEXT NOT NULL DEFAULT '',
    severity         TEXT NOT NULL DEFAULT 'medium',
    status           TEXT NOT NULL DEFAULT 'open',
    created_at       INTEGER NOT NULL,
    PRIMARY KEY (organization_id, id)
);
CREATE INDEX IF NOT EXISTS idx_incidents_org_created ON incidents(organization_id, created_at DESC);
`,
	},
}

type Incident struct {
	ID             string
	OrganizationID string
	Title          string
	Category       string
	Severity       string
	Status         string
	CreatedAt      time.Time
}

// Provider answers selection-from-lookup queries from a SQLite incident table.
type Provider struct {
	db  *sql.DB
	now func() time.Time
}

func Open(path string) (*Provider, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// :memory: databases are per-connection.
	db.SetMaxOpenConns(1)

	p := &Provider{db: db, now: time.Now}
	if err := p.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func (p *Provider) Close() error {
	return p.db.Close()
}

func (p *Provider) migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schemaVersionsDDL); err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var applied int
		err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_versions WHERE version = ?`, m.version).Scan(&applied)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if applied > 0 {
			continue
		}
		if _, err := p.db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := p.db.ExecContext(ctx, `INSERT INTO schema_versions (version, applied_at) VALUES (?, ?)`, m.version, p.now().Unix()); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (p *Provider) SaveIncident(ctx context.Context, inc Incident) error {
	if inc.ID == "" || inc.OrganizationID == "" {
		return fmt.Errorf("incident id and organization id are required")
	}
	if inc.CreatedAt.IsZero() {
		inc.CreatedAt = p.now()
	}

	_, err := p.db.ExecContext(ctx, `
INSERT INTO incidents (id, organization_id, title, category, severity, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(organization_id, id) DO UPDATE SET
    title = excluded.title,
    category = excluded.category,
    severity = excluded.severity,
    status = excluded.status,
    created_at = excluded.created_at`,
		strings.ToUpper(inc.ID), inc.OrganizationID, inc.Title, inc.Category, inc.Severity, defaultStatus(inc.Status), inc.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("save incident %s: %w", inc.ID, err)
	}
	return nil
}

func (p *Provider) Search(ctx context.Context, org entity.OrgContext, q output.LookupQuery) ([]entity.LookupCandidate, error) {
	if q.Key != KeyIncidents {
		return nil, fmt.Errorf("unsupported lookup key %q", q.Key)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 5
	}

	rows, err := p.db.QueryContext(ctx, `
SELECT id, organization_id, title, category, severity, status, created_at
FROM incidents
WHERE organization_id = ? AND status != 'closed'
ORDER BY created_at DESC, id DESC
LIMIT ?`, org.OrganizationID, limit)
	if err != nil {
		return nil, fmt.Errorf("search incidents: %w", err)
	}
	defer rows.Close()

	var out []entity.LookupCandidate
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		c := p.toCandidate(inc)
		c.Position = len(out) + 1
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}
	return out, nil
}

func (p *Provider) ResolveByID(ctx context.Context, org entity.OrgContext, token string) (entity.LookupCandidate, bool, error) {
	row := p.db.QueryRowContext(ctx, `
SELECT id, organization_id, title, category, severity, status, created_at
FROM incidents
WHERE organization_id = ? AND id = ?`, org.OrganizationID, strings.ToUpper(strings.TrimSpace(token)))

	inc, err := scanIncident(row)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.LookupCandidate{}, false, nil
	}
	if err != nil {
		return entity.LookupCandidate{}, false, err
	}
	return p.toCandidate(inc), true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIncident(s scanner) (Incident, error) {
	var (
		inc     Incident
		created int64
	)
	err := s.Scan(&inc.ID, &inc.OrganizationID, &inc.Title, &inc.Category, &inc.Severity, &inc.Status, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Incident{}, err
	}
	if err != nil {
		return Incident{}, fmt.Errorf("scan incident: %w", err)
	}
	inc.CreatedAt = time.Unix(created, 0)
	return inc, nil
}

func (p *Provider) toCandidate(inc Incident) entity.LookupCandidate {
	return entity.LookupCandidate{
		ID:    inc.ID,
		Label: inc.Title,
		Fields: []entity.DisplayField{
			{Name: "severity", Value: inc.Severity},
			{Name: "category", Value: inc.Category},
			{Name: "opened", Value: humanize.RelTime(inc.CreatedAt, p.now(), "ago", "from now")},
		},
	}
}

func defaultStatus(s string) string {
	if s == "" {
		return "open"
	}
	return s
}
