package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socflow/internal/application/port/output"
	"socflow/internal/domain/entity"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := Open(":memory:")
	require.NoError(t, err)
	p.now = func() time.Time { return fixedNow }
	t.Cleanup(func() { _ = p.Close() })

	_, err = p.Seed(context.Background(), DemoIncidents("org-1", fixedNow))
	require.NoError(t, err)
	return p
}

func TestSearchReturnsRecentOpenIncidents(t *testing.T) {
	p := newTestProvider(t)
	org := entity.OrgContext{OrganizationID: "org-1"}

	got, err := p.Search(context.Background(), org, output.LookupQuery{Key: KeyIncidents, Limit: 3})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "INC-2024-0042", got[0].ID)
	assert.Equal(t, "INC-2024-0041", got[1].ID)
	assert.Equal(t, "INC-2024-0040", got[2].ID)
	for i, c := range got {
		assert.Equal(t, i+1, c.Position)
	}

	assert.Equal(t, "Ransomware detected on FIN-WS-12", got[0].Label)
	assert.Contains(t, got[0].Fields, entity.DisplayField{Name: "severity", Value: "critical"})
	assert.Contains(t, got[0].Fields, entity.DisplayField{Name: "opened", Value: "2 hours ago"})
}

func TestSearchExcludesClosedIncidents(t *testing.T) {
	p := newTestProvider(t)
	org := entity.OrgContext{OrganizationID: "org-1"}

	got, err := p.Search(context.Background(), org, output.LookupQuery{Key: KeyIncidents, Limit: 50})
	require.NoError(t, err)
	assert.Len(t, got, 5)
	for _, c := range got {
		assert.NotEqual(t, "INC-2024-0031", c.ID)
	}
}

func TestSearchIsScopedToOrganization(t *testing.T) {
	p := newTestProvider(t)

	got, err := p.Search(context.Background(), entity.OrgContext{OrganizationID: "org-2"}, output.LookupQuery{Key: KeyIncidents})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchUnknownKey(t *testing.T) {
	p := newTestProvider(t)

	_, err := p.Search(context.Background(), entity.OrgContext{OrganizationID: "org-1"}, output.LookupQuery{Key: "assets"})
	assert.Error(t, err)
}

func TestResolveByID(t *testing.T) {
	p := newTestProvider(t)
	org := entity.OrgContext{OrganizationID: "org-1"}

	c, found, err := p.ResolveByID(context.Background(), org, "inc-2024-0039")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "INC-2024-0039", c.ID)
	assert.Equal(t, "Suspicious PowerShell on DC-02", c.Label)

	_, found, err = p.ResolveByID(context.Background(), org, "INC-1999-0001")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = p.ResolveByID(context.Background(), entity.OrgContext{OrganizationID: "org-2"}, "INC-2024-0039")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSaveIncidentUpserts(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()
	org := entity.OrgContext{OrganizationID: "org-1"}

	require.NoError(t, p.SaveIncident(ctx, Incident{
		ID:             "INC-2024-0042",
		OrganizationID: "org-1",
		Title:          "Ransomware contained on FIN-WS-12",
		Category:       "malware",
		Severity:       "high",
		CreatedAt:      fixedNow.Add(-2 * time.Hour),
	}))

	c, found, err := p.ResolveByID(ctx, org, "INC-2024-0042")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Ransomware contained on FIN-WS-12", c.Label)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	p := newTestProvider(t)
	require.NoError(t, p.migrate(context.Background()))

	var n int
	require.NoError(t, p.db.QueryRow(`SELECT COUNT(*) FROM schema_versions`).Scan(&n))
	assert.Equal(t, len(migrations), n)
}
