package sqlite

import (
	"context"
	"time"
)

// DemoIncidents returns a small incident set for local runs of the chat and
// serve commands.
func DemoIncidents(orgID string, now time.Time) []Incident {
	return []Incident{
		{ID: "INC-2024-0042", OrganizationID: orgID, Title: "Ransomware detected on FIN-WS-12", Category: "malware", Severity: "critical", CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "INC-2024-0041", OrganizationID: orgID, Title: "Credential phishing campaign targeting finance", Category: "phishing", Severity: "high", CreatedAt: now.Add(-9 * time.Hour)},
		{ID: "INC-2024-0040", OrganizationID: orgID, Title: "Brute force against VPN gateway", Category: "intrusion", Severity: "medium", CreatedAt: now.Add(-26 * time.Hour)},
		{ID: "INC-2024-0039", OrganizationID: orgID, Title: "Suspicious PowerShell on DC-02", Category: "execution", Severity: "high", CreatedAt: now.Add(-50 * time.Hour)},
		{ID: "INC-2024-0038", OrganizationID: orgID, Title: "Data exfiltration to unknown cloud storage", Category: "exfiltration", Severity: "critical", CreatedAt: now.Add(-75 * time.Hour)},
		{ID: "INC-2024-0031", OrganizationID: orgID, Title: "Expired certificate on public portal", Category: "misconfiguration", Severity: "low", Status: "closed", CreatedAt: now.Add(-240 * time.Hour)},
	}
}

func (p *Provider) Seed(ctx context.Context, incidents []Incident) (int, error) {
	for i, inc := range incidents {
		if err := p.SaveIncident(ctx, inc); err != nil {
			return i, err
		}
	}
	return len(incidents), nil
}
