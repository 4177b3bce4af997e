package model

import "time"

type IncidentSeverity string

const (
	SeverityMinor    IncidentSeverity = "minor"
	SeverityMajor    IncidentSeverity = "major"
	SeverityCritical IncidentSeverity = "critical"
)

func (s IncidentSeverity) IsValid() bool {
	return s == SeverityMinor || s == SeverityMajor || s == SeverityCritical
}

type IncidentStatus string

const (
	IncidentInvestigating IncidentStatus = "investigating"
	IncidentIdentified    IncidentStatus = "identified"
	IncidentMonitoring    IncidentStatus = "monitoring"
	IncidentResolved      IncidentStatus = "resolved"
)

type Incident struct {
	ID         string           `json:"id"`
	OrgID      string           `json:"orgId"`
	Title      string           `json:"title"`
	Severity   IncidentSeverity `json:"severity"`
	Status     IncidentStatus   `json:"status"`
	MonitorIDs []string         `json:"affectedMonitorIds"`
	StartedAt  time.Time        `json:"startedAt"`
	ResolvedAt *time.Time       `json:"resolvedAt,omitempty"`
}

// Active reports whether the incident is still open.
func (i *Incident) Active() bool { return i.Status != IncidentResolved }

// IntersectsWindow reports whether [StartedAt, ResolvedAt ?? now] overlaps
// the half-open window [start, end).
func (i *Incident) IntersectsWindow(start, end, now time.Time) bool {
	resolved := now
	if i.ResolvedAt != nil {
		resolved = *i.ResolvedAt
	}
	return i.StartedAt.Before(end) && !resolved.Before(start)
}

type ProviderStatus string

const (
	ProviderOperational   ProviderStatus = "operational"
	ProviderDegraded      ProviderStatus = "degraded"
	ProviderPartialOutage ProviderStatus = "partial_outage"
	ProviderMajorOutage   ProviderStatus = "major_outage"
	ProviderMaintenance   ProviderStatus = "maintenance"
	ProviderUnknown       ProviderStatus = "unknown"
)

// ProviderImpact maps an upstream provider's externally observed state onto
// the monitors it affects.
type ProviderImpact struct {
	ProviderID string         `json:"providerId"`
	Status     ProviderStatus `json:"status"`
	MonitorIDs []string       `json:"affectedMonitorIds"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// PageStatus is the ordinal overall status of a status page.
type PageStatus string

const (
	PageOperational   PageStatus = "operational"
	PageDegraded      PageStatus = "degraded"
	PagePartialOutage PageStatus = "partial_outage"
	PageMajorOutage   PageStatus = "major_outage"
	PageMaintenance   PageStatus = "maintenance"
)
