package model

import "time"

type DeployStatus string

const (
	DeployStarted    DeployStatus = "started"
	DeployInProgress DeployStatus = "in_progress"
	DeployCompleted  DeployStatus = "completed"
	DeployFailed     DeployStatus = "failed"
	DeployRolledBack DeployStatus = "rolled_back"
)

func (s DeployStatus) IsValid() bool {
	switch s {
	case DeployStarted, DeployInProgress, DeployCompleted, DeployFailed, DeployRolledBack:
		return true
	}
	return false
}

// Terminal reports whether the deployment has finished, one way or another.
func (s DeployStatus) Terminal() bool {
	return s == DeployCompleted || s == DeployFailed || s == DeployRolledBack
}

// DeploymentEvent is one inbound deployment notification from a CI/CD system.
type DeploymentEvent struct {
	ID          string       `json:"id"`
	OrgID       string       `json:"orgId"`
	Service     string       `json:"service"`
	Environment string       `json:"environment"`
	Status      DeployStatus `json:"status"`
	Version     string       `json:"version,omitempty"`
	MonitorIDs  []string     `json:"affectedMonitorIds,omitempty"`
	Override    bool         `json:"override,omitempty"`
	DeployedAt  time.Time    `json:"deployedAt"`
	CreatedAt   time.Time    `json:"createdAt"`
}

type CorrelationType string

const (
	CorrelationManual    CorrelationType = "manual"
	CorrelationAutomatic CorrelationType = "automatic"
)

// DeploymentIncidentLink ties a deployment to an incident. Confidence is set
// only on automatic correlations.
type DeploymentIncidentLink struct {
	DeploymentID string          `json:"deploymentId"`
	IncidentID   string          `json:"incidentId"`
	Type         CorrelationType `json:"correlationType"`
	Confidence   *float64        `json:"confidence,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Webhook is an inbound endpoint registration. The secret, when present,
// signs request bodies with HMAC-SHA256.
type Webhook struct {
	ID     string `json:"id"`
	OrgID  string `json:"orgId"`
	Secret string `json:"-"`
}

type TimelineEntryKind string

const (
	TimelineDeployment TimelineEntryKind = "deployment"
	TimelineIncident   TimelineEntryKind = "incident"
)

// TimelineEntry is one row of the merged deployment and incident history.
type TimelineEntry struct {
	Kind      TimelineEntryKind `json:"kind"`
	Timestamp time.Time         `json:"timestamp"`
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Status    string            `json:"status"`
	Severity  string            `json:"severity,omitempty"`
}
