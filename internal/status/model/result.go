package model

import "time"

type ResultStatus string

const (
	ResultSuccess  ResultStatus = "success"
	ResultDegraded ResultStatus = "degraded"
	ResultFailure  ResultStatus = "failure"
	ResultTimeout  ResultStatus = "timeout"
	ResultError    ResultStatus = "error"
)

func (s ResultStatus) IsValid() bool {
	switch s {
	case ResultSuccess, ResultDegraded, ResultFailure, ResultTimeout, ResultError:
		return true
	}
	return false
}

// CheckResult is the canonical record every producer is normalized into.
// Immutable once created except for retroactive incident linkage.
type CheckResult struct {
	ID           string            `json:"id"`
	MonitorID    string            `json:"monitorId"`
	Region       string            `json:"region"`
	Status       ResultStatus      `json:"status"`
	ResponseTime int               `json:"responseTimeMs"`
	StatusCode   int               `json:"statusCode,omitempty"`
	Message      string            `json:"message,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	IncidentID   *string           `json:"incidentId,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

type PingState string

const (
	PingStart    PingState = "start"
	PingComplete PingState = "complete"
	PingFail     PingState = "fail"
)

func (s PingState) IsValid() bool {
	return s == PingStart || s == PingComplete || s == PingFail
}

// StatusChangeEvent is published on the monitor- and org-scoped channels
// whenever normalization moves a monitor's status.
type StatusChangeEvent struct {
	MonitorID  string        `json:"monitorId"`
	OrgID      string        `json:"orgId"`
	From       MonitorStatus `json:"from"`
	To         MonitorStatus `json:"to"`
	ResultID   string        `json:"resultId,omitempty"`
	OccurredAt time.Time     `json:"occurredAt"`
}
