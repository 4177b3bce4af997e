package model

import (
	"encoding/json"
	"time"
)

type ProbeStatus string

const (
	ProbePending  ProbeStatus = "pending"
	ProbeActive   ProbeStatus = "active"
	ProbeDisabled ProbeStatus = "disabled"
)

// Probe is a remote agent. The registration secret is stored only as an
// irreversible hash plus a short lookup prefix; the plaintext is returned
// once and never recoverable.
type Probe struct {
	ID              string      `json:"id"`
	OrgID           string      `json:"orgId"`
	Name            string      `json:"name"`
	Region          string      `json:"region"`
	Status          ProbeStatus `json:"status"`
	AuthTokenHash   string      `json:"-"`
	AuthTokenPrefix string      `json:"-"`
	LastHeartbeatAt *time.Time  `json:"lastHeartbeatAt,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
}

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobClaimed   JobStatus = "claimed"
	JobCompleted JobStatus = "completed"
	JobExpired   JobStatus = "expired"
)

// PendingJob is one unit of check work assigned to a probe. Transitions are
// one-directional: pending -> claimed -> completed or expired.
type PendingJob struct {
	ID        string          `json:"id"`
	ProbeID   string          `json:"probeId"`
	MonitorID string          `json:"monitorId"`
	Payload   json.RawMessage `json:"jobData"`
	Status    JobStatus       `json:"status"`
	ExpiresAt time.Time       `json:"expiresAt"`
	CreatedAt time.Time       `json:"createdAt"`
	ClaimedAt *time.Time      `json:"claimedAt,omitempty"`
}

// HeartbeatSample is one liveness report from a probe.
type HeartbeatSample struct {
	ID         string          `json:"id"`
	ProbeID    string          `json:"probeId"`
	Metrics    json.RawMessage `json:"metrics,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	Version    string          `json:"version,omitempty"`
	SourceIP   string          `json:"sourceIp,omitempty"`
	ReceivedAt time.Time       `json:"receivedAt"`
}
