package model

import "time"

type MonitorType string

const (
	TypeHTTP         MonitorType = "http"
	TypeHTTPS        MonitorType = "https"
	TypeTCP          MonitorType = "tcp"
	TypeUDP          MonitorType = "udp"
	TypeICMP         MonitorType = "icmp"
	TypePing         MonitorType = "ping"
	TypeDNS          MonitorType = "dns"
	TypeSMTP         MonitorType = "smtp"
	TypeIMAP         MonitorType = "imap"
	TypePOP3         MonitorType = "pop3"
	TypeSSLCert      MonitorType = "ssl_cert"
	TypeDomainExpiry MonitorType = "domain_expiry"
	TypeHeartbeat    MonitorType = "heartbeat"
	TypePush         MonitorType = "push"
	TypeDocker       MonitorType = "docker"
	TypeDatabase     MonitorType = "database"
	TypePostgres     MonitorType = "postgres"
	TypeMySQL        MonitorType = "mysql"
	TypeMongoDB      MonitorType = "mongodb"
	TypeRedis        MonitorType = "redis"
	TypeGRPC         MonitorType = "grpc"
	TypeWebsocket    MonitorType = "websocket"
	TypeAPIJSON      MonitorType = "api_json"
	TypeKeyword      MonitorType = "keyword"
	TypeBrowser      MonitorType = "browser"
)

var validTypes = map[MonitorType]bool{
	TypeHTTP: true, TypeHTTPS: true, TypeTCP: true, TypeUDP: true,
	TypeICMP: true, TypePing: true, TypeDNS: true, TypeSMTP: true,
	TypeIMAP: true, TypePOP3: true, TypeSSLCert: true, TypeDomainExpiry: true,
	TypeHeartbeat: true, TypePush: true, TypeDocker: true, TypeDatabase: true,
	TypePostgres: true, TypeMySQL: true, TypeMongoDB: true, TypeRedis: true,
	TypeGRPC: true, TypeWebsocket: true, TypeAPIJSON: true, TypeKeyword: true,
	TypeBrowser: true,
}

func (t MonitorType) IsValid() bool { return validTypes[t] }

type MonitorStatus string

const (
	MonitorPending  MonitorStatus = "pending"
	MonitorActive   MonitorStatus = "active"
	MonitorDegraded MonitorStatus = "degraded"
	MonitorDown     MonitorStatus = "down"
	MonitorPaused   MonitorStatus = "paused"
)

// Severity is the ordinal used when comparing monitor statuses:
// paused < active/pending < degraded < down.
func (s MonitorStatus) Severity() int {
	switch s {
	case MonitorPaused:
		return 0
	case MonitorActive, MonitorPending:
		return 1
	case MonitorDegraded:
		return 2
	case MonitorDown:
		return 3
	}
	return 1
}

// Worse returns the higher-severity of the two statuses.
func (s MonitorStatus) Worse(other MonitorStatus) MonitorStatus {
	if other.Severity() > s.Severity() {
		return other
	}
	return s
}

// Thresholds are the per-monitor tuning knobs consulted during
// normalization.
type Thresholds struct {
	DegradedMs       int `json:"degradedMs,omitempty"`
	ExpectedInterval int `json:"expectedIntervalMs,omitempty"` // heartbeat monitors
	GracePeriodMs    int `json:"gracePeriodMs,omitempty"`
}

// Monitor is a configured check target. Status is the single current-truth
// field, mutated only by the normalizer or explicit pause/resume.
type Monitor struct {
	ID         string        `json:"id"`
	OrgID      string        `json:"orgId"`
	Name       string        `json:"name"`
	Type       MonitorType   `json:"type"`
	Status     MonitorStatus `json:"status"`
	Regions    []string      `json:"regions"`
	Interval   time.Duration `json:"interval"`
	Thresholds Thresholds    `json:"thresholds"`
	LastPingAt *time.Time    `json:"lastPingAt,omitempty"` // heartbeat monitors only
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// MonitorDependency is a directed edge between monitors. Edges are
// informational links only; nothing computes over them transitively, so
// cycles and self-references are permitted.
type MonitorDependency struct {
	MonitorID   string    `json:"monitorId"`
	DependsOnID string    `json:"dependsOnId"`
	CreatedAt   time.Time `json:"createdAt"`
}
