package normalizer

import (
	"time"

	"github.com/statuskeep/statuskeep/internal/status/model"
)

// RawOutcome is the sealed union of the three producer payload shapes.
// Adding a producer means adding a variant here and a branch in Normalize;
// there is no structural fallback.
type RawOutcome interface {
	producer() string
	monitorID() string
}

// ScheduledResult is the payload from the internally scheduled check runner.
type ScheduledResult struct {
	MonitorID      string
	Region         string
	Status         model.ResultStatus
	ResponseTimeMs int
	StatusCode     int
	Message        string
	Metadata       map[string]string
	CheckedAt      time.Time
}

func (*ScheduledResult) producer() string    { return "scheduled" }
func (r *ScheduledResult) monitorID() string { return r.MonitorID }

// ProbeJobResult is the payload a remote probe submits for a claimed job.
// The probe reports pass/fail; the normalizer derives the result status from
// the monitor's thresholds.
type ProbeJobResult struct {
	MonitorID      string
	ProbeID        string
	Region         string
	Success        bool
	TimedOut       bool
	ResponseTimeMs int
	StatusCode     int
	ErrorMessage   string
	Metadata       map[string]string
}

func (*ProbeJobResult) producer() string    { return "probe" }
func (r *ProbeJobResult) monitorID() string { return r.MonitorID }

// PushSample is a push-ingested sample. Heartbeat monitors set State;
// everything else sets Status (defaulting to success) and optional metrics.
type PushSample struct {
	MonitorID      string
	State          model.PingState
	Status         model.ResultStatus
	ResponseTimeMs int
	Metrics        map[string]float64
	Metadata       map[string]string
}

func (*PushSample) producer() string    { return "push" }
func (r *PushSample) monitorID() string { return r.MonitorID }
