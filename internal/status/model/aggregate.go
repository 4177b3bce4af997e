package model

import "time"

type Granularity string

const (
	GranularityDay    Granularity = "day"
	GranularityHour   Granularity = "hour"
	GranularityMinute Granularity = "minute"
)

// AggregateBucket is one rollup interval for one monitor. Counts are
// monotonically non-decreasing within a bucket as raw data lands.
type AggregateBucket struct {
	MonitorID   string      `json:"monitorId"`
	Granularity Granularity `json:"granularity"`
	BucketStart time.Time   `json:"bucketStart"`
	Success     int         `json:"success"`
	Degraded    int         `json:"degraded"`
	Failure     int         `json:"failure"`
	Total       int         `json:"total"`
}

// Duration returns the width of the bucket's interval.
func (g Granularity) Duration() time.Duration {
	switch g {
	case GranularityDay:
		return 24 * time.Hour
	case GranularityHour:
		return time.Hour
	default:
		return time.Minute
	}
}

// UptimePct is (success+degraded)/total*100, or nil when the bucket is empty.
func (b *AggregateBucket) UptimePct() *float64 {
	if b.Total == 0 {
		return nil
	}
	pct := float64(b.Success+b.Degraded) / float64(b.Total) * 100
	return &pct
}

// UptimeBucket is an AggregateBucket annotated for the read side.
type UptimeBucket struct {
	AggregateBucket
	UptimePct   *float64 `json:"uptimePct"`
	IncidentIDs []string `json:"incidentIds,omitempty"`
}

// UptimeSeries is the aggregator's output for one monitor and window.
type UptimeSeries struct {
	MonitorID   string         `json:"monitorId"`
	Granularity Granularity    `json:"granularity"`
	WindowDays  int            `json:"windowDays"`
	Buckets     []UptimeBucket `json:"buckets"`
}
