package aggregator

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/statuskeep/statuskeep/internal/errs"
	"github.com/statuskeep/statuskeep/internal/status/model"
)

const (
	defaultMaxWindowDays    = 90
	defaultMaxHourlyBuckets = 720
	maxRawResults           = 10000
)

// Store is the read-only slice of the status repository the aggregator needs.
type Store interface {
	ListBuckets(ctx context.Context, monitorID string, g model.Granularity, from, to time.Time, limit int) ([]model.AggregateBucket, error)
	ListResultsSince(ctx context.Context, monitorID string, since time.Time, limit int) ([]model.CheckResult, error)
	ListIncidentsIntersecting(ctx context.Context, orgID string, from, to time.Time) ([]model.Incident, error)
}

type Aggregator struct {
	store            Store
	maxWindowDays    int
	maxHourlyBuckets int
	now              func() time.Time
}

func New(store Store, maxWindowDays, maxHourlyBuckets int) *Aggregator {
	if maxWindowDays <= 0 {
		maxWindowDays = defaultMaxWindowDays
	}
	if maxHourlyBuckets <= 0 {
		maxHourlyBuckets = defaultMaxHourlyBuckets
	}
	return &Aggregator{
		store:            store,
		maxWindowDays:    maxWindowDays,
		maxHourlyBuckets: maxHourlyBuckets,
		now:              time.Now,
	}
}

// UptimeSeries builds the adaptive-granularity uptime series for one monitor
// over a window of days. Reads are pure; rollup lag on the current bucket is
// compensated by the live augmentation step, so concurrent writes are fine.
func (a *Aggregator) UptimeSeries(ctx context.Context, m *model.Monitor, days int) (*model.UptimeSeries, error) {
	if days < 1 {
		return nil, errs.Validation("days", "window must be at least 1 day")
	}
	if days > a.maxWindowDays {
		return nil, errs.Validation("days", "window exceeds the maximum look-back")
	}

	now := a.now().UTC()
	from := now.AddDate(0, 0, -days)

	sources, err := a.loadSources(ctx, m.ID, from, now, days)
	if err != nil {
		return nil, err
	}
	selected := Select(sources, days)

	// The current interval's rows are fetched on their own so the raw-window
	// bound can never truncate them away on a busy monitor.
	currentStart := now.Truncate(selected.Granularity.Duration())
	live, err := a.store.ListResultsSince(ctx, m.ID, currentStart, maxRawResults)
	if err != nil {
		return nil, err
	}
	buckets := augmentCurrent(selected.Buckets, live, selected.Granularity, now)

	series := &model.UptimeSeries{
		MonitorID:   m.ID,
		Granularity: selected.Granularity,
		WindowDays:  days,
		Buckets:     make([]model.UptimeBucket, 0, len(buckets)),
	}

	incidents, err := a.store.ListIncidentsIntersecting(ctx, m.OrgID, from, now)
	if err != nil {
		// Annotation is decoration; the series itself is still valid.
		log.Warn().Err(err).Str("monitor", m.ID).Msg("incident annotation lookup failed")
		incidents = nil
	}

	width := selected.Granularity.Duration()
	for _, b := range buckets {
		ub := model.UptimeBucket{AggregateBucket: b, UptimePct: b.UptimePct()}
		for _, inc := range incidents {
			if incidentAffects(&inc, m.ID) && inc.IntersectsWindow(b.BucketStart, b.BucketStart.Add(width), now) {
				ub.IncidentIDs = append(ub.IncidentIDs, inc.ID)
			}
		}
		series.Buckets = append(series.Buckets, ub)
	}
	return series, nil
}

func (a *Aggregator) loadSources(ctx context.Context, monitorID string, from, to time.Time, days int) ([]Source, error) {
	daily, err := a.store.ListBuckets(ctx, monitorID, model.GranularityDay, from, to, days+1)
	if err != nil {
		return nil, err
	}
	hourly, err := a.store.ListBuckets(ctx, monitorID, model.GranularityHour, from, to, a.maxHourlyBuckets)
	if err != nil {
		return nil, err
	}
	raw, err := a.store.ListResultsSince(ctx, monitorID, from, maxRawResults)
	if err != nil {
		return nil, err
	}
	minute := BucketizeByMinute(monitorID, raw)

	sources := []Source{
		{Granularity: model.GranularityDay, Buckets: daily, Coverage: distinctDays(daily)},
		{Granularity: model.GranularityHour, Buckets: hourly, Coverage: len(hourly)},
		{Granularity: model.GranularityMinute, Buckets: minute, Coverage: len(minute)},
	}
	return sources, nil
}

func incidentAffects(inc *model.Incident, monitorID string) bool {
	for _, id := range inc.MonitorIDs {
		if id == monitorID {
			return true
		}
	}
	return false
}

func distinctDays(buckets []model.AggregateBucket) int {
	seen := map[time.Time]bool{}
	for _, b := range buckets {
		seen[b.BucketStart.Truncate(24*time.Hour)] = true
	}
	return len(seen)
}
