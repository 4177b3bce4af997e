package aggregator

import (
	"sort"
	"time"

	"github.com/statuskeep/statuskeep/internal/status/model"
)

// Source is one candidate granularity with its loaded buckets and the
// coverage figure its acceptance predicate is judged on: distinct days for
// daily, bucket count for hourly and minute.
type Source struct {
	Granularity model.Granularity
	Buckets     []model.AggregateBucket
	Coverage    int
}

// Select walks the candidate sources coarsest-first with a stated stop
// condition per step, falling back to whichever source has any data at all:
//
//  1. daily, accepted when distinct days >= days/3
//  2. hourly, accepted when bucket count >= days
//  3. minute, accepted when bucket count >= days
//  4. any non-empty source, preferring hourly over minute over daily
//
// When nothing has data the daily source is returned empty.
func Select(sources []Source, days int) Source {
	byGranularity := map[model.Granularity]Source{}
	for _, s := range sources {
		byGranularity[s.Granularity] = s
	}

	steps := []struct {
		granularity model.Granularity
		required    int
	}{
		// (days+2)/3 is the integer ceiling of days/3, so a window not
		// divisible by 3 cannot slip under the coverage threshold.
		{model.GranularityDay, (days + 2) / 3},
		{model.GranularityHour, days},
		{model.GranularityMinute, days},
	}
	for _, step := range steps {
		s := byGranularity[step.granularity]
		if s.Coverage >= step.required && len(s.Buckets) > 0 {
			return s
		}
	}

	for _, g := range []model.Granularity{model.GranularityHour, model.GranularityMinute, model.GranularityDay} {
		if s := byGranularity[g]; len(s.Buckets) > 0 {
			return s
		}
	}
	return Source{Granularity: model.GranularityDay}
}

// BucketizeByMinute rolls raw results into per-minute buckets by truncating
// created_at. Output is ascending by bucket start.
func BucketizeByMinute(monitorID string, results []model.CheckResult) []model.AggregateBucket {
	byMinute := map[time.Time]*model.AggregateBucket{}
	for _, r := range results {
		start := r.CreatedAt.Truncate(time.Minute)
		b, ok := byMinute[start]
		if !ok {
			b = &model.AggregateBucket{
				MonitorID:   monitorID,
				Granularity: model.GranularityMinute,
				BucketStart: start,
			}
			byMinute[start] = b
		}
		countResult(b, r.Status)
	}

	out := make([]model.AggregateBucket, 0, len(byMinute))
	for _, b := range byMinute {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BucketStart.Before(out[j].BucketStart) })
	return out
}

func countResult(b *model.AggregateBucket, s model.ResultStatus) {
	switch s {
	case model.ResultSuccess:
		b.Success++
	case model.ResultDegraded:
		b.Degraded++
	default: // failure, timeout, error
		b.Failure++
	}
	b.Total++
}

// augmentCurrent merges unaggregated raw results into the most recent bucket
// of the selected series, metric-by-metric with max(). Older buckets are left
// alone, so rollup lag is compensated without double counting.
func augmentCurrent(buckets []model.AggregateBucket, raw []model.CheckResult, g model.Granularity, now time.Time) []model.AggregateBucket {
	currentStart := now.Truncate(g.Duration())

	live := model.AggregateBucket{Granularity: g, BucketStart: currentStart}
	for _, r := range raw {
		if !r.CreatedAt.Before(currentStart) {
			countResult(&live, r.Status)
		}
	}
	if live.Total == 0 {
		return buckets
	}
	live.MonitorID = firstMonitorID(buckets, raw)

	for i := range buckets {
		if buckets[i].BucketStart.Equal(currentStart) {
			buckets[i].Success = max(buckets[i].Success, live.Success)
			buckets[i].Degraded = max(buckets[i].Degraded, live.Degraded)
			buckets[i].Failure = max(buckets[i].Failure, live.Failure)
			buckets[i].Total = max(buckets[i].Total, live.Total)
			return buckets
		}
	}
	return append(buckets, live)
}

func firstMonitorID(buckets []model.AggregateBucket, raw []model.CheckResult) string {
	if len(buckets) > 0 {
		return buckets[0].MonitorID
	}
	if len(raw) > 0 {
		return raw[0].MonitorID
	}
	return ""
}
