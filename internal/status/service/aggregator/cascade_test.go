package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statuskeep/statuskeep/internal/status/model"
)

func bucketsAt(g model.Granularity, starts ...time.Time) []model.AggregateBucket {
	out := make([]model.AggregateBucket, 0, len(starts))
	for _, s := range starts {
		out = append(out, model.AggregateBucket{
			MonitorID:   "mon-1",
			Granularity: g,
			BucketStart: s,
			Success:     10,
			Total:       10,
		})
	}
	return out
}

func daySpan(base time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, base.AddDate(0, 0, -i))
	}
	return out
}

func TestSelectCascade(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	t.Run("daily wins with enough distinct days", func(t *testing.T) {
		daily := bucketsAt(model.GranularityDay, daySpan(base, 15)...)
		sources := []Source{
			{Granularity: model.GranularityDay, Buckets: daily, Coverage: 15},
			{Granularity: model.GranularityHour, Buckets: bucketsAt(model.GranularityHour, base), Coverage: 1},
		}
		got := Select(sources, 45)
		assert.Equal(t, model.GranularityDay, got.Granularity)
	})

	t.Run("daily threshold rounds up", func(t *testing.T) {
		// ceil(4/3) = 2, so one distinct day of daily data must not win a
		// 4-day window outright; it is only reachable via the fallback.
		sources := []Source{
			{Granularity: model.GranularityDay, Buckets: bucketsAt(model.GranularityDay, base), Coverage: 1},
			{Granularity: model.GranularityHour, Buckets: bucketsAt(model.GranularityHour, daySpan(base, 4)...), Coverage: 4},
		}
		got := Select(sources, 4)
		assert.Equal(t, model.GranularityHour, got.Granularity)
	})

	t.Run("sparse daily cascades to hourly", func(t *testing.T) {
		hourly := bucketsAt(model.GranularityHour, daySpan(base, 7)...)
		sources := []Source{
			{Granularity: model.GranularityDay, Buckets: bucketsAt(model.GranularityDay, base), Coverage: 1},
			{Granularity: model.GranularityHour, Buckets: hourly, Coverage: 7},
		}
		got := Select(sources, 7)
		assert.Equal(t, model.GranularityHour, got.Granularity)
	})

	t.Run("sparse hourly cascades to minute", func(t *testing.T) {
		minute := bucketsAt(model.GranularityMinute, daySpan(base, 7)...)
		sources := []Source{
			{Granularity: model.GranularityHour, Buckets: bucketsAt(model.GranularityHour, base), Coverage: 1},
			{Granularity: model.GranularityMinute, Buckets: minute, Coverage: 7},
		}
		got := Select(sources, 7)
		assert.Equal(t, model.GranularityMinute, got.Granularity)
	})

	t.Run("any-data fallback prefers hourly over minute", func(t *testing.T) {
		sources := []Source{
			{Granularity: model.GranularityHour, Buckets: bucketsAt(model.GranularityHour, base), Coverage: 1},
			{Granularity: model.GranularityMinute, Buckets: bucketsAt(model.GranularityMinute, base, base), Coverage: 2},
		}
		got := Select(sources, 30)
		assert.Equal(t, model.GranularityHour, got.Granularity)
	})

	t.Run("fallback reaches daily last", func(t *testing.T) {
		sources := []Source{
			{Granularity: model.GranularityDay, Buckets: bucketsAt(model.GranularityDay, base), Coverage: 1},
		}
		got := Select(sources, 30)
		assert.Equal(t, model.GranularityDay, got.Granularity)
		assert.Len(t, got.Buckets, 1)
	})

	t.Run("no data at all yields empty daily", func(t *testing.T) {
		got := Select(nil, 7)
		assert.Equal(t, model.GranularityDay, got.Granularity)
		assert.Empty(t, got.Buckets)
	})
}

func TestSelectIsDeterministic(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	sources := []Source{
		{Granularity: model.GranularityDay, Buckets: bucketsAt(model.GranularityDay, daySpan(base, 15)...), Coverage: 15},
		{Granularity: model.GranularityHour, Buckets: bucketsAt(model.GranularityHour, daySpan(base, 45)...), Coverage: 45},
	}
	first := Select(sources, 45)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first.Granularity, Select(sources, 45).Granularity)
	}
}

func TestBucketizeByMinute(t *testing.T) {
	at := func(sec int) time.Time {
		return time.Date(2026, 8, 1, 10, 0, sec, 0, time.UTC)
	}
	results := []model.CheckResult{
		{MonitorID: "mon-1", Status: model.ResultSuccess, CreatedAt: at(5)},
		{MonitorID: "mon-1", Status: model.ResultFailure, CreatedAt: at(40)},
		{MonitorID: "mon-1", Status: model.ResultDegraded, CreatedAt: at(90)},
	}

	buckets := BucketizeByMinute("mon-1", results)
	require.Len(t, buckets, 2)

	assert.Equal(t, at(0), buckets[0].BucketStart)
	assert.Equal(t, 1, buckets[0].Success)
	assert.Equal(t, 1, buckets[0].Failure)
	assert.Equal(t, 2, buckets[0].Total)

	assert.Equal(t, at(0).Add(time.Minute), buckets[1].BucketStart)
	assert.Equal(t, 1, buckets[1].Degraded)
	assert.Equal(t, 1, buckets[1].Total)
}

func TestAugmentCurrentMaxMerge(t *testing.T) {
	now := time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)
	currentHour := now.Truncate(time.Hour)

	t.Run("raw counts lift a lagging current bucket", func(t *testing.T) {
		buckets := []model.AggregateBucket{
			{MonitorID: "mon-1", BucketStart: currentHour, Success: 3, Total: 3},
		}
		raw := make([]model.CheckResult, 0, 5)
		for i := 0; i < 5; i++ {
			raw = append(raw, model.CheckResult{
				MonitorID: "mon-1",
				Status:    model.ResultSuccess,
				CreatedAt: currentHour.Add(time.Duration(i) * time.Minute),
			})
		}
		out := augmentCurrent(buckets, raw, model.GranularityHour, now)
		require.Len(t, out, 1)
		assert.Equal(t, 5, out[0].Success)
		assert.Equal(t, 5, out[0].Total)
	})

	t.Run("rollup already ahead stays untouched", func(t *testing.T) {
		buckets := []model.AggregateBucket{
			{MonitorID: "mon-1", BucketStart: currentHour, Success: 9, Failure: 1, Total: 10},
		}
		raw := []model.CheckResult{
			{MonitorID: "mon-1", Status: model.ResultSuccess, CreatedAt: now},
		}
		out := augmentCurrent(buckets, raw, model.GranularityHour, now)
		require.Len(t, out, 1)
		assert.Equal(t, 9, out[0].Success)
		assert.Equal(t, 10, out[0].Total)
	})

	t.Run("missing current bucket is appended", func(t *testing.T) {
		buckets := []model.AggregateBucket{
			{MonitorID: "mon-1", BucketStart: currentHour.Add(-time.Hour), Success: 60, Total: 60},
		}
		raw := []model.CheckResult{
			{MonitorID: "mon-1", Status: model.ResultFailure, CreatedAt: now},
		}
		out := augmentCurrent(buckets, raw, model.GranularityHour, now)
		require.Len(t, out, 2)
		assert.Equal(t, currentHour, out[1].BucketStart)
		assert.Equal(t, 1, out[1].Failure)
		assert.Equal(t, "mon-1", out[1].MonitorID)
	})

	t.Run("older raw results never touch closed buckets", func(t *testing.T) {
		closed := currentHour.Add(-2 * time.Hour)
		buckets := []model.AggregateBucket{
			{MonitorID: "mon-1", BucketStart: closed, Success: 60, Total: 60},
		}
		raw := []model.CheckResult{
			{MonitorID: "mon-1", Status: model.ResultFailure, CreatedAt: closed.Add(time.Minute)},
		}
		out := augmentCurrent(buckets, raw, model.GranularityHour, now)
		require.Len(t, out, 1)
		assert.Equal(t, 60, out[0].Total)
	})
}

func TestUptimePct(t *testing.T) {
	t.Run("mixed bucket", func(t *testing.T) {
		b := model.AggregateBucket{Success: 90, Degraded: 5, Failure: 5, Total: 100}
		pct := b.UptimePct()
		require.NotNil(t, pct)
		assert.InDelta(t, 95.0, *pct, 0.0001)
	})

	t.Run("empty bucket is null, not zero", func(t *testing.T) {
		b := model.AggregateBucket{}
		assert.Nil(t, b.UptimePct())
	})
}
