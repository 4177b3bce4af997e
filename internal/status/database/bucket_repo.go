package database

import (
	"context"
	"fmt"
	"time"

	"github.com/statuskeep/statuskeep/internal/status/model"
)

// ListBuckets returns rollup buckets of one granularity for a monitor within
// [from, to), ascending by bucket start. The rollup job that produces these
// rows is external; counts only ever grow within a bucket.
func (s *Store) ListBuckets(ctx context.Context, monitorID string, g model.Granularity, from, to time.Time, limit int) ([]model.AggregateBucket, error) {
	q := `SELECT monitor_id, granularity, bucket_start, success_count, degraded_count, failure_count, total_count
FROM aggregate_buckets
WHERE monitor_id = $1 AND granularity = $2 AND bucket_start >= $3 AND bucket_start < $4
ORDER BY bucket_start ASC
LIMIT $5`
	rows, err := s.DB.QueryContext(ctx, q, monitorID, g, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	defer rows.Close()
	var out []model.AggregateBucket
	for rows.Next() {
		var b model.AggregateBucket
		if err := rows.Scan(&b.MonitorID, &b.Granularity, &b.BucketStart,
			&b.Success, &b.Degraded, &b.Failure, &b.Total); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
