package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/statuskeep/statuskeep/internal/status/model"
)

func (s *Store) InsertCheckResult(ctx context.Context, r *model.CheckResult) error {
	metadataJSON, _ := json.Marshal(r.Metadata)
	q := `INSERT INTO check_results (id, monitor_id, region, status, response_time_ms, status_code, message, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9)`
	_, err := s.DB.ExecContext(ctx, q, r.ID, r.MonitorID, r.Region, r.Status,
		r.ResponseTime, r.StatusCode, r.Message, string(metadataJSON), r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert check result: %w", err)
	}
	return nil
}

// LinkResultsToIncident retroactively stamps incident linkage onto results in
// the incident's window. The only permitted mutation of a CheckResult.
func (s *Store) LinkResultsToIncident(ctx context.Context, monitorID, incidentID string, from, to time.Time) (int64, error) {
	q := `UPDATE check_results SET incident_id = $1
WHERE monitor_id = $2 AND incident_id IS NULL AND created_at >= $3 AND created_at < $4`
	res, err := s.DB.ExecContext(ctx, q, incidentID, monitorID, from, to)
	if err != nil {
		return 0, fmt.Errorf("link results to incident: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ListResultsSince returns raw results for a monitor created at or after
// since, ascending. Used for minute-granularity fallback and for live
// augmentation of the current bucket. The query reads newest-first so the
// limit discards the oldest rows of the window, never the fresh ones the
// live-augmentation step depends on.
func (s *Store) ListResultsSince(ctx context.Context, monitorID string, since time.Time, limit int) ([]model.CheckResult, error) {
	q := `SELECT id, monitor_id, region, status, response_time_ms, status_code, message, created_at
FROM check_results
WHERE monitor_id = $1 AND created_at >= $2
ORDER BY created_at DESC
LIMIT $3`
	rows, err := s.DB.QueryContext(ctx, q, monitorID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()
	var out []model.CheckResult
	for rows.Next() {
		var r model.CheckResult
		if err := rows.Scan(&r.ID, &r.MonitorID, &r.Region, &r.Status,
			&r.ResponseTime, &r.StatusCode, &r.Message, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
