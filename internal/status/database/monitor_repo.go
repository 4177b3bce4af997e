package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/statuskeep/statuskeep/internal/database"
	"github.com/statuskeep/statuskeep/internal/errs"
	"github.com/statuskeep/statuskeep/internal/status/model"
)

// Store is the Postgres-backed repository for the status area.
type Store struct {
	DB *database.Database
}

func NewStore(db *database.Database) *Store { return &Store{DB: db} }

const monitorColumns = `id, org_id, name, type, status, regions, interval_seconds, thresholds, last_ping_at, created_at, updated_at`

func (s *Store) GetMonitor(ctx context.Context, id string) (*model.Monitor, error) {
	q := `SELECT ` + monitorColumns + ` FROM monitors WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, q, id)
	m, err := scanMonitor(row.Scan)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("monitor", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get monitor: %w", err)
	}
	return m, nil
}

func (s *Store) ListMonitorsByOrg(ctx context.Context, orgID string) ([]model.Monitor, error) {
	q := `SELECT ` + monitorColumns + ` FROM monitors WHERE org_id = $1 ORDER BY created_at`
	rows, err := s.DB.QueryContext(ctx, q, orgID)
	if err != nil {
		return nil, fmt.Errorf("list monitors: %w", err)
	}
	defer rows.Close()
	var out []model.Monitor
	for rows.Next() {
		m, err := scanMonitor(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan monitor: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// ListDueMonitors returns non-paused monitors whose interval has elapsed
// since their last dispatch, bounded by limit.
func (s *Store) ListDueMonitors(ctx context.Context, now time.Time, limit int) ([]model.Monitor, error) {
	q := `SELECT ` + monitorColumns + ` FROM monitors
WHERE status <> 'paused'
  AND type NOT IN ('heartbeat', 'push')
  AND (last_dispatched_at IS NULL OR last_dispatched_at + make_interval(secs => interval_seconds) <= $1)
ORDER BY last_dispatched_at NULLS FIRST
LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, q, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due monitors: %w", err)
	}
	defer rows.Close()
	var out []model.Monitor
	for rows.Next() {
		m, err := scanMonitor(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan due monitor: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (s *Store) MarkDispatched(ctx context.Context, monitorID string, at time.Time) error {
	q := `UPDATE monitors SET last_dispatched_at = $1 WHERE id = $2`
	_, err := s.DB.ExecContext(ctx, q, at, monitorID)
	return err
}

// UpdateMonitorStatus sets the live status. Last write wins.
func (s *Store) UpdateMonitorStatus(ctx context.Context, id string, status model.MonitorStatus) error {
	q := `UPDATE monitors SET status = $1, updated_at = now() WHERE id = $2`
	res, err := s.DB.ExecContext(ctx, q, status, id)
	if err != nil {
		return fmt.Errorf("update monitor status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("monitor", id)
	}
	return nil
}

// PauseMonitor and ResumeMonitor are the only status mutations outside the
// normalizer. Resume re-enters pending until the next result lands.
func (s *Store) PauseMonitor(ctx context.Context, id string) error {
	return s.UpdateMonitorStatus(ctx, id, model.MonitorPaused)
}

func (s *Store) ResumeMonitor(ctx context.Context, id string) error {
	q := `UPDATE monitors SET status = 'pending', updated_at = now() WHERE id = $1 AND status = 'paused'`
	res, err := s.DB.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("resume monitor: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("monitor", id)
	}
	return nil
}

func (s *Store) UpdateLastPing(ctx context.Context, id string, at time.Time) error {
	q := `UPDATE monitors SET last_ping_at = $1, updated_at = now() WHERE id = $2`
	_, err := s.DB.ExecContext(ctx, q, at, id)
	return err
}

// AddDependency inserts a directed edge. Duplicate edges conflict; cycles are
// not checked because edges are informational only.
func (s *Store) AddDependency(ctx context.Context, monitorID, dependsOnID string) error {
	q := `INSERT INTO monitor_dependencies (monitor_id, depends_on_id, created_at)
VALUES ($1, $2, now())
ON CONFLICT (monitor_id, depends_on_id) DO NOTHING`
	res, err := s.DB.ExecContext(ctx, q, monitorID, dependsOnID)
	if err != nil {
		return fmt.Errorf("add dependency: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.Conflict("dependency already exists")
	}
	return nil
}

func (s *Store) ListDependencies(ctx context.Context, monitorID string) ([]model.MonitorDependency, error) {
	q := `SELECT monitor_id, depends_on_id, created_at FROM monitor_dependencies WHERE monitor_id = $1`
	rows, err := s.DB.QueryContext(ctx, q, monitorID)
	if err != nil {
		return nil, fmt.Errorf("list dependencies: %w", err)
	}
	defer rows.Close()
	var out []model.MonitorDependency
	for rows.Next() {
		var d model.MonitorDependency
		if err := rows.Scan(&d.MonitorID, &d.DependsOnID, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dependency: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanMonitor(scan func(...any) error) (*model.Monitor, error) {
	var (
		m              model.Monitor
		regionsJSON    string
		thresholdsJSON string
		intervalSecs   int
		lastPing       sql.NullTime
	)
	if err := scan(&m.ID, &m.OrgID, &m.Name, &m.Type, &m.Status, &regionsJSON,
		&intervalSecs, &thresholdsJSON, &lastPing, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Interval = time.Duration(intervalSecs) * time.Second
	if regionsJSON != "" {
		if err := json.Unmarshal([]byte(regionsJSON), &m.Regions); err != nil {
			return nil, err
		}
	}
	if thresholdsJSON != "" {
		if err := json.Unmarshal([]byte(thresholdsJSON), &m.Thresholds); err != nil {
			return nil, err
		}
	}
	if lastPing.Valid {
		t := lastPing.Time
		m.LastPingAt = &t
	}
	return &m, nil
}
