package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/statuskeep/statuskeep/internal/errs"
	"github.com/statuskeep/statuskeep/internal/status/model"
)

const incidentColumns = `id, org_id, title, severity, status, affected_monitor_ids, started_at, resolved_at`

func (s *Store) GetIncident(ctx context.Context, id string) (*model.Incident, error) {
	q := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, q, id)
	inc, err := scanIncident(row.Scan)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("incident", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return inc, nil
}

// ListActiveIncidents returns unresolved incidents for the org.
func (s *Store) ListActiveIncidents(ctx context.Context, orgID string) ([]model.Incident, error) {
	q := `SELECT ` + incidentColumns + ` FROM incidents
WHERE org_id = $1 AND status <> 'resolved'
ORDER BY started_at DESC`
	return s.queryIncidents(ctx, q, orgID)
}

// ListIncidentsIntersecting returns incidents whose lifetime overlaps
// [from, to), resolved or not, for bucket annotation.
func (s *Store) ListIncidentsIntersecting(ctx context.Context, orgID string, from, to time.Time) ([]model.Incident, error) {
	q := `SELECT ` + incidentColumns + ` FROM incidents
WHERE org_id = $1 AND started_at < $3 AND (resolved_at IS NULL OR resolved_at >= $2)
ORDER BY started_at ASC`
	return s.queryIncidents(ctx, q, orgID, from, to)
}

// FindUnresolvedSevere returns the most recent unresolved major or critical
// incident for the org, or nil. Drives the change freeze.
func (s *Store) FindUnresolvedSevere(ctx context.Context, orgID string) (*model.Incident, error) {
	q := `SELECT ` + incidentColumns + ` FROM incidents
WHERE org_id = $1 AND status <> 'resolved' AND severity IN ('major', 'critical')
ORDER BY started_at DESC
LIMIT 1`
	row := s.DB.QueryRowContext(ctx, q, orgID)
	inc, err := scanIncident(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find unresolved severe incident: %w", err)
	}
	return inc, nil
}

// ListIncidentsInWindow returns incidents started within the look-back
// window, newest first, for the deployment timeline.
func (s *Store) ListIncidentsInWindow(ctx context.Context, orgID string, from time.Time, limit int) ([]model.Incident, error) {
	q := `SELECT ` + incidentColumns + ` FROM incidents
WHERE org_id = $1 AND started_at >= $2
ORDER BY started_at DESC
LIMIT $3`
	return s.queryIncidents(ctx, q, orgID, from, limit)
}

func (s *Store) queryIncidents(ctx context.Context, q string, args ...any) ([]model.Incident, error) {
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	defer rows.Close()
	var out []model.Incident
	for rows.Next() {
		inc, err := scanIncident(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		out = append(out, *inc)
	}
	return out, rows.Err()
}

func scanIncident(scan func(...any) error) (*model.Incident, error) {
	var (
		inc         model.Incident
		monitorJSON string
		resolvedAt  sql.NullTime
	)
	if err := scan(&inc.ID, &inc.OrgID, &inc.Title, &inc.Severity, &inc.Status,
		&monitorJSON, &inc.StartedAt, &resolvedAt); err != nil {
		return nil, err
	}
	if monitorJSON != "" {
		if err := json.Unmarshal([]byte(monitorJSON), &inc.MonitorIDs); err != nil {
			return nil, err
		}
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		inc.ResolvedAt = &t
	}
	return &inc, nil
}

// ListImpactsForOrg returns current provider impacts touching the org's
// monitors.
func (s *Store) ListImpactsForOrg(ctx context.Context, orgID string) ([]model.ProviderImpact, error) {
	q := `SELECT p.provider_id, p.status, p.affected_monitor_ids, p.updated_at
FROM provider_impacts p
WHERE p.org_id = $1`
	rows, err := s.DB.QueryContext(ctx, q, orgID)
	if err != nil {
		return nil, fmt.Errorf("list provider impacts: %w", err)
	}
	defer rows.Close()
	var out []model.ProviderImpact
	for rows.Next() {
		var (
			pi          model.ProviderImpact
			monitorJSON string
		)
		if err := rows.Scan(&pi.ProviderID, &pi.Status, &monitorJSON, &pi.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan provider impact: %w", err)
		}
		if monitorJSON != "" {
			if err := json.Unmarshal([]byte(monitorJSON), &pi.MonitorIDs); err != nil {
				return nil, err
			}
		}
		out = append(out, pi)
	}
	return out, rows.Err()
}
