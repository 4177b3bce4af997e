package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/statuskeep/statuskeep/internal/database"
	"github.com/statuskeep/statuskeep/internal/deploy/model"
	"github.com/statuskeep/statuskeep/internal/errs"
)

// Store is the Postgres-backed repository for the deploy area.
type Store struct {
	DB *database.Database
}

func NewStore(db *database.Database) *Store { return &Store{DB: db} }

func (s *Store) InsertEvent(ctx context.Context, e *model.DeploymentEvent) error {
	monitorsJSON, _ := json.Marshal(e.MonitorIDs)
	q := `INSERT INTO deployment_events (id, org_id, service, environment, status, version, affected_monitor_ids, override, deployed_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10)`
	_, err := s.DB.ExecContext(ctx, q, e.ID, e.OrgID, e.Service, e.Environment,
		e.Status, e.Version, string(monitorsJSON), e.Override, e.DeployedAt, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert deployment event: %w", err)
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (*model.DeploymentEvent, error) {
	q := `SELECT id, org_id, service, environment, status, version, affected_monitor_ids, override, deployed_at, created_at
FROM deployment_events WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, q, id)
	e, err := scanEvent(row.Scan)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("deployment", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get deployment event: %w", err)
	}
	return e, nil
}

// ListEventsInWindow returns deployment events within the look-back window,
// newest first.
func (s *Store) ListEventsInWindow(ctx context.Context, orgID string, from time.Time, limit int) ([]model.DeploymentEvent, error) {
	q := `SELECT id, org_id, service, environment, status, version, affected_monitor_ids, override, deployed_at, created_at
FROM deployment_events
WHERE org_id = $1 AND deployed_at >= $2
ORDER BY deployed_at DESC
LIMIT $3`
	rows, err := s.DB.QueryContext(ctx, q, orgID, from, limit)
	if err != nil {
		return nil, fmt.Errorf("list deployment events: %w", err)
	}
	defer rows.Close()
	var out []model.DeploymentEvent
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan deployment event: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// InsertLink records a deployment-incident correlation. A duplicate pair is a
// conflict regardless of correlation type.
func (s *Store) InsertLink(ctx context.Context, l *model.DeploymentIncidentLink) error {
	q := `INSERT INTO deployment_incident_links (deployment_id, incident_id, correlation_type, confidence, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (deployment_id, incident_id) DO NOTHING`
	res, err := s.DB.ExecContext(ctx, q, l.DeploymentID, l.IncidentID, l.Type, l.Confidence, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert correlation link: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.Conflict("deployment is already linked to this incident")
	}
	return nil
}

func (s *Store) GetWebhook(ctx context.Context, id string) (*model.Webhook, error) {
	q := `SELECT id, org_id, COALESCE(secret, '') FROM deployment_webhooks WHERE id = $1`
	var w model.Webhook
	err := s.DB.QueryRowContext(ctx, q, id).Scan(&w.ID, &w.OrgID, &w.Secret)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("webhook", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook: %w", err)
	}
	return &w, nil
}

func scanEvent(scan func(...any) error) (*model.DeploymentEvent, error) {
	var (
		e           model.DeploymentEvent
		monitorJSON string
	)
	if err := scan(&e.ID, &e.OrgID, &e.Service, &e.Environment, &e.Status,
		&e.Version, &monitorJSON, &e.Override, &e.DeployedAt, &e.CreatedAt); err != nil {
		return nil, err
	}
	if monitorJSON != "" {
		if err := json.Unmarshal([]byte(monitorJSON), &e.MonitorIDs); err != nil {
			return nil, err
		}
	}
	return &e, nil
}
