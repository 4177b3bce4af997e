package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/statuskeep/statuskeep/internal/database"
	"github.com/statuskeep/statuskeep/internal/errs"
	"github.com/statuskeep/statuskeep/internal/probe/model"
)

// Store is the Postgres-backed repository for the probe area.
type Store struct {
	DB *database.Database
}

func NewStore(db *database.Database) *Store { return &Store{DB: db} }

func (s *Store) CreateProbe(ctx context.Context, p *model.Probe) error {
	q := `INSERT INTO probes (id, org_id, name, region, status, auth_token_hash, auth_token_prefix, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.DB.ExecContext(ctx, q, p.ID, p.OrgID, p.Name, p.Region, p.Status,
		p.AuthTokenHash, p.AuthTokenPrefix, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create probe: %w", err)
	}
	return nil
}

// GetProbeByTokenPrefix is the indexed auth lookup. The caller still has to
// compare the full hash; the prefix only narrows the candidate.
func (s *Store) GetProbeByTokenPrefix(ctx context.Context, prefix string) (*model.Probe, error) {
	q := `SELECT id, org_id, name, region, status, auth_token_hash, auth_token_prefix, last_heartbeat_at, created_at
FROM probes WHERE auth_token_prefix = $1`
	row := s.DB.QueryRowContext(ctx, q, prefix)
	p, err := scanProbe(row.Scan)
	if err == sql.ErrNoRows {
		return nil, errs.Auth("invalid probe token")
	}
	if err != nil {
		return nil, fmt.Errorf("get probe by token prefix: %w", err)
	}
	return p, nil
}

// RecordHeartbeat stores the liveness sample and flips a pending probe to
// active in the same round trip.
func (s *Store) RecordHeartbeat(ctx context.Context, sample *model.HeartbeatSample) error {
	return s.DB.WithTx(ctx, func(tx *sql.Tx) error {
		const insert = `INSERT INTO probe_heartbeats (id, probe_id, metrics, metadata, version, source_ip, received_at)
VALUES ($1, $2, $3::jsonb, $4::jsonb, $5, $6, $7)`
		metricsJSON := "{}"
		if len(sample.Metrics) > 0 {
			metricsJSON = string(sample.Metrics)
		}
		metadataJSON := "{}"
		if len(sample.Metadata) > 0 {
			metadataJSON = string(sample.Metadata)
		}
		if _, err := tx.ExecContext(ctx, insert, sample.ID, sample.ProbeID,
			metricsJSON, metadataJSON, sample.Version, sample.SourceIP, sample.ReceivedAt); err != nil {
			return fmt.Errorf("insert heartbeat: %w", err)
		}
		const update = `UPDATE probes SET last_heartbeat_at = $1,
status = CASE WHEN status = 'pending' THEN 'active' ELSE status END
WHERE id = $2`
		if _, err := tx.ExecContext(ctx, update, sample.ReceivedAt, sample.ProbeID); err != nil {
			return fmt.Errorf("update probe heartbeat: %w", err)
		}
		return nil
	})
}

// FindActiveProbeForRegion picks the most recently alive active probe for the
// org and region, or "" when none exists.
func (s *Store) FindActiveProbeForRegion(ctx context.Context, orgID, region string) (string, error) {
	q := `SELECT id FROM probes
WHERE org_id = $1 AND region = $2 AND status = 'active'
ORDER BY last_heartbeat_at DESC NULLS LAST
LIMIT 1`
	var id string
	err := s.DB.QueryRowContext(ctx, q, orgID, region).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find probe for region: %w", err)
	}
	return id, nil
}

func scanProbe(scan func(...any) error) (*model.Probe, error) {
	var (
		p             model.Probe
		lastHeartbeat sql.NullTime
	)
	if err := scan(&p.ID, &p.OrgID, &p.Name, &p.Region, &p.Status,
		&p.AuthTokenHash, &p.AuthTokenPrefix, &lastHeartbeat, &p.CreatedAt); err != nil {
		return nil, err
	}
	if lastHeartbeat.Valid {
		t := lastHeartbeat.Time
		p.LastHeartbeatAt = &t
	}
	return &p, nil
}
