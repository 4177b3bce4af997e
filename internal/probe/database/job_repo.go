package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/statuskeep/statuskeep/internal/probe/model"
)

func (s *Store) InsertPendingJob(ctx context.Context, j *model.PendingJob) error {
	payload := "{}"
	if len(j.Payload) > 0 {
		payload = string(j.Payload)
	}
	q := `INSERT INTO pending_jobs (id, probe_id, monitor_id, job_payload, status, expires_at, created_at)
VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7)`
	_, err := s.DB.ExecContext(ctx, q, j.ID, j.ProbeID, j.MonitorID, payload,
		j.Status, j.ExpiresAt, j.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert pending job: %w", err)
	}
	return nil
}

// ClaimJobs selects up to limit pending, unexpired jobs for the probe and
// flips them to claimed in the same statement. The inner SELECT is scoped to
// status = 'pending' and locked with SKIP LOCKED, so two concurrent pulls can
// never claim the same job. Expired rows are filtered here at read time;
// there is no background sweep.
func (s *Store) ClaimJobs(ctx context.Context, probeID string, now time.Time, limit int) ([]model.PendingJob, error) {
	q := `UPDATE pending_jobs SET status = 'claimed', claimed_at = $2
WHERE id IN (
    SELECT id FROM pending_jobs
    WHERE probe_id = $1 AND status = 'pending' AND expires_at > $2
    ORDER BY created_at ASC
    LIMIT $3
    FOR UPDATE SKIP LOCKED
)
AND status = 'pending'
RETURNING id, probe_id, monitor_id, job_payload, status, expires_at, created_at, claimed_at`
	rows, err := s.DB.QueryContext(ctx, q, probeID, now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim jobs: %w", err)
	}
	defer rows.Close()

	var out []model.PendingJob
	for rows.Next() {
		j, err := scanJob(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan claimed job: %w", err)
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

// CompleteJob marks a claimed job completed, scoped to the submitting probe
// and the claimed status. Returns false when no row matched: the job does not
// exist, was claimed by another probe, or was already completed. Callers must
// not distinguish those cases.
func (s *Store) CompleteJob(ctx context.Context, jobID, probeID string) (bool, error) {
	q := `UPDATE pending_jobs SET status = 'completed'
WHERE id = $1 AND probe_id = $2 AND status = 'claimed'`
	res, err := s.DB.ExecContext(ctx, q, jobID, probeID)
	if err != nil {
		return false, fmt.Errorf("complete job: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// GetClaimedJob fetches a job only when it is claimed by the given probe.
func (s *Store) GetClaimedJob(ctx context.Context, jobID, probeID string) (*model.PendingJob, error) {
	q := `SELECT id, probe_id, monitor_id, job_payload, status, expires_at, created_at, claimed_at
FROM pending_jobs
WHERE id = $1 AND probe_id = $2 AND status = 'claimed'`
	row := s.DB.QueryRowContext(ctx, q, jobID, probeID)
	j, err := scanJob(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get claimed job: %w", err)
	}
	return j, nil
}

func scanJob(scan func(...any) error) (*model.PendingJob, error) {
	var (
		j         model.PendingJob
		payload   string
		claimedAt sql.NullTime
	)
	if err := scan(&j.ID, &j.ProbeID, &j.MonitorID, &payload, &j.Status,
		&j.ExpiresAt, &j.CreatedAt, &claimedAt); err != nil {
		return nil, err
	}
	j.Payload = []byte(payload)
	if claimedAt.Valid {
		t := claimedAt.Time
		j.ClaimedAt = &t
	}
	return &j, nil
}
