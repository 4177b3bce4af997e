package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/statuskeep/statuskeep/internal/errs"
	"github.com/statuskeep/statuskeep/internal/metrics"
	"github.com/statuskeep/statuskeep/internal/probe/model"
	"github.com/statuskeep/statuskeep/internal/status/service/normalizer"
)

const defaultJobPull = 100

// Store is the probe repository surface the coordinator needs.
type Store interface {
	CreateProbe(ctx context.Context, p *model.Probe) error
	GetProbeByTokenPrefix(ctx context.Context, prefix string) (*model.Probe, error)
	RecordHeartbeat(ctx context.Context, sample *model.HeartbeatSample) error
	ClaimJobs(ctx context.Context, probeID string, now time.Time, limit int) ([]model.PendingJob, error)
	GetClaimedJob(ctx context.Context, jobID, probeID string) (*model.PendingJob, error)
	CompleteJob(ctx context.Context, jobID, probeID string) (bool, error)
}

// ResultNormalizer is satisfied by the status normalizer.
type ResultNormalizer interface {
	Normalize(ctx context.Context, raw normalizer.RawOutcome) (*normalizer.Outcome, error)
}

// Liveness mirrors recent heartbeats into a fast store. Best-effort.
type Liveness interface {
	MarkAlive(ctx context.Context, probeID string, at time.Time) error
}

// Coordinator authenticates probes and runs the job-pull protocol.
type Coordinator struct {
	store      Store
	normalizer ResultNormalizer
	liveness   Liveness
	pullLimit  int
	now        func() time.Time
}

func NewCoordinator(store Store, n ResultNormalizer, liveness Liveness, pullLimit int) *Coordinator {
	if pullLimit <= 0 || pullLimit > defaultJobPull {
		pullLimit = defaultJobPull
	}
	return &Coordinator{store: store, normalizer: n, liveness: liveness, pullLimit: pullLimit, now: time.Now}
}

// Register creates a probe and returns it with the plaintext secret. The
// secret is not recoverable afterwards.
func (c *Coordinator) Register(ctx context.Context, orgID, name, region string) (*model.Probe, string, error) {
	if orgID == "" {
		return nil, "", errs.Validation("orgId", "required")
	}
	if region == "" {
		return nil, "", errs.Validation("region", "required")
	}
	secret, err := NewSecret()
	if err != nil {
		return nil, "", errs.Internal(err)
	}
	p := &model.Probe{
		ID:              uuid.NewString(),
		OrgID:           orgID,
		Name:            name,
		Region:          region,
		Status:          model.ProbePending,
		AuthTokenHash:   HashToken(secret),
		AuthTokenPrefix: TokenLookupPrefix(secret),
		CreatedAt:       c.now().UTC(),
	}
	if err := c.store.CreateProbe(ctx, p); err != nil {
		return nil, "", err
	}
	return p, secret, nil
}

// Authenticate resolves a bearer token to a probe: indexed lookup by token
// prefix, then constant-time hash comparison. A disabled probe is rejected
// even with a valid token.
func (c *Coordinator) Authenticate(ctx context.Context, authorization string) (*model.Probe, error) {
	token := strings.TrimSpace(strings.TrimPrefix(authorization, "Bearer "))
	if token == "" {
		return nil, errs.Auth("missing bearer token")
	}
	p, err := c.store.GetProbeByTokenPrefix(ctx, TokenLookupPrefix(token))
	if err != nil {
		return nil, err
	}
	if !VerifyToken(token, p.AuthTokenHash) {
		return nil, errs.Auth("invalid probe token")
	}
	if p.Status == model.ProbeDisabled {
		return nil, errs.Auth("probe is disabled")
	}
	return p, nil
}

// HeartbeatRequest carries the optional payload of a heartbeat: host metrics,
// free-form metadata, and the agent version.
type HeartbeatRequest struct {
	Metrics  []byte
	Metadata []byte
	Version  string
	SourceIP string
}

// Heartbeat records a liveness sample. The repository flips a pending probe
// to active in the same write.
func (c *Coordinator) Heartbeat(ctx context.Context, p *model.Probe, req *HeartbeatRequest) (*model.HeartbeatSample, error) {
	if req == nil {
		req = &HeartbeatRequest{}
	}
	sample := &model.HeartbeatSample{
		ID:         uuid.NewString(),
		ProbeID:    p.ID,
		Metrics:    req.Metrics,
		Metadata:   req.Metadata,
		Version:    req.Version,
		SourceIP:   req.SourceIP,
		ReceivedAt: c.now().UTC(),
	}
	if err := c.store.RecordHeartbeat(ctx, sample); err != nil {
		return nil, err
	}
	if c.liveness != nil {
		if err := c.liveness.MarkAlive(ctx, p.ID, sample.ReceivedAt); err != nil {
			log.Warn().Err(err).Str("probe", p.ID).Msg("liveness cache write failed")
		}
	}
	return sample, nil
}

// PullJobs returns up to limit pending, unexpired jobs for the probe, each
// already flipped to claimed by the selecting statement.
func (c *Coordinator) PullJobs(ctx context.Context, p *model.Probe, limit int) ([]model.PendingJob, error) {
	if limit <= 0 || limit > c.pullLimit {
		limit = c.pullLimit
	}
	jobs, err := c.store.ClaimJobs(ctx, p.ID, c.now().UTC(), limit)
	if err != nil {
		return nil, err
	}
	metrics.JobsClaimed.Add(float64(len(jobs)))
	return jobs, nil
}

// SubmitResultRequest is the body of a job result submission.
type SubmitResultRequest struct {
	MonitorID      string            `json:"monitorId"`
	Success        bool              `json:"success"`
	TimedOut       bool              `json:"timedOut,omitempty"`
	ResponseTimeMs int               `json:"responseTimeMs"`
	StatusCode     int               `json:"statusCode,omitempty"`
	ErrorMessage   string            `json:"errorMessage,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// SubmitResult completes a claimed job and feeds its outcome through the
// normalizer. A job claimed by another probe, already completed, or unknown
// uniformly yields NotFound.
func (c *Coordinator) SubmitResult(ctx context.Context, p *model.Probe, jobID string, req *SubmitResultRequest) (*normalizer.Outcome, error) {
	if req.ResponseTimeMs < 0 {
		return nil, errs.Validation("responseTimeMs", "must be >= 0")
	}

	job, err := c.store.GetClaimedJob(ctx, jobID, p.ID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, errs.NotFound("job", jobID)
	}
	if req.MonitorID != "" && req.MonitorID != job.MonitorID {
		return nil, errs.Validation("monitorId", "does not match job")
	}

	// The conditional update is the idempotency guard: a concurrent duplicate
	// submission loses here and gets NotFound.
	done, err := c.store.CompleteJob(ctx, jobID, p.ID)
	if err != nil {
		return nil, err
	}
	if !done {
		return nil, errs.NotFound("job", jobID)
	}
	metrics.JobsCompleted.Inc()

	outcome, err := c.normalizer.Normalize(ctx, &normalizer.ProbeJobResult{
		MonitorID:      job.MonitorID,
		ProbeID:        p.ID,
		Region:         p.Region,
		Success:        req.Success,
		TimedOut:       req.TimedOut,
		ResponseTimeMs: req.ResponseTimeMs,
		StatusCode:     req.StatusCode,
		ErrorMessage:   req.ErrorMessage,
		Metadata:       req.Metadata,
	})
	if err != nil {
		// The job is already consumed; a retry would read as NotFound. Leave a
		// trace of the completion that produced no result.
		log.Error().Err(err).Str("job", jobID).Str("probe", p.ID).
			Str("monitor", job.MonitorID).Msg("job completed but result normalization failed")
		return nil, err
	}
	return outcome, nil
}
