package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	probemodel "github.com/statuskeep/statuskeep/internal/probe/model"
	"github.com/statuskeep/statuskeep/internal/queue"
	"github.com/statuskeep/statuskeep/internal/status/model"
)

// RunQueue carries check work for the central check runner.
const RunQueue = "checks:run"

// MonitorStore lists monitors whose interval has elapsed.
type MonitorStore interface {
	ListDueMonitors(ctx context.Context, now time.Time, limit int) ([]model.Monitor, error)
	MarkDispatched(ctx context.Context, monitorID string, at time.Time) error
}

// JobStore places pending jobs for region-assigned probes.
type JobStore interface {
	FindActiveProbeForRegion(ctx context.Context, orgID, region string) (string, error)
	InsertPendingJob(ctx context.Context, j *probemodel.PendingJob) error
}

type Deps struct {
	Monitors MonitorStore
	Jobs     JobStore
	Queue    queue.Enqueuer
	Batch    int
	Interval time.Duration
	JobTTL   time.Duration
}

// StartScheduler ticks until ctx is done, dispatching due monitors each round.
func StartScheduler(ctx context.Context, deps Deps) {
	if deps.Interval <= 0 {
		deps.Interval = 15 * time.Second
	}
	if deps.Batch <= 0 {
		deps.Batch = 200
	}
	if deps.JobTTL <= 0 {
		deps.JobTTL = 5 * time.Minute
	}
	t := time.NewTicker(deps.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := runOnce(ctx, deps); err != nil {
				log.Error().Err(err).Msg("dispatch runOnce failed")
			}
		}
	}
}

type checkPayload struct {
	MonitorID string `json:"monitorId"`
	Type      string `json:"type"`
	Region    string `json:"region"`
}

func runOnce(ctx context.Context, deps Deps) error {
	now := time.Now().UTC()
	due, err := deps.Monitors.ListDueMonitors(ctx, now, deps.Batch)
	if err != nil {
		return err
	}
	for _, m := range due {
		dispatchMonitor(ctx, deps, &m, now)
		if err := deps.Monitors.MarkDispatched(ctx, m.ID, now); err != nil {
			log.Error().Err(err).Str("monitor", m.ID).Msg("mark dispatched failed")
		}
	}
	return nil
}

// dispatchMonitor fans one due monitor out to its regions: probe-backed
// regions get a PendingJob, everything else goes to the central run queue.
func dispatchMonitor(ctx context.Context, deps Deps, m *model.Monitor, now time.Time) {
	regions := m.Regions
	if len(regions) == 0 {
		regions = []string{"default"}
	}
	for _, region := range regions {
		probeID, err := deps.Jobs.FindActiveProbeForRegion(ctx, m.OrgID, region)
		if err != nil {
			log.Error().Err(err).Str("monitor", m.ID).Str("region", region).Msg("probe lookup failed")
			continue
		}
		if probeID == "" {
			payload := checkPayload{MonitorID: m.ID, Type: string(m.Type), Region: region}
			if err := deps.Queue.Enqueue(ctx, RunQueue, payload, nil); err != nil {
				log.Error().Err(err).Str("monitor", m.ID).Msg("check enqueue failed")
			}
			continue
		}

		payload, _ := json.Marshal(checkPayload{MonitorID: m.ID, Type: string(m.Type), Region: region})
		job := &probemodel.PendingJob{
			ID:        uuid.NewString(),
			ProbeID:   probeID,
			MonitorID: m.ID,
			Payload:   payload,
			Status:    probemodel.JobPending,
			ExpiresAt: now.Add(deps.JobTTL),
			CreatedAt: now,
		}
		if err := deps.Jobs.InsertPendingJob(ctx, job); err != nil {
			log.Error().Err(err).Str("monitor", m.ID).Str("probe", probeID).Msg("pending job insert failed")
		}
	}
}
