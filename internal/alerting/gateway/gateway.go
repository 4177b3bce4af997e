package gateway

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/statuskeep/statuskeep/internal/metrics"
	"github.com/statuskeep/statuskeep/internal/queue"
	"github.com/statuskeep/statuskeep/internal/status/model"
)

// EvaluateQueue carries alert-evaluation work for the downstream notifier,
// which lives outside this core.
const EvaluateQueue = "alert:evaluate"

// Gateway decides whether a normalized check result warrants downstream
// alert evaluation. It never blocks or fails the write that triggered it.
type Gateway struct {
	enqueuer queue.Enqueuer
}

func New(enqueuer queue.Enqueuer) *Gateway {
	if enqueuer == nil {
		enqueuer = queue.NoopEnqueuer{}
	}
	return &Gateway{enqueuer: enqueuer}
}

type evaluatePayload struct {
	MonitorID     string             `json:"monitorId"`
	OrgID         string             `json:"orgId"`
	ResultID      string             `json:"resultId"`
	ResultStatus  model.ResultStatus `json:"resultStatus"`
	StatusChanged bool               `json:"statusChanged"`
}

// Evaluate enqueues evaluation work when the result is non-success or the
// monitor's status moved on this result. Healthy steady-state results are
// dropped here.
func (g *Gateway) Evaluate(ctx context.Context, m *model.Monitor, r *model.CheckResult, statusChanged bool) {
	if !ShouldEvaluate(r.Status, statusChanged) {
		return
	}
	payload := evaluatePayload{
		MonitorID:     m.ID,
		OrgID:         m.OrgID,
		ResultID:      r.ID,
		ResultStatus:  r.Status,
		StatusChanged: statusChanged,
	}
	if err := g.enqueuer.Enqueue(ctx, EvaluateQueue, payload, nil); err != nil {
		log.Warn().Err(err).Str("monitor", m.ID).Msg("alert evaluation enqueue failed")
		return
	}
	metrics.AlertsEnqueued.Inc()
}

// ShouldEvaluate is the enqueue predicate, split out for tests.
func ShouldEvaluate(status model.ResultStatus, statusChanged bool) bool {
	return status != model.ResultSuccess || statusChanged
}
