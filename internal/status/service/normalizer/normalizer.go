package normalizer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/statuskeep/statuskeep/internal/errs"
	"github.com/statuskeep/statuskeep/internal/metrics"
	"github.com/statuskeep/statuskeep/internal/pubsub"
	"github.com/statuskeep/statuskeep/internal/status/model"
)

// Store is the slice of the status repository the normalizer writes through.
type Store interface {
	GetMonitor(ctx context.Context, id string) (*model.Monitor, error)
	UpdateMonitorStatus(ctx context.Context, id string, status model.MonitorStatus) error
	UpdateLastPing(ctx context.Context, id string, at time.Time) error
	InsertCheckResult(ctx context.Context, r *model.CheckResult) error
}

// AlertGateway decides whether a normalized result needs downstream alert
// evaluation. Invoked fire-and-forget.
type AlertGateway interface {
	Evaluate(ctx context.Context, m *model.Monitor, r *model.CheckResult, statusChanged bool)
}

type Normalizer struct {
	store     Store
	publisher pubsub.Publisher
	gateway   AlertGateway
	now       func() time.Time
}

func New(store Store, publisher pubsub.Publisher, gateway AlertGateway) *Normalizer {
	if publisher == nil {
		publisher = pubsub.NoopPublisher{}
	}
	return &Normalizer{store: store, publisher: publisher, gateway: gateway, now: time.Now}
}

// Outcome is what Normalize reports back to the producer.
type Outcome struct {
	Result        *model.CheckResult
	MonitorStatus model.MonitorStatus
	StatusChanged bool
}

// Normalize canonicalizes a raw producer outcome into a CheckResult, updates
// the monitor's live status, and fires the side effects. Side-effect failures
// are logged and never surfaced; the primary write is the only thing that can
// fail the call.
func (n *Normalizer) Normalize(ctx context.Context, raw RawOutcome) (*Outcome, error) {
	if raw == nil {
		return nil, errs.Validation("outcome", "missing payload")
	}

	monitor, err := n.store.GetMonitor(ctx, raw.monitorID())
	if err != nil {
		return nil, err
	}
	if !monitor.Type.IsValid() {
		return nil, errs.NotFound("monitor type", string(monitor.Type))
	}

	now := n.now().UTC()

	var result *model.CheckResult
	switch v := raw.(type) {
	case *ScheduledResult:
		result, err = n.fromScheduled(v, now)
	case *ProbeJobResult:
		result, err = n.fromProbeJob(monitor, v, now)
	case *PushSample:
		result, err = n.fromPushSample(monitor, v, now)
	default:
		err = errs.Validation("outcome", fmt.Sprintf("unsupported producer %T", raw))
	}
	if err != nil {
		return nil, err
	}

	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = now
	}
	if err := n.store.InsertCheckResult(ctx, result); err != nil {
		return nil, err
	}
	metrics.ResultsNormalized.WithLabelValues(raw.producer(), string(result.Status)).Inc()

	if monitor.Type == model.TypeHeartbeat {
		if err := n.store.UpdateLastPing(ctx, monitor.ID, now); err != nil {
			log.Error().Err(err).Str("monitor", monitor.ID).Msg("update last ping failed")
		}
	}

	next := deriveMonitorStatus(result.Status)
	changed := false
	// A paused monitor keeps recording results but never leaves paused here;
	// only an explicit resume does that.
	if monitor.Status != model.MonitorPaused && next != monitor.Status {
		if err := n.store.UpdateMonitorStatus(ctx, monitor.ID, next); err != nil {
			return nil, err
		}
		changed = true
		n.publishStatusChange(ctx, monitor, next, result, now)
	}

	if n.gateway != nil {
		n.gateway.Evaluate(ctx, monitor, result, changed)
	}

	out := &Outcome{Result: result, MonitorStatus: monitor.Status, StatusChanged: changed}
	if changed {
		out.MonitorStatus = next
	}
	return out, nil
}

// deriveMonitorStatus maps a result status onto the monitor's live status.
func deriveMonitorStatus(s model.ResultStatus) model.MonitorStatus {
	switch s {
	case model.ResultSuccess:
		return model.MonitorActive
	case model.ResultDegraded:
		return model.MonitorDegraded
	default: // failure, timeout, error
		return model.MonitorDown
	}
}

func (n *Normalizer) publishStatusChange(ctx context.Context, m *model.Monitor, to model.MonitorStatus, r *model.CheckResult, now time.Time) {
	event := model.StatusChangeEvent{
		MonitorID:  m.ID,
		OrgID:      m.OrgID,
		From:       m.Status,
		To:         to,
		ResultID:   r.ID,
		OccurredAt: now,
	}
	for _, ch := range []string{pubsub.MonitorChannel(m.ID), pubsub.OrgChannel(m.OrgID)} {
		if err := n.publisher.Publish(ctx, ch, event); err != nil {
			log.Warn().Err(err).Str("channel", ch).Str("monitor", m.ID).Msg("status change publish failed")
		}
	}
}

func (n *Normalizer) fromScheduled(v *ScheduledResult, now time.Time) (*model.CheckResult, error) {
	if !v.Status.IsValid() {
		return nil, errs.Validation("status", fmt.Sprintf("unknown result status %q", v.Status))
	}
	if v.ResponseTimeMs < 0 {
		return nil, errs.Validation("responseTimeMs", "must be >= 0")
	}
	region := v.Region
	if region == "" {
		region = "default"
	}
	return &model.CheckResult{
		MonitorID:    v.MonitorID,
		Region:       region,
		Status:       v.Status,
		ResponseTime: v.ResponseTimeMs,
		StatusCode:   v.StatusCode,
		Message:      v.Message,
		Metadata:     v.Metadata,
		CreatedAt:    v.CheckedAt,
	}, nil
}

func (n *Normalizer) fromProbeJob(m *model.Monitor, v *ProbeJobResult, now time.Time) (*model.CheckResult, error) {
	if v.Region == "" {
		return nil, errs.Validation("region", "probe region is required")
	}
	if v.ResponseTimeMs < 0 {
		return nil, errs.Validation("responseTimeMs", "must be >= 0")
	}

	status := model.ResultFailure
	switch {
	case v.TimedOut:
		status = model.ResultTimeout
	case v.Success && m.Thresholds.DegradedMs > 0 && v.ResponseTimeMs > m.Thresholds.DegradedMs:
		status = model.ResultDegraded
	case v.Success:
		status = model.ResultSuccess
	}

	return &model.CheckResult{
		MonitorID:    v.MonitorID,
		Region:       v.Region,
		Status:       status,
		ResponseTime: v.ResponseTimeMs,
		StatusCode:   v.StatusCode,
		Message:      v.ErrorMessage,
		Metadata:     v.Metadata,
	}, nil
}

func (n *Normalizer) fromPushSample(m *model.Monitor, v *PushSample, now time.Time) (*model.CheckResult, error) {
	if m.Type == model.TypeHeartbeat {
		return n.fromHeartbeatPing(m, v, now)
	}

	status := v.Status
	if status == "" {
		status = model.ResultSuccess
	}
	if !status.IsValid() {
		return nil, errs.Validation("status", fmt.Sprintf("unknown result status %q", status))
	}
	metadata := map[string]string{}
	for k, val := range v.Metrics {
		metadata[k] = strconv.FormatFloat(val, 'f', -1, 64)
	}
	for k, val := range v.Metadata {
		metadata[k] = val
	}
	return &model.CheckResult{
		MonitorID:    v.MonitorID,
		Region:       "push",
		Status:       status,
		ResponseTime: v.ResponseTimeMs,
		Metadata:     metadata,
	}, nil
}

// fromHeartbeatPing handles heartbeat monitors, which report an explicit ping
// state instead of a result status.
func (n *Normalizer) fromHeartbeatPing(m *model.Monitor, v *PushSample, now time.Time) (*model.CheckResult, error) {
	if !v.State.IsValid() {
		return nil, errs.Validation("state", fmt.Sprintf("unknown ping state %q", v.State))
	}

	var status model.ResultStatus
	switch v.State {
	case model.PingStart, model.PingComplete:
		status = model.ResultSuccess
	case model.PingFail:
		status = model.ResultFailure
	}

	metadata := map[string]string{"pingState": string(v.State)}
	if m.Thresholds.ExpectedInterval > 0 && m.LastPingAt != nil {
		missed := MissedBeats(now, *m.LastPingAt, m.Thresholds.ExpectedInterval)
		metadata["missedBeats"] = strconv.Itoa(missed)
	}

	return &model.CheckResult{
		MonitorID:    v.MonitorID,
		Region:       "push",
		Status:       status,
		ResponseTime: v.ResponseTimeMs,
		Metadata:     metadata,
	}, nil
}

// MissedBeats counts how many expected heartbeat intervals elapsed with no
// ping: max(0, floor((now - lastPingAt) / expectedIntervalMs) - 1).
func MissedBeats(now, lastPingAt time.Time, expectedIntervalMs int) int {
	if expectedIntervalMs <= 0 {
		return 0
	}
	elapsed := now.Sub(lastPingAt).Milliseconds()
	missed := int(elapsed/int64(expectedIntervalMs)) - 1
	if missed < 0 {
		return 0
	}
	return missed
}
