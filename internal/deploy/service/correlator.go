package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/statuskeep/statuskeep/internal/deploy/model"
	"github.com/statuskeep/statuskeep/internal/errs"
	"github.com/statuskeep/statuskeep/internal/metrics"
	"github.com/statuskeep/statuskeep/internal/queue"
	statusmodel "github.com/statuskeep/statuskeep/internal/status/model"
)

const (
	// AutoCorrelateQueue receives delayed jobs whose matching/confidence
	// logic lives outside this core.
	AutoCorrelateQueue = "deploy:auto-correlate"

	freezeEnvironment = "production"
	maxTimelineHours  = 24 * 30
)

// Store is the deploy repository surface the correlator needs.
type Store interface {
	InsertEvent(ctx context.Context, e *model.DeploymentEvent) error
	GetEvent(ctx context.Context, id string) (*model.DeploymentEvent, error)
	ListEventsInWindow(ctx context.Context, orgID string, from time.Time, limit int) ([]model.DeploymentEvent, error)
	InsertLink(ctx context.Context, l *model.DeploymentIncidentLink) error
}

// IncidentStore is the slice of the status repository consulted for freeze
// checks and the timeline.
type IncidentStore interface {
	FindUnresolvedSevere(ctx context.Context, orgID string) (*statusmodel.Incident, error)
	GetIncident(ctx context.Context, id string) (*statusmodel.Incident, error)
	ListIncidentsInWindow(ctx context.Context, orgID string, from time.Time, limit int) ([]statusmodel.Incident, error)
}

type Correlator struct {
	store            Store
	incidents        IncidentStore
	enqueuer         queue.Enqueuer
	correlationDelay time.Duration
	freezeEnabled    bool
	now              func() time.Time
}

func NewCorrelator(store Store, incidents IncidentStore, enqueuer queue.Enqueuer, correlationDelay time.Duration, freezeEnabled bool) *Correlator {
	if enqueuer == nil {
		enqueuer = queue.NoopEnqueuer{}
	}
	if correlationDelay <= 0 {
		correlationDelay = 5 * time.Minute
	}
	return &Correlator{
		store:            store,
		incidents:        incidents,
		enqueuer:         enqueuer,
		correlationDelay: correlationDelay,
		freezeEnabled:    freezeEnabled,
		now:              time.Now,
	}
}

// RecordDeployment persists an inbound deployment event, enforcing the change
// freeze first: a production event without an override is rejected while an
// unresolved major or critical incident exists for the org. Terminal events
// schedule a delayed automatic-correlation job; that enqueue is best-effort.
func (c *Correlator) RecordDeployment(ctx context.Context, e *model.DeploymentEvent) error {
	if e.Service == "" {
		return errs.Validation("service", "required")
	}
	if e.Environment == "" {
		return errs.Validation("environment", "required")
	}
	if !e.Status.IsValid() {
		return errs.Validation("status", "unknown deployment status")
	}

	if c.freezeEnabled && e.Environment == freezeEnvironment && !e.Override {
		blocking, err := c.incidents.FindUnresolvedSevere(ctx, e.OrgID)
		if err != nil {
			return err
		}
		if blocking != nil {
			metrics.DeploymentsBlocked.Inc()
			return &errs.ChangeFreezeError{IncidentID: blocking.ID, Severity: string(blocking.Severity)}
		}
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.DeployedAt.IsZero() {
		e.DeployedAt = c.now().UTC()
	}
	e.CreatedAt = c.now().UTC()
	if err := c.store.InsertEvent(ctx, e); err != nil {
		return err
	}

	if e.Status.Terminal() {
		payload := map[string]string{"deploymentId": e.ID, "orgId": e.OrgID}
		if err := c.enqueuer.Enqueue(ctx, AutoCorrelateQueue, payload, &queue.Options{Delay: c.correlationDelay}); err != nil {
			log.Error().Err(err).Str("deployment", e.ID).Msg("auto-correlation enqueue failed")
		}
	}
	return nil
}

// LinkIncident records a manual correlation. Both entities must belong to the
// same organization; a cross-tenant reference reads as NotFound. Manual links
// never carry a confidence score.
func (c *Correlator) LinkIncident(ctx context.Context, orgID, deploymentID, incidentID string) (*model.DeploymentIncidentLink, error) {
	deployment, err := c.store.GetEvent(ctx, deploymentID)
	if err != nil {
		return nil, err
	}
	if deployment.OrgID != orgID {
		return nil, errs.NotFound("deployment", deploymentID)
	}
	incident, err := c.incidents.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if incident.OrgID != orgID {
		return nil, errs.NotFound("incident", incidentID)
	}

	link := &model.DeploymentIncidentLink{
		DeploymentID: deploymentID,
		IncidentID:   incidentID,
		Type:         model.CorrelationManual,
		CreatedAt:    c.now().UTC(),
	}
	if err := c.store.InsertLink(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

// Timeline merges deployment events and incidents inside the look-back
// window, descending by timestamp.
func (c *Correlator) Timeline(ctx context.Context, orgID string, lookback time.Duration, limit int) ([]model.TimelineEntry, error) {
	if lookback <= 0 || lookback > maxTimelineHours*time.Hour {
		return nil, errs.Validation("hours", "look-back window out of range")
	}
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	from := c.now().UTC().Add(-lookback)

	events, err := c.store.ListEventsInWindow(ctx, orgID, from, limit)
	if err != nil {
		return nil, err
	}
	incidents, err := c.incidents.ListIncidentsInWindow(ctx, orgID, from, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]model.TimelineEntry, 0, len(events)+len(incidents))
	for _, e := range events {
		entries = append(entries, model.TimelineEntry{
			Kind:      model.TimelineDeployment,
			Timestamp: e.DeployedAt,
			ID:        e.ID,
			Title:     e.Service + " " + e.Version,
			Status:    string(e.Status),
		})
	}
	for _, inc := range incidents {
		entries = append(entries, model.TimelineEntry{
			Kind:      model.TimelineIncident,
			Timestamp: inc.StartedAt,
			ID:        inc.ID,
			Title:     inc.Title,
			Status:    string(inc.Status),
			Severity:  string(inc.Severity),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Timestamp.After(entries[j].Timestamp) })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
