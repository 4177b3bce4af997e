package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statuskeep/statuskeep/internal/deploy/model"
	"github.com/statuskeep/statuskeep/internal/errs"
	"github.com/statuskeep/statuskeep/internal/queue"
	statusmodel "github.com/statuskeep/statuskeep/internal/status/model"
)

type fakeDeployStore struct {
	events map[string]*model.DeploymentEvent
	links  map[string]*model.DeploymentIncidentLink
}

func newFakeDeployStore() *fakeDeployStore {
	return &fakeDeployStore{
		events: map[string]*model.DeploymentEvent{},
		links:  map[string]*model.DeploymentIncidentLink{},
	}
}

func (s *fakeDeployStore) InsertEvent(ctx context.Context, e *model.DeploymentEvent) error {
	s.events[e.ID] = e
	return nil
}

func (s *fakeDeployStore) GetEvent(ctx context.Context, id string) (*model.DeploymentEvent, error) {
	e, ok := s.events[id]
	if !ok {
		return nil, errs.NotFound("deployment", id)
	}
	return e, nil
}

func (s *fakeDeployStore) ListEventsInWindow(ctx context.Context, orgID string, from time.Time, limit int) ([]model.DeploymentEvent, error) {
	var out []model.DeploymentEvent
	for _, e := range s.events {
		if e.OrgID == orgID && !e.DeployedAt.Before(from) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *fakeDeployStore) InsertLink(ctx context.Context, l *model.DeploymentIncidentLink) error {
	key := l.DeploymentID + "/" + l.IncidentID
	if _, dup := s.links[key]; dup {
		return errs.Conflict("deployment is already linked to this incident")
	}
	s.links[key] = l
	return nil
}

type fakeIncidentStore struct {
	severe    *statusmodel.Incident
	incidents map[string]*statusmodel.Incident
	window    []statusmodel.Incident
}

func (s *fakeIncidentStore) FindUnresolvedSevere(ctx context.Context, orgID string) (*statusmodel.Incident, error) {
	return s.severe, nil
}

func (s *fakeIncidentStore) GetIncident(ctx context.Context, id string) (*statusmodel.Incident, error) {
	inc, ok := s.incidents[id]
	if !ok {
		return nil, errs.NotFound("incident", id)
	}
	return inc, nil
}

func (s *fakeIncidentStore) ListIncidentsInWindow(ctx context.Context, orgID string, from time.Time, limit int) ([]statusmodel.Incident, error) {
	return s.window, nil
}

type capturedEnqueue struct {
	queueName string
	payload   any
	opts      *queue.Options
	calls     int
}

func (c *capturedEnqueue) Enqueue(ctx context.Context, queueName string, payload any, opts *queue.Options) error {
	c.queueName = queueName
	c.payload = payload
	c.opts = opts
	c.calls++
	return nil
}

func productionDeploy(status model.DeployStatus) *model.DeploymentEvent {
	return &model.DeploymentEvent{
		OrgID:       "org-1",
		Service:     "checkout",
		Environment: "production",
		Status:      status,
		Version:     "v1.2.3",
	}
}

func TestRecordDeploymentChangeFreeze(t *testing.T) {
	severe := &statusmodel.Incident{
		ID:       "inc-1",
		OrgID:    "org-1",
		Severity: statusmodel.SeverityCritical,
		Status:   statusmodel.IncidentInvestigating,
	}

	t.Run("production blocked during severe incident", func(t *testing.T) {
		store := newFakeDeployStore()
		c := NewCorrelator(store, &fakeIncidentStore{severe: severe}, nil, time.Minute, true)

		err := c.RecordDeployment(context.Background(), productionDeploy(model.DeployStarted))
		var freeze *errs.ChangeFreezeError
		require.ErrorAs(t, err, &freeze)
		assert.Equal(t, "inc-1", freeze.IncidentID)
		assert.Equal(t, "critical", freeze.Severity)
		assert.Empty(t, store.events, "blocked event must not be persisted")
	})

	t.Run("override bypasses the freeze", func(t *testing.T) {
		store := newFakeDeployStore()
		c := NewCorrelator(store, &fakeIncidentStore{severe: severe}, nil, time.Minute, true)

		e := productionDeploy(model.DeployStarted)
		e.Override = true
		require.NoError(t, c.RecordDeployment(context.Background(), e))
		assert.Len(t, store.events, 1)
	})

	t.Run("staging is never frozen", func(t *testing.T) {
		store := newFakeDeployStore()
		c := NewCorrelator(store, &fakeIncidentStore{severe: severe}, nil, time.Minute, true)

		e := productionDeploy(model.DeployStarted)
		e.Environment = "staging"
		require.NoError(t, c.RecordDeployment(context.Background(), e))
	})

	t.Run("freeze disabled by config", func(t *testing.T) {
		store := newFakeDeployStore()
		c := NewCorrelator(store, &fakeIncidentStore{severe: severe}, nil, time.Minute, false)

		require.NoError(t, c.RecordDeployment(context.Background(), productionDeploy(model.DeployStarted)))
	})

	t.Run("no severe incident means no freeze", func(t *testing.T) {
		store := newFakeDeployStore()
		c := NewCorrelator(store, &fakeIncidentStore{}, nil, time.Minute, true)

		require.NoError(t, c.RecordDeployment(context.Background(), productionDeploy(model.DeployStarted)))
	})
}

func TestRecordDeploymentValidation(t *testing.T) {
	c := NewCorrelator(newFakeDeployStore(), &fakeIncidentStore{}, nil, time.Minute, true)

	cases := []struct {
		name  string
		event *model.DeploymentEvent
	}{
		{"missing service", &model.DeploymentEvent{Environment: "production", Status: model.DeployStarted}},
		{"missing environment", &model.DeploymentEvent{Service: "checkout", Status: model.DeployStarted}},
		{"bad status", &model.DeploymentEvent{Service: "checkout", Environment: "production", Status: "done"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := c.RecordDeployment(context.Background(), tc.event)
			var v *errs.ValidationError
			require.ErrorAs(t, err, &v)
		})
	}
}

func TestRecordDeploymentSchedulesAutoCorrelation(t *testing.T) {
	t.Run("terminal status enqueues a delayed job", func(t *testing.T) {
		enq := &capturedEnqueue{}
		c := NewCorrelator(newFakeDeployStore(), &fakeIncidentStore{}, enq, 5*time.Minute, false)

		e := productionDeploy(model.DeployCompleted)
		require.NoError(t, c.RecordDeployment(context.Background(), e))

		require.Equal(t, 1, enq.calls)
		assert.Equal(t, AutoCorrelateQueue, enq.queueName)
		require.NotNil(t, enq.opts)
		assert.Equal(t, 5*time.Minute, enq.opts.Delay)
		payload, ok := enq.payload.(map[string]string)
		require.True(t, ok)
		assert.Equal(t, e.ID, payload["deploymentId"])
	})

	t.Run("non-terminal status does not", func(t *testing.T) {
		enq := &capturedEnqueue{}
		c := NewCorrelator(newFakeDeployStore(), &fakeIncidentStore{}, enq, 5*time.Minute, false)

		require.NoError(t, c.RecordDeployment(context.Background(), productionDeploy(model.DeployInProgress)))
		assert.Zero(t, enq.calls)
	})
}

func TestLinkIncident(t *testing.T) {
	setup := func() (*fakeDeployStore, *fakeIncidentStore, *Correlator) {
		store := newFakeDeployStore()
		store.events["dep-1"] = &model.DeploymentEvent{ID: "dep-1", OrgID: "org-1"}
		incidents := &fakeIncidentStore{incidents: map[string]*statusmodel.Incident{
			"inc-1": {ID: "inc-1", OrgID: "org-1"},
			"inc-x": {ID: "inc-x", OrgID: "org-other"},
		}}
		return store, incidents, NewCorrelator(store, incidents, nil, time.Minute, false)
	}

	t.Run("manual link carries no confidence", func(t *testing.T) {
		_, _, c := setup()
		link, err := c.LinkIncident(context.Background(), "org-1", "dep-1", "inc-1")
		require.NoError(t, err)
		assert.Equal(t, model.CorrelationManual, link.Type)
		assert.Nil(t, link.Confidence)
	})

	t.Run("duplicate link conflicts", func(t *testing.T) {
		_, _, c := setup()
		_, err := c.LinkIncident(context.Background(), "org-1", "dep-1", "inc-1")
		require.NoError(t, err)

		_, err = c.LinkIncident(context.Background(), "org-1", "dep-1", "inc-1")
		var conflict *errs.ConflictError
		require.ErrorAs(t, err, &conflict)
	})

	t.Run("cross-org incident reads as NotFound", func(t *testing.T) {
		_, _, c := setup()
		_, err := c.LinkIncident(context.Background(), "org-1", "dep-1", "inc-x")
		var nf *errs.NotFoundError
		require.ErrorAs(t, err, &nf)
	})

	t.Run("cross-org deployment reads as NotFound", func(t *testing.T) {
		_, _, c := setup()
		_, err := c.LinkIncident(context.Background(), "org-other", "dep-1", "inc-x")
		var nf *errs.NotFoundError
		require.ErrorAs(t, err, &nf)
	})
}

func TestTimeline(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeDeployStore()
	store.events["dep-1"] = &model.DeploymentEvent{
		ID: "dep-1", OrgID: "org-1", Service: "checkout", Version: "v2",
		Status: model.DeployCompleted, DeployedAt: now.Add(-time.Hour),
	}
	store.events["dep-2"] = &model.DeploymentEvent{
		ID: "dep-2", OrgID: "org-1", Service: "search", Version: "v9",
		Status: model.DeployFailed, DeployedAt: now.Add(-3 * time.Hour),
	}
	incidents := &fakeIncidentStore{window: []statusmodel.Incident{
		{ID: "inc-1", OrgID: "org-1", Title: "checkout errors", Severity: statusmodel.SeverityMajor,
			Status: statusmodel.IncidentResolved, StartedAt: now.Add(-2 * time.Hour)},
	}}
	c := NewCorrelator(store, incidents, nil, time.Minute, false)

	entries, err := c.Timeline(context.Background(), "org-1", 24*time.Hour, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "dep-1", entries[0].ID)
	assert.Equal(t, "inc-1", entries[1].ID)
	assert.Equal(t, "dep-2", entries[2].ID)
	assert.Equal(t, model.TimelineIncident, entries[1].Kind)
	assert.Equal(t, "major", entries[1].Severity)

	t.Run("window out of range", func(t *testing.T) {
		_, err := c.Timeline(context.Background(), "org-1", 0, 0)
		var v *errs.ValidationError
		require.ErrorAs(t, err, &v)

		_, err = c.Timeline(context.Background(), "org-1", 31*24*time.Hour, 0)
		require.ErrorAs(t, err, &v)
	})
}
