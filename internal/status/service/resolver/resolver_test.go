package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/statuskeep/statuskeep/internal/status/model"
)

func monitorsWith(statuses ...model.MonitorStatus) []model.Monitor {
	out := make([]model.Monitor, 0, len(statuses))
	for i, s := range statuses {
		out = append(out, model.Monitor{ID: string(rune('a' + i)), Status: s})
	}
	return out
}

func activeIncident(severity model.IncidentSeverity) model.Incident {
	return model.Incident{ID: "inc-1", Severity: severity, Status: model.IncidentInvestigating}
}

func TestResolvePageMonitorFold(t *testing.T) {
	cases := []struct {
		name     string
		statuses []model.MonitorStatus
		want     model.PageStatus
	}{
		{"no monitors", nil, model.PageOperational},
		{"all healthy", []model.MonitorStatus{model.MonitorActive, model.MonitorActive}, model.PageOperational},
		{"pending counts as healthy", []model.MonitorStatus{model.MonitorPending}, model.PageOperational},
		{"one degraded", []model.MonitorStatus{model.MonitorActive, model.MonitorDegraded}, model.PageDegraded},
		{"one down of three", []model.MonitorStatus{model.MonitorDown, model.MonitorActive, model.MonitorActive}, model.PagePartialOutage},
		{"down beats degraded", []model.MonitorStatus{model.MonitorDown, model.MonitorDegraded}, model.PagePartialOutage},
		{"every non-paused down", []model.MonitorStatus{model.MonitorDown, model.MonitorDown, model.MonitorPaused}, model.PageMajorOutage},
		{"all paused", []model.MonitorStatus{model.MonitorPaused, model.MonitorPaused}, model.PageMaintenance},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolvePage(monitorsWith(tc.statuses...), nil))
		})
	}
}

func TestResolvePageIncidentEscalation(t *testing.T) {
	healthy := monitorsWith(model.MonitorActive, model.MonitorActive)
	partial := monitorsWith(model.MonitorDown, model.MonitorActive)
	allDown := monitorsWith(model.MonitorDown, model.MonitorDown)

	t.Run("critical forces major outage", func(t *testing.T) {
		got := ResolvePage(healthy, []model.Incident{activeIncident(model.SeverityCritical)})
		assert.Equal(t, model.PageMajorOutage, got)
	})

	t.Run("major raises to at least partial outage", func(t *testing.T) {
		got := ResolvePage(healthy, []model.Incident{activeIncident(model.SeverityMajor)})
		assert.Equal(t, model.PagePartialOutage, got)
	})

	t.Run("major never lowers major outage", func(t *testing.T) {
		got := ResolvePage(allDown, []model.Incident{activeIncident(model.SeverityMajor)})
		assert.Equal(t, model.PageMajorOutage, got)
	})

	t.Run("minor lifts operational to degraded", func(t *testing.T) {
		got := ResolvePage(healthy, []model.Incident{activeIncident(model.SeverityMinor)})
		assert.Equal(t, model.PageDegraded, got)
	})

	t.Run("minor leaves partial outage alone", func(t *testing.T) {
		got := ResolvePage(partial, []model.Incident{activeIncident(model.SeverityMinor)})
		assert.Equal(t, model.PagePartialOutage, got)
	})

	t.Run("resolved incidents are ignored", func(t *testing.T) {
		inc := activeIncident(model.SeverityCritical)
		inc.Status = model.IncidentResolved
		got := ResolvePage(healthy, []model.Incident{inc})
		assert.Equal(t, model.PageOperational, got)
	})
}

func TestEffectiveStatus(t *testing.T) {
	m := &model.Monitor{ID: "mon-1", Status: model.MonitorActive}
	impactOn := func(s model.ProviderStatus, ids ...string) model.ProviderImpact {
		return model.ProviderImpact{ProviderID: "aws", Status: s, MonitorIDs: ids}
	}

	cases := []struct {
		name   string
		status model.ProviderStatus
		want   model.MonitorStatus
	}{
		{"degraded provider", model.ProviderDegraded, model.MonitorDegraded},
		{"partial outage maps to degraded", model.ProviderPartialOutage, model.MonitorDegraded},
		{"major outage maps to down", model.ProviderMajorOutage, model.MonitorDown},
		{"operational has no effect", model.ProviderOperational, model.MonitorActive},
		{"unknown has no effect", model.ProviderUnknown, model.MonitorActive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EffectiveStatus(m, []model.ProviderImpact{impactOn(tc.status, "mon-1")})
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("impact on another monitor is ignored", func(t *testing.T) {
		got := EffectiveStatus(m, []model.ProviderImpact{impactOn(model.ProviderMajorOutage, "mon-2")})
		assert.Equal(t, model.MonitorActive, got)
	})

	t.Run("own status wins when worse than impact", func(t *testing.T) {
		down := &model.Monitor{ID: "mon-1", Status: model.MonitorDown}
		got := EffectiveStatus(down, []model.ProviderImpact{impactOn(model.ProviderDegraded, "mon-1")})
		assert.Equal(t, model.MonitorDown, got)
	})

	t.Run("maintenance never worsens an active monitor", func(t *testing.T) {
		got := EffectiveStatus(m, []model.ProviderImpact{impactOn(model.ProviderMaintenance, "mon-1")})
		assert.Equal(t, model.MonitorActive, got)
	})
}
