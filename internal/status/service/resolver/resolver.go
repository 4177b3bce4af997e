package resolver

import (
	"github.com/statuskeep/statuskeep/internal/status/model"
)

// ResolvePage folds monitor statuses and active incidents into the page-level
// status.
//
// Monitors first: all paused means maintenance; otherwise every non-paused
// monitor down means major_outage, any down means partial_outage, any
// degraded means degraded, else operational. Incidents then only escalate:
// critical forces major_outage, major raises to at least partial_outage, and
// minor lifts operational to degraded without overriding outage states.
func ResolvePage(monitors []model.Monitor, incidents []model.Incident) model.PageStatus {
	page := resolveMonitors(monitors)

	for _, inc := range incidents {
		if !inc.Active() {
			continue
		}
		switch inc.Severity {
		case model.SeverityCritical:
			page = model.PageMajorOutage
		case model.SeverityMajor:
			if page != model.PageMajorOutage {
				page = model.PagePartialOutage
			}
		case model.SeverityMinor:
			if page == model.PageOperational {
				page = model.PageDegraded
			}
		}
	}
	return page
}

func resolveMonitors(monitors []model.Monitor) model.PageStatus {
	if len(monitors) == 0 {
		return model.PageOperational
	}

	nonPaused, down, degraded := 0, 0, 0
	for _, m := range monitors {
		if m.Status == model.MonitorPaused {
			continue
		}
		nonPaused++
		switch m.Status {
		case model.MonitorDown:
			down++
		case model.MonitorDegraded:
			degraded++
		}
	}

	switch {
	case nonPaused == 0:
		return model.PageMaintenance
	case down == nonPaused:
		return model.PageMajorOutage
	case down > 0:
		return model.PagePartialOutage
	case degraded > 0:
		return model.PageDegraded
	default:
		return model.PageOperational
	}
}

// impactEffect is the fixed provider-status to monitor-status mapping.
// Operational and unknown have no effect.
var impactEffect = map[model.ProviderStatus]model.MonitorStatus{
	model.ProviderDegraded:      model.MonitorDegraded,
	model.ProviderPartialOutage: model.MonitorDegraded,
	model.ProviderMajorOutage:   model.MonitorDown,
	model.ProviderMaintenance:   model.MonitorPaused,
}

// EffectiveStatus returns the higher-severity of the monitor's own status and
// the worst mapped provider impact affecting it. Independent of the
// page-level fold.
func EffectiveStatus(m *model.Monitor, impacts []model.ProviderImpact) model.MonitorStatus {
	effective := m.Status
	for _, impact := range impacts {
		mapped, ok := impactEffect[impact.Status]
		if !ok {
			continue
		}
		for _, id := range impact.MonitorIDs {
			if id == m.ID {
				effective = effective.Worse(mapped)
				break
			}
		}
	}
	return effective
}
