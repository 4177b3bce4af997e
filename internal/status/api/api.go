package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/statuskeep/statuskeep/internal/errs"
	"github.com/statuskeep/statuskeep/internal/status/model"
	"github.com/statuskeep/statuskeep/internal/status/service/aggregator"
	"github.com/statuskeep/statuskeep/internal/status/service/normalizer"
	"github.com/statuskeep/statuskeep/internal/status/service/resolver"
)

// Store is the status repository surface the read and control endpoints use.
type Store interface {
	GetMonitor(ctx context.Context, id string) (*model.Monitor, error)
	ListMonitorsByOrg(ctx context.Context, orgID string) ([]model.Monitor, error)
	ListActiveIncidents(ctx context.Context, orgID string) ([]model.Incident, error)
	ListImpactsForOrg(ctx context.Context, orgID string) ([]model.ProviderImpact, error)
	PauseMonitor(ctx context.Context, id string) error
	ResumeMonitor(ctx context.Context, id string) error
	AddDependency(ctx context.Context, monitorID, dependsOnID string) error
	ListDependencies(ctx context.Context, monitorID string) ([]model.MonitorDependency, error)
	GetIncident(ctx context.Context, id string) (*model.Incident, error)
	LinkResultsToIncident(ctx context.Context, monitorID, incidentID string, from, to time.Time) (int64, error)
}

type Api struct {
	store      Store
	aggregator *aggregator.Aggregator
	normalizer *normalizer.Normalizer
}

func New(router *gin.Engine, store Store, agg *aggregator.Aggregator, n *normalizer.Normalizer) *Api {
	api := &Api{store: store, aggregator: agg, normalizer: n}
	api.setupRouters(router)
	return api
}

func (api *Api) setupRouters(router *gin.Engine) {
	router.GET("/v1/monitors/:monitorId/uptime", api.Uptime)
	router.POST("/v1/monitors/:monitorId/pause", api.Pause)
	router.POST("/v1/monitors/:monitorId/resume", api.Resume)
	router.POST("/v1/monitors/:monitorId/dependencies", api.AddDependency)
	router.GET("/v1/monitors/:monitorId/dependencies", api.ListDependencies)
	router.GET("/v1/orgs/:orgId/status", api.OverallStatus)
	router.POST("/v1/incidents/:incidentId/link-results", api.LinkIncidentResults)
	router.POST("/v1/ingest/push/:monitorId", api.PushIngest)
	router.POST("/v1/ingest/scheduled", api.ScheduledIngest)
}

// LinkIncidentResults retroactively stamps the incident id onto check
// results of the affected monitors within the incident's lifetime.
func (api *Api) LinkIncidentResults(c *gin.Context) {
	ctx := c.Request.Context()
	incident, err := api.store.GetIncident(ctx, c.Param("incidentId"))
	if err != nil {
		errs.WriteError(c, err)
		return
	}
	to := time.Now().UTC()
	if incident.ResolvedAt != nil {
		to = *incident.ResolvedAt
	}
	var linked int64
	for _, monitorID := range incident.MonitorIDs {
		n, err := api.store.LinkResultsToIncident(ctx, monitorID, incident.ID, incident.StartedAt, to)
		if err != nil {
			errs.WriteError(c, err)
			return
		}
		linked += n
	}
	c.JSON(http.StatusOK, gin.H{"linked": linked})
}

func (api *Api) Uptime(c *gin.Context) {
	days := 7
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs.WriteError(c, errs.Validation("days", "must be an integer"))
			return
		}
		days = n
	}
	monitor, err := api.store.GetMonitor(c.Request.Context(), c.Param("monitorId"))
	if err != nil {
		errs.WriteError(c, err)
		return
	}
	series, err := api.aggregator.UptimeSeries(c.Request.Context(), monitor, days)
	if err != nil {
		errs.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

func (api *Api) OverallStatus(c *gin.Context) {
	ctx := c.Request.Context()
	orgID := c.Param("orgId")

	monitors, err := api.store.ListMonitorsByOrg(ctx, orgID)
	if err != nil {
		errs.WriteError(c, err)
		return
	}
	incidents, err := api.store.ListActiveIncidents(ctx, orgID)
	if err != nil {
		errs.WriteError(c, err)
		return
	}
	impacts, err := api.store.ListImpactsForOrg(ctx, orgID)
	if err != nil {
		errs.WriteError(c, err)
		return
	}

	page := resolver.ResolvePage(monitors, incidents)
	monitorStatuses := make([]gin.H, 0, len(monitors))
	for i := range monitors {
		m := &monitors[i]
		monitorStatuses = append(monitorStatuses, gin.H{
			"id":              m.ID,
			"name":            m.Name,
			"status":          m.Status,
			"effectiveStatus": resolver.EffectiveStatus(m, impacts),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   page,
		"monitors": monitorStatuses,
	})
}

func (api *Api) Pause(c *gin.Context) {
	if err := api.store.PauseMonitor(c.Request.Context(), c.Param("monitorId")); err != nil {
		errs.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": model.MonitorPaused})
}

func (api *Api) Resume(c *gin.Context) {
	if err := api.store.ResumeMonitor(c.Request.Context(), c.Param("monitorId")); err != nil {
		errs.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": model.MonitorPending})
}

type dependencyRequest struct {
	DependsOnID string `json:"dependsOnId"`
}

func (api *Api) AddDependency(c *gin.Context) {
	var req dependencyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.DependsOnID == "" {
		errs.WriteError(c, errs.Validation("dependsOnId", "required"))
		return
	}
	if err := api.store.AddDependency(c.Request.Context(), c.Param("monitorId"), req.DependsOnID); err != nil {
		errs.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true})
}

func (api *Api) ListDependencies(c *gin.Context) {
	deps, err := api.store.ListDependencies(c.Request.Context(), c.Param("monitorId"))
	if err != nil {
		errs.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dependencies": deps})
}

type pushRequest struct {
	State          string             `json:"state"`
	Status         string             `json:"status"`
	ResponseTimeMs int                `json:"responseTimeMs"`
	Metrics        map[string]float64 `json:"metrics"`
	Metadata       map[string]string  `json:"metadata"`
}

// PushIngest accepts either a JSON sample or a Prometheus text exposition
// body, keyed by Content-Type.
func (api *Api) PushIngest(c *gin.Context) {
	monitorID := c.Param("monitorId")

	var sample *normalizer.PushSample
	if strings.HasPrefix(c.ContentType(), "text/plain") {
		parsed, err := normalizer.ParseExposition(monitorID, c.Request.Body)
		if err != nil {
			errs.WriteError(c, err)
			return
		}
		sample = parsed
	} else {
		var req pushRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errs.WriteError(c, errs.Validation("body", "invalid JSON"))
			return
		}
		sample = &normalizer.PushSample{
			MonitorID:      monitorID,
			State:          model.PingState(req.State),
			Status:         model.ResultStatus(req.Status),
			ResponseTimeMs: req.ResponseTimeMs,
			Metrics:        req.Metrics,
			Metadata:       req.Metadata,
		}
	}

	outcome, err := api.normalizer.Normalize(c.Request.Context(), sample)
	if err != nil {
		errs.WriteError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"resultId":      outcome.Result.ID,
		"monitorStatus": outcome.MonitorStatus,
	})
}

type scheduledRequest struct {
	MonitorID      string            `json:"monitorId"`
	Region         string            `json:"region"`
	Status         string            `json:"status"`
	ResponseTimeMs int               `json:"responseTimeMs"`
	StatusCode     int               `json:"statusCode"`
	Message        string            `json:"message"`
	Metadata       map[string]string `json:"metadata"`
	CheckedAt      time.Time         `json:"checkedAt"`
}

// ScheduledIngest is the internal endpoint the central check runner reports
// back through.
func (api *Api) ScheduledIngest(c *gin.Context) {
	var req scheduledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs.WriteError(c, errs.Validation("body", "invalid JSON"))
		return
	}
	outcome, err := api.normalizer.Normalize(c.Request.Context(), &normalizer.ScheduledResult{
		MonitorID:      req.MonitorID,
		Region:         req.Region,
		Status:         model.ResultStatus(req.Status),
		ResponseTimeMs: req.ResponseTimeMs,
		StatusCode:     req.StatusCode,
		Message:        req.Message,
		Metadata:       req.Metadata,
		CheckedAt:      req.CheckedAt,
	})
	if err != nil {
		errs.WriteError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"resultId":      outcome.Result.ID,
		"monitorStatus": outcome.MonitorStatus,
	})
}
