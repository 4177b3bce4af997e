package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	dbmodel "github.com/statuskeep/statuskeep/internal/deploy/model"
	"github.com/statuskeep/statuskeep/internal/deploy/service"
	"github.com/statuskeep/statuskeep/internal/errs"
)

// WebhookStore resolves a webhook id to its org and optional secret.
type WebhookStore interface {
	GetWebhook(ctx context.Context, id string) (*dbmodel.Webhook, error)
}

type Api struct {
	correlator *service.Correlator
	webhooks   WebhookStore
}

func New(router *gin.Engine, correlator *service.Correlator, webhooks WebhookStore) *Api {
	api := &Api{correlator: correlator, webhooks: webhooks}
	api.setupRouters(router)
	return api
}

func (api *Api) setupRouters(router *gin.Engine) {
	router.POST("/webhook/:webhookId/events", api.ReceiveEvent)
	router.POST("/v1/deployments/:deploymentId/correlations", api.LinkIncident)
	router.GET("/v1/orgs/:orgId/timeline", api.Timeline)
}

type eventRequest struct {
	Service     string   `json:"service"`
	Environment string   `json:"environment"`
	Status      string   `json:"status"`
	Version     string   `json:"version"`
	MonitorIDs  []string `json:"affectedMonitorIds"`
	Override    bool     `json:"override"`
	DeployedAt  string   `json:"deployedAt"`
}

func (api *Api) ReceiveEvent(c *gin.Context) {
	webhook, err := api.webhooks.GetWebhook(c.Request.Context(), c.Param("webhookId"))
	if err != nil {
		errs.WriteError(c, err)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		errs.WriteError(c, errs.Validation("body", "unreadable body"))
		return
	}
	if err := service.VerifySignature(webhook.Secret, body, c.GetHeader("X-Signature-256")); err != nil {
		errs.WriteError(c, err)
		return
	}

	var req eventRequest
	if err := json.Unmarshal(body, &req); err != nil {
		errs.WriteError(c, errs.Validation("body", "invalid JSON"))
		return
	}

	event := &dbmodel.DeploymentEvent{
		OrgID:       webhook.OrgID,
		Service:     req.Service,
		Environment: req.Environment,
		Status:      dbmodel.DeployStatus(req.Status),
		Version:     req.Version,
		MonitorIDs:  req.MonitorIDs,
		Override:    req.Override,
	}
	if req.DeployedAt != "" {
		t, perr := time.Parse(time.RFC3339, req.DeployedAt)
		if perr != nil {
			errs.WriteError(c, errs.Validation("deployedAt", "must be RFC3339"))
			return
		}
		event.DeployedAt = t
	}

	if err := api.correlator.RecordDeployment(c.Request.Context(), event); err != nil {
		errs.WriteError(c, err)
		return
	}
	log.Info().Str("deployment", event.ID).Str("service", event.Service).Str("environment", event.Environment).Msg("deployment event recorded")
	c.JSON(http.StatusCreated, gin.H{"id": event.ID, "status": event.Status})
}

type linkRequest struct {
	OrgID      string `json:"orgId"`
	IncidentID string `json:"incidentId"`
}

func (api *Api) LinkIncident(c *gin.Context) {
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs.WriteError(c, errs.Validation("body", "invalid JSON"))
		return
	}
	if req.IncidentID == "" {
		errs.WriteError(c, errs.Validation("incidentId", "required"))
		return
	}
	link, err := api.correlator.LinkIncident(c.Request.Context(), req.OrgID, c.Param("deploymentId"), req.IncidentID)
	if err != nil {
		errs.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

func (api *Api) Timeline(c *gin.Context) {
	hours := 24
	if raw := c.Query("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs.WriteError(c, errs.Validation("hours", "must be an integer"))
			return
		}
		hours = n
	}
	entries, err := api.correlator.Timeline(c.Request.Context(), c.Param("orgId"), time.Duration(hours)*time.Hour, 0)
	if err != nil {
		errs.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timeline": entries})
}
