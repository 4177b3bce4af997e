package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/statuskeep/statuskeep/internal/errs"
	"github.com/statuskeep/statuskeep/internal/probe/model"
	"github.com/statuskeep/statuskeep/internal/probe/service"
)

const probeContextKey = "authedProbe"

type Api struct {
	coordinator *service.Coordinator
}

func New(router *gin.Engine, coordinator *service.Coordinator) *Api {
	api := &Api{coordinator: coordinator}
	api.setupRouters(router)
	return api
}

func (api *Api) setupRouters(router *gin.Engine) {
	router.POST("/v1/probes", api.Register)

	agent := router.Group("/agent", api.requireProbe)
	agent.POST("/heartbeat", api.Heartbeat)
	agent.GET("/jobs", api.PullJobs)
	agent.POST("/jobs/:jobId/result", api.SubmitResult)
}

// requireProbe resolves the bearer token to a probe and stores it on the
// context. All /agent routes run behind it.
func (api *Api) requireProbe(c *gin.Context) {
	p, err := api.coordinator.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
	if err != nil {
		errs.WriteError(c, err)
		c.Abort()
		return
	}
	c.Set(probeContextKey, p)
	c.Next()
}

func probeFrom(c *gin.Context) *model.Probe {
	v, _ := c.Get(probeContextKey)
	p, _ := v.(*model.Probe)
	return p
}

type registerRequest struct {
	OrgID  string `json:"orgId"`
	Name   string `json:"name"`
	Region string `json:"region"`
}

func (api *Api) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs.WriteError(c, errs.Validation("body", "invalid JSON"))
		return
	}
	p, secret, err := api.coordinator.Register(c.Request.Context(), req.OrgID, req.Name, req.Region)
	if err != nil {
		errs.WriteError(c, err)
		return
	}
	log.Info().Str("probe", p.ID).Str("region", p.Region).Msg("probe registered")
	// The token appears in this response and nowhere else, ever.
	c.JSON(http.StatusCreated, gin.H{
		"id":     p.ID,
		"region": p.Region,
		"status": p.Status,
		"token":  secret,
	})
}

type heartbeatRequest struct {
	Metrics  map[string]any `json:"metrics"`
	Version  string         `json:"version"`
	Metadata map[string]any `json:"metadata"`
}

func (api *Api) Heartbeat(c *gin.Context) {
	p := probeFrom(c)
	var req heartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs.WriteError(c, errs.Validation("body", "invalid JSON"))
		return
	}
	sample, err := api.coordinator.Heartbeat(c.Request.Context(), p, &service.HeartbeatRequest{
		Metrics:  rawJSON(req.Metrics),
		Metadata: rawJSON(req.Metadata),
		Version:  req.Version,
		SourceIP: c.ClientIP(),
	})
	if err != nil {
		errs.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"heartbeatId": sample.ID,
		"timestamp":   sample.ReceivedAt,
	})
}

func (api *Api) PullJobs(c *gin.Context) {
	p := probeFrom(c)
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			errs.WriteError(c, errs.Validation("limit", "must be a positive integer"))
			return
		}
		limit = n
	}
	jobs, err := api.coordinator.PullJobs(c.Request.Context(), p, limit)
	if err != nil {
		errs.WriteError(c, err)
		return
	}
	out := make([]gin.H, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, gin.H{
			"id":        j.ID,
			"monitorId": j.MonitorID,
			"jobData":   j.Payload,
			"expiresAt": j.ExpiresAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"jobs": out})
}

func (api *Api) SubmitResult(c *gin.Context) {
	p := probeFrom(c)
	var req service.SubmitResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs.WriteError(c, errs.Validation("body", "invalid JSON"))
		return
	}
	outcome, err := api.coordinator.SubmitResult(c.Request.Context(), p, c.Param("jobId"), &req)
	if err != nil {
		errs.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"resultId":  outcome.Result.ID,
		"processed": true,
	})
}

func rawJSON(m map[string]any) []byte {
	if len(m) == 0 {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return b
}
