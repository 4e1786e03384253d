package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	mem "wayfarer/pkg/memcache"
	"wayfarer/pkg/metrics"
	"wayfarer/pkg/utils"
)

type HealthController struct {
	sessions mem.SessionStore
	metrics  *metrics.Metrics
}

func NewHealthController(sessions mem.SessionStore, m *metrics.Metrics) *HealthController {
	return &HealthController{sessions: sessions, metrics: m}
}

func (h *HealthController) Healthz(c *gin.Context) {
	utils.RespondSuccess(c, gin.H{"sessions": h.sessions.Len()}, "ok")
}

func (h *HealthController) Metrics(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusNotFound)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}
