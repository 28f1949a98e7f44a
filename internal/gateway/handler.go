package gateway

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"netgate/internal/constants"
	"netgate/internal/event"
	"netgate/internal/logger"
	"netgate/pkg/errors"
	"netgate/pkg/health"
)

type BaseHandler struct {
	Logger logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

type Handler struct {
	BaseHandler
	service *Service
	store   DecisionStore
	health  *health.CheckerRegistry
}

func NewHandler(service *Service, store DecisionStore, registry *health.CheckerRegistry, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: BaseHandler{Logger: log},
		service:     service,
		store:       store,
		health:      registry,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.Index)
	router.GET("/healthz", h.Healthz)
	router.POST("/webhook", h.Webhook)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/decisions", h.RecentDecisions)
	}
}

// Webhook ingests one inventory change event. The response is an
// acknowledgment of receipt: suppressed and forwarded events both answer 200,
// only payloads the gateway cannot parse are rejected.
func (h *Handler) Webhook(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		h.HandleError(c, errors.ErrInput.WithCause(err))
		return
	}

	ev, err := event.Parse(raw)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	decision := h.service.Process(c.Request.Context(), ev)

	c.JSON(http.StatusOK, gin.H{
		"status":      "received",
		"decision_id": decision.ID,
		"result":      decision.Result(),
		"reason":      decision.Reason,
	})
}

// RecentDecisions serves the newest decisions for operators, newest first.
func (h *Handler) RecentDecisions(c *gin.Context) {
	limit := constants.DefaultDecisionLimit
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, errors.ToErrorResponse(
				errors.ErrValidation.WithDetail("message", "limit must be a positive integer")))
			return
		}
		limit = parsed
	}
	if limit > constants.MaxDecisionLimit {
		limit = constants.MaxDecisionLimit
	}

	decisions, err := h.store.Recent(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":     len(decisions),
		"decisions": decisions,
	})
}

func (h *Handler) Healthz(c *gin.Context) {
	if h.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": string(health.StatusHealthy)})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), constants.HealthCheckTimeout)
	defer cancel()

	result := h.health.Check(ctx)
	status := http.StatusOK
	if result.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, result)
}

func (h *Handler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "validation-gateway",
		"status":  "running",
		"endpoints": gin.H{
			"webhook":   "POST /webhook",
			"health":    "GET /healthz",
			"decisions": "GET /api/v1/decisions",
			"metrics":   "GET /metrics",
		},
	})
}
