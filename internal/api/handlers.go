// internal/api/handlers.go
package api

import (
	"context"
	"net/http"

	"agrocredit-workers/internal/common/camunda"
	"agrocredit-workers/internal/common/errors"
	"agrocredit-workers/internal/common/logger"
	"agrocredit-workers/internal/pipeline"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Enqueuer starts the pipeline process asynchronously.
type Enqueuer interface {
	StartPipeline(ctx context.Context, operationID, stage string) (int64, error)
}

// Handler exposes the scoring and matching stages over HTTP.
type Handler struct {
	runner   pipeline.Runner
	enqueuer Enqueuer
	log      logger.Logger
}

// NewHandler creates a handler. A nil enqueuer disables ?async=true.
func NewHandler(runner pipeline.Runner, enqueuer Enqueuer, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Handler{runner: runner, enqueuer: enqueuer, log: log}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	scoring := r.Group("/scoring", operationIDParam())
	scoring.POST("/:operationId", h.CalculateScore)
	scoring.GET("/:operationId", h.GetScore)

	matching := r.Group("/matching", operationIDParam())
	matching.POST("/:operationId", h.RunMatch)
	matching.GET("/:operationId", h.GetMatches)
}

// CalculateScore handles POST /api/v1/scoring/:operationId
func (h *Handler) CalculateScore(c *gin.Context) {
	operationID := c.Param("operationId")
	if isAsync(c) {
		h.enqueue(c, operationID, camunda.StageScoring)
		return
	}

	score, err := h.runner.CalculateScore(c.Request.Context(), operationID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, score)
}

// GetScore handles GET /api/v1/scoring/:operationId
func (h *Handler) GetScore(c *gin.Context) {
	score, err := h.runner.GetScore(c.Request.Context(), c.Param("operationId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, score)
}

// RunMatch handles POST /api/v1/matching/:operationId
func (h *Handler) RunMatch(c *gin.Context) {
	operationID := c.Param("operationId")
	if isAsync(c) {
		h.enqueue(c, operationID, camunda.StageMatching)
		return
	}

	run, err := h.runner.RunMatch(c.Request.Context(), operationID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// GetMatches handles GET /api/v1/matching/:operationId
func (h *Handler) GetMatches(c *gin.Context) {
	operationID := c.Param("operationId")
	matches, err := h.runner.GetMatches(c.Request.Context(), operationID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"operationId": operationID,
		"matches":     matches,
		"count":       len(matches),
	})
}

func (h *Handler) enqueue(c *gin.Context, operationID, stage string) {
	if h.enqueuer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "ASYNC_UNAVAILABLE",
			"message": "asynchronous processing is not configured",
		})
		return
	}

	key, err := h.enqueuer.StartPipeline(c.Request.Context(), operationID, stage)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"operationId":        operationID,
		"stage":              stage,
		"processInstanceKey": key,
	})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	stdErr := errors.Normalize(err)

	status := http.StatusInternalServerError
	switch {
	case errors.IsNotFound(stdErr):
		status = http.StatusNotFound
	case stdErr.Code == errors.ErrCodeEnqueueFailed:
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", map[string]interface{}{
			"path":        c.FullPath(),
			"operationId": c.Param("operationId"),
			"code":        string(stdErr.Code),
			"error":       stdErr.Error(),
		})
	}

	c.JSON(status, gin.H{
		"error":   string(stdErr.Code),
		"message": stdErr.Message,
	})
}

func isAsync(c *gin.Context) bool {
	return c.Query("async") == "true"
}

// operationIDParam rejects operation ids that are not UUIDs.
func operationIDParam() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("operationId")
		if _, err := uuid.Parse(id); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "INVALID_OPERATION_ID",
				"message": "operationId must be a UUID",
			})
			return
		}
		c.Next()
	}
}
