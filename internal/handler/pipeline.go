package handler

import (
	"errors"
	"net/http"

	"crossmarket/internal/service"

	"github.com/gin-gonic/gin"
)

// GetReport godoc
// @Summary      Last pipeline run report
// @Description  Returns the per-table outcome of the most recent ingestion run
// @Tags         pipeline
// @Produce      json
// @Success      200  {object}  service.RunReport
// @Failure      404  {object}  map[string]string
// @Router       /api/report [get]
func (h *Handler) GetReport(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-report")
	defer span.End()

	report := h.pipelineService.LastReport()
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no pipeline run has completed yet"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// TriggerPipeline godoc
// @Summary      Trigger an ingestion run
// @Description  Runs the full fetch-transform-load cycle and returns its report
// @Tags         pipeline
// @Produce      json
// @Success      200  {object}  service.RunReport
// @Failure      500  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/pipeline/run [post]
func (h *Handler) TriggerPipeline(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.trigger-pipeline")
	defer span.End()

	report, err := h.pipelineService.Run(ctx)
	if err != nil {
		if errors.Is(err, service.ErrStoreUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}
