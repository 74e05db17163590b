package handler

import (
	"crossmarket/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	tracer          trace.Tracer
	queryService    *service.QueryService
	pipelineService *service.PipelineService
	apiKey          string
}

func New(tracer trace.Tracer, queryService *service.QueryService, pipelineService *service.PipelineService, apiKey string) *Handler {
	return &Handler{
		tracer:          tracer,
		queryService:    queryService,
		pipelineService: pipelineService,
		apiKey:          apiKey,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/api/queries", h.ListQueries)
	r.POST("/api/queries/:name", h.RunQuery)
	r.GET("/api/report", h.GetReport)
	r.POST("/api/pipeline/run", APIKeyAuth(h.apiKey), h.TriggerPipeline)
}
