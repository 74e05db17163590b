package handler

import (
	"errors"
	"net/http"

	"crossmarket/internal/query"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// ListQueries godoc
// @Summary      List the query catalog
// @Description  Returns the fixed catalog of analytical queries, optionally filtered by category
// @Tags         queries
// @Produce      json
// @Param        category  query  string  false  "Catalog category (crypto_assets, crypto_prices, oil_prices, index_prices, cross_market)"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/queries [get]
func (h *Handler) ListQueries(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.list-queries")
	defer span.End()

	category := c.Query("category")
	definitions := h.queryService.Catalog(category)

	c.JSON(http.StatusOK, gin.H{
		"categories": query.Categories(),
		"queries":    definitions,
	})
}

// RunQuery godoc
// @Summary      Run a catalog query
// @Description  Executes one named query from the catalog with the given parameters
// @Tags         queries
// @Accept       json
// @Produce      json
// @Param        name    path  string             true   "Catalog query name"
// @Param        params  body  map[string]string  false  "Query parameters"
// @Success      200  {object}  query.Result
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/queries/{name} [post]
func (h *Handler) RunQuery(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.run-query")
	defer span.End()

	name := c.Param("name")
	span.SetAttributes(attribute.String("query", name))

	params := map[string]string{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&params); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}

	result, err := h.queryService.Run(ctx, name, params)
	if err != nil {
		if query.IsInvalidRequest(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, query.ErrStoreUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
