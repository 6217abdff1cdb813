package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"catalog-service/internal/catalog"
	"catalog-service/internal/models"
	"catalog-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	catalog *catalog.Catalog
}

// NewHandler creates a new HTTP handler
func NewHandler(engine *catalog.Catalog) *Handler {
	return &Handler{
		catalog: engine,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/services", h.listServices)
		v1.POST("/services", h.createService)
		v1.GET("/services/stats", h.serviceStats)
		v1.GET("/services/export", h.exportServices)
		v1.POST("/services/bulk", h.bulkAction)
		v1.POST("/services/validate", h.validateDependencies)
		v1.POST("/services/settings/bulk", h.bulkUpdateSettings)
		v1.GET("/services/:id", h.getService)
		v1.PUT("/services/:id", h.updateService)
		v1.DELETE("/services/:id", h.deleteService)
		v1.POST("/services/:id/clone", h.cloneService)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// listServices handles filtered, paginated catalog listing
func (h *Handler) listServices(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 {
		limit = 20
	}

	q := models.ListQuery{
		Filters: models.ServiceFilters{
			Search:   c.Query("search"),
			Category: c.Query("category"),
			Featured: c.Query("featured"),
			Status:   c.Query("status"),
		},
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		Limit:     limit,
		Offset:    (page - 1) * limit,
	}

	result, err := h.catalog.List(c.Request.Context(), tenantFrom(c), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// getService handles get service by ID
func (h *Handler) getService(c *gin.Context) {
	svc, err := h.catalog.GetByID(c.Request.Context(), tenantFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, svc)
}

// createService handles service creation
func (h *Handler) createService(c *gin.Context) {
	var form catalog.ServiceFormData
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	svc, err := h.catalog.Create(c.Request.Context(), tenantFrom(c), &form, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, svc)
}

// updateService handles partial service updates
func (h *Handler) updateService(c *gin.Context) {
	var patch catalog.ServicePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	svc, err := h.catalog.Update(c.Request.Context(), tenantFrom(c), c.Param("id"), &patch, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, svc)
}

// deleteService handles soft deletion
func (h *Handler) deleteService(c *gin.Context) {
	if err := h.catalog.Delete(c.Request.Context(), tenantFrom(c), c.Param("id"), actorFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// cloneService handles cloning one service into a new draft
func (h *Handler) cloneService(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	svc, err := h.catalog.Clone(c.Request.Context(), req.Name, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, svc)
}

// bulkAction handles bulk operations over a set of services. Per-item
// failures ride inside a 200 response.
func (h *Handler) bulkAction(c *gin.Context) {
	var req catalog.BulkActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	if req.Action == "" || len(req.ServiceIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "action and service_ids are required",
		})
		return
	}

	result, err := h.catalog.PerformBulkAction(c.Request.Context(), tenantFrom(c), req, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// bulkUpdateSettings handles per-record settings merges
func (h *Handler) bulkUpdateSettings(c *gin.Context) {
	var req struct {
		Updates []catalog.SettingsUpdate `json:"updates" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	result, err := h.catalog.BulkUpdateSettings(c.Request.Context(), tenantFrom(c), req.Updates)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// serviceStats handles the aggregated dashboard payload
func (h *Handler) serviceStats(c *gin.Context) {
	stats, err := h.catalog.Stats(c.Request.Context(), tenantFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// exportServices handles CSV/JSON catalog export
func (h *Handler) exportServices(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	includeInactive := c.Query("include_inactive") == "true"

	body, contentType, err := h.catalog.Export(c.Request.Context(), tenantFrom(c), format, includeInactive)
	if err != nil {
		respondError(c, err)
		return
	}

	if format == "csv" {
		c.Header("Content-Disposition", `attachment; filename="services.csv"`)
	}
	c.Data(http.StatusOK, contentType, body)
}

// validateDependencies checks a booking configuration without persisting
// anything
func (h *Handler) validateDependencies(c *gin.Context) {
	var check catalog.DependencyCheck
	if err := c.ShouldBindJSON(&check); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if depErr := catalog.ValidateDependencies(check); depErr != nil {
		c.JSON(http.StatusOK, gin.H{
			"valid":  false,
			"issues": depErr.Issues,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// tenantFrom extracts the tenant scope from the X-Tenant-ID header or the
// tenant_id query parameter. Nil means no explicit tenant.
func tenantFrom(c *gin.Context) *string {
	if t := c.GetHeader("X-Tenant-ID"); t != "" {
		return &t
	}
	if t := c.Query("tenant_id"); t != "" {
		return &t
	}
	return nil
}

func actorFrom(c *gin.Context) string {
	if a := c.GetHeader("X-Actor"); a != "" {
		return a
	}
	return "api"
}

// respondError maps engine errors to HTTP statuses
func respondError(c *gin.Context, err error) {
	var slugConflict *catalog.SlugConflictError
	var validation *catalog.ValidationError

	switch {
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &slugConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "Validation failed",
			"issues": validation.Issues,
		})
	case errors.Is(err, catalog.ErrCloningDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, catalog.ErrPersistenceUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal server error",
			"details": err.Error(),
		})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
