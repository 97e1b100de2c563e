package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/galihcitta/number-warming-service/internal/models"
	"github.com/galihcitta/number-warming-service/internal/services/warming"
)

// WarmingController is implemented by warming.Registry.
type WarmingController interface {
	Start(ctx context.Context, tenantID uuid.UUID) (*models.WarmingActionResult, error)
	Stop(ctx context.Context, tenantID uuid.UUID) *models.WarmingActionResult
	Status(tenantID uuid.UUID) models.WarmingStatus
}

// DiagnosticsReader is implemented by warming.Diagnostics.
type DiagnosticsReader interface {
	ActivityLog(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.ActivityLogEntry, error)
	Collect(ctx context.Context, tenantID uuid.UUID) (*models.WarmingDiagnostics, error)
}

type WarmingHandler struct {
	warming     WarmingController
	diagnostics DiagnosticsReader
	logger      *zap.Logger
}

func NewWarmingHandler(warming WarmingController, diagnostics DiagnosticsReader, logger *zap.Logger) *WarmingHandler {
	return &WarmingHandler{
		warming:     warming,
		diagnostics: diagnostics,
		logger:      logger,
	}
}

// Start answers 400 with the failed result when a precondition is unmet.
// @Summary Start warming
// @Description Check the preconditions and start the tenant's warming session
// @Tags warming
// @Produce json
// @Success 200 {object} models.WarmingActionResult
// @Failure 400 {object} models.WarmingActionResult
// @Failure 500 {object} models.WarmingActionResult
// @Security BearerAuth
// @Router /warming/start [post]
func (h *WarmingHandler) Start(c *gin.Context) {
	tenantID, ok := tenantFrom(c)
	if !ok {
		return
	}

	result, err := h.warming.Start(c.Request.Context(), tenantID)
	if err != nil {
		if warming.IsPrecondition(err) && result != nil {
			c.JSON(http.StatusBadRequest, result)
			return
		}
		h.logger.Error("Failed to start warming", zap.Error(err), zap.String("tenant_id", tenantID.String()))
		c.JSON(http.StatusInternalServerError, models.WarmingActionResult{Success: false, Error: "failed to start warming"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// @Summary Stop warming
// @Tags warming
// @Produce json
// @Success 200 {object} models.WarmingActionResult
// @Security BearerAuth
// @Router /warming/stop [post]
func (h *WarmingHandler) Stop(c *gin.Context) {
	tenantID, ok := tenantFrom(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.warming.Stop(c.Request.Context(), tenantID))
}

// @Summary Warming status
// @Tags warming
// @Produce json
// @Success 200 {object} models.WarmingStatus
// @Security BearerAuth
// @Router /warming/status [get]
func (h *WarmingHandler) Status(c *gin.Context) {
	tenantID, ok := tenantFrom(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.warming.Status(tenantID))
}

// Logs returns the newest activity first. The limit is clamped to 1..500.
// @Summary Warming activity log
// @Tags warming
// @Produce json
// @Param limit query int false "Number of entries (1-500)" default(50)
// @Success 200 {array} models.ActivityLogEntry
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /warming/logs [get]
func (h *WarmingHandler) Logs(c *gin.Context) {
	tenantID, ok := tenantFrom(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be an integer"})
			return
		}
		limit = n
	}

	entries, err := h.diagnostics.ActivityLog(c.Request.Context(), tenantID, limit)
	if err != nil {
		h.logger.Error("Failed to read activity log", zap.Error(err), zap.String("tenant_id", tenantID.String()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to read activity log"})
		return
	}
	if entries == nil {
		entries = []models.ActivityLogEntry{}
	}

	c.JSON(http.StatusOK, entries)
}

// @Summary Warming diagnostics
// @Description Requirements checklist, primary instance, 24h stats and recent errors
// @Tags warming
// @Produce json
// @Success 200 {object} models.WarmingDiagnostics
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /warming/diagnostics [get]
func (h *WarmingHandler) Diagnostics(c *gin.Context) {
	tenantID, ok := tenantFrom(c)
	if !ok {
		return
	}

	report, err := h.diagnostics.Collect(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("Failed to collect diagnostics", zap.Error(err), zap.String("tenant_id", tenantID.String()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to collect diagnostics"})
		return
	}

	c.JSON(http.StatusOK, report)
}
