package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/galihcitta/number-warming-service/internal/models"
	"github.com/galihcitta/number-warming-service/internal/repository"
)

type WarmingConfigStore interface {
	GetOrCreate(ctx context.Context, tenantID uuid.UUID) (*models.WarmingConfig, error)
	Upsert(ctx context.Context, tenantID uuid.UUID, req *models.UpdateWarmingConfigRequest) (*models.WarmingConfig, error)
}

type ConfigHandler struct {
	configs WarmingConfigStore
	logger  *zap.Logger
}

func NewConfigHandler(configs WarmingConfigStore, logger *zap.Logger) *ConfigHandler {
	return &ConfigHandler{configs: configs, logger: logger}
}

// @Summary Get warming config
// @Description Returns the tenant's config, creating the defaults on first read
// @Tags config
// @Produce json
// @Success 200 {object} models.WarmingConfig
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /config [get]
func (h *ConfigHandler) Get(c *gin.Context) {
	tenantID, ok := tenantFrom(c)
	if !ok {
		return
	}

	cfg, err := h.configs.GetOrCreate(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("Failed to load warming config", zap.Error(err), zap.String("tenant_id", tenantID.String()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// Update applies a partial update. Changes are picked up by the next cycle
// of a running session.
// @Summary Update warming config
// @Tags config
// @Accept json
// @Produce json
// @Param config body models.UpdateWarmingConfigRequest true "Fields to change"
// @Success 200 {object} models.WarmingConfig
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /config [put]
func (h *ConfigHandler) Update(c *gin.Context) {
	tenantID, ok := tenantFrom(c)
	if !ok {
		return
	}

	var req models.UpdateWarmingConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	cfg, err := h.configs.Upsert(c.Request.Context(), tenantID, &req)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidConfig) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.logger.Error("Failed to save warming config", zap.Error(err), zap.String("tenant_id", tenantID.String()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}
