package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/galihcitta/number-warming-service/internal/models"
	"github.com/galihcitta/number-warming-service/internal/services/tenant"
)

// TenantManagerInterface defines the methods required by the handler
type TenantManagerInterface interface {
	CreateTenant(ctx context.Context, req *models.CreateTenantRequest) (*models.Tenant, error)
	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetAllTenants(ctx context.Context) ([]models.Tenant, error)
	DeleteTenant(ctx context.Context, id uuid.UUID) error
	GetTenantStats(ctx context.Context) ([]tenant.TenantStats, error)
}

type TenantHandler struct {
	tenantManager TenantManagerInterface
	logger        *zap.Logger
}

func NewTenantHandler(tenantManager TenantManagerInterface, logger *zap.Logger) *TenantHandler {
	return &TenantHandler{
		tenantManager: tenantManager,
		logger:        logger,
	}
}

func (h *TenantHandler) CreateTenant(c *gin.Context) {
	var req models.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	created, err := h.tenantManager.CreateTenant(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, tenant.ErrInvalidName) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.logger.Error("Failed to create tenant", zap.Error(err), zap.String("name", req.Name))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *TenantHandler) GetTenant(c *gin.Context) {
	id, ok := pathID(c, "tenant")
	if !ok {
		return
	}

	t, err := h.tenantManager.GetTenant(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get tenant", zap.Error(err), zap.String("id", id.String()))
		storageError(c, err, "tenant")
		return
	}

	c.JSON(http.StatusOK, t)
}

func (h *TenantHandler) GetAllTenants(c *gin.Context) {
	tenants, err := h.tenantManager.GetAllTenants(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get tenants", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}

	c.JSON(http.StatusOK, tenants)
}

// DeleteTenant stops the tenant's warming session before removing it.
func (h *TenantHandler) DeleteTenant(c *gin.Context) {
	id, ok := pathID(c, "tenant")
	if !ok {
		return
	}

	if err := h.tenantManager.DeleteTenant(c.Request.Context(), id); err != nil {
		h.logger.Error("Failed to delete tenant", zap.Error(err), zap.String("id", id.String()))
		storageError(c, err, "tenant")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *TenantHandler) GetTenantStats(c *gin.Context) {
	stats, err := h.tenantManager.GetTenantStats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get tenant stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
