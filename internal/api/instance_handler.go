package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/galihcitta/number-warming-service/internal/middleware"
	"github.com/galihcitta/number-warming-service/internal/models"
)

type InstanceStore interface {
	ListVisible(ctx context.Context, tenantID uuid.UUID) ([]models.Instance, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Instance, error)
	Create(ctx context.Context, tenantID uuid.UUID, req *models.CreateInstanceRequest) (*models.Instance, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, req *models.UpdateInstanceRequest) (*models.Instance, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// StatusChecker is implemented by monitor.Monitor.
type StatusChecker interface {
	Check(ctx context.Context, inst *models.Instance) (*models.InstanceStatusResponse, error)
}

type InstanceHandler struct {
	instances InstanceStore
	checker   StatusChecker
	logger    *zap.Logger
}

func NewInstanceHandler(instances InstanceStore, checker StatusChecker, logger *zap.Logger) *InstanceHandler {
	return &InstanceHandler{
		instances: instances,
		checker:   checker,
		logger:    logger,
	}
}

// List returns the tenant's own instances plus the global ones, primary
// first.
func (h *InstanceHandler) List(c *gin.Context) {
	tenantID, ok := tenantFrom(c)
	if !ok {
		return
	}

	instances, err := h.instances.ListVisible(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("Failed to list instances", zap.Error(err), zap.String("tenant_id", tenantID.String()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	if instances == nil {
		instances = []models.Instance{}
	}
	c.JSON(http.StatusOK, instances)
}

func (h *InstanceHandler) Create(c *gin.Context) {
	tenantID, ok := tenantFrom(c)
	if !ok {
		return
	}

	var req models.CreateInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if req.IsGlobal && !middleware.IsAdmin(c) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "only admins can create global instances"})
		return
	}

	inst, err := h.instances.Create(c.Request.Context(), tenantID, &req)
	if err != nil {
		h.logger.Error("Failed to create instance", zap.Error(err), zap.String("name", req.Name))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(http.StatusCreated, inst)
}

// Update only touches instances the tenant owns; global ones read as not
// found.
func (h *InstanceHandler) Update(c *gin.Context) {
	tenantID, ok := tenantFrom(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "instance")
	if !ok {
		return
	}

	var req models.UpdateInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	inst, err := h.instances.Update(c.Request.Context(), tenantID, id, &req)
	if err != nil {
		h.logger.Warn("Failed to update instance", zap.Error(err), zap.String("id", id.String()))
		storageError(c, err, "instance")
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (h *InstanceHandler) Delete(c *gin.Context) {
	tenantID, ok := tenantFrom(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "instance")
	if !ok {
		return
	}

	inst, err := h.instances.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		storageError(c, err, "instance")
		return
	}

	owner := tenantID
	if inst.IsGlobal {
		if !middleware.IsAdmin(c) {
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "only admins can delete global instances"})
			return
		}
		owner = uuid.Nil
	}

	if err := h.instances.Delete(c.Request.Context(), owner, id); err != nil {
		h.logger.Warn("Failed to delete instance", zap.Error(err), zap.String("id", id.String()))
		storageError(c, err, "instance")
		return
	}
	c.Status(http.StatusNoContent)
}

// CheckStatus asks the gateway for the live state and persists it.
func (h *InstanceHandler) CheckStatus(c *gin.Context) {
	tenantID, ok := tenantFrom(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "instance")
	if !ok {
		return
	}

	inst, err := h.instances.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		storageError(c, err, "instance")
		return
	}

	status, err := h.checker.Check(c.Request.Context(), inst)
	if err != nil {
		h.logger.Error("Failed to check instance status", zap.Error(err), zap.String("instance", inst.Name))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(http.StatusOK, status)
}
