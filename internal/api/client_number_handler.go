package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/galihcitta/number-warming-service/internal/models"
)

type ClientNumberStore interface {
	List(ctx context.Context, tenantID uuid.UUID) ([]models.ClientNumber, error)
	Create(ctx context.Context, tenantID uuid.UUID, req *models.CreateClientNumberRequest) (*models.ClientNumber, error)
	Import(ctx context.Context, tenantID uuid.UUID, numbers []models.CreateClientNumberRequest) (int, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type ClientNumberHandler struct {
	clients ClientNumberStore
	logger  *zap.Logger
}

func NewClientNumberHandler(clients ClientNumberStore, logger *zap.Logger) *ClientNumberHandler {
	return &ClientNumberHandler{clients: clients, logger: logger}
}

func (h *ClientNumberHandler) List(c *gin.Context) {
	tenantID, ok := tenantFrom(c)
	if !ok {
		return
	}

	numbers, err := h.clients.List(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("Failed to list client numbers", zap.Error(err), zap.String("tenant_id", tenantID.String()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	if numbers == nil {
		numbers = []models.ClientNumber{}
	}
	c.JSON(http.StatusOK, numbers)
}

func (h *ClientNumberHandler) Create(c *gin.Context) {
	tenantID, ok := tenantFrom(c)
	if !ok {
		return
	}

	var req models.CreateClientNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	number, err := h.clients.Create(c.Request.Context(), tenantID, &req)
	if err != nil {
		h.logger.Error("Failed to create client number", zap.Error(err), zap.String("tenant_id", tenantID.String()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(http.StatusCreated, number)
}

func (h *ClientNumberHandler) Import(c *gin.Context) {
	tenantID, ok := tenantFrom(c)
	if !ok {
		return
	}

	var req models.ImportClientNumbersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	n, err := h.clients.Import(c.Request.Context(), tenantID, req.Numbers)
	if err != nil {
		h.logger.Error("Failed to import client numbers", zap.Error(err), zap.String("tenant_id", tenantID.String()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(http.StatusCreated, ImportResponse{Imported: n})
}

func (h *ClientNumberHandler) Delete(c *gin.Context) {
	tenantID, ok := tenantFrom(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "client number")
	if !ok {
		return
	}

	if err := h.clients.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.logger.Warn("Failed to delete client number", zap.Error(err), zap.String("id", id.String()))
		storageError(c, err, "client number")
		return
	}
	c.Status(http.StatusNoContent)
}
