package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/galihcitta/number-warming-service/internal/models"
	"github.com/galihcitta/number-warming-service/internal/repository"
)

type TemplateStore interface {
	List(ctx context.Context, tenantID uuid.UUID) ([]models.MessageTemplate, error)
	Create(ctx context.Context, tenantID uuid.UUID, content string) (*models.MessageTemplate, error)
	Import(ctx context.Context, tenantID uuid.UUID, contents []string) (int, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// MessageHandler manages the tenant's pool of message templates.
type MessageHandler struct {
	templates TemplateStore
	logger    *zap.Logger
}

func NewMessageHandler(templates TemplateStore, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{templates: templates, logger: logger}
}

func (h *MessageHandler) List(c *gin.Context) {
	tenantID, ok := tenantFrom(c)
	if !ok {
		return
	}

	templates, err := h.templates.List(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("Failed to list messages", zap.Error(err), zap.String("tenant_id", tenantID.String()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	if templates == nil {
		templates = []models.MessageTemplate{}
	}
	c.JSON(http.StatusOK, templates)
}

func (h *MessageHandler) Create(c *gin.Context) {
	tenantID, ok := tenantFrom(c)
	if !ok {
		return
	}

	var req models.CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "content must not be blank"})
		return
	}

	tmpl, err := h.templates.Create(c.Request.Context(), tenantID, content)
	if err != nil {
		if errors.Is(err, repository.ErrTemplateLimit) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.logger.Error("Failed to create message", zap.Error(err), zap.String("tenant_id", tenantID.String()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(http.StatusCreated, tmpl)
}

// Import keeps the first non-empty entries up to the pool cap.
func (h *MessageHandler) Import(c *gin.Context) {
	tenantID, ok := tenantFrom(c)
	if !ok {
		return
	}

	var req models.ImportMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	n, err := h.templates.Import(c.Request.Context(), tenantID, req.Contents)
	if err != nil {
		if errors.Is(err, repository.ErrTemplateLimit) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.logger.Error("Failed to import messages", zap.Error(err), zap.String("tenant_id", tenantID.String()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(http.StatusCreated, ImportResponse{Imported: n})
}

func (h *MessageHandler) Delete(c *gin.Context) {
	tenantID, ok := tenantFrom(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "message")
	if !ok {
		return
	}

	if err := h.templates.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.logger.Warn("Failed to delete message", zap.Error(err), zap.String("id", id.String()))
		storageError(c, err, "message")
		return
	}
	c.Status(http.StatusNoContent)
}
