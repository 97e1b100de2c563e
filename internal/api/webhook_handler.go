package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/galihcitta/number-warming-service/internal/models"
)

// EventProcessor is implemented by inbound.Processor.
type EventProcessor interface {
	Process(ctx context.Context, event *models.WebhookEvent) (bool, error)
}

// EventPublisher is implemented by messaging.RabbitMQManager.
type EventPublisher interface {
	PublishEvent(ctx context.Context, queueName string, event *models.WebhookEvent) error
}

// Limiter is implemented by middleware.RateLimiter.
type Limiter interface {
	Allow(key string) bool
}

// WebhookHandler receives gateway callbacks. It always answers 200 so the
// gateway never retries; failures are reported in the body.
type WebhookHandler struct {
	processor EventProcessor
	publisher EventPublisher
	queue     string
	limiter   Limiter
	logger    *zap.Logger
}

// NewWebhookHandler processes events inline when publisher is nil.
func NewWebhookHandler(processor EventProcessor, publisher EventPublisher, queue string, limiter Limiter, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		publisher: publisher,
		queue:     queue,
		limiter:   limiter,
		logger:    logger,
	}
}

func (h *WebhookHandler) Receive(c *gin.Context) {
	if h.limiter != nil && !h.limiter.Allow(c.ClientIP()) {
		c.JSON(http.StatusOK, models.WebhookAck{Received: true, Error: "rate limited"})
		return
	}

	var event models.WebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		h.logger.Warn("Invalid webhook payload", zap.Error(err))
		c.JSON(http.StatusOK, models.WebhookAck{Received: true, Error: "invalid payload"})
		return
	}

	if h.publisher != nil {
		err := h.publisher.PublishEvent(c.Request.Context(), h.queue, &event)
		if err == nil {
			c.JSON(http.StatusOK, models.WebhookAck{Received: true, Queued: true})
			return
		}
		h.logger.Warn("Failed to queue webhook event, processing inline",
			zap.String("event", event.Kind()),
			zap.Error(err))
	}

	processed, err := h.processor.Process(c.Request.Context(), &event)
	if err != nil {
		h.logger.Error("Failed to process webhook event",
			zap.String("event", event.Kind()),
			zap.String("instance", event.InstanceKey()),
			zap.Error(err))
		c.JSON(http.StatusOK, models.WebhookAck{Received: true, Error: "processing failed"})
		return
	}

	c.JSON(http.StatusOK, models.WebhookAck{Received: true, Processed: processed})
}

func (h *WebhookHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "queued": h.publisher != nil})
}
