package inbound

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/galihcitta/number-warming-service/internal/metrics"
	"github.com/galihcitta/number-warming-service/internal/models"
	"github.com/galihcitta/number-warming-service/internal/repository"
	"github.com/galihcitta/number-warming-service/internal/services/warming"
)

type InstanceStore interface {
	GetByName(ctx context.Context, name string) (*models.Instance, error)
	IncrementReceived(ctx context.Context, id uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.InstanceStatus) error
}

// Recorder is implemented by warming.ActivityLogger.
type Recorder interface {
	Record(ctx context.Context, tenantID uuid.UUID, action models.Action, details models.ActivityDetails) error
}

// Processor applies gateway push events to instance state. It is the
// handler behind both the inline webhook path and the queue consumers.
type Processor struct {
	instances InstanceStore
	activity  Recorder
	logger    *zap.Logger
}

func NewProcessor(instances InstanceStore, activity Recorder, logger *zap.Logger) *Processor {
	return &Processor{
		instances: instances,
		activity:  activity,
		logger:    logger,
	}
}

// HandleEvent satisfies messaging.EventHandler.
func (p *Processor) HandleEvent(ctx context.Context, event *models.WebhookEvent) error {
	_, err := p.Process(ctx, event)
	return err
}

// Process reports whether the event changed anything. Events for unknown
// instances and event kinds the service does not track are ignored
// without error.
func (p *Processor) Process(ctx context.Context, event *models.WebhookEvent) (bool, error) {
	kind := event.Kind()

	var (
		processed bool
		err       error
	)
	switch kind {
	case models.EventMessagesUpsert:
		processed, err = p.messageReceived(ctx, event)
	case models.EventConnectionUpdate:
		processed, err = p.connectionUpdate(ctx, event)
	default:
		p.logger.Debug("Ignoring webhook event", zap.String("event", kind))
	}

	result := "ignored"
	switch {
	case err != nil:
		result = "error"
	case processed:
		result = "processed"
	}
	metrics.IncrementWebhookEvents(kind, result)
	return processed, err
}

func (p *Processor) messageReceived(ctx context.Context, event *models.WebhookEvent) (bool, error) {
	data, err := decodeMessageData(event.Data)
	if err != nil {
		p.logger.Warn("Malformed messages.upsert payload", zap.Error(err))
		return false, nil
	}
	if data.IsFromMe() {
		return false, nil
	}

	inst, err := p.lookup(ctx, event.InstanceKey())
	if err != nil || inst == nil {
		return false, err
	}

	if err := p.instances.IncrementReceived(ctx, inst.ID); err != nil {
		return false, fmt.Errorf("failed to count received message: %w", err)
	}

	if inst.UserID != nil {
		err := p.activity.Record(ctx, *inst.UserID, models.ActionMessageReceived, models.ActivityDetails{
			"instance":  inst.Name,
			"from":      data.SenderNumber(),
			"isPrimary": inst.IsPrimary,
		})
		if err != nil && !errors.Is(err, warming.ErrLogUnavailable) {
			p.logger.Error("Failed to record received message",
				zap.String("instance", inst.Name),
				zap.Error(err))
		}
	}
	return true, nil
}

func (p *Processor) connectionUpdate(ctx context.Context, event *models.WebhookEvent) (bool, error) {
	data, err := event.ConnectionData()
	if err != nil {
		p.logger.Warn("Malformed connection.update payload", zap.Error(err))
		return false, nil
	}

	inst, err := p.lookup(ctx, event.InstanceKey())
	if err != nil || inst == nil {
		return false, err
	}

	status, state := data.MappedStatus()
	if err := p.instances.UpdateStatus(ctx, inst.ID, status); err != nil {
		return false, fmt.Errorf("failed to update instance status: %w", err)
	}

	p.logger.Info("Instance connection updated",
		zap.String("instance", inst.Name),
		zap.String("state", state),
		zap.String("status", string(status)))
	return true, nil
}

// lookup returns nil without error for events naming an unknown instance.
func (p *Processor) lookup(ctx context.Context, name string) (*models.Instance, error) {
	if name == "" {
		return nil, nil
	}
	inst, err := p.instances.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			p.logger.Debug("Webhook for unknown instance", zap.String("instance", name))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find instance %q: %w", name, err)
	}
	return inst, nil
}

// decodeMessageData accepts a single message or a batch, in which case the
// first message is used.
func decodeMessageData(raw json.RawMessage) (models.WebhookMessageData, error) {
	var data models.WebhookMessageData
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return data, nil
	}
	if trimmed[0] == '[' {
		var batch []models.WebhookMessageData
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			return data, err
		}
		if len(batch) > 0 {
			data = batch[0]
		}
		return data, nil
	}
	err := json.Unmarshal(trimmed, &data)
	return data, err
}
