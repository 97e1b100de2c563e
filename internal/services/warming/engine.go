package warming

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/galihcitta/number-warming-service/internal/metrics"
	"github.com/galihcitta/number-warming-service/internal/models"
)

const previewLength = 50

// Reasons recorded with gated cycles.
const (
	ReasonOutsideHours     = "Outside active hours"
	ReasonNoPrimary        = "No primary instance configured"
	ReasonPrimaryOffline   = "Primary instance is not connected"
	ReasonPrimaryNoPhone   = "Primary instance has no phone number"
	ReasonNoMessages       = "No messages available"
	ReasonNoSecondaries    = "No connected secondary instances"
	ReasonSecondaryNoPhone = "Secondary instance has no phone number"
	ReasonNoClients        = "No client numbers available"
	ReasonDeliveryFailed   = "Message delivery failed"
	ReasonCycleFailed      = "cycle failed"
)

// CycleOutcome tells the session loop what happened and whether to run
// again. Action is the log tag recorded for the cycle.
type CycleOutcome struct {
	Action     models.Action
	Reschedule bool
	Delay      time.Duration
	Reason     string
}

// Timing holds the engine's fixed backoffs. DelayUnit scales the configured
// delay seconds and is only shortened in tests.
type Timing struct {
	OutsideHoursBackoff time.Duration
	NotReadyBackoff     time.Duration
	ErrorBackoff        time.Duration
	CycleTimeout        time.Duration
	DelayUnit           time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		OutsideHoursBackoff: 60 * time.Second,
		NotReadyBackoff:     30 * time.Second,
		ErrorBackoff:        30 * time.Second,
		CycleTimeout:        2 * time.Minute,
		DelayUnit:           time.Second,
	}
}

// Engine runs one warming cycle at a time for a tenant. It is stateless
// between cycles: config and participants are re-read on every run.
type Engine struct {
	configs   ConfigStore
	resolver  *Resolver
	instances InstanceStore
	sender    Sender
	activity  *ActivityLogger
	rng       Random
	timing    Timing
	location  *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

type EngineOption func(*Engine)

func WithTiming(t Timing) EngineOption {
	return func(e *Engine) { e.timing = t }
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func WithLocation(loc *time.Location) EngineOption {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

func NewEngine(
	configs ConfigStore,
	resolver *Resolver,
	instances InstanceStore,
	sender Sender,
	activity *ActivityLogger,
	rng Random,
	logger *zap.Logger,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		configs:   configs,
		resolver:  resolver,
		instances: instances,
		sender:    sender,
		activity:  activity,
		rng:       rng,
		timing:    DefaultTiming(),
		location:  time.Local,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunCycle executes one cycle. It never returns an error or panics: every
// failure is logged and turned into an outcome with a backoff.
func (e *Engine) RunCycle(ctx context.Context, tenantID uuid.UUID) (out CycleOutcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Warming cycle panicked",
				zap.String("tenant_id", tenantID.String()),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			out = e.failCycle(ctx, tenantID, fmt.Errorf("panic: %v", r))
		}
		metrics.RecordCycle(string(out.Action), time.Since(start).Seconds())
	}()

	cycleCtx := ctx
	if e.timing.CycleTimeout > 0 {
		var cancel context.CancelFunc
		cycleCtx, cancel = context.WithTimeout(ctx, e.timing.CycleTimeout)
		defer cancel()
	}

	out, err := e.runCycle(cycleCtx, tenantID)
	if err != nil {
		return e.failCycle(ctx, tenantID, err)
	}
	return out
}

func (e *Engine) runCycle(ctx context.Context, tenantID uuid.UUID) (CycleOutcome, error) {
	cfg, err := e.configs.GetConfig(ctx, tenantID)
	if err != nil {
		return CycleOutcome{}, fmt.Errorf("load config: %w", err)
	}

	hour := e.now().In(e.location).Hour()
	if !IsWithinActiveHours(hour, cfg.ActiveHoursStart, cfg.ActiveHoursEnd) {
		e.record(ctx, tenantID, models.ActionSkipped, models.ActivityDetails{
			"reason":      ReasonOutsideHours,
			"currentHour": hour,
			"activeHours": fmt.Sprintf("%d-%d", cfg.ActiveHoursStart, cfg.ActiveHoursEnd),
		})
		return e.backoff(models.ActionSkipped, ReasonOutsideHours, e.timing.OutsideHoursBackoff), nil
	}

	primary, err := e.resolver.Primary(ctx, tenantID)
	if err != nil {
		return CycleOutcome{}, err
	}
	if primary == nil {
		e.record(ctx, tenantID, models.ActionError, models.ActivityDetails{"reason": ReasonNoPrimary})
		return CycleOutcome{Action: models.ActionError, Reason: ReasonNoPrimary}, nil
	}
	if !primary.IsConnected() {
		e.record(ctx, tenantID, models.ActionError, models.ActivityDetails{
			"reason":   ReasonPrimaryOffline,
			"instance": primary.Name,
			"status":   string(primary.Status),
		})
		return e.backoff(models.ActionError, ReasonPrimaryOffline, e.timing.NotReadyBackoff), nil
	}
	if !primary.HasPhoneNumber() {
		e.record(ctx, tenantID, models.ActionError, models.ActivityDetails{
			"reason":   ReasonPrimaryNoPhone,
			"instance": primary.Name,
		})
		return e.backoff(models.ActionError, ReasonPrimaryNoPhone, e.timing.NotReadyBackoff), nil
	}

	message, err := e.resolver.RandomMessage(ctx, tenantID)
	if err != nil {
		return CycleOutcome{}, err
	}
	if message == "" {
		e.record(ctx, tenantID, models.ActionError, models.ActivityDetails{"reason": ReasonNoMessages})
		return e.backoff(models.ActionError, ReasonNoMessages, e.nextDelay(cfg)), nil
	}

	action := ActionWeights(cfg.EffectiveReceiveRatio()).Sample(e.rng.Float64())

	var out CycleOutcome
	switch action {
	case models.ActionSecondaryToPrimary:
		out, err = e.secondaryToPrimary(ctx, tenantID, primary, message)
	case models.ActionPrimaryToSecondary:
		out, err = e.primaryToSecondary(ctx, tenantID, primary, message)
	default:
		out, err = e.primaryToClient(ctx, tenantID, primary, message)
	}
	if err != nil {
		return CycleOutcome{}, err
	}

	out.Reschedule = true
	out.Delay = e.nextDelay(cfg)
	return out, nil
}

func (e *Engine) secondaryToPrimary(ctx context.Context, tenantID uuid.UUID, primary *models.Instance, message string) (CycleOutcome, error) {
	action := models.ActionSecondaryToPrimary
	secondaries, err := e.resolver.Secondaries(ctx, tenantID)
	if err != nil {
		return CycleOutcome{}, err
	}
	if len(secondaries) == 0 {
		return e.skipBranch(ctx, tenantID, action), nil
	}

	sender := &secondaries[0]
	return e.deliver(ctx, tenantID, action, sender, primary, primary.PhoneNumber, primary.Name, message)
}

func (e *Engine) primaryToSecondary(ctx context.Context, tenantID uuid.UUID, primary *models.Instance, message string) (CycleOutcome, error) {
	action := models.ActionPrimaryToSecondary
	secondaries, err := e.resolver.Secondaries(ctx, tenantID)
	if err != nil {
		return CycleOutcome{}, err
	}
	if len(secondaries) == 0 {
		return e.skipBranch(ctx, tenantID, action), nil
	}

	target := &secondaries[0]
	if !target.HasPhoneNumber() {
		e.record(ctx, tenantID, models.ActionError, models.ActivityDetails{
			"reason":   ReasonSecondaryNoPhone,
			"action":   string(action),
			"instance": target.Name,
		})
		return CycleOutcome{Action: models.ActionError, Reason: ReasonSecondaryNoPhone}, nil
	}
	return e.deliver(ctx, tenantID, action, primary, target, target.PhoneNumber, target.Name, message)
}

func (e *Engine) primaryToClient(ctx context.Context, tenantID uuid.UUID, primary *models.Instance, message string) (CycleOutcome, error) {
	action := models.ActionPrimaryToClient
	client, err := e.resolver.RandomClient(ctx, tenantID)
	if err != nil {
		return CycleOutcome{}, err
	}
	if client == nil {
		e.record(ctx, tenantID, models.ActionError, models.ActivityDetails{
			"reason": ReasonNoClients,
			"action": string(action),
		})
		return CycleOutcome{Action: models.ActionError, Reason: ReasonNoClients}, nil
	}
	return e.deliver(ctx, tenantID, action, primary, nil, client.PhoneNumber, client.DisplayName(), message)
}

// deliver sends the message and updates counters on success. recipient is
// nil for client numbers, which are not tracked instances.
func (e *Engine) deliver(
	ctx context.Context,
	tenantID uuid.UUID,
	action models.Action,
	from, recipient *models.Instance,
	number, toLabel, message string,
) (CycleOutcome, error) {
	result := e.sender.SendText(ctx, from, number, message)
	if !result.Success {
		e.record(ctx, tenantID, models.ActionError, models.ActivityDetails{
			"reason": ReasonDeliveryFailed,
			"action": string(action),
			"from":   from.Name,
			"to":     toLabel,
			"error":  result.Error,
		})
		return CycleOutcome{Action: models.ActionError, Reason: ReasonDeliveryFailed}, nil
	}

	if err := e.instances.IncrementSent(ctx, from.ID); err != nil {
		return CycleOutcome{}, fmt.Errorf("update sent counter: %w", err)
	}
	if recipient != nil {
		if err := e.instances.IncrementReceived(ctx, recipient.ID); err != nil {
			return CycleOutcome{}, fmt.Errorf("update received counter: %w", err)
		}
	}

	e.record(ctx, tenantID, action, models.ActivityDetails{
		"from":    from.Name,
		"to":      toLabel,
		"message": Preview(message),
	})
	return CycleOutcome{Action: action}, nil
}

func (e *Engine) skipBranch(ctx context.Context, tenantID uuid.UUID, action models.Action) CycleOutcome {
	e.record(ctx, tenantID, models.ActionSkipped, models.ActivityDetails{
		"reason": ReasonNoSecondaries,
		"action": string(action),
	})
	return CycleOutcome{Action: models.ActionSkipped, Reason: ReasonNoSecondaries}
}

func (e *Engine) failCycle(ctx context.Context, tenantID uuid.UUID, err error) CycleOutcome {
	e.record(ctx, tenantID, models.ActionError, models.ActivityDetails{
		"reason": ReasonCycleFailed,
		"error":  err.Error(),
	})
	return e.backoff(models.ActionError, ReasonCycleFailed, e.timing.ErrorBackoff)
}

func (e *Engine) backoff(action models.Action, reason string, delay time.Duration) CycleOutcome {
	return CycleOutcome{Action: action, Reschedule: true, Delay: delay, Reason: reason}
}

func (e *Engine) nextDelay(cfg *models.WarmingConfig) time.Duration {
	return RandomDelay(e.rng, cfg.MinDelaySeconds, cfg.MaxDelaySeconds, e.timing.DelayUnit)
}

// record writes to the activity log. A missing table is expected; anything
// else is reported but never fails the cycle.
func (e *Engine) record(ctx context.Context, tenantID uuid.UUID, action models.Action, details models.ActivityDetails) {
	err := e.activity.Record(ctx, tenantID, action, details)
	if err != nil && !errors.Is(err, ErrLogUnavailable) {
		e.logger.Error("Failed to record warming activity",
			zap.String("tenant_id", tenantID.String()),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

// Preview truncates a message body for the activity log.
func Preview(message string) string {
	runes := []rune(message)
	if len(runes) <= previewLength {
		return message
	}
	return string(runes[:previewLength])
}
