package warming

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/galihcitta/number-warming-service/internal/metrics"
	"github.com/galihcitta/number-warming-service/internal/models"
)

// Start preconditions. They are returned alongside a failed result so the
// API can answer with a client error.
var (
	ErrNoPrimary      = errors.New("no primary instance configured")
	ErrPrimaryNoPhone = errors.New("primary instance has no phone number")
	ErrNoMessages     = errors.New("no messages configured")
)

// IsPrecondition reports whether err is one of the Start preconditions.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrNoPrimary) || errors.Is(err, ErrPrimaryNoPhone) || errors.Is(err, ErrNoMessages)
}

// CycleRunner is implemented by Engine.
type CycleRunner interface {
	RunCycle(ctx context.Context, tenantID uuid.UUID) CycleOutcome
}

type session struct {
	startedAt   time.Time
	nextCycleAt *time.Time
	halted      bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// Registry owns every tenant's warming session. Each session is a goroutine
// running cycles back to back with a timer in between, so a tenant never
// has more than one cycle in flight.
type Registry struct {
	runner    CycleRunner
	resolver  *Resolver
	templates TemplateStore
	activity  *ActivityLogger
	lifecycle LifecycleStore
	logger    *zap.Logger

	sessions map[uuid.UUID]*session
	mutex    sync.RWMutex
	wg       sync.WaitGroup
	closed   bool
}

func NewRegistry(
	runner CycleRunner,
	resolver *Resolver,
	templates TemplateStore,
	activity *ActivityLogger,
	lifecycle LifecycleStore,
	logger *zap.Logger,
) *Registry {
	return &Registry{
		runner:    runner,
		resolver:  resolver,
		templates: templates,
		activity:  activity,
		lifecycle: lifecycle,
		logger:    logger,
		sessions:  make(map[uuid.UUID]*session),
	}
}

// Start checks the preconditions, replaces any running session and kicks
// off the first cycle without delay.
func (r *Registry) Start(ctx context.Context, tenantID uuid.UUID) (*models.WarmingActionResult, error) {
	if err := r.checkPreconditions(ctx, tenantID); err != nil {
		if IsPrecondition(err) {
			return &models.WarmingActionResult{Success: false, Error: err.Error()}, err
		}
		return nil, err
	}

	replaced := r.stop(ctx, tenantID)

	r.mutex.Lock()
	if r.closed {
		r.mutex.Unlock()
		return nil, errors.New("warming registry is shut down")
	}

	// A replaced session may still be finishing its last cycle; the new
	// loop waits for it before running.
	var previous <-chan struct{}
	if replaced != nil {
		previous = replaced.done
	}
	if old, exists := r.sessions[tenantID]; exists {
		old.cancel()
		previous = old.done
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	sess := &session{
		startedAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	r.sessions[tenantID] = sess
	r.wg.Add(1)
	metrics.UpdateActiveSessions(float64(len(r.sessions)))
	r.mutex.Unlock()

	r.record(ctx, tenantID, models.ActionStarted, models.ActivityDetails{
		"startedAt": sess.startedAt.Format(time.RFC3339),
	})
	r.logger.Info("Warming session started", zap.String("tenant_id", tenantID.String()))

	go r.loop(loopCtx, tenantID, sess, previous)

	return &models.WarmingActionResult{Success: true, Message: "Warming started"}, nil
}

func (r *Registry) checkPreconditions(ctx context.Context, tenantID uuid.UUID) error {
	primary, err := r.resolver.Primary(ctx, tenantID)
	if err != nil {
		return err
	}
	if primary == nil {
		return ErrNoPrimary
	}
	if !primary.HasPhoneNumber() {
		return ErrPrimaryNoPhone
	}

	count, err := r.templates.Count(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("count messages: %w", err)
	}
	if count == 0 {
		return ErrNoMessages
	}
	return nil
}

// Stop cancels the tenant's pending cycle. A cycle already running is left
// to finish but will not schedule another. Stopping an idle tenant is a
// no-op success.
func (r *Registry) Stop(ctx context.Context, tenantID uuid.UUID) *models.WarmingActionResult {
	r.stop(ctx, tenantID)
	return &models.WarmingActionResult{Success: true, Message: "Warming stopped"}
}

// stop removes the session, records STOPPED and returns the removed
// session, or nil if there was none.
func (r *Registry) stop(ctx context.Context, tenantID uuid.UUID) *session {
	r.mutex.Lock()
	sess, exists := r.sessions[tenantID]
	if exists {
		sess.cancel()
		delete(r.sessions, tenantID)
		metrics.UpdateActiveSessions(float64(len(r.sessions)))
	}
	r.mutex.Unlock()

	if !exists {
		return nil
	}

	r.record(ctx, tenantID, models.ActionStopped, models.ActivityDetails{
		"startedAt": sess.startedAt.Format(time.RFC3339),
	})
	r.logger.Info("Warming session stopped", zap.String("tenant_id", tenantID.String()))
	return sess
}

func (r *Registry) Status(tenantID uuid.UUID) models.WarmingStatus {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	sess, exists := r.sessions[tenantID]
	if !exists {
		return models.WarmingStatus{}
	}

	startedAt := sess.startedAt
	status := models.WarmingStatus{
		IsActive:  true,
		StartedAt: &startedAt,
		Halted:    sess.halted,
	}
	if sess.nextCycleAt != nil {
		next := *sess.nextCycleAt
		status.NextCycleAt = &next
	}
	return status
}

func (r *Registry) ActiveCount() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.sessions)
}

func (r *Registry) loop(ctx context.Context, tenantID uuid.UUID, sess *session, previous <-chan struct{}) {
	defer r.wg.Done()
	defer close(sess.done)

	// Wait for the replaced loop even if this session is replaced in the
	// meantime: a successor chains onto done, not onto previous.
	if previous != nil {
		<-previous
		if ctx.Err() != nil {
			return
		}
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		r.clearNext(sess)

		// Cycles run detached so Stop never interrupts a delivery mid-flight.
		out := r.runner.RunCycle(context.WithoutCancel(ctx), tenantID)

		if ctx.Err() != nil {
			return
		}

		if !out.Reschedule {
			r.markHalted(sess)
			r.logger.Warn("Warming session halted",
				zap.String("tenant_id", tenantID.String()),
				zap.String("reason", out.Reason))
			return
		}

		r.setNext(sess, time.Now().Add(out.Delay))
		timer.Reset(out.Delay)
	}
}

func (r *Registry) setNext(sess *session, at time.Time) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	sess.nextCycleAt = &at
}

func (r *Registry) clearNext(sess *session) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	sess.nextCycleAt = nil
}

func (r *Registry) markHalted(sess *session) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	sess.halted = true
	sess.nextCycleAt = nil
}

// Restore restarts every tenant whose last lifecycle entry is STARTED and
// returns how many sessions came back.
func (r *Registry) Restore(ctx context.Context) (int, error) {
	r.logger.Info("Restoring warming sessions")

	tenants, err := r.lifecycle.ResumableTenants(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list resumable tenants: %w", err)
	}

	restored := 0
	for _, tenantID := range tenants {
		result, err := r.Start(ctx, tenantID)
		if err != nil {
			r.logger.Warn("Failed to restore warming session",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
			continue
		}
		if result.Success {
			restored++
		}
	}

	r.logger.Info("Warming restoration completed",
		zap.Int("candidates", len(tenants)),
		zap.Int("restored", restored))
	return restored, nil
}

// Shutdown cancels every session without recording STOPPED, so the next
// boot resumes them, and waits for the loops to exit.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.logger.Info("Shutting down warming registry")

	r.mutex.Lock()
	r.closed = true
	for _, sess := range r.sessions {
		sess.cancel()
	}
	r.sessions = make(map[uuid.UUID]*session)
	metrics.UpdateActiveSessions(0)
	r.mutex.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("Warming registry shutdown completed")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("warming registry shutdown: %w", ctx.Err())
	}
}

func (r *Registry) record(ctx context.Context, tenantID uuid.UUID, action models.Action, details models.ActivityDetails) {
	// Lifecycle entries drive Restore, so they outlive the request.
	err := r.activity.Record(context.WithoutCancel(ctx), tenantID, action, details)
	if err != nil && !errors.Is(err, ErrLogUnavailable) {
		r.logger.Error("Failed to record warming lifecycle",
			zap.String("tenant_id", tenantID.String()),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}
