package warming

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/galihcitta/number-warming-service/internal/models"
)

// Resolver reads a tenant's current participants. It keeps no state
// between calls.
type Resolver struct {
	instances InstanceStore
	templates TemplateStore
	clients   ClientStore
	rng       Random
}

func NewResolver(instances InstanceStore, templates TemplateStore, clients ClientStore, rng Random) *Resolver {
	return &Resolver{
		instances: instances,
		templates: templates,
		clients:   clients,
		rng:       rng,
	}
}

// Primary returns the tenant-owned primary instance, or nil.
func (r *Resolver) Primary(ctx context.Context, tenantID uuid.UUID) (*models.Instance, error) {
	inst, err := r.instances.GetPrimary(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("resolve primary: %w", err)
	}
	if inst == nil || inst.IsGlobal || !inst.OwnedBy(tenantID) {
		return nil, nil
	}
	return inst, nil
}

// Secondaries returns the connected non-primary instances, freshly
// shuffled on every call.
func (r *Resolver) Secondaries(ctx context.Context, tenantID uuid.UUID) ([]models.Instance, error) {
	list, err := r.instances.ListConnectedSecondaries(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("resolve secondaries: %w", err)
	}

	eligible := make([]models.Instance, 0, len(list))
	for _, inst := range list {
		if !inst.IsPrimary && inst.IsConnected() {
			eligible = append(eligible, inst)
		}
	}
	r.rng.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})
	return eligible, nil
}

// RandomMessage returns a message body, or "" when the pool is empty.
func (r *Resolver) RandomMessage(ctx context.Context, tenantID uuid.UUID) (string, error) {
	t, err := r.templates.Random(ctx, tenantID)
	if err != nil {
		return "", fmt.Errorf("resolve message: %w", err)
	}
	if t == nil {
		return "", nil
	}
	return t.Content, nil
}

func (r *Resolver) RandomClient(ctx context.Context, tenantID uuid.UUID) (*models.ClientNumber, error) {
	c, err := r.clients.Random(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("resolve client: %w", err)
	}
	return c, nil
}
