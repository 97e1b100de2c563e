package warming

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/galihcitta/number-warming-service/internal/models"
	"github.com/galihcitta/number-warming-service/internal/repository"
)

const (
	DefaultLogLimit  = 50
	MaxLogLimit      = 500
	recentErrorLimit = 10
	statsWindow      = 24 * time.Hour
)

// StatusSource is implemented by Registry.
type StatusSource interface {
	Status(tenantID uuid.UUID) models.WarmingStatus
}

// Diagnostics assembles the readiness checklist and recent activity a
// tenant uses to find out why warming is not sending.
type Diagnostics struct {
	status    StatusSource
	configs   ConfigStore
	instances InstanceStore
	resolver  *Resolver
	templates TemplateStore
	clients   ClientStore
	logs      LogReader
	now       func() time.Time
}

func NewDiagnostics(
	status StatusSource,
	configs ConfigStore,
	instances InstanceStore,
	resolver *Resolver,
	templates TemplateStore,
	clients ClientStore,
	logs LogReader,
) *Diagnostics {
	return &Diagnostics{
		status:    status,
		configs:   configs,
		instances: instances,
		resolver:  resolver,
		templates: templates,
		clients:   clients,
		logs:      logs,
		now:       time.Now,
	}
}

// ClampLogLimit applies the default and upper bound to a requested limit.
func ClampLogLimit(limit int) int {
	if limit <= 0 {
		return DefaultLogLimit
	}
	if limit > MaxLogLimit {
		return MaxLogLimit
	}
	return limit
}

// ActivityLog returns the newest entries first. A missing log table reads
// as an empty log.
func (d *Diagnostics) ActivityLog(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.ActivityLogEntry, error) {
	entries, err := d.logs.ListRecent(ctx, tenantID, ClampLogLimit(limit))
	if err != nil {
		if repository.IsUndefinedTable(err) {
			return []models.ActivityLogEntry{}, nil
		}
		return nil, fmt.Errorf("failed to load activity log: %w", err)
	}
	return entries, nil
}

func (d *Diagnostics) Collect(ctx context.Context, tenantID uuid.UUID) (*models.WarmingDiagnostics, error) {
	cfg, err := d.configs.GetConfig(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	primary, err := d.resolver.Primary(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	secondaries, err := d.instances.ListConnectedSecondaries(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list secondaries: %w", err)
	}

	messageCount, err := d.templates.Count(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}

	clientCount, err := d.clients.Count(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count client numbers: %w", err)
	}

	diag := &models.WarmingDiagnostics{
		Status: d.status.Status(tenantID),
		Config: cfg,
		Requirements: models.WarmingRequirements{
			HasPrimaryInstance:      primary != nil,
			HasSecondaryInstances:   len(secondaries) > 0,
			SecondaryConnectedCount: len(secondaries),
			HasMessages:             messageCount > 0,
			MessagesCount:           messageCount,
			HasClientNumbers:        clientCount > 0,
			ClientNumbersCount:      clientCount,
		},
		RecentErrors: []models.ActivityLogEntry{},
	}

	if primary != nil {
		diag.Requirements.PrimaryInstanceConnected = primary.IsConnected()
		diag.Requirements.PrimaryHasPhoneNumber = primary.HasPhoneNumber()
		diag.PrimaryInstance = &models.PrimaryInstanceSummary{
			ID:               primary.ID,
			Name:             primary.Name,
			PhoneNumber:      primary.PhoneNumber,
			Status:           primary.Status,
			APIURL:           primary.APIURL,
			MessagesSent:     primary.MessagesSent,
			MessagesReceived: primary.MessagesReceived,
		}
	}

	counts, err := d.logs.HourlyCounts(ctx, tenantID, d.now().Add(-statsWindow))
	if err != nil && !repository.IsUndefinedTable(err) {
		return nil, fmt.Errorf("failed to load hourly activity: %w", err)
	}
	diag.Stats = SummarizeActivity(counts)

	recent, err := d.logs.RecentErrors(ctx, tenantID, recentErrorLimit)
	if err != nil && !repository.IsUndefinedTable(err) {
		return nil, fmt.Errorf("failed to load recent errors: %w", err)
	}
	if recent != nil {
		diag.RecentErrors = recent
	}

	return diag, nil
}

// SummarizeActivity folds (hour, action, count) rows into per-hour buckets
// (newest first) and per-action totals.
func SummarizeActivity(counts []models.ActionCount) models.WarmingStats {
	stats := models.WarmingStats{
		Last24h: models.Last24hStats{ByAction: map[models.Action]int{}},
		Hourly:  []models.HourlyActivity{},
	}

	byHour := make(map[int64]*models.HourlyActivity)
	for _, c := range counts {
		stats.Last24h.Total += c.Count
		stats.Last24h.ByAction[c.Action] += c.Count

		key := c.Hour.Unix()
		bucket, ok := byHour[key]
		if !ok {
			bucket = &models.HourlyActivity{Hour: c.Hour}
			byHour[key] = bucket
		}
		bucket.Count += c.Count
		switch c.Action {
		case models.ActionSecondaryToPrimary:
			bucket.SecondaryToPrimary += c.Count
		case models.ActionPrimaryToSecondary:
			bucket.PrimaryToSecondary += c.Count
		case models.ActionPrimaryToClient:
			bucket.PrimaryToClient += c.Count
		case models.ActionError:
			bucket.Errors += c.Count
		}
	}

	for _, bucket := range byHour {
		stats.Hourly = append(stats.Hourly, *bucket)
	}
	sort.Slice(stats.Hourly, func(i, j int) bool {
		return stats.Hourly[i].Hour.After(stats.Hourly[j].Hour)
	})
	return stats
}
