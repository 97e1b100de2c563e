package models

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
)

const DefaultReceiveRatio = 2.0

type WarmingConfig struct {
	MinDelaySeconds  int     `json:"minDelaySeconds" db:"min_delay_seconds"`
	MaxDelaySeconds  int     `json:"maxDelaySeconds" db:"max_delay_seconds"`
	MessagesPerHour  int     `json:"messagesPerHour" db:"messages_per_hour"`
	ActiveHoursStart int     `json:"activeHoursStart" db:"active_hours_start"`
	ActiveHoursEnd   int     `json:"activeHoursEnd" db:"active_hours_end"`
	ReceiveRatio     float64 `json:"receiveRatio" db:"receive_ratio"`
}

// DefaultWarmingConfig is used when a tenant has no stored config.
func DefaultWarmingConfig() *WarmingConfig {
	return &WarmingConfig{
		MinDelaySeconds:  60,
		MaxDelaySeconds:  180,
		MessagesPerHour:  20,
		ActiveHoursStart: 8,
		ActiveHoursEnd:   22,
		ReceiveRatio:     DefaultReceiveRatio,
	}
}

// EffectiveReceiveRatio falls back to the default for unusable values.
func (c *WarmingConfig) EffectiveReceiveRatio() float64 {
	r := c.ReceiveRatio
	if r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return DefaultReceiveRatio
	}
	return r
}

// UpdateWarmingConfigRequest is a partial update; nil fields are kept.
type UpdateWarmingConfigRequest struct {
	MinDelaySeconds  *int     `json:"minDelaySeconds" binding:"omitempty,min=1"`
	MaxDelaySeconds  *int     `json:"maxDelaySeconds" binding:"omitempty,min=1"`
	MessagesPerHour  *int     `json:"messagesPerHour" binding:"omitempty,min=1"`
	ActiveHoursStart *int     `json:"activeHoursStart" binding:"omitempty,min=0,max=23"`
	ActiveHoursEnd   *int     `json:"activeHoursEnd" binding:"omitempty,min=0,max=23"`
	ReceiveRatio     *float64 `json:"receiveRatio" binding:"omitempty,gt=0"`
}

// Apply returns a copy of cfg with the request's non-nil fields applied.
func (r *UpdateWarmingConfigRequest) Apply(cfg WarmingConfig) WarmingConfig {
	if r.MinDelaySeconds != nil {
		cfg.MinDelaySeconds = *r.MinDelaySeconds
	}
	if r.MaxDelaySeconds != nil {
		cfg.MaxDelaySeconds = *r.MaxDelaySeconds
	}
	if r.MessagesPerHour != nil {
		cfg.MessagesPerHour = *r.MessagesPerHour
	}
	if r.ActiveHoursStart != nil {
		cfg.ActiveHoursStart = *r.ActiveHoursStart
	}
	if r.ActiveHoursEnd != nil {
		cfg.ActiveHoursEnd = *r.ActiveHoursEnd
	}
	if r.ReceiveRatio != nil {
		cfg.ReceiveRatio = *r.ReceiveRatio
	}
	return cfg
}

// Action tags recorded in the activity log.
type Action string

const (
	ActionStarted            Action = "STARTED"
	ActionStopped            Action = "STOPPED"
	ActionSkipped            Action = "SKIPPED"
	ActionError              Action = "ERROR"
	ActionSecondaryToPrimary Action = "SECONDARY_TO_PRIMARY"
	ActionPrimaryToSecondary Action = "PRIMARY_TO_SECONDARY"
	ActionPrimaryToClient    Action = "PRIMARY_TO_CLIENT"
	ActionMessageReceived    Action = "MESSAGE_RECEIVED"
)

// ActivityLogEntry is an append-only audit record.
type ActivityLogEntry struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	UserID    uuid.UUID       `json:"userId" db:"user_id"`
	Action    Action          `json:"action" db:"action"`
	Details   json.RawMessage `json:"details" db:"details"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}

// ActivityDetails is the free-form payload stored with an entry.
type ActivityDetails map[string]any

// WarmingStatus is the in-memory view of a tenant's session. Halted is set
// when the session stopped scheduling itself (no primary instance).
type WarmingStatus struct {
	IsActive    bool       `json:"isActive"`
	StartedAt   *time.Time `json:"startedAt"`
	NextCycleAt *time.Time `json:"nextCycleAt"`
	Halted      bool       `json:"halted,omitempty"`
}

type WarmingActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HourlyActivity is computed from raw (hour, action, count) rows.
type HourlyActivity struct {
	Hour               time.Time `json:"hour"`
	Count              int       `json:"count"`
	SecondaryToPrimary int       `json:"secondaryToPrimary"`
	PrimaryToSecondary int       `json:"primaryToSecondary"`
	PrimaryToClient    int       `json:"primaryToClient"`
	Errors             int       `json:"errors"`
}

type ActionCount struct {
	Hour   time.Time `db:"hour"`
	Action Action    `db:"action"`
	Count  int       `db:"count"`
}

type WarmingRequirements struct {
	HasPrimaryInstance       bool `json:"hasPrimaryInstance"`
	PrimaryInstanceConnected bool `json:"primaryInstanceConnected"`
	PrimaryHasPhoneNumber    bool `json:"primaryHasPhoneNumber"`
	HasSecondaryInstances    bool `json:"hasSecondaryInstances"`
	SecondaryConnectedCount  int  `json:"secondaryConnectedCount"`
	HasMessages              bool `json:"hasMessages"`
	MessagesCount            int  `json:"messagesCount"`
	HasClientNumbers         bool `json:"hasClientNumbers"`
	ClientNumbersCount       int  `json:"clientNumbersCount"`
}

type PrimaryInstanceSummary struct {
	ID               uuid.UUID      `json:"id"`
	Name             string         `json:"name"`
	PhoneNumber      string         `json:"phoneNumber"`
	Status           InstanceStatus `json:"status"`
	APIURL           string         `json:"apiUrl"`
	MessagesSent     int64          `json:"messagesSent"`
	MessagesReceived int64          `json:"messagesReceived"`
}

type Last24hStats struct {
	Total    int            `json:"total"`
	ByAction map[Action]int `json:"byAction"`
}

type WarmingStats struct {
	Last24h Last24hStats     `json:"last24h"`
	Hourly  []HourlyActivity `json:"hourly"`
}

type WarmingDiagnostics struct {
	Status          WarmingStatus           `json:"status"`
	Config          *WarmingConfig          `json:"config"`
	Requirements    WarmingRequirements     `json:"requirements"`
	PrimaryInstance *PrimaryInstanceSummary `json:"primaryInstance"`
	Stats           WarmingStats            `json:"stats"`
	RecentErrors    []ActivityLogEntry      `json:"recentErrors"`
}
