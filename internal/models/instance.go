package models

import (
	"time"

	"github.com/google/uuid"
)

type InstanceStatus string

const (
	InstanceConnected    InstanceStatus = "connected"
	InstanceDisconnected InstanceStatus = "disconnected"
	InstanceWarming      InstanceStatus = "warming"
)

// Instance is a connection to the Evolution gateway. Name doubles as the
// gateway routing key. UserID is nil for global instances.
type Instance struct {
	ID               uuid.UUID      `json:"id" db:"id"`
	UserID           *uuid.UUID     `json:"userId,omitempty" db:"user_id"`
	Name             string         `json:"name" db:"name"`
	APIURL           string         `json:"apiUrl" db:"api_url"`
	APIKey           string         `json:"apiKey" db:"api_key"`
	PhoneNumber      string         `json:"phoneNumber,omitempty" db:"phone_number"`
	Status           InstanceStatus `json:"status" db:"status"`
	IsPrimary        bool           `json:"isPrimary" db:"is_primary"`
	IsGlobal         bool           `json:"isGlobal" db:"is_global"`
	MessagesSent     int64          `json:"messagesSent" db:"messages_sent"`
	MessagesReceived int64          `json:"messagesReceived" db:"messages_received"`
	LastActivity     *time.Time     `json:"lastActivity,omitempty" db:"last_activity"`
	CreatedAt        time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time      `json:"updatedAt" db:"updated_at"`
}

func (i *Instance) IsConnected() bool {
	return i.Status == InstanceConnected
}

func (i *Instance) HasPhoneNumber() bool {
	return i.PhoneNumber != ""
}

// OwnedBy reports whether the tenant may mutate the instance.
func (i *Instance) OwnedBy(tenantID uuid.UUID) bool {
	return i.UserID != nil && *i.UserID == tenantID
}

type CreateInstanceRequest struct {
	Name        string `json:"name" binding:"required"`
	APIURL      string `json:"apiUrl" binding:"required,url"`
	APIKey      string `json:"apiKey" binding:"required"`
	PhoneNumber string `json:"phoneNumber"`
	IsPrimary   bool   `json:"isPrimary"`
	IsGlobal    bool   `json:"isGlobal"`
}

// UpdateInstanceRequest is a partial update; nil fields are left untouched.
type UpdateInstanceRequest struct {
	Name        *string         `json:"name"`
	APIURL      *string         `json:"apiUrl" binding:"omitempty,url"`
	APIKey      *string         `json:"apiKey"`
	PhoneNumber *string         `json:"phoneNumber"`
	Status      *InstanceStatus `json:"status" binding:"omitempty,oneof=connected disconnected warming"`
	IsPrimary   *bool           `json:"isPrimary"`
}

type InstanceStatusResponse struct {
	Status   InstanceStatus `json:"status"`
	RawState string         `json:"rawState,omitempty"`
	Message  string         `json:"message"`
}
