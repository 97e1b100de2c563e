package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxMessageTemplates caps a tenant's message pool.
const MaxMessageTemplates = 100

// MessageTemplate is a free-text body the scheduler may send.
type MessageTemplate struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"userId" db:"user_id"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type CreateMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type ImportMessagesRequest struct {
	Contents []string `json:"contents" binding:"required,min=1"`
}

type ClientNumber struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"userId" db:"user_id"`
	PhoneNumber string    `json:"phoneNumber" db:"phone_number"`
	Name        *string   `json:"name,omitempty" db:"name"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// DisplayName is the contact name, falling back to the number.
func (c *ClientNumber) DisplayName() string {
	if c.Name != nil && *c.Name != "" {
		return *c.Name
	}
	return c.PhoneNumber
}

type CreateClientNumberRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Name        string `json:"name"`
}

type ImportClientNumbersRequest struct {
	Numbers []CreateClientNumberRequest `json:"numbers" binding:"required,min=1"`
}
