package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is an account that owns instances, messages, client numbers,
// a warming config and at most one warming session.
type Tenant struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type CreateTenantRequest struct {
	Name string `json:"name" binding:"required"`
}
