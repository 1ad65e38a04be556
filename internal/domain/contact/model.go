// Package contact stores the requests prospective patients send through the
// public contact form.
package contact

import (
	"time"

	"github.com/google/uuid"
)

// Request maps to the contact_request table.
type Request struct {
	ID         uuid.UUID  `json:"id"`
	Reference  string     `json:"reference"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone,omitempty"`
	Message    string     `json:"message"`
	LocationID *uuid.UUID `json:"location_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	HandledAt  *time.Time `json:"handled_at,omitempty"`
}

type Input struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Message    string `json:"message"`
	LocationID string `json:"location_id"`
}
