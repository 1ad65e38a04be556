// Package catalog manages the services a doctor offers and their price at
// each location.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Service maps to the service table together with its service_pricing rows.
type Service struct {
	ID              uuid.UUID `json:"id"`
	DoctorID        uuid.UUID `json:"doctor_id"`
	Name            string    `json:"name"`
	Alias           string    `json:"alias"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"duration_minutes"`
	Pricing         []Price   `json:"pricing"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Price is the amount charged for a service at one location, in minor units
// (cents).
type Price struct {
	LocationID   uuid.UUID `json:"location_id"`
	LocationName string    `json:"location_name,omitempty"`
	PriceMinor   int64     `json:"price_minor"`
}

// PriceAt returns the service price at a location.
func (s *Service) PriceAt(locationID uuid.UUID) (int64, bool) {
	for _, p := range s.Pricing {
		if p.LocationID == locationID {
			return p.PriceMinor, true
		}
	}
	return 0, false
}

type PriceInput struct {
	LocationID string `json:"location_id"`
	PriceMinor int64  `json:"price_minor"`
}

// Input is the create/update payload. ID is only read by update, which
// replaces the whole pricing set.
type Input struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Alias           string       `json:"alias"`
	Description     string       `json:"description"`
	DurationMinutes int          `json:"duration_minutes"`
	Pricing         []PriceInput `json:"pricing"`
}
