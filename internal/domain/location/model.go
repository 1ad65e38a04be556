package location

import (
	"time"

	"github.com/google/uuid"
)

// Location maps to the location table: a practice address owned by one doctor.
type Location struct {
	ID         uuid.UUID `json:"id"`
	DoctorID   uuid.UUID `json:"doctor_id"`
	Name       string    `json:"name"`
	Alias      string    `json:"alias"`
	Address    string    `json:"address"`
	City       string    `json:"city"`
	PostalCode string    `json:"postal_code"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Input is the create/update payload. ID is only read by update.
type Input struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Alias      string `json:"alias"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

// EventText is how the location reads in a calendar event.
func (l *Location) EventText() string {
	switch {
	case l.Address != "" && l.City != "":
		return l.Name + ", " + l.Address + ", " + l.City
	case l.City != "":
		return l.Name + ", " + l.City
	}
	return l.Name
}
