package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patient table. Contact fields are optional.
type Patient struct {
	ID       uuid.UUID `json:"id"`
	DoctorID uuid.UUID `json:"doctor_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email,omitempty"`
	Phone    string    `json:"phone,omitempty"`
	TaxID    string    `json:"tax_id,omitempty"`
	// BirthDate is a calendar date, YYYY-MM-DD.
	BirthDate string    `json:"birth_date,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Input struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	TaxID     string `json:"tax_id"`
	BirthDate string `json:"birth_date"`
	Notes     string `json:"notes"`
}
