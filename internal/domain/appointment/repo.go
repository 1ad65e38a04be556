package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts the appointment and its patient rows. Callers run it in a
	// transaction so both land together.
	Create(ctx context.Context, a *Appointment) error
	SetExternal(ctx context.Context, id uuid.UUID, calendarID, eventID string) error
	GetByID(ctx context.Context, doctorID, id uuid.UUID) (*Appointment, error)
	// Delete removes the appointment; patient rows cascade.
	Delete(ctx context.Context, doctorID, id uuid.UUID) error
	// List returns appointments starting in [from, to). Nil bounds are open.
	List(ctx context.Context, doctorID uuid.UUID, from, to *time.Time, limit, offset int) ([]*Appointment, int, error)
}
