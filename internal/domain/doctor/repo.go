package doctor

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Upsert creates the doctor for email or refreshes its display name.
	Upsert(ctx context.Context, email, displayName string) (*Doctor, error)
	GetByEmail(ctx context.Context, email string) (*Doctor, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	// PrimaryCalendar returns db.ErrNotFound until onboarding bound one.
	PrimaryCalendar(ctx context.Context, doctorID uuid.UUID) (*CalendarBinding, error)
	BindPrimary(ctx context.Context, b *CalendarBinding) error
}
