package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, doctorID, id uuid.UUID) (*Patient, error)
	// GetMany returns the doctor's patients among ids, in no particular order.
	GetMany(ctx context.Context, doctorID uuid.UUID, ids []uuid.UUID) ([]*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, doctorID, id uuid.UUID) error
	// Search lists patients whose name or email contains query; "" lists all.
	Search(ctx context.Context, doctorID uuid.UUID, query string, limit, offset int) ([]*Patient, int, error)
}
