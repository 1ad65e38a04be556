package catalog

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, s *Service) error
	Update(ctx context.Context, s *Service) error
	// ReplacePricing swaps the service's pricing rows for prices.
	ReplacePricing(ctx context.Context, serviceID uuid.UUID, prices []Price) error
	GetByID(ctx context.Context, doctorID, id uuid.UUID) (*Service, error)
	Delete(ctx context.Context, doctorID, id uuid.UUID) error
	List(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Service, int, error)
}
