package contact

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Request) error
	// List returns requests newest first; pendingOnly skips handled ones.
	List(ctx context.Context, pendingOnly bool, limit, offset int) ([]*Request, int, error)
	// MarkHandled sets handled_at once. Returns db.ErrNotFound for unknown ids.
	MarkHandled(ctx context.Context, id uuid.UUID, at time.Time) (*Request, error)
}
