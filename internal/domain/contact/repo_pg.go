package contact

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medici/medici/internal/platform/db"
)

type repoPG struct{ q db.Querier }

func NewRepoPG(q db.Querier) Repository { return &repoPG{q: q} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.q)
}

const requestCols = `id, reference, name, email, phone, message, location_id, created_at, handled_at`

func scanRequest(row pgx.Row) (*Request, error) {
	var req Request
	err := row.Scan(&req.ID, &req.Reference, &req.Name, &req.Email, &req.Phone, &req.Message,
		&req.LocationID, &req.CreatedAt, &req.HandledAt)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &req, nil
}

func (r *repoPG) Create(ctx context.Context, req *Request) error {
	req.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO contact_request (id, reference, name, email, phone, message, location_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		req.ID, req.Reference, req.Name, req.Email, req.Phone, req.Message, req.LocationID).
		Scan(&req.CreatedAt)
}

func (r *repoPG) List(ctx context.Context, pendingOnly bool, limit, offset int) ([]*Request, int, error) {
	const where = `($1 = FALSE OR handled_at IS NULL)`

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM contact_request WHERE `+where, pendingOnly).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+requestCols+` FROM contact_request WHERE `+where+` ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		pendingOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, req)
	}
	return items, total, rows.Err()
}

func (r *repoPG) MarkHandled(ctx context.Context, id uuid.UUID, at time.Time) (*Request, error) {
	return scanRequest(r.conn(ctx).QueryRow(ctx, `
		UPDATE contact_request SET handled_at = COALESCE(handled_at, $2)
		WHERE id = $1
		RETURNING `+requestCols, id, at))
}
