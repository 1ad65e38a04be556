package location

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medici/medici/internal/platform/db"
)

type repoPG struct{ q db.Querier }

func NewRepoPG(q db.Querier) Repository { return &repoPG{q: q} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.q)
}

const locationCols = `id, doctor_id, name, alias, address, city, postal_code, created_at, updated_at`

func scanLocation(row pgx.Row) (*Location, error) {
	var l Location
	err := row.Scan(&l.ID, &l.DoctorID, &l.Name, &l.Alias, &l.Address, &l.City, &l.PostalCode,
		&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &l, nil
}

func (r *repoPG) Create(ctx context.Context, l *Location) error {
	l.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO location (id, doctor_id, name, alias, address, city, postal_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		l.ID, l.DoctorID, l.Name, l.Alias, l.Address, l.City, l.PostalCode).
		Scan(&l.CreatedAt, &l.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, doctorID, id uuid.UUID) (*Location, error) {
	return scanLocation(r.conn(ctx).QueryRow(ctx,
		`SELECT `+locationCols+` FROM location WHERE id = $1 AND doctor_id = $2`, id, doctorID))
}

func (r *repoPG) Update(ctx context.Context, l *Location) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE location SET name = $3, alias = $4, address = $5, city = $6, postal_code = $7, updated_at = NOW()
		WHERE id = $1 AND doctor_id = $2
		RETURNING created_at, updated_at`,
		l.ID, l.DoctorID, l.Name, l.Alias, l.Address, l.City, l.PostalCode).
		Scan(&l.CreatedAt, &l.UpdatedAt)
	return db.NotFound(err)
}

func (r *repoPG) Delete(ctx context.Context, doctorID, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM location WHERE id = $1 AND doctor_id = $2`, id, doctorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Location, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM location WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+locationCols+` FROM location WHERE doctor_id = $1 ORDER BY name LIMIT $2 OFFSET $3`,
		doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, l)
	}
	return items, total, rows.Err()
}
