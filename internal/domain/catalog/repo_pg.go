package catalog

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

const serviceCols = `id, doctor_id, name, alias, description, duration_minutes, created_at, updated_at`

func scanService(row pgx.Row) (*Service, error) {
	var s Service
	err := row.Scan(&s.ID, &s.DoctorID, &s.Name, &s.Alias, &s.Description, &s.DurationMinutes,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &s, nil
}

func (r *repoPG) Create(ctx context.Context, s *Service) error {
	s.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO service (id, doctor_id, name, alias, description, duration_minutes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		s.ID, s.DoctorID, s.Name, s.Alias, s.Description, s.DurationMinutes).
		Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *repoPG) Update(ctx context.Context, s *Service) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE service SET name = $3, alias = $4, description = $5, duration_minutes = $6, updated_at = NOW()
		WHERE id = $1 AND doctor_id = $2
		RETURNING created_at, updated_at`,
		s.ID, s.DoctorID, s.Name, s.Alias, s.Description, s.DurationMinutes).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	return db.NotFound(err)
}

func (r *repoPG) ReplacePricing(ctx context.Context, serviceID uuid.UUID, prices []Price) error {
	conn := r.conn(ctx)
	if _, err := conn.Exec(ctx, `DELETE FROM service_pricing WHERE service_id = $1`, serviceID); err != nil {
		return err
	}
	for _, p := range prices {
		if _, err := conn.Exec(ctx, `
			INSERT INTO service_pricing (service_id, location_id, price_minor) VALUES ($1, $2, $3)`,
			serviceID, p.LocationID, p.PriceMinor); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, doctorID, id uuid.UUID) (*Service, error) {
	s, err := scanService(r.conn(ctx).QueryRow(ctx,
		`SELECT `+serviceCols+` FROM service WHERE id = $1 AND doctor_id = $2`, id, doctorID))
	if err != nil {
		return nil, err
	}
	if err := r.loadPricing(ctx, []*Service{s}); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *repoPG) Delete(ctx context.Context, doctorID, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM service WHERE id = $1 AND doctor_id = $2`, id, doctorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Service, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM service WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+serviceCols+` FROM service WHERE doctor_id = $1 ORDER BY name LIMIT $2 OFFSET $3`,
		doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.loadPricing(ctx, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// loadPricing fills Pricing for every service in one query.
func (r *repoPG) loadPricing(ctx context.Context, services []*Service) error {
	if len(services) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*Service, len(services))
	ids := make([]string, 0, len(services))
	for _, s := range services {
		s.Pricing = []Price{}
		byID[s.ID] = s
		ids = append(ids, s.ID.String())
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT sp.service_id, sp.location_id, l.name, sp.price_minor
		FROM service_pricing sp JOIN location l ON l.id = sp.location_id
		WHERE sp.service_id = ANY($1::uuid[])
		ORDER BY l.name`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var serviceID uuid.UUID
		var p Price
		if err := rows.Scan(&serviceID, &p.LocationID, &p.LocationName, &p.PriceMinor); err != nil {
			return err
		}
		if s, ok := byID[serviceID]; ok {
			s.Pricing = append(s.Pricing, p)
		}
	}
	return rows.Err()
}
