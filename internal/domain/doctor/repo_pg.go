package doctor

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

const doctorCols = `id, email, display_name, created_at, updated_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	if err := row.Scan(&d.ID, &d.Email, &d.DisplayName, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, db.NotFound(err)
	}
	return &d, nil
}

func (r *repoPG) Upsert(ctx context.Context, email, displayName string) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctor (id, email, display_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE
			SET display_name = COALESCE(NULLIF(EXCLUDED.display_name, ''), doctor.display_name),
			    updated_at = NOW()
		RETURNING `+doctorCols,
		uuid.New(), email, displayName))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE email = $1`, email))
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE id = $1`, id))
}

func (r *repoPG) PrimaryCalendar(ctx context.Context, doctorID uuid.UUID) (*CalendarBinding, error) {
	var b CalendarBinding
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT doctor_id, external_calendar_id, summary, time_zone, is_primary, bound_at
		FROM doctor_calendar WHERE doctor_id = $1 AND is_primary`, doctorID).
		Scan(&b.DoctorID, &b.CalendarID, &b.Summary, &b.TimeZone, &b.Primary, &b.BoundAt)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &b, nil
}

// BindPrimary relies on doctor_calendar_one_primary to refuse a second
// primary binding with a unique violation.
func (r *repoPG) BindPrimary(ctx context.Context, b *CalendarBinding) error {
	b.Primary = true
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctor_calendar (doctor_id, external_calendar_id, summary, time_zone, is_primary)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING bound_at`,
		b.DoctorID, b.CalendarID, b.Summary, b.TimeZone).Scan(&b.BoundAt)
}
