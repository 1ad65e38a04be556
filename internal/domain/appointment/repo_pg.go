package appointment

import (
	"context"
	"fmt"
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

const appointmentCols = `a.id, a.doctor_id, a.service_id, a.location_id, a.starts_at, a.ends_at,
	a.duration_minutes, a.price_minor, a.external_calendar_id, a.external_event_id, a.created_at,
	COALESCE(array_agg(ap.patient_id::text ORDER BY ap.patient_id) FILTER (WHERE ap.patient_id IS NOT NULL), '{}')`

const appointmentFrom = `appointment a LEFT JOIN appointment_patient ap ON ap.appointment_id = a.id`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var patientIDs []string
	err := row.Scan(&a.ID, &a.DoctorID, &a.ServiceID, &a.LocationID, &a.StartsAt, &a.EndsAt,
		&a.DurationMinutes, &a.PriceMinor, &a.ExternalCalendarID, &a.ExternalEventID, &a.CreatedAt,
		&patientIDs)
	if err != nil {
		return nil, db.NotFound(err)
	}
	a.StartsAt = a.StartsAt.UTC()
	a.EndsAt = a.EndsAt.UTC()
	a.PatientIDs = make([]uuid.UUID, 0, len(patientIDs))
	for _, raw := range patientIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse patient id %q: %w", raw, err)
		}
		a.PatientIDs = append(a.PatientIDs, id)
	}
	return &a, nil
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	conn := r.conn(ctx)
	err := conn.QueryRow(ctx, `
		INSERT INTO appointment (id, doctor_id, service_id, location_id, starts_at, ends_at,
			duration_minutes, price_minor)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		a.ID, a.DoctorID, a.ServiceID, a.LocationID, a.StartsAt, a.EndsAt,
		a.DurationMinutes, a.PriceMinor).Scan(&a.CreatedAt)
	if err != nil {
		return err
	}
	for _, pid := range a.PatientIDs {
		if _, err := conn.Exec(ctx,
			`INSERT INTO appointment_patient (appointment_id, patient_id) VALUES ($1, $2)`,
			a.ID, pid); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) SetExternal(ctx context.Context, id uuid.UUID, calendarID, eventID string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointment SET external_calendar_id = $2, external_event_id = $3 WHERE id = $1`,
		id, calendarID, eventID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, doctorID, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx, `
		SELECT `+appointmentCols+` FROM `+appointmentFrom+`
		WHERE a.id = $1 AND a.doctor_id = $2
		GROUP BY a.id`, id, doctorID))
}

func (r *repoPG) Delete(ctx context.Context, doctorID, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointment WHERE id = $1 AND doctor_id = $2`, id, doctorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, doctorID uuid.UUID, from, to *time.Time, limit, offset int) ([]*Appointment, int, error) {
	const where = `a.doctor_id = $1
		AND ($2::timestamptz IS NULL OR a.starts_at >= $2)
		AND ($3::timestamptz IS NULL OR a.starts_at < $3)`

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment a WHERE `+where,
		doctorID, from, to).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+appointmentCols+` FROM `+appointmentFrom+`
		WHERE `+where+`
		GROUP BY a.id
		ORDER BY a.starts_at
		LIMIT $4 OFFSET $5`, doctorID, from, to, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}
