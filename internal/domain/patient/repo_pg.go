package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medici/medici/internal/platform/db"
)

type repoPG struct{ q db.Querier }

func NewRepoPG(q db.Querier) Repository { return &repoPG{q: q} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.q)
}

const patientCols = `id, doctor_id, name, email, phone, tax_id,
	COALESCE(to_char(birth_date, 'YYYY-MM-DD'), ''), notes, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.DoctorID, &p.Name, &p.Email, &p.Phone, &p.TaxID,
		&p.BirthDate, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (id, doctor_id, name, email, phone, tax_id, birth_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::date, $8)
		RETURNING created_at, updated_at`,
		p.ID, p.DoctorID, p.Name, p.Email, p.Phone, p.TaxID, p.BirthDate, p.Notes).
		Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, doctorID, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1 AND doctor_id = $2`, id, doctorID))
}

func (r *repoPG) GetMany(ctx context.Context, doctorID uuid.UUID, ids []uuid.UUID) ([]*Patient, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patient WHERE doctor_id = $1 AND id = ANY($2::uuid[])`, doctorID, raw)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE patient SET name = $3, email = $4, phone = $5, tax_id = $6,
			birth_date = NULLIF($7, '')::date, notes = $8, updated_at = NOW()
		WHERE id = $1 AND doctor_id = $2
		RETURNING created_at, updated_at`,
		p.ID, p.DoctorID, p.Name, p.Email, p.Phone, p.TaxID, p.BirthDate, p.Notes).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.NotFound(err)
}

func (r *repoPG) Delete(ctx context.Context, doctorID, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1 AND doctor_id = $2`, id, doctorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *repoPG) Search(ctx context.Context, doctorID uuid.UUID, query string, limit, offset int) ([]*Patient, int, error) {
	where := `doctor_id = $1`
	args := []interface{}{doctorID}
	if q := strings.TrimSpace(query); q != "" {
		where += ` AND (name ILIKE $2 OR email ILIKE $2)`
		args = append(args, "%"+escapeLike(q)+"%")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	idx := len(args) + 1
	sql := fmt.Sprintf(`SELECT %s FROM patient WHERE %s ORDER BY name LIMIT $%d OFFSET $%d`, patientCols, where, idx, idx+1)
	rows, err := r.conn(ctx).Query(ctx, sql, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
