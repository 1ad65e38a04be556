package patient

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medici/medici/internal/platform/apperr"
	"github.com/medici/medici/internal/platform/db"
	"github.com/medici/medici/internal/platform/validation"
)

const dateLayout = "2006-01-02"

type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

func (s *Service) rules() validation.Rules[Input] {
	return validation.Rules[Input]{
		"name": func(in Input) string {
			if validation.Blank(in.Name) {
				return "name is required"
			}
			if !validation.MaxLen(in.Name, 200) {
				return "name must be at most 200 characters"
			}
			return ""
		},
		"email": func(in Input) string {
			if in.Email != "" && !validation.Email(in.Email) {
				return "enter a valid email"
			}
			return ""
		},
		"phone": func(in Input) string {
			if !validation.MaxLen(in.Phone, 32) {
				return "phone number is too long"
			}
			return ""
		},
		"tax_id": func(in Input) string {
			if !validation.MaxLen(in.TaxID, 32) {
				return "tax id is too long"
			}
			return ""
		},
		"birth_date": func(in Input) string {
			if in.BirthDate == "" {
				return ""
			}
			d, err := time.Parse(dateLayout, in.BirthDate)
			if err != nil {
				return "use the format YYYY-MM-DD"
			}
			if d.After(s.now()) {
				return "birth date cannot be in the future"
			}
			return ""
		},
	}
}

func (s *Service) build(doctorID uuid.UUID, in Input) (*Patient, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.TaxID = strings.TrimSpace(in.TaxID)
	in.BirthDate = strings.TrimSpace(in.BirthDate)
	if err := s.rules().Validate(in).Err(); err != nil {
		return nil, err
	}
	return &Patient{
		DoctorID:  doctorID,
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		TaxID:     in.TaxID,
		BirthDate: in.BirthDate,
		Notes:     strings.TrimSpace(in.Notes),
	}, nil
}

func (s *Service) Create(ctx context.Context, doctorID uuid.UUID, in Input) (*Patient, error) {
	p, err := s.build(doctorID, in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		s.logger.Error().Err(err).Str("doctor_id", doctorID.String()).Msg("create patient failed")
		return nil, apperr.Storage("create patient", err)
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, doctorID, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, doctorID, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("patient")
	}
	if err != nil {
		return nil, apperr.Storage("get patient", err)
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, doctorID uuid.UUID, in Input) (*Patient, error) {
	id, err := validation.ParseID("id", in.ID)
	if err != nil {
		return nil, err
	}
	p, err := s.build(doctorID, in)
	if err != nil {
		return nil, err
	}
	p.ID = id
	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperr.NotFound("patient")
		}
		s.logger.Error().Err(err).Str("doctor_id", doctorID.String()).Str("patient_id", id.String()).Msg("update patient failed")
		return nil, apperr.Storage("update patient", err)
	}
	return p, nil
}

// Delete refuses patients that still appear on appointments.
func (s *Service) Delete(ctx context.Context, doctorID, id uuid.UUID) error {
	err := s.repo.Delete(ctx, doctorID, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrNotFound):
		return apperr.NotFound("patient")
	case db.IsForeignKeyViolation(err):
		return apperr.Conflict("this patient has appointments, delete them first")
	}
	s.logger.Error().Err(err).Str("doctor_id", doctorID.String()).Str("patient_id", id.String()).Msg("delete patient failed")
	return apperr.Storage("delete patient", err)
}

func (s *Service) Search(ctx context.Context, doctorID uuid.UUID, query string, limit, offset int) ([]*Patient, int, error) {
	items, total, err := s.repo.Search(ctx, doctorID, query, limit, offset)
	if err != nil {
		return nil, 0, apperr.Storage("search patients", err)
	}
	return items, total, nil
}

// Lookup returns the doctor's patients for ids in the order given. Any id the
// doctor does not own is reported on the patient_ids field.
func (s *Service) Lookup(ctx context.Context, doctorID uuid.UUID, ids []uuid.UUID) ([]*Patient, error) {
	found, err := s.repo.GetMany(ctx, doctorID, ids)
	if err != nil {
		return nil, apperr.Storage("get patients", err)
	}
	byID := make(map[uuid.UUID]*Patient, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]*Patient, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, apperr.Field("patient_ids", "one of the selected patients does not exist")
		}
		out = append(out, p)
	}
	return out, nil
}
