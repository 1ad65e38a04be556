package location

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog"

	"github.com/medici/medici/internal/platform/apperr"
	"github.com/medici/medici/internal/platform/db"
	"github.com/medici/medici/internal/platform/validation"
)

var rules = validation.Rules[Input]{
	"name": func(in Input) string {
		if validation.Blank(in.Name) {
			return "name is required"
		}
		if !validation.MaxLen(in.Name, 120) {
			return "name must be at most 120 characters"
		}
		return ""
	},
	"alias": func(in Input) string {
		if in.Alias != "" && !validation.Slug(in.Alias) {
			return "use lowercase letters, digits and dashes"
		}
		return ""
	},
	"postal_code": func(in Input) string {
		if !validation.MaxLen(in.PostalCode, 16) {
			return "postal code is too long"
		}
		return ""
	},
}

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func normalize(in Input) Input {
	in.Name = strings.TrimSpace(in.Name)
	in.Alias = strings.TrimSpace(in.Alias)
	in.Address = strings.TrimSpace(in.Address)
	in.City = strings.TrimSpace(in.City)
	in.PostalCode = strings.TrimSpace(in.PostalCode)
	return in
}

func build(doctorID uuid.UUID, in Input) (*Location, error) {
	in = normalize(in)
	if err := rules.Validate(in).Err(); err != nil {
		return nil, err
	}
	if in.Alias == "" {
		if in.Alias = slug.Make(in.Name); in.Alias == "" {
			return nil, apperr.Field("alias", "choose an alias for this location")
		}
	}
	return &Location{
		DoctorID:   doctorID,
		Name:       in.Name,
		Alias:      in.Alias,
		Address:    in.Address,
		City:       in.City,
		PostalCode: in.PostalCode,
	}, nil
}

func (s *Service) writeError(op string, l *Location, err error) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return apperr.NotFound("location")
	case db.IsUniqueViolation(err):
		return apperr.Conflict("this alias is already in use")
	}
	s.logger.Error().Err(err).Str("doctor_id", l.DoctorID.String()).Str("alias", l.Alias).Msg(op + " failed")
	return apperr.Storage(op, err)
}

func (s *Service) Create(ctx context.Context, doctorID uuid.UUID, in Input) (*Location, error) {
	l, err := build(doctorID, in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return nil, s.writeError("create location", l, err)
	}
	return l, nil
}

func (s *Service) Get(ctx context.Context, doctorID, id uuid.UUID) (*Location, error) {
	l, err := s.repo.GetByID(ctx, doctorID, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("location")
	}
	if err != nil {
		return nil, apperr.Storage("get location", err)
	}
	return l, nil
}

func (s *Service) Update(ctx context.Context, doctorID uuid.UUID, in Input) (*Location, error) {
	id, err := validation.ParseID("id", in.ID)
	if err != nil {
		return nil, err
	}
	l, err := build(doctorID, in)
	if err != nil {
		return nil, err
	}
	l.ID = id
	if err := s.repo.Update(ctx, l); err != nil {
		return nil, s.writeError("update location", l, err)
	}
	return l, nil
}

// Delete refuses locations still referenced by services or appointments.
func (s *Service) Delete(ctx context.Context, doctorID, id uuid.UUID) error {
	err := s.repo.Delete(ctx, doctorID, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrNotFound):
		return apperr.NotFound("location")
	case db.IsForeignKeyViolation(err):
		return apperr.Conflict("this location is still used by services or appointments")
	}
	s.logger.Error().Err(err).Str("doctor_id", doctorID.String()).Str("location_id", id.String()).Msg("delete location failed")
	return apperr.Storage("delete location", err)
}

func (s *Service) List(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Location, int, error) {
	items, total, err := s.repo.List(ctx, doctorID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Storage("list locations", err)
	}
	return items, total, nil
}
