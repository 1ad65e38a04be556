package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog"

	"github.com/medici/medici/internal/domain/location"
	"github.com/medici/medici/internal/platform/apperr"
	"github.com/medici/medici/internal/platform/db"
	"github.com/medici/medici/internal/platform/validation"
)

// maxDurationMinutes caps a service at one working day.
const maxDurationMinutes = 12 * 60

// LocationLookup resolves a location owned by the doctor.
type LocationLookup interface {
	Get(ctx context.Context, doctorID, id uuid.UUID) (*location.Location, error)
}

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
	"duration_minutes": func(in Input) string {
		if in.DurationMinutes <= 0 {
			return "duration must be greater than zero"
		}
		if in.DurationMinutes > maxDurationMinutes {
			return fmt.Sprintf("duration must be at most %d minutes", maxDurationMinutes)
		}
		return ""
	},
	"pricing": func(in Input) string {
		if len(in.Pricing) == 0 {
			return "add a price for at least one location"
		}
		return ""
	},
}

type Catalog struct {
	repo      Repository
	locations LocationLookup
	tx        db.Transactor
	logger    zerolog.Logger
}

func NewCatalog(repo Repository, locations LocationLookup, tx db.Transactor, logger zerolog.Logger) *Catalog {
	return &Catalog{repo: repo, locations: locations, tx: tx, logger: logger}
}

// build validates in and resolves every pricing location. All field errors
// are reported together.
func (c *Catalog) build(ctx context.Context, doctorID uuid.UUID, in Input) (*Service, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Alias = strings.TrimSpace(in.Alias)
	in.Description = strings.TrimSpace(in.Description)

	errs := rules.Validate(in)
	prices := make([]Price, 0, len(in.Pricing))
	seen := make(map[uuid.UUID]bool, len(in.Pricing))
	for i, p := range in.Pricing {
		field := fmt.Sprintf("pricing[%d]", i)
		if p.PriceMinor <= 0 {
			errs.Add(field+".price_minor", "price must be greater than zero")
		}
		locID, err := uuid.Parse(p.LocationID)
		if err != nil {
			errs.Add(field+".location_id", "choose a location")
			continue
		}
		if seen[locID] {
			errs.Add(field+".location_id", "this location already has a price")
			continue
		}
		seen[locID] = true

		loc, err := c.locations.Get(ctx, doctorID, locID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				errs.Add(field+".location_id", "unknown location")
				continue
			}
			return nil, err
		}
		prices = append(prices, Price{LocationID: loc.ID, LocationName: loc.Name, PriceMinor: p.PriceMinor})
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	if in.Alias == "" {
		if in.Alias = slug.Make(in.Name); in.Alias == "" {
			return nil, apperr.Field("alias", "choose an alias for this service")
		}
	}
	return &Service{
		DoctorID:        doctorID,
		Name:            in.Name,
		Alias:           in.Alias,
		Description:     in.Description,
		DurationMinutes: in.DurationMinutes,
		Pricing:         prices,
	}, nil
}

func (c *Catalog) writeError(op string, s *Service, err error) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return apperr.NotFound("service")
	case db.IsUniqueViolation(err):
		return apperr.Conflict("this alias is already in use")
	case db.IsForeignKeyViolation(err):
		return apperr.Conflict("a pricing location no longer exists")
	}
	c.logger.Error().Err(err).Str("doctor_id", s.DoctorID.String()).Str("alias", s.Alias).Msg(op + " failed")
	return apperr.Storage(op, err)
}

// Create stores the service and its pricing in one transaction.
func (c *Catalog) Create(ctx context.Context, doctorID uuid.UUID, in Input) (*Service, error) {
	s, err := c.build(ctx, doctorID, in)
	if err != nil {
		return nil, err
	}
	err = c.tx.InTx(ctx, func(ctx context.Context) error {
		if err := c.repo.Create(ctx, s); err != nil {
			return err
		}
		return c.repo.ReplacePricing(ctx, s.ID, s.Pricing)
	})
	if err != nil {
		return nil, c.writeError("create service", s, err)
	}
	return s, nil
}

// Update rewrites the service and replaces its pricing set in one transaction.
func (c *Catalog) Update(ctx context.Context, doctorID uuid.UUID, in Input) (*Service, error) {
	id, err := validation.ParseID("id", in.ID)
	if err != nil {
		return nil, err
	}
	s, err := c.build(ctx, doctorID, in)
	if err != nil {
		return nil, err
	}
	s.ID = id
	err = c.tx.InTx(ctx, func(ctx context.Context) error {
		if err := c.repo.Update(ctx, s); err != nil {
			return err
		}
		return c.repo.ReplacePricing(ctx, s.ID, s.Pricing)
	})
	if err != nil {
		return nil, c.writeError("update service", s, err)
	}
	return s, nil
}

func (c *Catalog) Get(ctx context.Context, doctorID, id uuid.UUID) (*Service, error) {
	s, err := c.repo.GetByID(ctx, doctorID, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("service")
	}
	if err != nil {
		return nil, apperr.Storage("get service", err)
	}
	return s, nil
}

// Delete refuses services that appointments still reference.
func (c *Catalog) Delete(ctx context.Context, doctorID, id uuid.UUID) error {
	err := c.repo.Delete(ctx, doctorID, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrNotFound):
		return apperr.NotFound("service")
	case db.IsForeignKeyViolation(err):
		return apperr.Conflict("this service is used by appointments")
	}
	c.logger.Error().Err(err).Str("doctor_id", doctorID.String()).Str("service_id", id.String()).Msg("delete service failed")
	return apperr.Storage("delete service", err)
}

func (c *Catalog) List(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Service, int, error) {
	items, total, err := c.repo.List(ctx, doctorID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Storage("list services", err)
	}
	return items, total, nil
}
