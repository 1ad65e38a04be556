package contact

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/medici/medici/internal/platform/apperr"
	"github.com/medici/medici/internal/platform/db"
	"github.com/medici/medici/internal/platform/validation"
)

// Reference codes avoid characters that are easy to misread over the phone.
const (
	referencePrefix   = "MC-"
	referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	referenceLength   = 8
	referenceAttempts = 3
)

var rules = validation.Rules[Input]{
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
		if !validation.Email(in.Email) {
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
	"message": func(in Input) string {
		if validation.Blank(in.Message) {
			return "tell us how we can help"
		}
		if !validation.MaxLen(in.Message, 4000) {
			return "message must be at most 4000 characters"
		}
		return ""
	},
	"location_id": func(in Input) string {
		if in.LocationID == "" {
			return ""
		}
		if _, err := uuid.Parse(in.LocationID); err != nil {
			return "unknown location"
		}
		return ""
	},
}

type Service struct {
	repo      Repository
	logger    zerolog.Logger
	now       func() time.Time
	reference func() (string, error)
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now, reference: newReference}
}

func newReference() (string, error) {
	id, err := gonanoid.Generate(referenceAlphabet, referenceLength)
	if err != nil {
		return "", err
	}
	return referencePrefix + id, nil
}

// Submit stores a contact request under a fresh public reference.
func (s *Service) Submit(ctx context.Context, in Input) (*Request, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.Message = strings.TrimSpace(in.Message)
	in.LocationID = strings.TrimSpace(in.LocationID)
	if err := rules.Validate(in).Err(); err != nil {
		return nil, err
	}

	req := &Request{Name: in.Name, Email: in.Email, Phone: in.Phone, Message: in.Message}
	if in.LocationID != "" {
		id := uuid.MustParse(in.LocationID)
		req.LocationID = &id
	}

	for attempt := 1; ; attempt++ {
		ref, err := s.reference()
		if err != nil {
			return nil, apperr.Internal(err)
		}
		req.Reference = ref

		err = s.repo.Create(ctx, req)
		switch {
		case err == nil:
			s.logger.Info().Str("reference", req.Reference).Msg("contact request received")
			return req, nil
		case db.IsForeignKeyViolation(err):
			return nil, apperr.Field("location_id", "unknown location")
		case db.IsUniqueViolation(err) && attempt < referenceAttempts:
			continue
		}
		s.logger.Error().Err(err).Str("reference", req.Reference).Msg("store contact request failed")
		return nil, apperr.Storage("store contact request", err)
	}
}

func (s *Service) List(ctx context.Context, pendingOnly bool, limit, offset int) ([]*Request, int, error) {
	items, total, err := s.repo.List(ctx, pendingOnly, limit, offset)
	if err != nil {
		return nil, 0, apperr.Storage("list contact requests", err)
	}
	return items, total, nil
}

// MarkHandled is idempotent: the first handled time is kept.
func (s *Service) MarkHandled(ctx context.Context, id uuid.UUID) (*Request, error) {
	req, err := s.repo.MarkHandled(ctx, id, s.now().UTC())
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("contact request")
	}
	if err != nil {
		return nil, apperr.Storage("mark contact request handled", err)
	}
	return req, nil
}
