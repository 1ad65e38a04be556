package doctor

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medici/medici/internal/platform/apperr"
	"github.com/medici/medici/internal/platform/auth"
	"github.com/medici/medici/internal/platform/db"
	"github.com/medici/medici/internal/platform/gcal"
)

// CalendarLister is the slice of the calendar gateway onboarding needs.
type CalendarLister interface {
	ListCalendars(ctx context.Context, creds gcal.Credentials) ([]gcal.Calendar, error)
}

type Service struct {
	repo      Repository
	calendars CalendarLister
	allowed   map[string]bool
	logger    zerolog.Logger
}

// NewService builds the doctor service. An empty allowlist admits every
// verified Google account.
func NewService(repo Repository, calendars CalendarLister, allowedEmails []string, logger zerolog.Logger) *Service {
	s := &Service{repo: repo, calendars: calendars, logger: logger}
	if len(allowedEmails) > 0 {
		s.allowed = make(map[string]bool, len(allowedEmails))
		for _, e := range allowedEmails {
			s.allowed[strings.ToLower(e)] = true
		}
	}
	return s
}

// OnLogin is the sign-in hook: it refuses emails outside the allowlist and
// upserts the doctor row.
func (s *Service) OnLogin(ctx context.Context, id auth.Identity) error {
	_, err := s.Register(ctx, id.Email, id.Name)
	return err
}

func (s *Service) Register(ctx context.Context, email, name string) (*Doctor, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperr.Field("email", "email is required")
	}
	if s.allowed != nil && !s.allowed[email] {
		s.logger.Warn().Str("email", email).Msg("sign-in refused, email not in allowlist")
		return nil, apperr.Unauthorized("this account is not allowed to use the practice")
	}
	d, err := s.repo.Upsert(ctx, email, name)
	if err != nil {
		s.logger.Error().Err(err).Str("email", email).Msg("upsert doctor failed")
		return nil, apperr.Storage("upsert doctor", err)
	}
	return d, nil
}

// Resolve returns the doctor for a signed-in email.
func (s *Service) Resolve(ctx context.Context, email string) (*Doctor, error) {
	if email == "" {
		return nil, apperr.Unauthorized("sign in to continue")
	}
	d, err := s.repo.GetByEmail(ctx, strings.ToLower(email))
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.Unauthorized("sign in to continue")
	}
	if err != nil {
		return nil, apperr.Storage("get doctor", err)
	}
	return d, nil
}

func (s *Service) Profile(ctx context.Context, d *Doctor, creds gcal.Credentials) (*Profile, error) {
	p := &Profile{Doctor: *d, CalendarAccess: creds.RefreshToken != ""}
	b, err := s.repo.PrimaryCalendar(ctx, d.ID)
	switch {
	case err == nil:
		p.PrimaryCalendar = b
	case !errors.Is(err, db.ErrNotFound):
		return nil, apperr.Storage("get primary calendar", err)
	}
	return p, nil
}

// PrimaryCalendarID returns the calendar appointments are written to, or a
// configuration error until onboarding bound one.
func (s *Service) PrimaryCalendarID(ctx context.Context, doctorID uuid.UUID) (string, error) {
	b, err := s.repo.PrimaryCalendar(ctx, doctorID)
	if errors.Is(err, db.ErrNotFound) {
		return "", apperr.Configuration("choose the calendar for your appointments before booking")
	}
	if err != nil {
		return "", apperr.Storage("get primary calendar", err)
	}
	return b.CalendarID, nil
}

// Calendars lists the doctor's writable calendars and marks the bound one.
func (s *Service) Calendars(ctx context.Context, d *Doctor, creds gcal.Credentials) ([]CalendarView, error) {
	list, err := s.calendars.ListCalendars(ctx, creds)
	if err != nil {
		s.logger.Error().Err(err).Str("doctor_id", d.ID.String()).Msg("list calendars failed")
		return nil, gcal.AppError("list calendars", err)
	}

	var bound string
	b, err := s.repo.PrimaryCalendar(ctx, d.ID)
	switch {
	case err == nil:
		bound = b.CalendarID
	case !errors.Is(err, db.ErrNotFound):
		return nil, apperr.Storage("get primary calendar", err)
	}

	views := make([]CalendarView, 0, len(list))
	for _, c := range list {
		views = append(views, CalendarView{ID: c.ID, Summary: c.Summary, TimeZone: c.TimeZone, Primary: c.ID == bound})
	}
	return views, nil
}

// BindPrimary binds calendarID as the doctor's appointment calendar. The
// binding is permanent.
func (s *Service) BindPrimary(ctx context.Context, d *Doctor, creds gcal.Credentials, calendarID string) (*CalendarBinding, error) {
	if strings.TrimSpace(calendarID) == "" {
		return nil, apperr.Field("calendar_id", "choose a calendar")
	}

	if _, err := s.repo.PrimaryCalendar(ctx, d.ID); err == nil {
		return nil, apperr.Conflict("the appointment calendar is already set")
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, apperr.Storage("get primary calendar", err)
	}

	list, err := s.calendars.ListCalendars(ctx, creds)
	if err != nil {
		s.logger.Error().Err(err).Str("doctor_id", d.ID.String()).Msg("list calendars failed")
		return nil, gcal.AppError("list calendars", err)
	}
	var chosen *gcal.Calendar
	for i := range list {
		if list[i].ID == calendarID {
			chosen = &list[i]
			break
		}
	}
	if chosen == nil {
		return nil, apperr.Field("calendar_id", "this calendar is not writable by your account")
	}

	b := &CalendarBinding{DoctorID: d.ID, CalendarID: chosen.ID, Summary: chosen.Summary, TimeZone: chosen.TimeZone}
	if err := s.repo.BindPrimary(ctx, b); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.Conflict("the appointment calendar is already set")
		}
		s.logger.Error().Err(err).Str("doctor_id", d.ID.String()).Str("calendar_id", calendarID).Msg("bind primary calendar failed")
		return nil, apperr.Storage("bind primary calendar", err)
	}
	s.logger.Info().Str("doctor_id", d.ID.String()).Str("calendar_id", calendarID).Msg("primary calendar bound")
	return b, nil
}
