package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/medici/medici/internal/domain/catalog"
	"github.com/medici/medici/internal/domain/location"
	"github.com/medici/medici/internal/domain/patient"
	"github.com/medici/medici/internal/platform/apperr"
	"github.com/medici/medici/internal/platform/db"
	"github.com/medici/medici/internal/platform/gcal"
	"github.com/medici/medici/internal/platform/validation"
)

// Calendar is the external calendar gateway. Every call carries the
// practitioner's credentials.
type Calendar interface {
	CreateEvent(ctx context.Context, creds gcal.Credentials, calendarID string, ev gcal.Event) (string, error)
	GetEvent(ctx context.Context, creds gcal.Credentials, calendarID, eventID string) (*gcal.Event, error)
	DeleteEvent(ctx context.Context, creds gcal.Credentials, calendarID, eventID string) error
}

type PatientDirectory interface {
	Lookup(ctx context.Context, doctorID uuid.UUID, ids []uuid.UUID) ([]*patient.Patient, error)
}

type ServiceLookup interface {
	Get(ctx context.Context, doctorID, id uuid.UUID) (*catalog.Service, error)
}

type LocationLookup interface {
	Get(ctx context.Context, doctorID, id uuid.UUID) (*location.Location, error)
}

type PrimaryCalendars interface {
	PrimaryCalendarID(ctx context.Context, doctorID uuid.UUID) (string, error)
}

// Deps groups the collaborators of the appointment service.
type Deps struct {
	Repo      Repository
	Tx        db.Transactor
	Calendar  Calendar
	Patients  PatientDirectory
	Services  ServiceLookup
	Locations LocationLookup
	Primary   PrimaryCalendars
	Zone      *time.Location
	Logger    zerolog.Logger
}

type Service struct {
	repo      Repository
	tx        db.Transactor
	calendar  Calendar
	patients  PatientDirectory
	services  ServiceLookup
	locations LocationLookup
	primary   PrimaryCalendars
	zone      *time.Location
	logger    zerolog.Logger
}

func NewService(d Deps) *Service {
	zone := d.Zone
	if zone == nil {
		zone = time.UTC
	}
	return &Service{
		repo:      d.Repo,
		tx:        d.Tx,
		calendar:  d.Calendar,
		patients:  d.Patients,
		services:  d.Services,
		locations: d.Locations,
		primary:   d.Primary,
		zone:      zone,
		logger:    d.Logger,
	}
}

// Zone is the practice time zone used for local inputs and event rendering.
func (s *Service) Zone() *time.Location { return s.zone }

// maxDurationMinutes caps a single appointment at one day.
const maxDurationMinutes = 24 * 60

var createRules = validation.Rules[CreateInput]{
	"patient_ids": func(in CreateInput) string {
		if len(in.PatientIDs) == 0 {
			return "select at least one patient"
		}
		for _, raw := range in.PatientIDs {
			if _, err := uuid.Parse(strings.TrimSpace(raw)); err != nil {
				return "one of the selected patients is invalid"
			}
		}
		return ""
	},
	"service_id": func(in CreateInput) string {
		return idMessage(in.ServiceID, "choose a service", "invalid service")
	},
	"location_id": func(in CreateInput) string {
		return idMessage(in.LocationID, "choose a location", "invalid location")
	},
	"duration_minutes": func(in CreateInput) string {
		switch {
		case in.DurationMinutes <= 0:
			return "duration must be greater than zero"
		case in.DurationMinutes > maxDurationMinutes:
			return "duration must be at most 24 hours"
		}
		return ""
	},
	"price_minor": func(in CreateInput) string {
		if in.PriceMinor <= 0 {
			return "price must be greater than zero"
		}
		return ""
	},
}

func idMessage(raw, missing, invalid string) string {
	if validation.Blank(raw) {
		return missing
	}
	if _, err := uuid.Parse(strings.TrimSpace(raw)); err != nil {
		return invalid
	}
	return ""
}

// validate checks every precondition of a booking and reports all violated
// fields at once.
func (s *Service) validate(in CreateInput) (*draft, error) {
	errs := createRules.Validate(in)

	start, err := ResolveStart(s.zone, in.Start, in.Date, in.Time)
	if err != nil {
		errs.Add("start", err.Error())
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	d := &draft{
		start:    start,
		duration: in.DurationMinutes,
		price:    in.PriceMinor,
		notes:    strings.TrimSpace(in.Notes),
	}
	d.serviceID = uuid.MustParse(strings.TrimSpace(in.ServiceID))
	d.locationID = uuid.MustParse(strings.TrimSpace(in.LocationID))
	seen := make(map[uuid.UUID]bool, len(in.PatientIDs))
	for _, raw := range in.PatientIDs {
		id := uuid.MustParse(strings.TrimSpace(raw))
		if !seen[id] {
			seen[id] = true
			d.patientIDs = append(d.patientIDs, id)
		}
	}
	return d, nil
}

type booking struct {
	calendarID string
	service    *catalog.Service
	location   *location.Location
	patients   []*patient.Patient
}

// resolve loads everything the event needs. Unknown ids are reported on
// their field.
func (s *Service) resolve(ctx context.Context, doctorID uuid.UUID, d *draft) (*booking, error) {
	calendarID, err := s.primary.PrimaryCalendarID(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	b := &booking{calendarID: calendarID}
	errs := validation.Errors{}

	if b.service, err = s.services.Get(ctx, doctorID, d.serviceID); err != nil {
		if !apperr.Is(err, apperr.KindNotFound) {
			return nil, err
		}
		errs.Add("service_id", "unknown service")
	}
	if b.location, err = s.locations.Get(ctx, doctorID, d.locationID); err != nil {
		if !apperr.Is(err, apperr.KindNotFound) {
			return nil, err
		}
		errs.Add("location_id", "unknown location")
	}
	if b.patients, err = s.patients.Lookup(ctx, doctorID, d.patientIDs); err != nil {
		if !apperr.Is(err, apperr.KindValidation) {
			return nil, err
		}
		for field, msg := range apperr.FieldsOf(err) {
			errs.Add(field, msg)
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) event(a *Appointment, b *booking, notes string) gcal.Event {
	names := make([]string, 0, len(b.patients))
	attendees := make([]gcal.Attendee, 0, len(b.patients))
	for _, p := range b.patients {
		names = append(names, p.Name)
		if p.Email != "" {
			attendees = append(attendees, gcal.Attendee{Email: p.Email, DisplayName: p.Name})
		}
	}
	return gcal.Event{
		Summary:     b.service.Name + " - " + strings.Join(names, ", "),
		Description: notes,
		Location:    b.location.EventText(),
		Start:       a.StartsAt,
		End:         a.EndsAt,
		TimeZone:    s.zone.String(),
		Attendees:   attendees,
		Private:     map[string]string{gcal.BackReferenceKey: a.ID.String()},
	}
}

func (s *Service) sagaLog(ev *zerolog.Event, a *Appointment, calendarID string) *zerolog.Event {
	ids := make([]string, len(a.PatientIDs))
	for i, id := range a.PatientIDs {
		ids[i] = id.String()
	}
	return ev.
		Str("appointment_id", a.ID.String()).
		Str("doctor_id", a.DoctorID.String()).
		Strs("patient_ids", ids).
		Str("calendar_id", calendarID).
		Time("starts_at", a.StartsAt).
		Time("ends_at", a.EndsAt)
}

// Create books an appointment in both systems. The local row is written
// first; if the calendar event cannot be created the row is deleted again so
// no appointment survives without its event.
func (s *Service) Create(ctx context.Context, creds gcal.Credentials, doctorID uuid.UUID, in CreateInput) (*Appointment, error) {
	d, err := s.validate(in)
	if err != nil {
		return nil, err
	}
	b, err := s.resolve(ctx, doctorID, d)
	if err != nil {
		return nil, err
	}
	if creds.RefreshToken == "" {
		return nil, gcal.AppError("create calendar event", gcal.ErrNoCredentials)
	}

	a := &Appointment{
		DoctorID:        doctorID,
		ServiceID:       d.serviceID,
		LocationID:      d.locationID,
		PatientIDs:      d.patientIDs,
		StartsAt:        d.start,
		EndsAt:          d.start.Add(time.Duration(d.duration) * time.Minute),
		DurationMinutes: d.duration,
		PriceMinor:      d.price,
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, a)
	})
	if err != nil {
		if db.IsExclusionViolation(err) {
			return nil, apperr.Conflict("this time overlaps another appointment")
		}
		s.sagaLog(s.logger.Error().Err(err), a, b.calendarID).Msg("insert appointment failed")
		return nil, apperr.Storage("insert appointment", err)
	}

	eventID, err := s.calendar.CreateEvent(ctx, creds, b.calendarID, s.event(a, b, d.notes))
	if err != nil {
		s.sagaLog(s.logger.Error().Err(err), a, b.calendarID).Msg("create calendar event failed, rolling back appointment")
		cleanup := context.WithoutCancel(ctx)
		if delErr := s.repo.Delete(cleanup, doctorID, a.ID); delErr != nil && !errors.Is(delErr, db.ErrNotFound) {
			s.sagaLog(s.logger.Error().Err(delErr), a, b.calendarID).
				AnErr("calendar_error", err).
				Msg("rollback of appointment failed, local row left without event")
		}
		return nil, gcal.AppError("create calendar event", err)
	}

	if err := s.repo.SetExternal(ctx, a.ID, b.calendarID, eventID); err != nil {
		s.sagaLog(s.logger.Error().Err(err), a, b.calendarID).Str("event_id", eventID).Msg("store event id failed, rolling back both sides")
		cleanup := context.WithoutCancel(ctx)
		if delErr := s.calendar.DeleteEvent(cleanup, creds, b.calendarID, eventID); delErr != nil && !errors.Is(delErr, gcal.ErrNotFound) {
			s.sagaLog(s.logger.Error().Err(delErr), a, b.calendarID).Str("event_id", eventID).Msg("rollback of calendar event failed")
		}
		if delErr := s.repo.Delete(cleanup, doctorID, a.ID); delErr != nil && !errors.Is(delErr, db.ErrNotFound) {
			s.sagaLog(s.logger.Error().Err(delErr), a, b.calendarID).Msg("rollback of appointment failed")
		}
		return nil, apperr.Storage("store calendar event id", err)
	}

	a.ExternalCalendarID = &b.calendarID
	a.ExternalEventID = &eventID
	s.sagaLog(s.logger.Info(), a, b.calendarID).Str("event_id", eventID).Msg("appointment booked")
	return a, nil
}

// Delete removes the appointment from both systems concurrently. A side on
// which the appointment is already gone counts as deleted. When both sides
// fail the calendar failure is reported.
func (s *Service) Delete(ctx context.Context, creds gcal.Credentials, doctorID uuid.UUID, in DeleteInput) error {
	id, err := validation.ParseID("id", in.ID)
	if err != nil {
		return err
	}
	calendarID := strings.TrimSpace(in.ExternalCalendarID)
	eventID := strings.TrimSpace(in.ExternalEventID)

	if calendarID == "" || eventID == "" {
		a, err := s.repo.GetByID(ctx, doctorID, id)
		switch {
		case errors.Is(err, db.ErrNotFound):
			return apperr.NotFound("appointment")
		case err != nil:
			return apperr.Storage("get appointment", err)
		}
		if a.ExternalCalendarID != nil && a.ExternalEventID != nil {
			calendarID, eventID = *a.ExternalCalendarID, *a.ExternalEventID
		}
	}
	if eventID != "" && creds.RefreshToken == "" {
		return gcal.AppError("delete calendar event", gcal.ErrNoCredentials)
	}

	var externalErr, localErr error
	var g errgroup.Group
	g.Go(func() error {
		if eventID == "" {
			return nil
		}
		externalErr = s.calendar.DeleteEvent(ctx, creds, calendarID, eventID)
		if errors.Is(externalErr, gcal.ErrNotFound) {
			externalErr = nil
		}
		return externalErr
	})
	g.Go(func() error {
		localErr = s.repo.Delete(ctx, doctorID, id)
		if errors.Is(localErr, db.ErrNotFound) {
			localErr = nil
		}
		return localErr
	})
	_ = g.Wait()

	logCtx := func(ev *zerolog.Event) *zerolog.Event {
		return ev.Str("appointment_id", id.String()).Str("doctor_id", doctorID.String()).
			Str("calendar_id", calendarID).Str("event_id", eventID)
	}
	if externalErr != nil {
		logCtx(s.logger.Error().Err(externalErr)).Msg("delete calendar event failed")
	}
	if localErr != nil {
		logCtx(s.logger.Error().Err(localErr)).Msg("delete appointment failed")
	}
	switch {
	case externalErr != nil:
		return gcal.AppError("delete calendar event", externalErr)
	case localErr != nil:
		return apperr.Storage("delete appointment", localErr)
	}
	logCtx(s.logger.Info()).Msg("appointment deleted")
	return nil
}

func (s *Service) Get(ctx context.Context, doctorID, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, doctorID, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("appointment")
	}
	if err != nil {
		return nil, apperr.Storage("get appointment", err)
	}
	return a, nil
}

// List returns appointments starting in [from, to).
func (s *Service) List(ctx context.Context, doctorID uuid.UUID, from, to *time.Time, limit, offset int) ([]*Appointment, int, error) {
	if from != nil && to != nil && !to.After(*from) {
		return nil, 0, apperr.Field("to", "must be after from")
	}
	items, total, err := s.repo.List(ctx, doctorID, from, to, limit, offset)
	if err != nil {
		return nil, 0, apperr.Storage("list appointments", err)
	}
	return items, total, nil
}

// Reconcile reads the calendar event of an appointment and checks that it
// still points back at the appointment.
func (s *Service) Reconcile(ctx context.Context, creds gcal.Credentials, doctorID, id uuid.UUID) (*Reconciliation, error) {
	a, err := s.Get(ctx, doctorID, id)
	if err != nil {
		return nil, err
	}
	r := &Reconciliation{AppointmentID: a.ID, Status: StatusMissingEvent}
	if a.ExternalCalendarID == nil || a.ExternalEventID == nil {
		return r, nil
	}
	r.EventID = *a.ExternalEventID

	ev, err := s.calendar.GetEvent(ctx, creds, *a.ExternalCalendarID, *a.ExternalEventID)
	if errors.Is(err, gcal.ErrNotFound) {
		return r, nil
	}
	if err != nil {
		s.logger.Error().Err(err).Str("appointment_id", a.ID.String()).Str("event_id", r.EventID).Msg("read calendar event failed")
		return nil, gcal.AppError("read calendar event", err)
	}

	r.BackReference = ev.BackReference()
	if r.BackReference == a.ID.String() {
		r.Status = StatusInSync
	} else {
		r.Status = StatusBackReference
	}
	return r, nil
}

// ParseWindowBound reads a list bound: an RFC 3339 instant or a practice-local
// date meaning its midnight.
func (s *Service) ParseWindowBound(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	d, err := time.ParseInLocation("2006-01-02", raw, s.zone)
	if err != nil {
		return nil, apperr.Field(field, fmt.Sprintf("%s must be a date (YYYY-MM-DD) or an RFC 3339 instant", field))
	}
	t := d.UTC()
	return &t, nil
}
