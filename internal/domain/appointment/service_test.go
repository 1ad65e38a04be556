package appointment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/medici/medici/internal/domain/catalog"
	"github.com/medici/medici/internal/domain/location"
	"github.com/medici/medici/internal/domain/patient"
	"github.com/medici/medici/internal/platform/apperr"
	"github.com/medici/medici/internal/platform/db"
	"github.com/medici/medici/internal/platform/gcal"
)

// -- Mock Repository --

type mockRepo struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*Appointment
	creates      int
	setErr       error
	deleteErr    error
}

func newMockRepo() *mockRepo {
	return &mockRepo{appointments: make(map[uuid.UUID]*Appointment)}
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.appointments {
		if other.DoctorID == a.DoctorID && a.StartsAt.Before(other.EndsAt) && other.StartsAt.Before(a.EndsAt) {
			return &pgconn.PgError{Code: db.CodeExclusionViolation, ConstraintName: "appointment_no_overlap"}
		}
	}
	m.creates++
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	stored := *a
	m.appointments[a.ID] = &stored
	return nil
}

func (m *mockRepo) SetExternal(_ context.Context, id uuid.UUID, calendarID, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	a, ok := m.appointments[id]
	if !ok {
		return db.ErrNotFound
	}
	a.ExternalCalendarID = &calendarID
	a.ExternalEventID = &eventID
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, doctorID, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok || a.DoctorID != doctorID {
		return nil, db.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) Delete(_ context.Context, doctorID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	a, ok := m.appointments[id]
	if !ok || a.DoctorID != doctorID {
		return db.ErrNotFound
	}
	delete(m.appointments, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, doctorID uuid.UUID, from, to *time.Time, limit, offset int) ([]*Appointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Appointment
	for _, a := range m.appointments {
		if a.DoctorID != doctorID {
			continue
		}
		if from != nil && a.StartsAt.Before(*from) {
			continue
		}
		if to != nil && !a.StartsAt.Before(*to) {
			continue
		}
		out = append(out, a)
	}
	return out, len(out), nil
}

func (m *mockRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.appointments)
}

// -- Fake Calendar --

type fakeCalendar struct {
	mu        sync.Mutex
	events    map[string]gcal.Event
	seq       int
	creates   int
	createErr error
	deleteErr error
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{events: make(map[string]gcal.Event)}
}

func eventKey(calendarID, eventID string) string { return calendarID + "/" + eventID }

func (f *fakeCalendar) CreateEvent(_ context.Context, creds gcal.Credentials, calendarID string, ev gcal.Event) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if creds.RefreshToken == "" {
		return "", gcal.ErrNoCredentials
	}
	if f.createErr != nil {
		return "", f.createErr
	}
	f.creates++
	f.seq++
	ev.ID = fmt.Sprintf("evt%d", f.seq)
	f.events[eventKey(calendarID, ev.ID)] = ev
	return ev.ID, nil
}

func (f *fakeCalendar) GetEvent(_ context.Context, _ gcal.Credentials, calendarID, eventID string) (*gcal.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[eventKey(calendarID, eventID)]
	if !ok {
		return nil, fmt.Errorf("gcal: get event: %w", gcal.ErrNotFound)
	}
	return &ev, nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, _ gcal.Credentials, calendarID, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	key := eventKey(calendarID, eventID)
	if _, ok := f.events[key]; !ok {
		return fmt.Errorf("gcal: delete event: %w", gcal.ErrNotFound)
	}
	delete(f.events, key)
	return nil
}

func (f *fakeCalendar) eventsWithBackReference(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ev := range f.events {
		if ev.BackReference() == id {
			n++
		}
	}
	return n
}

// -- Fake lookups --

type fakePatients map[uuid.UUID]*patient.Patient

func (f fakePatients) Lookup(_ context.Context, doctorID uuid.UUID, ids []uuid.UUID) ([]*patient.Patient, error) {
	out := make([]*patient.Patient, 0, len(ids))
	for _, id := range ids {
		p, ok := f[id]
		if !ok || p.DoctorID != doctorID {
			return nil, apperr.Field("patient_ids", "one of the selected patients does not exist")
		}
		out = append(out, p)
	}
	return out, nil
}

type fakeServices map[uuid.UUID]*catalog.Service

func (f fakeServices) Get(_ context.Context, doctorID, id uuid.UUID) (*catalog.Service, error) {
	s, ok := f[id]
	if !ok || s.DoctorID != doctorID {
		return nil, apperr.NotFound("service")
	}
	return s, nil
}

type fakeLocations map[uuid.UUID]*location.Location

func (f fakeLocations) Get(_ context.Context, doctorID, id uuid.UUID) (*location.Location, error) {
	l, ok := f[id]
	if !ok || l.DoctorID != doctorID {
		return nil, apperr.NotFound("location")
	}
	return l, nil
}

type fakePrimary map[uuid.UUID]string

func (f fakePrimary) PrimaryCalendarID(_ context.Context, doctorID uuid.UUID) (string, error) {
	id, ok := f[doctorID]
	if !ok {
		return "", apperr.Configuration("choose the calendar for your appointments before booking")
	}
	return id, nil
}

type passTx struct{}

func (passTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

// -- Fixture --

const primaryCalendar = "consultas@group.calendar.google.com"

var creds = gcal.Credentials{RefreshToken: "rt-ana"}

type fixture struct {
	svc      *Service
	repo     *mockRepo
	cal      *fakeCalendar
	primary  fakePrimary
	doctorID uuid.UUID
	maria    *patient.Patient
	consulta *catalog.Service
	braga    *location.Location
	logs     *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	doctorID := uuid.New()
	maria := &patient.Patient{ID: uuid.New(), DoctorID: doctorID, Name: "Maria Silva", Email: "maria@example.pt"}
	braga := &location.Location{ID: uuid.New(), DoctorID: doctorID, Name: "Braga", City: "Braga"}
	consulta := &catalog.Service{
		ID: uuid.New(), DoctorID: doctorID, Name: "Consulta", DurationMinutes: 50,
		Pricing: []catalog.Price{{LocationID: braga.ID, PriceMinor: 4000}},
	}
	f := &fixture{
		repo:     newMockRepo(),
		cal:      newFakeCalendar(),
		primary:  fakePrimary{doctorID: primaryCalendar},
		doctorID: doctorID,
		maria:    maria,
		consulta: consulta,
		braga:    braga,
		logs:     &bytes.Buffer{},
	}
	f.svc = NewService(Deps{
		Repo:      f.repo,
		Tx:        passTx{},
		Calendar:  f.cal,
		Patients:  fakePatients{maria.ID: maria},
		Services:  fakeServices{consulta.ID: consulta},
		Locations: fakeLocations{braga.ID: braga},
		Primary:   f.primary,
		Zone:      lisbon(t),
		Logger:    zerolog.New(f.logs),
	})
	return f
}

func (f *fixture) input() CreateInput {
	return CreateInput{
		PatientIDs:      []string{f.maria.ID.String()},
		ServiceID:       f.consulta.ID.String(),
		LocationID:      f.braga.ID.String(),
		PriceMinor:      4000,
		DurationMinutes: 50,
		Date:            "2024-03-04",
		Time:            "10:00",
	}
}

func TestService_Create_ConsultaInBraga(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, creds, f.doctorID, f.input())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.DurationMinutes != 50 || a.PriceMinor != 4000 {
		t.Errorf("expected 50 minutes for 4000, got %d for %d", a.DurationMinutes, a.PriceMinor)
	}
	wantStart := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	if !a.StartsAt.Equal(wantStart) || !a.EndsAt.Equal(wantStart.Add(50*time.Minute)) {
		t.Errorf("unexpected window %s - %s", a.StartsAt, a.EndsAt)
	}
	if a.ExternalEventID == nil || *a.ExternalCalendarID != primaryCalendar {
		t.Fatalf("expected external ids, got %+v", a)
	}

	ev, err := f.cal.GetEvent(ctx, creds, primaryCalendar, *a.ExternalEventID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if !ev.End.Equal(ev.Start.Add(50 * time.Minute)) {
		t.Errorf("expected event end = start + 50 min, got %s - %s", ev.Start, ev.End)
	}
	if ev.TimeZone != "Europe/Lisbon" || ev.Summary != "Consulta - Maria Silva" {
		t.Errorf("unexpected event %+v", ev)
	}
	if len(ev.Attendees) != 1 || ev.Attendees[0].Email != "maria@example.pt" {
		t.Errorf("unexpected attendees %+v", ev.Attendees)
	}
	if n := f.cal.eventsWithBackReference(a.ID.String()); n != 1 {
		t.Errorf("expected exactly one event referencing the appointment, got %d", n)
	}

	stored, err := f.svc.Get(ctx, f.doctorID, a.ID)
	if err != nil || stored.ExternalEventID == nil || *stored.ExternalEventID != *a.ExternalEventID {
		t.Fatalf("expected stored event id, got %+v, %v", stored, err)
	}

	err = f.svc.Delete(ctx, creds, f.doctorID, DeleteInput{
		ID:                 a.ID.String(),
		ExternalCalendarID: *a.ExternalCalendarID,
		ExternalEventID:    *a.ExternalEventID,
	})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.svc.Get(ctx, f.doctorID, a.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected local row gone, got %v", err)
	}
	if _, err := f.cal.GetEvent(ctx, creds, primaryCalendar, *a.ExternalEventID); !errors.Is(err, gcal.ErrNotFound) {
		t.Errorf("expected event gone, got %v", err)
	}
}

func TestService_Create_BackReferenceRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.svc.Create(ctx, creds, f.doctorID, f.input())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	r, err := f.svc.Reconcile(ctx, creds, f.doctorID, a.ID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if r.Status != StatusInSync || r.BackReference != a.ID.String() {
		t.Errorf("expected in_sync with matching back-reference, got %+v", r)
	}
}

func TestService_Create_CompensatesOnCalendarFailure(t *testing.T) {
	f := newFixture(t)
	f.cal.createErr = errors.New("googleapi: Error 503: backend error")

	_, err := f.svc.Create(context.Background(), creds, f.doctorID, f.input())
	if !apperr.Is(err, apperr.KindExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
	if f.repo.creates != 1 {
		t.Errorf("expected the local insert to have happened, got %d", f.repo.creates)
	}
	if f.repo.count() != 0 {
		t.Errorf("expected no local row after compensation, got %d", f.repo.count())
	}
}

func TestService_Create_CompensationFailureStillReportsCalendar(t *testing.T) {
	f := newFixture(t)
	f.cal.createErr = errors.New("googleapi: Error 500")
	f.repo.deleteErr = errors.New("connection refused")

	_, err := f.svc.Create(context.Background(), creds, f.doctorID, f.input())
	if !apperr.Is(err, apperr.KindExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}

	entry := f.logEntry(t, "rollback of appointment failed, local row left without event")
	want := map[string]string{
		"doctor_id":      f.doctorID.String(),
		"starts_at":      "2024-03-04T10:00:00Z",
		"ends_at":        "2024-03-04T10:50:00Z",
		"calendar_id":    primaryCalendar,
		"error":          "connection refused",
		"calendar_error": "googleapi: Error 500",
	}
	for key, value := range want {
		if got, _ := entry[key].(string); got != value {
			t.Errorf("%s = %q, want %q", key, got, value)
		}
	}
	ids, _ := entry["patient_ids"].([]any)
	if len(ids) != 1 || ids[0] != f.maria.ID.String() {
		t.Errorf("patient_ids = %v, want [%s]", entry["patient_ids"], f.maria.ID)
	}
	if id, _ := entry["appointment_id"].(string); id == "" {
		t.Error("expected appointment_id on the rollback entry")
	}
}

// logEntry returns the first JSON log line with the given message.
func (f *fixture) logEntry(t *testing.T, msg string) map[string]any {
	t.Helper()
	for _, line := range bytes.Split(f.logs.Bytes(), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		entry := map[string]any{}
		if err := json.Unmarshal(line, &entry); err != nil {
			t.Fatalf("log line is not JSON: %s", line)
		}
		if entry["message"] == msg {
			return entry
		}
	}
	t.Fatalf("no log entry %q in:\n%s", msg, f.logs.String())
	return nil
}

func TestService_Create_RejectedCredentialsCompensate(t *testing.T) {
	f := newFixture(t)
	f.cal.createErr = fmt.Errorf("gcal: insert event: %w", gcal.ErrCredentialsRejected)

	_, err := f.svc.Create(context.Background(), creds, f.doctorID, f.input())
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if f.repo.count() != 0 {
		t.Error("expected no local row after compensation")
	}
}

func TestService_Create_StoreEventIDFailureRollsBackBothSides(t *testing.T) {
	f := newFixture(t)
	f.repo.setErr = errors.New("connection reset")

	_, err := f.svc.Create(context.Background(), creds, f.doctorID, f.input())
	if !apperr.Is(err, apperr.KindStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if f.repo.count() != 0 {
		t.Error("expected no local row")
	}
	if len(f.cal.events) != 0 {
		t.Errorf("expected calendar event removed, got %d", len(f.cal.events))
	}
}

func TestService_Create_ValidationCompleteness(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(in *CreateInput)
	}{
		{"patient_ids", func(in *CreateInput) { in.PatientIDs = nil }},
		{"patient_ids", func(in *CreateInput) { in.PatientIDs = []string{"maria"} }},
		{"service_id", func(in *CreateInput) { in.ServiceID = "" }},
		{"service_id", func(in *CreateInput) { in.ServiceID = "consulta" }},
		{"location_id", func(in *CreateInput) { in.LocationID = " " }},
		{"duration_minutes", func(in *CreateInput) { in.DurationMinutes = 0 }},
		{"duration_minutes", func(in *CreateInput) { in.DurationMinutes = -10 }},
		{"duration_minutes", func(in *CreateInput) { in.DurationMinutes = 24*60 + 1 }},
		{"duration_minutes", func(in *CreateInput) { in.DurationMinutes = 307445735 }},
		{"price_minor", func(in *CreateInput) { in.PriceMinor = 0 }},
		{"start", func(in *CreateInput) { in.Date, in.Time = "", "" }},
		{"start", func(in *CreateInput) { in.Date, in.Time = "2024-03-31", "01:30" }},
		{"start", func(in *CreateInput) { in.Start = "next monday" }},
		{"service_id", func(in *CreateInput) { in.ServiceID = uuid.NewString() }},
		{"location_id", func(in *CreateInput) { in.LocationID = uuid.NewString() }},
		{"patient_ids", func(in *CreateInput) { in.PatientIDs = []string{uuid.NewString()} }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			f := newFixture(t)
			in := f.input()
			tt.mutate(&in)

			_, err := f.svc.Create(context.Background(), creds, f.doctorID, in)
			if !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if apperr.FieldsOf(err)[tt.field] == "" {
				t.Errorf("expected %s to be named, got %v", tt.field, apperr.FieldsOf(err))
			}
			if f.repo.creates != 0 || f.cal.creates != 0 {
				t.Errorf("expected no writes, got %d local and %d external", f.repo.creates, f.cal.creates)
			}
		})
	}
}

func TestService_Create_ReportsAllFieldsAtOnce(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), creds, f.doctorID, CreateInput{})
	fields := apperr.FieldsOf(err)
	for _, name := range []string{"patient_ids", "service_id", "location_id", "duration_minutes", "price_minor", "start"} {
		if fields[name] == "" {
			t.Errorf("expected %s error, got %v", name, fields)
		}
	}
}

func TestService_Create_NoPrimaryCalendar(t *testing.T) {
	f := newFixture(t)
	delete(f.primary, f.doctorID)

	_, err := f.svc.Create(context.Background(), creds, f.doctorID, f.input())
	if !apperr.Is(err, apperr.KindConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if f.repo.creates != 0 || f.cal.creates != 0 {
		t.Error("expected no writes")
	}
}

func TestService_Create_NoCredentials(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), gcal.Credentials{}, f.doctorID, f.input())
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if f.repo.creates != 0 {
		t.Error("expected no local write without credentials")
	}
}

func TestService_Create_DoubleBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Create(ctx, creds, f.doctorID, f.input()); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	overlapping := f.input()
	overlapping.Time = "10:30"
	_, err := f.svc.Create(ctx, creds, f.doctorID, overlapping)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if f.cal.creates != 1 {
		t.Errorf("expected a single calendar event, got %d", f.cal.creates)
	}

	adjacent := f.input()
	adjacent.Time = "10:50"
	if _, err := f.svc.Create(ctx, creds, f.doctorID, adjacent); err != nil {
		t.Errorf("expected back-to-back booking to succeed, got %v", err)
	}
}

func TestService_Delete_ReadsExternalIDsFromRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _ := f.svc.Create(ctx, creds, f.doctorID, f.input())

	if err := f.svc.Delete(ctx, creds, f.doctorID, DeleteInput{ID: a.ID.String()}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if f.repo.count() != 0 || len(f.cal.events) != 0 {
		t.Errorf("expected both sides empty, got %d rows and %d events", f.repo.count(), len(f.cal.events))
	}
}

func TestService_Delete_AbsentSideCountsAsDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _ := f.svc.Create(ctx, creds, f.doctorID, f.input())
	ids := DeleteInput{ID: a.ID.String(), ExternalCalendarID: *a.ExternalCalendarID, ExternalEventID: *a.ExternalEventID}

	delete(f.cal.events, eventKey(*a.ExternalCalendarID, *a.ExternalEventID))
	if err := f.svc.Delete(ctx, creds, f.doctorID, ids); err != nil {
		t.Fatalf("expected success with the event already gone, got %v", err)
	}
	if err := f.svc.Delete(ctx, creds, f.doctorID, ids); err != nil {
		t.Fatalf("expected repeated delete to succeed, got %v", err)
	}
}

func TestService_Delete_ReportsCalendarFailureFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _ := f.svc.Create(ctx, creds, f.doctorID, f.input())
	ids := DeleteInput{ID: a.ID.String(), ExternalCalendarID: *a.ExternalCalendarID, ExternalEventID: *a.ExternalEventID}

	f.cal.deleteErr = errors.New("googleapi: Error 503")
	f.repo.deleteErr = errors.New("connection reset")
	if err := f.svc.Delete(ctx, creds, f.doctorID, ids); !apperr.Is(err, apperr.KindExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}

	f.cal.deleteErr = nil
	if err := f.svc.Delete(ctx, creds, f.doctorID, ids); !apperr.Is(err, apperr.KindStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestService_Delete_Unknown(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Delete(context.Background(), creds, f.doctorID, DeleteInput{ID: uuid.NewString()})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	err = f.svc.Delete(context.Background(), creds, f.doctorID, DeleteInput{ID: "x"})
	if apperr.FieldsOf(err)["id"] == "" {
		t.Errorf("expected id field error, got %v", err)
	}
}

func TestService_Reconcile_Drift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _ := f.svc.Create(ctx, creds, f.doctorID, f.input())
	key := eventKey(*a.ExternalCalendarID, *a.ExternalEventID)

	ev := f.cal.events[key]
	ev.Private = map[string]string{gcal.BackReferenceKey: uuid.NewString()}
	f.cal.events[key] = ev
	r, err := f.svc.Reconcile(ctx, creds, f.doctorID, a.ID)
	if err != nil || r.Status != StatusBackReference {
		t.Errorf("expected back_reference mismatch, got %+v, %v", r, err)
	}

	delete(f.cal.events, key)
	r, err = f.svc.Reconcile(ctx, creds, f.doctorID, a.ID)
	if err != nil || r.Status != StatusMissingEvent {
		t.Errorf("expected missing_event, got %+v, %v", r, err)
	}
}

func TestService_List_Window(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Create(ctx, creds, f.doctorID, f.input()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	later := f.input()
	later.Date = "2024-03-11"
	if _, err := f.svc.Create(ctx, creds, f.doctorID, later); err != nil {
		t.Fatalf("Create: %v", err)
	}

	from, _ := f.svc.ParseWindowBound("from", "2024-03-04")
	to, _ := f.svc.ParseWindowBound("to", "2024-03-05")
	items, total, err := f.svc.List(ctx, f.doctorID, from, to, 20, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Errorf("expected one appointment in window, got %d", total)
	}

	if _, _, err := f.svc.List(ctx, f.doctorID, to, from, 20, 0); apperr.FieldsOf(err)["to"] == "" {
		t.Errorf("expected to field error for inverted window, got %v", err)
	}
	if _, err := f.svc.ParseWindowBound("from", "yesterday"); apperr.FieldsOf(err)["from"] == "" {
		t.Errorf("expected from field error, got %v", err)
	}
}
