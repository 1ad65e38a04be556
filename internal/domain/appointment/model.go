// Package appointment books appointments across the local database and the
// doctor's external calendar, keeping the two consistent.
package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Appointment maps to the appointment table and its appointment_patient rows.
// ExternalEventID is set only once the calendar event exists.
type Appointment struct {
	ID                 uuid.UUID   `json:"id"`
	DoctorID           uuid.UUID   `json:"doctor_id"`
	ServiceID          uuid.UUID   `json:"service_id"`
	LocationID         uuid.UUID   `json:"location_id"`
	PatientIDs         []uuid.UUID `json:"patient_ids"`
	StartsAt           time.Time   `json:"starts_at"`
	EndsAt             time.Time   `json:"ends_at"`
	DurationMinutes    int         `json:"duration_minutes"`
	PriceMinor         int64       `json:"price_minor"`
	ExternalCalendarID *string     `json:"external_calendar_id"`
	ExternalEventID    *string     `json:"external_event_id"`
	CreatedAt          time.Time   `json:"created_at"`
}

// CreateInput is the booking payload. The start is either an RFC 3339
// instant in Start or a practice-local Date and Time.
type CreateInput struct {
	PatientIDs      []string `json:"patient_ids"`
	ServiceID       string   `json:"service_id"`
	LocationID      string   `json:"location_id"`
	PriceMinor      int64    `json:"price_minor"`
	DurationMinutes int      `json:"duration_minutes"`
	Start           string   `json:"start"`
	Date            string   `json:"date"`
	Time            string   `json:"time"`
	Notes           string   `json:"notes"`
}

// DeleteInput identifies both halves of an appointment. The external ids are
// read from the stored row when omitted.
type DeleteInput struct {
	ID                 string `json:"id"`
	ExternalCalendarID string `json:"external_calendar_id"`
	ExternalEventID    string `json:"external_event_id"`
}

// Reconciliation statuses.
const (
	StatusInSync        = "in_sync"
	StatusMissingEvent  = "missing_event"
	StatusBackReference = "back_reference"
)

// Reconciliation compares a stored appointment with its calendar event.
type Reconciliation struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	Status        string    `json:"status"`
	EventID       string    `json:"event_id,omitempty"`
	BackReference string    `json:"back_reference,omitempty"`
}

type draft struct {
	patientIDs []uuid.UUID
	serviceID  uuid.UUID
	locationID uuid.UUID
	start      time.Time
	duration   int
	price      int64
	notes      string
}
