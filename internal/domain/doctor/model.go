package doctor

import (
	"time"

	"github.com/google/uuid"
)

// Doctor maps to the doctor table. A row is created on first sign-in.
type Doctor struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CalendarBinding maps to the doctor_calendar table.
type CalendarBinding struct {
	DoctorID   uuid.UUID `json:"doctor_id"`
	CalendarID string    `json:"calendar_id"`
	Summary    string    `json:"summary"`
	TimeZone   string    `json:"time_zone"`
	Primary    bool      `json:"primary"`
	BoundAt    time.Time `json:"bound_at"`
}

// CalendarView is one writable external calendar as shown during onboarding.
type CalendarView struct {
	ID       string `json:"id"`
	Summary  string `json:"summary"`
	TimeZone string `json:"time_zone"`
	// Primary marks the calendar bound for appointments, not Google's own
	// primary calendar.
	Primary bool `json:"primary"`
}

// Profile is the GET /me payload.
type Profile struct {
	Doctor
	PrimaryCalendar *CalendarBinding `json:"primary_calendar,omitempty"`
	CalendarAccess  bool             `json:"calendar_access"`
}
