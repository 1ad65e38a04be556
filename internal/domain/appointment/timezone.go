package appointment

import (
	"errors"
	"strings"
	"time"
)

var (
	errStartMissing = errors.New("choose a start date and time")
	errStartFormat  = errors.New("start must be an RFC 3339 instant or a local date and time")
	errStartGap     = errors.New("this time does not exist on that day because of the daylight saving change")
)

// ResolveStart turns the start of an appointment into a UTC instant. start is
// an RFC 3339 instant; when it is empty, date (YYYY-MM-DD) and clock (HH:MM)
// are read as wall time in zone. Wall times skipped by a daylight saving
// change are rejected. Repeated wall times resolve to the earlier instant.
func ResolveStart(zone *time.Location, start, date, clock string) (time.Time, error) {
	start = strings.TrimSpace(start)
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)

	if start != "" {
		t, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return time.Time{}, errStartFormat
		}
		return t.UTC(), nil
	}
	if date == "" || clock == "" {
		return time.Time{}, errStartMissing
	}

	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, errStartFormat
	}
	c, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, errStartFormat
	}

	t := time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, zone)
	if !sameWallClock(t.In(zone), d, c) {
		return time.Time{}, errStartGap
	}
	if shift := fallBack(t); shift > 0 {
		if earlier := t.Add(-shift); sameWallClock(earlier.In(zone), d, c) {
			t = earlier
		}
	}
	return t.UTC(), nil
}

// fallBack returns how far clocks are set back around t, or zero when the
// offset does not decrease within half a day on either side.
func fallBack(t time.Time) time.Duration {
	_, before := t.Add(-12 * time.Hour).Zone()
	_, after := t.Add(12 * time.Hour).Zone()
	if before <= after {
		return 0
	}
	return time.Duration(before-after) * time.Second
}

func sameWallClock(t, date, clock time.Time) bool {
	y, m, d := t.Date()
	return y == date.Year() && m == date.Month() && d == date.Day() &&
		t.Hour() == clock.Hour() && t.Minute() == clock.Minute()
}
