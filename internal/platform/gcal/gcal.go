// Package gcal is the gateway to Google Calendar. Every call takes the
// caller's Credentials explicitly; the Client holds no per-user state.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// BackReferenceKey is the private extended property holding the local
// appointment id on every event this service creates.
const BackReferenceKey = "medici_appointment_id"

// Scopes are the OAuth scopes the login flow must request for calendar access.
var Scopes = []string{calendar.CalendarScope}

var (
	ErrNoCredentials       = errors.New("gcal: no calendar credentials")
	ErrCredentialsRejected = errors.New("gcal: credentials rejected")
	ErrNotFound            = errors.New("gcal: not found")
)

// Credentials identify the practitioner on whose behalf a call is made.
type Credentials struct {
	RefreshToken string
}

type Attendee struct {
	Email       string
	DisplayName string
}

type Event struct {
	ID          string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	// TimeZone is the IANA zone Google renders the event in.
	TimeZone  string
	Attendees []Attendee
	Private   map[string]string
}

// BackReference returns the local appointment id stored on the event.
func (e *Event) BackReference() string {
	return e.Private[BackReferenceKey]
}

type Calendar struct {
	ID         string
	Summary    string
	TimeZone   string
	AccessRole string
	Primary    bool
}

type Config struct {
	ClientID     string
	ClientSecret string
	// TokenURL defaults to Google's token endpoint.
	TokenURL string
	// Endpoint overrides the Calendar API base URL.
	Endpoint string
}

type Client struct {
	oauth    *oauth2.Config
	endpoint string
}

func NewClient(cfg Config) *Client {
	endpoint := google.Endpoint
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
		endpoint.AuthStyle = oauth2.AuthStyleInParams
	}
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       Scopes,
		},
		endpoint: cfg.Endpoint,
	}
}

func (c *Client) service(ctx context.Context, creds Credentials) (*calendar.Service, error) {
	if creds.RefreshToken == "" {
		return nil, ErrNoCredentials
	}
	httpClient := c.oauth.Client(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcal: create service: %w", err)
	}
	return svc, nil
}

func classify(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone) {
		return fmt.Errorf("gcal: %s: %w", op, ErrNotFound)
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return fmt.Errorf("gcal: %s: %w: %v", op, ErrCredentialsRejected, err)
	}
	return fmt.Errorf("gcal: %s: %w", op, err)
}

// CreateEvent inserts ev on calendarID without notifying attendees and
// returns the new event id.
func (c *Client) CreateEvent(ctx context.Context, creds Credentials, calendarID string, ev Event) (string, error) {
	svc, err := c.service(ctx, creds)
	if err != nil {
		return "", err
	}
	created, err := svc.Events.Insert(calendarID, toAPI(ev)).SendUpdates("none").Context(ctx).Do()
	if err != nil {
		return "", classify("insert event", err)
	}
	return created.Id, nil
}

// GetEvent returns ErrNotFound for missing and cancelled events.
func (c *Client) GetEvent(ctx context.Context, creds Credentials, calendarID, eventID string) (*Event, error) {
	svc, err := c.service(ctx, creds)
	if err != nil {
		return nil, err
	}
	item, err := svc.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, classify("get event", err)
	}
	if item.Status == "cancelled" {
		return nil, fmt.Errorf("gcal: get event: %w", ErrNotFound)
	}
	return fromAPI(item)
}

// DeleteEvent removes the event. ErrNotFound when it is already gone.
func (c *Client) DeleteEvent(ctx context.Context, creds Credentials, calendarID, eventID string) error {
	svc, err := c.service(ctx, creds)
	if err != nil {
		return err
	}
	if err := svc.Events.Delete(calendarID, eventID).SendUpdates("none").Context(ctx).Do(); err != nil {
		return classify("delete event", err)
	}
	return nil
}

// ListCalendars returns the calendars the caller can write to.
func (c *Client) ListCalendars(ctx context.Context, creds Credentials) ([]Calendar, error) {
	svc, err := c.service(ctx, creds)
	if err != nil {
		return nil, err
	}
	var out []Calendar
	err = svc.CalendarList.List().MinAccessRole("writer").Pages(ctx, func(page *calendar.CalendarList) error {
		for _, item := range page.Items {
			out = append(out, Calendar{
				ID:         item.Id,
				Summary:    item.Summary,
				TimeZone:   item.TimeZone,
				AccessRole: item.AccessRole,
				Primary:    item.Primary,
			})
		}
		return nil
	})
	if err != nil {
		return nil, classify("list calendars", err)
	}
	return out, nil
}

func toAPI(ev Event) *calendar.Event {
	out := &calendar.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       &calendar.EventDateTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: ev.TimeZone},
		End:         &calendar.EventDateTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: ev.TimeZone},
	}
	for _, a := range ev.Attendees {
		out.Attendees = append(out.Attendees, &calendar.EventAttendee{Email: a.Email, DisplayName: a.DisplayName})
	}
	if len(ev.Private) > 0 {
		out.ExtendedProperties = &calendar.EventExtendedProperties{Private: ev.Private}
	}
	return out
}

func fromAPI(item *calendar.Event) (*Event, error) {
	ev := &Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Private:     map[string]string{},
	}
	if item.Start != nil {
		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			return nil, fmt.Errorf("gcal: parse start %q: %w", item.Start.DateTime, err)
		}
		ev.Start = start
		ev.TimeZone = item.Start.TimeZone
	}
	if item.End != nil {
		end, err := time.Parse(time.RFC3339, item.End.DateTime)
		if err != nil {
			return nil, fmt.Errorf("gcal: parse end %q: %w", item.End.DateTime, err)
		}
		ev.End = end
	}
	for _, a := range item.Attendees {
		ev.Attendees = append(ev.Attendees, Attendee{Email: a.Email, DisplayName: a.DisplayName})
	}
	if item.ExtendedProperties != nil {
		for k, v := range item.ExtendedProperties.Private {
			ev.Private[k] = v
		}
	}
	return ev, nil
}
