package apperr

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const genericMessage = "something went wrong, we're on it"

// Response is the JSON error body.
type Response struct {
	Code                Code              `json:"code"`
	Message             string            `json:"message"`
	Fields              map[string]string `json:"fields,omitempty"`
	RequestID           string            `json:"request_id,omitempty"`
	ConsecutiveFailures int               `json:"consecutive_failures,omitempty"`
	Tone                string            `json:"tone,omitempty"`
}

// Counter is the storage behind the consecutive-failure counters.
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Del(ctx context.Context, key string) error
}

// Escalation counts consecutive generic failures per caller so the client can
// escalate its wording. subject returns "" for anonymous callers, which are
// not tracked.
type Escalation struct {
	counter Counter
	subject func(c echo.Context) string
	ttl     time.Duration
	logger  zerolog.Logger
}

func NewEscalation(counter Counter, subject func(c echo.Context) string, ttl time.Duration, logger zerolog.Logger) *Escalation {
	return &Escalation{counter: counter, subject: subject, ttl: ttl, logger: logger}
}

func failureKey(subject string) string { return "failures:" + subject }

func (e *Escalation) record(c echo.Context) int {
	if e == nil {
		return 0
	}
	subject := e.subject(c)
	if subject == "" {
		return 0
	}
	n, err := e.counter.Incr(c.Request().Context(), failureKey(subject), e.ttl)
	if err != nil {
		e.logger.Warn().Err(err).Msg("failure counter unavailable")
		return 0
	}
	return int(n)
}

// ResetOnSuccess clears the caller's failure counter after a successful write.
func (e *Escalation) ResetOnSuccess() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err != nil || c.Request().Method != http.MethodPost || c.Response().Status >= 400 {
				return err
			}
			if subject := e.subject(c); subject != "" {
				if delErr := e.counter.Del(c.Request().Context(), failureKey(subject)); delErr != nil {
					e.logger.Warn().Err(delErr).Msg("failure counter reset failed")
				}
			}
			return nil
		}
	}
}

// Tone maps a consecutive failure count to the wording level shown to users.
func Tone(consecutive int) string {
	switch {
	case consecutive <= 0:
		return ""
	case consecutive == 1:
		return "retry"
	case consecutive == 2:
		return "apologetic"
	default:
		return "support"
	}
}

// HTTPErrorHandler renders every error returned by handlers and middleware as
// a Response. esc may be nil.
func HTTPErrorHandler(logger zerolog.Logger, esc *Escalation) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		appErr := fromError(err)
		rid, _ := c.Get("request_id").(string)

		body := Response{
			Code:      appErr.Kind.Code(),
			Message:   appErr.Message,
			Fields:    appErr.Fields,
			RequestID: rid,
		}
		if appErr.Kind.Generic() {
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("code", string(body.Code)).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
			body.Message = genericMessage
			body.ConsecutiveFailures = esc.record(c)
			body.Tone = Tone(body.ConsecutiveFailures)
		}

		status := appErr.Kind.Status()
		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Str("request_id", rid).Msg("write error response")
		}
	}
}

func fromError(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg := http.StatusText(httpErr.Code)
		if s, ok := httpErr.Message.(string); ok && s != "" {
			msg = s
		}
		switch {
		case httpErr.Code == http.StatusUnauthorized:
			return Unauthorized(msg)
		case httpErr.Code == http.StatusNotFound || httpErr.Code == http.StatusMethodNotAllowed:
			return &Error{Kind: KindNotFound, Message: msg}
		case httpErr.Code == http.StatusTooManyRequests:
			return &Error{Kind: KindRateLimited, Message: msg}
		case httpErr.Code == http.StatusConflict:
			return Conflict(msg)
		case httpErr.Code >= 500:
			return Internal(err)
		default:
			return &Error{Kind: KindValidation, Message: msg}
		}
	}

	return Internal(err)
}
