package auth

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/medici/medici/internal/platform/apperr"
)

type contextKey string

const sessionKey contextKey = "session"

// RequireSession rejects requests without a valid session cookie and stores
// the Session on the request context.
func RequireSession(m *Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, err := m.FromRequest(c)
			if err != nil {
				if !errors.Is(err, ErrNoSession) {
					m.Clear(c)
				}
				return apperr.Unauthorized("sign in to continue")
			}
			setSession(c, s)
			return next(c)
		}
	}
}

// DevSession behaves like RequireSession but signs the caller in as email when
// no cookie is present. A cookie that is present is still validated.
func DevSession(m *Manager, email string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, err := m.FromRequest(c)
			switch {
			case errors.Is(err, ErrNoSession):
				s = &Session{Email: email, Name: "Development"}
			case err != nil:
				return apperr.Unauthorized("sign in to continue")
			}
			setSession(c, s)
			return next(c)
		}
	}
}

func setSession(c echo.Context, s *Session) {
	c.Set(string(sessionKey), s)
	c.SetRequest(c.Request().WithContext(WithSession(c.Request().Context(), s)))
}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey).(*Session)
	return s
}

// EmailFromContext returns the signed-in email, or "" for anonymous requests.
func EmailFromContext(ctx context.Context) string {
	if s := SessionFromContext(ctx); s != nil {
		return s.Email
	}
	return ""
}

// SessionSubject is the escalation subject: the signed-in email.
func SessionSubject(c echo.Context) string {
	if s, ok := c.Get(string(sessionKey)).(*Session); ok && s != nil {
		return s.Email
	}
	return EmailFromContext(c.Request().Context())
}
