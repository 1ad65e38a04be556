package doctor

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/medici/medici/internal/platform/auth"
	"github.com/medici/medici/internal/platform/gcal"
)

type contextKey string

const doctorKey contextKey = "doctor"

// RequireDoctor resolves the session email to a Doctor. It must run after
// auth.RequireSession.
func RequireDoctor(svc *Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			d, err := svc.Resolve(ctx, auth.EmailFromContext(ctx))
			if err != nil {
				return err
			}
			c.Set(string(doctorKey), d)
			c.SetRequest(c.Request().WithContext(WithDoctor(ctx, d)))
			return next(c)
		}
	}
}

func WithDoctor(ctx context.Context, d *Doctor) context.Context {
	return context.WithValue(ctx, doctorKey, d)
}

// FromContext returns the doctor resolved by RequireDoctor, or nil.
func FromContext(ctx context.Context) *Doctor {
	d, _ := ctx.Value(doctorKey).(*Doctor)
	return d
}

// Credentials returns the calendar credentials carried by the session.
func Credentials(ctx context.Context) gcal.Credentials {
	if s := auth.SessionFromContext(ctx); s != nil {
		return gcal.Credentials{RefreshToken: s.RefreshToken}
	}
	return gcal.Credentials{}
}
