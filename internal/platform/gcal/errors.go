package gcal

import (
	"errors"

	"github.com/medici/medici/internal/platform/apperr"
)

// AppError maps a gateway error onto the application taxonomy. Missing or
// revoked credentials ask the doctor to sign in again; everything else is an
// external service failure.
func AppError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNoCredentials), errors.Is(err, ErrCredentialsRejected):
		return apperr.Unauthorized("reconnect your Google account to use the calendar")
	case errors.Is(err, ErrNotFound):
		return apperr.NotFound("calendar event")
	default:
		return apperr.External(op, err)
	}
}
