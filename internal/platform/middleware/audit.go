package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medici/medici/internal/platform/apperr"
	"github.com/medici/medici/internal/platform/auth"
)

// AuditEntry records which doctor touched which resource.
type AuditEntry struct {
	Email      string
	Resource   string
	ResourceID string
	Action     string // read, list, create, update, delete
	IPAddress  string
	UserAgent  string
	Path       string
	Method     string
	Timestamp  time.Time
	RequestID  string
	StatusCode int
}

// AuditRecorder persists audit entries somewhere other than the log.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit logs every /api/v1 request with the signed-in doctor and the action
// derived from the route. Recorders receive the same entry.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			if !strings.HasPrefix(path, "/api/v1/") {
				return next(c)
			}

			err := next(c)

			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else {
					status = apperr.KindOf(err).Status()
				}
			}

			resource, id, action := classifyRoute(req.Method, path)
			entry := AuditEntry{
				Email:      auth.EmailFromContext(c.Request().Context()),
				Resource:   resource,
				ResourceID: id,
				Action:     action,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				Path:       path,
				Method:     req.Method,
				Timestamp:  time.Now().UTC(),
				StatusCode: status,
			}
			entry.RequestID, _ = c.Get("request_id").(string)

			for _, r := range recorders {
				if r == nil {
					continue
				}
				if recErr := r.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).Str("request_id", entry.RequestID).Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("email", entry.Email).
				Str("resource", entry.Resource).
				Str("resource_id", entry.ResourceID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Bool("failed", err != nil).
				Msg("access")

			return err
		}
	}
}

// classifyRoute maps the JSON API's routes to an audit action:
//
//	GET  /api/v1/patients            -> patients, "", list
//	GET  /api/v1/patients/<id>       -> patients, <id>, read
//	POST /api/v1/patients            -> patients, "", create
//	POST /api/v1/patients/update     -> patients, "", update
//	POST /api/v1/appointments/delete -> appointments, "", delete
func classifyRoute(method, path string) (resource, id, action string) {
	segments := strings.Split(strings.Trim(strings.TrimPrefix(path, "/api/v1/"), "/"), "/")
	resource = segments[0]
	if resource == "" {
		resource = "unknown"
	}

	var rest string
	if len(segments) > 1 {
		rest = segments[1]
		if isUUIDLike(rest) {
			id = rest
			rest = ""
			if len(segments) > 2 {
				rest = segments[2]
			}
		}
	}

	switch method {
	case http.MethodGet, http.MethodHead:
		switch {
		case rest != "":
			action = rest
		case id != "":
			action = "read"
		default:
			action = "list"
		}
	case http.MethodPost:
		switch rest {
		case "":
			action = "create"
		case "update", "delete":
			action = rest
		default:
			action = "update"
		}
	case http.MethodDelete:
		action = "delete"
	default:
		action = "update"
	}
	return resource, id, action
}

func isUUIDLike(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
