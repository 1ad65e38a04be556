package doctor

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medici/medici/internal/platform/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/me", h.Me)
	api.GET("/calendars", h.ListCalendars)
	api.POST("/calendars/primary", h.BindPrimary)
}

func (h *Handler) Me(c echo.Context) error {
	ctx := c.Request().Context()
	p, err := h.svc.Profile(ctx, FromContext(ctx), Credentials(ctx))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListCalendars(c echo.Context) error {
	ctx := c.Request().Context()
	views, err := h.svc.Calendars(ctx, FromContext(ctx), Credentials(ctx))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": views})
}

type bindRequest struct {
	CalendarID string `json:"calendar_id"`
}

func (h *Handler) BindPrimary(c echo.Context) error {
	var req bindRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Field("body", "request body must be valid JSON")
	}
	ctx := c.Request().Context()
	b, err := h.svc.BindPrimary(ctx, FromContext(ctx), Credentials(ctx), req.CalendarID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, b)
}
