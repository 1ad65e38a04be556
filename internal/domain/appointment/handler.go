package appointment

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medici/medici/internal/domain/doctor"
	"github.com/medici/medici/internal/platform/apperr"
	"github.com/medici/medici/internal/platform/validation"
	"github.com/medici/medici/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/appointments", h.List)
	api.GET("/appointments/:id", h.Get)
	api.GET("/appointments/:id/reconcile", h.Reconcile)
	api.POST("/appointments", h.Create)
	api.POST("/appointments/delete", h.Delete)
}

// view adds the practice zone so clients can render local times.
type view struct {
	*Appointment
	TimeZone string `json:"time_zone"`
}

func (h *Handler) view(a *Appointment) view {
	return view{Appointment: a, TimeZone: h.svc.Zone().String()}
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Field("body", "request body must be valid JSON")
	}
	ctx := c.Request().Context()
	a, err := h.svc.Create(ctx, doctor.Credentials(ctx), doctor.FromContext(ctx).ID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, h.view(a))
}

func (h *Handler) Delete(c echo.Context) error {
	var in DeleteInput
	if err := c.Bind(&in); err != nil {
		return apperr.Field("body", "request body must be valid JSON")
	}
	ctx := c.Request().Context()
	if err := h.svc.Delete(ctx, doctor.Credentials(ctx), doctor.FromContext(ctx).ID, in); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := validation.ParseID("id", c.Param("id"))
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	a, err := h.svc.Get(ctx, doctor.FromContext(ctx).ID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.view(a))
}

// List accepts ?from= and ?to= as dates or RFC 3339 instants.
func (h *Handler) List(c echo.Context) error {
	from, err := h.svc.ParseWindowBound("from", c.QueryParam("from"))
	if err != nil {
		return err
	}
	to, err := h.svc.ParseWindowBound("to", c.QueryParam("to"))
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()
	items, total, err := h.svc.List(ctx, doctor.FromContext(ctx).ID, from, to, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	views := make([]view, 0, len(items))
	for _, a := range items {
		views = append(views, h.view(a))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(views, total, pg))
}

func (h *Handler) Reconcile(c echo.Context) error {
	id, err := validation.ParseID("id", c.Param("id"))
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	r, err := h.svc.Reconcile(ctx, doctor.Credentials(ctx), doctor.FromContext(ctx).ID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}
