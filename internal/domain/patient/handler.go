package patient

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
	api.GET("/patients", h.List)
	api.GET("/patients/:id", h.Get)
	api.POST("/patients", h.Create)
	api.POST("/patients/update", h.Update)
	api.POST("/patients/delete", h.Delete)
}

func (h *Handler) Create(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return apperr.Field("body", "request body must be valid JSON")
	}
	ctx := c.Request().Context()
	p, err := h.svc.Create(ctx, doctor.FromContext(ctx).ID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := validation.ParseID("id", c.Param("id"))
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	p, err := h.svc.Get(ctx, doctor.FromContext(ctx).ID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// List supports ?q= to filter by name or email.
func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()
	items, total, err := h.svc.Search(ctx, doctor.FromContext(ctx).ID, c.QueryParam("q"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Patient{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Update(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return apperr.Field("body", "request body must be valid JSON")
	}
	ctx := c.Request().Context()
	p, err := h.svc.Update(ctx, doctor.FromContext(ctx).ID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c echo.Context) error {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Field("body", "request body must be valid JSON")
	}
	id, err := validation.ParseID("id", req.ID)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.svc.Delete(ctx, doctor.FromContext(ctx).ID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
