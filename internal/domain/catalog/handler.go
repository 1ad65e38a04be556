package catalog

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medici/medici/internal/domain/doctor"
	"github.com/medici/medici/internal/platform/apperr"
	"github.com/medici/medici/internal/platform/validation"
	"github.com/medici/medici/pkg/pagination"
)

type Handler struct {
	catalog *Catalog
}

func NewHandler(catalog *Catalog) *Handler {
	return &Handler{catalog: catalog}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/services", h.List)
	api.GET("/services/:id", h.Get)
	api.POST("/services", h.Create)
	api.POST("/services/update", h.Update)
	api.POST("/services/delete", h.Delete)
}

func (h *Handler) Create(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return apperr.Field("body", "request body must be valid JSON")
	}
	ctx := c.Request().Context()
	s, err := h.catalog.Create(ctx, doctor.FromContext(ctx).ID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := validation.ParseID("id", c.Param("id"))
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	s, err := h.catalog.Get(ctx, doctor.FromContext(ctx).ID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()
	items, total, err := h.catalog.List(ctx, doctor.FromContext(ctx).ID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Service{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Update(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return apperr.Field("body", "request body must be valid JSON")
	}
	ctx := c.Request().Context()
	s, err := h.catalog.Update(ctx, doctor.FromContext(ctx).ID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
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
	if err := h.catalog.Delete(ctx, doctor.FromContext(ctx).ID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
