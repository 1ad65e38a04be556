package contact

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

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

// RegisterPublicRoutes mounts the contact form outside the session-guarded
// API. m usually carries a per-IP rate limit.
func (h *Handler) RegisterPublicRoutes(e *echo.Echo, m ...echo.MiddlewareFunc) {
	e.POST("/contact", h.Submit, m...)
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/contact-requests", h.List)
	api.POST("/contact-requests/handled", h.MarkHandled)
}

func (h *Handler) Submit(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return apperr.Field("body", "request body must be valid JSON")
	}
	req, err := h.svc.Submit(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]string{"reference": req.Reference})
}

func (h *Handler) List(c echo.Context) error {
	pending := false
	if raw := c.QueryParam("pending"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return apperr.Field("pending", "use true or false")
		}
		pending = v
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pending, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Request{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) MarkHandled(c echo.Context) error {
	var body struct {
		ID string `json:"id"`
	}
	if err := c.Bind(&body); err != nil {
		return apperr.Field("body", "request body must be valid JSON")
	}
	id, err := validation.ParseID("id", body.ID)
	if err != nil {
		return err
	}
	req, err := h.svc.MarkHandled(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, req)
}
