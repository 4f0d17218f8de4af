package team

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/akin/akin/internal/platform/auth"
	"github.com/akin/akin/internal/platform/backend"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole(auth.RoleLabChief, auth.RoleReceptionist))
	readGroup.GET("/technicians", h.List)

	// Team management is the chief's
	writeGroup := api.Group("", auth.RequireRole(auth.RoleLabChief))
	writeGroup.POST("/technicians", h.Create)
	writeGroup.PATCH("/technicians/:id", h.Update)
	writeGroup.DELETE("/technicians/:id", h.Delete)
}

func (h *Handler) List(c echo.Context) error {
	items, err := h.svc.List(backend.Context(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Create(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "pedido inválido")
	}
	t, err := h.svc.Create(backend.Context(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) Update(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "pedido inválido")
	}
	t, err := h.svc.Update(backend.Context(c), c.Param("id"), in)
	if err != nil {
		return notFound(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) Delete(c echo.Context) error {
	if err := h.svc.Delete(backend.Context(c), c.Param("id")); err != nil {
		return notFound(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func notFound(err error) error {
	if backend.IsNotFound(err) {
		return echo.NewHTTPError(http.StatusNotFound, "técnico não encontrado")
	}
	return err
}
