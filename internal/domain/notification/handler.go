package notification

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/akin/akin/internal/platform/auth"
	"github.com/akin/akin/internal/platform/backend"
	"github.com/akin/akin/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.AllRoles...))
	g.GET("/notifications", h.List)
	g.POST("/notifications", h.Create)
	g.PATCH("/notifications/:id/read", h.MarkRead)
}

func (h *Handler) List(c echo.Context) error {
	items, err := h.svc.List(backend.Context(c), c.QueryParam("unread") == "true")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.Paginate(items, pagination.FromContext(c)))
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "pedido inválido")
	}
	n, err := h.svc.Create(backend.Context(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) MarkRead(c echo.Context) error {
	n, err := h.svc.MarkRead(backend.Context(c), c.Param("id"))
	if err != nil {
		if backend.IsNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "notificação não encontrada")
		}
		return err
	}
	return c.JSON(http.StatusOK, n)
}
