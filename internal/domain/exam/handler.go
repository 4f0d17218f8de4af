package exam

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
	g.GET("/exams", h.List)
	g.GET("/exams/:id", h.Get)
	g.PATCH("/exams/:id", h.Update)
}

func (h *Handler) List(c echo.Context) error {
	q := ListQuery{
		Status: c.QueryParam("status"),
		Mine:   c.QueryParam("mine") == "true",
	}
	items, err := h.svc.List(backend.Context(c), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.Paginate(items, pagination.FromContext(c)))
}

func (h *Handler) Get(c echo.Context) error {
	e, err := h.svc.Get(backend.Context(c), c.Param("id"))
	if err != nil {
		if backend.IsNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "exame não encontrado")
		}
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) Update(c echo.Context) error {
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "pedido inválido")
	}
	e, err := h.svc.Update(backend.Context(c), c.Param("id"), in)
	if err != nil {
		if backend.IsNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "exame não encontrado")
		}
		return err
	}
	return c.JSON(http.StatusOK, e)
}
