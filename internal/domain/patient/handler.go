package patient

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
	api.GET("/patients", h.Search, auth.RequireRole(auth.RoleLabChief, auth.RoleReceptionist))
	// technicians open a patient's history from their work list
	api.GET("/patients/:id", h.History, auth.RequireRole(auth.AllRoles...))
}

func (h *Handler) Search(c echo.Context) error {
	items, err := h.svc.Search(backend.Context(c), c.QueryParam("search"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.Paginate(items, pagination.FromContext(c)))
}

func (h *Handler) History(c echo.Context) error {
	hist, err := h.svc.History(backend.Context(c), c.Param("id"))
	if err != nil {
		return notFound(err)
	}
	return c.JSON(http.StatusOK, hist)
}

func notFound(err error) error {
	if backend.IsNotFound(err) {
		return echo.NewHTTPError(http.StatusNotFound, "paciente não encontrado")
	}
	return err
}
