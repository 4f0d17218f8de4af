package scheduling

import (
	"errors"
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
	// Read endpoints – every staff role
	readGroup := api.Group("", auth.RequireRole(auth.AllRoles...))
	readGroup.GET("/schedules", h.List)
	readGroup.GET("/schedules/completed", h.ListCompleted)
	readGroup.GET("/schedules/:id", h.Get)

	// Dashboard – chief and technicians
	dashGroup := api.Group("", auth.RequireRole(auth.RoleLabChief, auth.RoleTechnician))
	dashGroup.GET("/dashboard/summary", h.Summary)

	// Write endpoints – chief and reception
	writeGroup := api.Group("", auth.RequireRole(auth.RoleLabChief, auth.RoleReceptionist))
	writeGroup.POST("/schedules", h.Create)
	writeGroup.PATCH("/schedules/:id", h.Update)

	// Allocation – chief only
	chiefGroup := api.Group("", auth.RequireRole(auth.RoleLabChief))
	chiefGroup.PATCH("/schedules/:id/allocate", h.Allocate)
}

func (h *Handler) List(c echo.Context) error {
	spec, err := ParseFilterSpec(c.QueryParams())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := backend.Context(c)
	items, err := h.svc.List(ctx, spec, auth.RoleFromContext(ctx))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.Paginate(items, pagination.FromContext(c)))
}

func (h *Handler) ListCompleted(c echo.Context) error {
	spec, err := ParseFilterSpec(c.QueryParams())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := backend.Context(c)
	items, err := h.svc.ListCompleted(ctx, spec, auth.RoleFromContext(ctx))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.Paginate(items, pagination.FromContext(c)))
}

func (h *Handler) Get(c echo.Context) error {
	rec, err := h.svc.Get(backend.Context(c), c.Param("id"))
	if err != nil {
		if backend.IsNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "agendamento não encontrado")
		}
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) Summary(c echo.Context) error {
	s, err := h.svc.Summary(backend.Context(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "pedido inválido")
	}
	rec, err := h.svc.Create(backend.Context(c), in)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) Update(c echo.Context) error {
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "pedido inválido")
	}
	rec, err := h.svc.Update(backend.Context(c), c.Param("id"), in)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) Allocate(c echo.Context) error {
	var in AllocateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "pedido inválido")
	}
	ctx := backend.Context(c)
	rec, err := h.svc.Allocate(ctx, c.Param("id"), auth.UserIDFromContext(ctx), in)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

// serviceError turns validation failures into 400s and leaves backend errors
// for the error handler.
func serviceError(err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return echo.NewHTTPError(http.StatusBadRequest, verr.Msg)
	}
	return err
}
