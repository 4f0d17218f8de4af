package assistant

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/akin/akin/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.AllRoles...))
	g.POST("/assistant/chat", h.Chat)
}

func (h *Handler) Chat(c echo.Context) error {
	if !h.svc.Enabled() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "o assistente não está disponível")
	}
	var in ChatInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "pedido inválido")
	}
	reply, err := h.svc.Chat(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reply)
}
