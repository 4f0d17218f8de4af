package identity

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/akin/akin/internal/platform/auth"
	"github.com/akin/akin/internal/platform/backend"
	"github.com/akin/akin/internal/platform/session"
)

type Handler struct {
	svc     *Service
	cookies session.CookieConfig
}

func NewHandler(svc *Service, cookies session.CookieConfig) *Handler {
	return &Handler{svc: svc, cookies: cookies}
}

// RegisterPublicRoutes registers the endpoints reachable without a session.
func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	g.POST("/auth/signin", h.SignIn)
	g.POST("/auth/forgot-password", h.ForgotPassword)
	g.PATCH("/auth/reset-password", h.ResetPassword)
}

// RegisterRoutes registers the endpoints that need a resolved session.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/auth/me", h.Me)
	api.POST("/auth/logout", h.Logout)

	chief := api.Group("", auth.RequireRole(auth.RoleLabChief))
	chief.POST("/auth/signup", h.SignUp)
}

func (h *Handler) SignIn(c echo.Context) error {
	var in SignInInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "pedido inválido")
	}
	store, resp, err := h.svc.SignIn(c.Request().Context(), in)
	if err != nil {
		switch backend.StatusCode(err) {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return echo.NewHTTPError(http.StatusUnauthorized, "email ou palavra-passe incorrectos")
		}
		return err
	}
	if err := session.SetCookies(c, h.cookies, store.State()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) SignUp(c echo.Context) error {
	var in SignUpInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "pedido inválido")
	}
	if err := h.svc.SignUp(backend.Context(c), in); err != nil {
		return err
	}
	return c.NoContent(http.StatusCreated)
}

func (h *Handler) Me(c echo.Context) error {
	store, ok := session.FromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "sessão inválida ou expirada")
	}
	resp, err := h.svc.Me(c.Request().Context(), store)
	if err != nil {
		return err
	}
	if err := session.SetCookies(c, h.cookies, store.State()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Logout(c echo.Context) error {
	store, _ := session.FromContext(c)
	err := h.svc.Logout(c.Request().Context(), store)
	session.ClearCookies(c, h.cookies)
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ForgotPassword(c echo.Context) error {
	var in ForgotPasswordInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "pedido inválido")
	}
	if err := h.svc.ForgotPassword(c.Request().Context(), in); err != nil {
		// Unknown addresses get the same answer as known ones.
		if backend.IsNotFound(err) {
			return c.NoContent(http.StatusAccepted)
		}
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

func (h *Handler) ResetPassword(c echo.Context) error {
	var in ResetPasswordInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "pedido inválido")
	}
	if err := h.svc.ResetPassword(c.Request().Context(), in); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
