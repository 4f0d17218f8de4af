package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// CredentialsFunc extracts guard credentials from a request.
type CredentialsFunc func(c echo.Context) Credentials

// GuardConfig configures GuardMiddleware.
type GuardConfig struct {
	Guard       *Guard
	Credentials CredentialsFunc
	Skipper     middleware.Skipper
	Logger      zerolog.Logger
}

// GuardMiddleware runs the access guard on every GET/HEAD navigation and turns
// redirect decisions into 302 responses. Other methods and skipped paths pass
// through untouched; API routes carry their own session checks.
func GuardMiddleware(cfg GuardConfig) echo.MiddlewareFunc {
	if cfg.Credentials == nil {
		cfg.Credentials = CredentialsFromCookies
	}
	if cfg.Skipper == nil {
		cfg.Skipper = GuardSkipper
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet && req.Method != http.MethodHead {
				return next(c)
			}
			if cfg.Skipper(c) {
				return next(c)
			}

			path := req.URL.EscapedPath()
			d := cfg.Guard.Decide(cfg.Credentials(c), path)
			if d.Allowed() {
				return next(c)
			}

			rid, _ := c.Get("request_id").(string)
			cfg.Logger.Debug().
				Str("request_id", rid).
				Str("path", path).
				Str("state", d.State.String()).
				Str("rule", d.Rule).
				Str("location", d.Location).
				Msg("navigation redirected")

			return c.Redirect(http.StatusFound, d.Location)
		}
	}
}
