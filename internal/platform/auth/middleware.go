package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRoleKey  contextKey = "user_role"
	UserTokenKey contextKey = "user_token"
	UserNameKey  contextKey = "user_name"
)

// ErrNoSession is returned by resolvers when the request carries no usable
// session.
var ErrNoSession = errors.New("no session")

// Principal is the authenticated caller of an API route.
type Principal struct {
	UserID string
	Name   string
	Role   Role
	Token  string
}

// PrincipalResolver maps a request to its authenticated principal.
type PrincipalResolver interface {
	ResolvePrincipal(c echo.Context) (Principal, error)
}

// RequireSession rejects API requests without a resolvable session with 401
// and stores the principal on the request context otherwise.
func RequireSession(resolver PrincipalResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := resolver.ResolvePrincipal(c)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "sessão inválida ou expirada").SetInternal(err)
			}
			c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), p)))
			return next(c)
		}
	}
}

// WithPrincipal stores p on ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, p.UserID)
	ctx = context.WithValue(ctx, UserRoleKey, p.Role)
	ctx = context.WithValue(ctx, UserTokenKey, p.Token)
	ctx = context.WithValue(ctx, UserNameKey, p.Name)
	return ctx
}

// PrincipalFromContext rebuilds the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	uid := UserIDFromContext(ctx)
	if uid == "" {
		return Principal{}, false
	}
	name, _ := ctx.Value(UserNameKey).(string)
	return Principal{
		UserID: uid,
		Name:   name,
		Role:   RoleFromContext(ctx),
		Token:  TokenFromContext(ctx),
	}, true
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RoleFromContext(ctx context.Context) Role {
	role, _ := ctx.Value(UserRoleKey).(Role)
	return role
}

func TokenFromContext(ctx context.Context) string {
	tok, _ := ctx.Value(UserTokenKey).(string)
	return tok
}
