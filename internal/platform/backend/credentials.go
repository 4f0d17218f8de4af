package backend

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/akin/akin/internal/platform/auth"
	"github.com/akin/akin/internal/platform/session"
)

type credentialsKey struct{}

// CredentialsFor returns the credentials API handlers sign backend calls
// with: the session store resolved for the request, or the bearer token of
// the principal when no store was resolved. It returns nil when the request
// carries neither.
func CredentialsFor(c echo.Context) Credentials {
	if store, ok := session.FromContext(c); ok {
		return store
	}
	if tok := auth.TokenFromContext(c.Request().Context()); tok != "" {
		return StaticToken(tok)
	}
	return nil
}

// WithCredentials stores creds on ctx for repositories that only see a
// context.
func WithCredentials(ctx context.Context, creds Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, creds)
}

// CredentialsFromContext returns the credentials stored by WithCredentials,
// or nil.
func CredentialsFromContext(ctx context.Context) Credentials {
	creds, _ := ctx.Value(credentialsKey{}).(Credentials)
	return creds
}

// Context is the request context carrying the caller's credentials.
func Context(c echo.Context) context.Context {
	return WithCredentials(c.Request().Context(), CredentialsFor(c))
}
