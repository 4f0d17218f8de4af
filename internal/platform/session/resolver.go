package session

import (
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/akin/akin/internal/platform/auth"
)

const storeContextKey = "session_store"

// Resolver ties the Manager to incoming requests: it implements
// auth.PrincipalResolver for API routes and supplies guard credentials for
// page navigations.
type Resolver struct {
	Manager *Manager
	Cookies CookieConfig
	Logger  zerolog.Logger
}

// ResolvePrincipal finds the session named by the request cookies, stores it
// on the echo context and arranges for the cookies to be re-issued if the
// tokens rotate while the request is handled.
func (r *Resolver) ResolvePrincipal(c echo.Context) (auth.Principal, error) {
	store, presented, err := r.lookup(c)
	if err != nil {
		return auth.Principal{}, err
	}
	c.Set(storeContextKey, store)

	c.Response().Before(func() {
		st := store.State()
		if !st.IsAuthenticated || st.Tokens.AccessToken == presented {
			return
		}
		if err := SetCookies(c, r.Cookies, st); err != nil {
			r.Logger.Error().Err(err).Str("user_id", st.User.ID).Msg("reissue session cookies")
		}
	})

	st := store.State()
	return auth.Principal{
		UserID: st.User.ID,
		Name:   st.User.Name,
		Role:   st.User.Role,
		Token:  st.Tokens.AccessToken,
	}, nil
}

// Credentials returns the guard inputs for a navigation. A live session
// supplies its stored role; a token cookie that names no live session counts
// as no token. When storage itself fails the raw cookies are used.
func (r *Resolver) Credentials(c echo.Context) auth.Credentials {
	store, _, err := r.lookup(c)
	switch {
	case err == nil:
		st := store.State()
		return auth.Credentials{Token: st.Tokens.AccessToken, Role: st.User.Role}
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrSessionMismatch):
		return auth.Credentials{}
	default:
		r.Logger.Warn().Err(err).Msg("session lookup failed, using cookies")
		return auth.CredentialsFromCookies(c)
	}
}

func (r *Resolver) lookup(c echo.Context) (*Store, string, error) {
	tok, err := c.Cookie(auth.CookieToken)
	if err != nil || tok.Value == "" {
		return nil, "", ErrNotFound
	}
	ud, err := UserDataFromCookie(c)
	if err != nil {
		return nil, "", ErrNotFound
	}
	store, err := r.Manager.Resolve(c.Request().Context(), ud.UserID, tok.Value)
	if err != nil {
		return nil, "", err
	}
	return store, tok.Value, nil
}

// FromContext returns the store resolved for the request, if any.
func FromContext(c echo.Context) (*Store, bool) {
	s, ok := c.Get(storeContextKey).(*Store)
	return s, ok
}
