package auth

import (
	"github.com/labstack/echo/v4"
)

// Cookie names shared by the guard, the session layer and the dashboard bundle.
const (
	CookieToken    = "akin-token"
	CookieRole     = "akin-role"
	CookieUserData = "akin-userdata"
)

// CredentialsFromCookies reads the guard inputs from the request cookies. A
// malformed role cookie is treated as no role.
func CredentialsFromCookies(c echo.Context) Credentials {
	var creds Credentials
	if ck, err := c.Cookie(CookieToken); err == nil {
		creds.Token = ck.Value
	}
	if ck, err := c.Cookie(CookieRole); err == nil {
		if role, err := ParseRole(ck.Value); err == nil {
			creds.Role = role
		}
	}
	return creds
}
