package session

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/akin/akin/internal/platform/auth"
)

// CookieConfig controls the attributes of the session cookies. Secure is
// only ever disabled for local development over plain HTTP.
type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

// UserData is the snapshot serialized into the akin-userdata cookie. Tokens
// are deliberately absent.
type UserData struct {
	UserID          string    `json:"userId"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Role            auth.Role `json:"role"`
	IsAuthenticated bool      `json:"isAuthenticated"`
}

// EncodeUserData serializes a snapshot for the akin-userdata cookie.
func EncodeUserData(s Snapshot) (string, error) {
	data, err := json.Marshal(UserData{
		UserID:          s.User.ID,
		Name:            s.User.Name,
		Email:           s.User.Email,
		Role:            s.User.Role,
		IsAuthenticated: s.IsAuthenticated,
	})
	if err != nil {
		return "", fmt.Errorf("encode user data: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// DecodeUserData parses an akin-userdata cookie value.
func DecodeUserData(value string) (UserData, error) {
	raw, err := base64.URLEncoding.DecodeString(value)
	if err != nil {
		return UserData{}, fmt.Errorf("decode user data: %w", err)
	}
	var ud UserData
	if err := json.Unmarshal(raw, &ud); err != nil {
		return UserData{}, fmt.Errorf("decode user data: %w", err)
	}
	return ud, nil
}

// UserDataFromCookie reads the akin-userdata cookie of the request.
func UserDataFromCookie(c echo.Context) (UserData, error) {
	ck, err := c.Cookie(auth.CookieUserData)
	if err != nil {
		return UserData{}, ErrNotFound
	}
	return DecodeUserData(ck.Value)
}

// SetCookies writes the three session cookies for s.
func SetCookies(c echo.Context, cfg CookieConfig, s Snapshot) error {
	ud, err := EncodeUserData(s)
	if err != nil {
		return err
	}
	maxAge := int(cfg.MaxAge / time.Second)
	c.SetCookie(newCookie(cfg, auth.CookieToken, s.Tokens.AccessToken, maxAge, true))
	c.SetCookie(newCookie(cfg, auth.CookieRole, string(s.User.Role), maxAge, false))
	c.SetCookie(newCookie(cfg, auth.CookieUserData, ud, maxAge, false))
	return nil
}

// ClearCookies expires the three session cookies.
func ClearCookies(c echo.Context, cfg CookieConfig) {
	for _, name := range []string{auth.CookieToken, auth.CookieRole, auth.CookieUserData} {
		ck := newCookie(cfg, name, "", -1, name == auth.CookieToken)
		ck.Expires = time.Unix(0, 0)
		c.SetCookie(ck)
	}
}

func newCookie(cfg CookieConfig, name, value string, maxAge int, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   cfg.Secure,
		HttpOnly: httpOnly,
		SameSite: http.SameSiteStrictMode,
	}
}
