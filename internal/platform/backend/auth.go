package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/akin/akin/internal/platform/auth"
	"github.com/akin/akin/internal/platform/session"
)

// tokenResponse accepts both snake and camel case, which the backend has
// used on different endpoints.
type tokenResponse struct {
	AccessToken       string `json:"access_token"`
	AccessTokenCamel  string `json:"accessToken"`
	RefreshToken      string `json:"refresh_token"`
	RefreshTokenCamel string `json:"refreshToken"`
}

func (t tokenResponse) tokens() session.Tokens {
	out := session.Tokens{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken}
	if out.AccessToken == "" {
		out.AccessToken = t.AccessTokenCamel
	}
	if out.RefreshToken == "" {
		out.RefreshToken = t.RefreshTokenCamel
	}
	return out
}

// Profile is the body of GET /auth/me.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Phone string `json:"phone,omitempty"`
}

// UnmarshalJSON accepts the backend's Portuguese field names (nome, tipo,
// contacto_telefonico) alongside the English ones, and numeric ids.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    json.RawMessage `json:"id"`
		Name  string          `json:"name"`
		Nome  string          `json:"nome"`
		Email string          `json:"email"`
		Role  string          `json:"role"`
		Tipo  string          `json:"tipo"`
		Phone string          `json:"phone"`
		Tel   string          `json:"contacto_telefonico"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Profile{
		ID:    strings.Trim(string(raw.ID), `"`),
		Name:  firstNonEmpty(raw.Name, raw.Nome),
		Email: raw.Email,
		Role:  firstNonEmpty(raw.Role, raw.Tipo),
		Phone: firstNonEmpty(raw.Phone, raw.Tel),
	}
	if p.ID == "null" {
		p.ID = ""
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// User converts the profile to a session user. An unknown role is kept out
// of the session rather than failing sign-in; the guard then treats the
// user as roleless.
func (p Profile) User() session.User {
	u := session.User{ID: p.ID, Name: p.Name, Email: p.Email}
	if role, err := auth.ParseRole(p.Role); err == nil {
		u.Role = role
	}
	return u
}

// SignInInput is the body of POST /auth/local/signin.
type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpInput is the body of POST /auth/local/signup.
type SignUpInput struct {
	Name     string `json:"nome"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"contacto_telefonico,omitempty"`
	Role     string `json:"tipo"`
}

// SignIn exchanges credentials for tokens.
func (c *Client) SignIn(ctx context.Context, in SignInInput) (session.Tokens, error) {
	var resp tokenResponse
	if err := c.Post(ctx, nil, "/auth/local/signin", in, &resp); err != nil {
		return session.Tokens{}, err
	}
	tokens := resp.tokens()
	if tokens.AccessToken == "" {
		return session.Tokens{}, fmt.Errorf("backend: signin returned no access token")
	}
	return tokens, nil
}

// SignUp creates a staff account. The chief's session signs the call.
func (c *Client) SignUp(ctx context.Context, creds Credentials, in SignUpInput) error {
	return c.Post(ctx, creds, "/auth/local/signup", in, nil)
}

// Me fetches the profile of the session owner.
func (c *Client) Me(ctx context.Context, creds Credentials) (Profile, error) {
	var p Profile
	if err := c.Get(ctx, creds, "/auth/me", nil, &p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Refresh calls POST /auth/refresh with refreshToken as bearer and body.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (session.Tokens, error) {
	var resp tokenResponse
	err := c.Do(ctx, StaticToken(refreshToken), Request{
		Method:      http.MethodPost,
		Path:        refreshPath,
		Body:        map[string]string{"refreshToken": refreshToken},
		SkipRefresh: true,
	}, &resp)
	if err != nil {
		return session.Tokens{}, err
	}
	tokens := resp.tokens()
	if tokens.AccessToken == "" {
		return session.Tokens{}, fmt.Errorf("backend: refresh returned no access token")
	}
	return tokens, nil
}

// Logout tells the backend to revoke the refresh token. Failures are not
// fatal to a local logout.
func (c *Client) Logout(ctx context.Context, creds Credentials) error {
	return c.Post(ctx, creds, "/auth/logout", nil, nil)
}

// ForgotPassword requests a reset e-mail.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.Post(ctx, nil, "/auth/forgot-password", map[string]string{"email": strings.TrimSpace(email)}, nil)
}

// ResetPassword sets a new password with the token from the reset e-mail.
func (c *Client) ResetPassword(ctx context.Context, token, password string) error {
	return c.Patch(ctx, nil, "/auth/reset-password", map[string]string{
		"token":    token,
		"password": password,
	}, nil)
}
