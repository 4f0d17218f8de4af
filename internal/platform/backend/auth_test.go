package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akin/akin/internal/platform/auth"
)

func TestSignInAndMe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/local/signin":
			var in SignInInput
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			if in.Password != "segredo" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"message":"Credenciais inválidas"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"a1","refresh_token":"r1"}`))
		case "/auth/me":
			assert.Equal(t, "Bearer a1", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"id":7,"nome":"João Baptista","email":"joao@akin.ao","tipo":"chefe"}`))
		}
	}))
	defer srv.Close()
	c := newClient(t, srv)
	ctx := context.Background()

	_, err := c.SignIn(ctx, SignInInput{Email: "joao@akin.ao", Password: "errada"})
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "Credenciais inválidas", be.UserMessage())

	tokens, err := c.SignIn(ctx, SignInInput{Email: "joao@akin.ao", Password: "segredo"})
	require.NoError(t, err)
	assert.Equal(t, "a1", tokens.AccessToken)
	assert.Equal(t, "r1", tokens.RefreshToken)

	p, err := c.Me(ctx, StaticToken(tokens.AccessToken))
	require.NoError(t, err)
	assert.Equal(t, "7", p.ID)
	assert.Equal(t, "João Baptista", p.Name)

	u := p.User()
	assert.Equal(t, auth.RoleLabChief, u.Role)
}

func TestProfile_UnknownRole(t *testing.T) {
	var p Profile
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","name":"A","role":"ADMIN"}`), &p))
	assert.Empty(t, p.User().Role)
	assert.Equal(t, "A", p.User().Name)
}

func TestCredentialsFor(t *testing.T) {
	e := echo.New()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Nil(t, CredentialsFor(c))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{UserID: "u1", Token: "tok"}))
	c = e.NewContext(req, httptest.NewRecorder())
	assert.Equal(t, StaticToken("tok"), CredentialsFor(c))
}

func TestCredentialsContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, CredentialsFromContext(ctx))
	ctx = WithCredentials(ctx, StaticToken("abc"))
	assert.Equal(t, StaticToken("abc"), CredentialsFromContext(ctx))
}
