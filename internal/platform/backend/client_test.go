package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akin/akin/internal/platform/auth"
	"github.com/akin/akin/internal/platform/middleware"
	"github.com/akin/akin/internal/platform/session"
)

func newStore(t *testing.T, tokens session.Tokens) *session.Store {
	t.Helper()
	ctx := context.Background()
	s, err := session.Open(ctx, session.NewMemoryStorage(), "test")
	require.NoError(t, err)
	require.NoError(t, s.Login(ctx, tokens, session.User{ID: "u-1", Role: auth.RoleTechnician}))
	return s
}

func newClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: srv.URL, Logger: zerolog.Nop(), Metrics: NewMetrics(prometheus.NewRegistry())})
	require.NoError(t, err)
	return c
}

// fakeBackend accepts "valid" bearer tokens and rotates "refresh-ok".
type fakeBackend struct {
	refreshCalls atomic.Int32
	protected    atomic.Int32
	accept       string
}

func (f *fakeBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls.Add(1)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["refreshToken"] != "refresh-ok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"refresh token inválido"}`))
			return
		}
		time.Sleep(20 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": f.accept, "refresh_token": "refresh-ok"})
	})
	mux.HandleFunc("/exams", func(w http.ResponseWriter, r *http.Request) {
		f.protected.Add(1)
		if r.Header.Get("Authorization") != "Bearer "+f.accept {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.NotEmpty(t, r.Header.Get(middleware.RequestIDHeader))
		_, _ = w.Write([]byte(`[{"id":1}]`))
	})
	mux.HandleFunc("/schedulings", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":["data inválida","preço negativo"]}`))
	})
	mux.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"stack trace here"}`))
	})
	return mux
}

func TestDo_SignsRequests(t *testing.T) {
	fb := &fakeBackend{accept: "valid"}
	srv := httptest.NewServer(fb.handler(t))
	defer srv.Close()

	var out []map[string]int
	err := newClient(t, srv).Get(context.Background(), newStore(t, session.Tokens{AccessToken: "valid"}), "/exams", nil, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, out[0]["id"])
	assert.Equal(t, int32(0), fb.refreshCalls.Load())
}

func TestDo_RefreshesOnceAndRetries(t *testing.T) {
	fb := &fakeBackend{accept: "fresh"}
	srv := httptest.NewServer(fb.handler(t))
	defer srv.Close()

	store := newStore(t, session.Tokens{AccessToken: "stale", RefreshToken: "refresh-ok"})
	var out []map[string]int
	err := newClient(t, srv).Get(context.Background(), store, "/exams", nil, &out)
	require.NoError(t, err)

	assert.Equal(t, int32(1), fb.refreshCalls.Load())
	assert.Equal(t, int32(2), fb.protected.Load())
	assert.Equal(t, "fresh", store.Tokens().AccessToken)
}

func TestDo_RetriesAtMostOnce(t *testing.T) {
	fb := &fakeBackend{accept: "never-issued"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			fb.refreshCalls.Add(1)
			_, _ = w.Write([]byte(`{"accessToken":"still-bad","refreshToken":"refresh-ok"}`))
			return
		}
		fb.protected.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	store := newStore(t, session.Tokens{AccessToken: "stale", RefreshToken: "refresh-ok"})
	err := newClient(t, srv).Get(context.Background(), store, "/exams", nil, nil)

	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusUnauthorized, be.StatusCode)
	assert.Equal(t, int32(1), fb.refreshCalls.Load())
	assert.Equal(t, int32(2), fb.protected.Load())
}

func TestDo_RefreshFailureLogsOut(t *testing.T) {
	fb := &fakeBackend{accept: "fresh"}
	srv := httptest.NewServer(fb.handler(t))
	defer srv.Close()

	store := newStore(t, session.Tokens{AccessToken: "stale", RefreshToken: "revoked"})
	err := newClient(t, srv).Get(context.Background(), store, "/exams", nil, nil)

	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.False(t, store.State().IsAuthenticated)
	assert.Equal(t, http.StatusUnauthorized, middleware.StatusOf(err))
}

func TestDo_MissingRefreshTokenLogsOut(t *testing.T) {
	fb := &fakeBackend{accept: "fresh"}
	srv := httptest.NewServer(fb.handler(t))
	defer srv.Close()

	store := newStore(t, session.Tokens{AccessToken: "stale"})
	err := newClient(t, srv).Get(context.Background(), store, "/exams", nil, nil)

	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.False(t, store.State().IsAuthenticated)
	assert.Equal(t, int32(0), fb.refreshCalls.Load())
}

func TestDo_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	fb := &fakeBackend{accept: "fresh"}
	srv := httptest.NewServer(fb.handler(t))
	defer srv.Close()

	client := newClient(t, srv)
	store := newStore(t, session.Tokens{AccessToken: "stale", RefreshToken: "refresh-ok"})

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = client.Get(context.Background(), store, "/exams", nil, nil)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), fb.refreshCalls.Load())
}

func TestDo_ErrorsAreNotRetried(t *testing.T) {
	fb := &fakeBackend{accept: "valid"}
	srv := httptest.NewServer(fb.handler(t))
	defer srv.Close()
	client := newClient(t, srv)
	store := newStore(t, session.Tokens{AccessToken: "valid"})

	err := client.Post(context.Background(), store, "/schedulings", map[string]string{"a": "b"}, nil)
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusUnprocessableEntity, be.StatusCode)
	assert.Equal(t, "data inválida; preço negativo", be.UserMessage())
	assert.Equal(t, http.StatusUnprocessableEntity, be.HTTPStatus())

	err = client.Get(context.Background(), store, "/boom", nil, nil)
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusBadGateway, be.HTTPStatus())
}

func TestDo_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	client := newClient(t, srv)
	srv.Close()

	err := client.Get(context.Background(), nil, "/exams", nil, nil)
	assert.Equal(t, http.StatusBadGateway, middleware.StatusOf(err))
}

func TestDo_HonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := newClient(t, srv).Get(ctx, nil, "/exams", nil, nil)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestDo_EscapesPathOnce(t *testing.T) {
	var rawPath, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawPath, path = r.URL.EscapedPath(), r.URL.Path
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL + "/api/", Logger: zerolog.Nop(), Metrics: NewMetrics(prometheus.NewRegistry())})
	require.NoError(t, err)

	require.NoError(t, c.Get(context.Background(), nil, "/exams/"+url.PathEscape("a b"), nil, nil))
	assert.Equal(t, "/api/exams/a%20b", rawPath)
	assert.Equal(t, "/api/exams/a b", path)

	require.NoError(t, c.Get(context.Background(), nil, "/exams/"+url.PathEscape("a/b"), nil, nil))
	assert.Equal(t, "/api/exams/a%2Fb", rawPath)
}

func TestDo_PropagatesRequestID(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(middleware.RequestIDHeader)
	}))
	defer srv.Close()

	ctx := middleware.WithRequestID(context.Background(), "rid-42")
	require.NoError(t, newClient(t, srv).Get(ctx, nil, "/exams", nil, nil))
	assert.Equal(t, "rid-42", got)
}

func TestDo_ProactiveRefresh(t *testing.T) {
	fb := &fakeBackend{accept: "fresh"}
	srv := httptest.NewServer(fb.handler(t))
	defer srv.Close()

	expiring, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(10 * time.Second)),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	c, err := New(Config{BaseURL: srv.URL, RefreshSkew: time.Minute, Logger: zerolog.Nop()})
	require.NoError(t, err)
	store := newStore(t, session.Tokens{AccessToken: expiring, RefreshToken: "refresh-ok"})

	require.NoError(t, c.Get(context.Background(), store, "/exams", nil, nil))
	assert.Equal(t, int32(1), fb.refreshCalls.Load())
	assert.Equal(t, int32(1), fb.protected.Load(), "no 401 round trip needed")
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New(Config{BaseURL: "/api"})
	assert.Error(t, err)
}

func TestResourceOf(t *testing.T) {
	assert.Equal(t, "schedulings", resourceOf("/schedulings/12/allocate"))
	assert.Equal(t, "pacients", resourceOf("pacients"))
	assert.Equal(t, "root", resourceOf("/"))
}
