package scheduling

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akin/akin/internal/platform/auth"
	"github.com/akin/akin/internal/platform/backend"
	"github.com/akin/akin/internal/platform/middleware"
)

func newTestServer(repo Repository, role auth.Role) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler(zerolog.Nop(), nil)
	api := e.Group("/api/v1", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := auth.WithPrincipal(c.Request().Context(), auth.Principal{UserID: "7", Role: role, Token: "tok"})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	NewHandler(NewService(repo)).RegisterRoutes(api)
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type listBody struct {
	Data    []Record `json:"data"`
	Total   int      `json:"total"`
	HasMore bool     `json:"has_more"`
}

func TestHandler_List(t *testing.T) {
	e := newTestServer(newFakeRepo(), auth.RoleReceptionist)

	rec := do(e, http.MethodGet, "/api/v1/schedules?gender=F&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body listBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)
	assert.True(t, body.HasMore)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Ana Domingos", body.Data[0].Patient.Name)
}

func TestHandler_ListBadFilter(t *testing.T) {
	e := newTestServer(newFakeRepo(), auth.RoleReceptionist)

	rec := do(e, http.MethodGet, "/api/v1/schedules?dateFrom=ontem", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "data inválida")
}

func TestHandler_ListCompleted(t *testing.T) {
	e := newTestServer(newFakeRepo(), auth.RoleLabChief)

	rec := do(e, http.MethodGet, "/api/v1/schedules/completed", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body listBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Total)
}

func TestHandler_Get(t *testing.T) {
	e := newTestServer(newFakeRepo(), auth.RoleTechnician)

	rec := do(e, http.MethodGet, "/api/v1/schedules/3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Carla Neto")

	rec = do(e, http.MethodGet, "/api/v1/schedules/404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "agendamento não encontrado")
}

func TestHandler_Create(t *testing.T) {
	repo := newFakeRepo()
	e := newTestServer(repo, auth.RoleReceptionist)

	body := `{"patient":{"name":"Ana"},"examList":[{"date":"2024-07-01","examType":"Glicemia","price":2000}]}`
	rec := do(e, http.MethodPost, "/api/v1/schedules", body)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, repo.created, 1)

	rec = do(e, http.MethodPost, "/api/v1/schedules", `{"patient":{"name":""},"examList":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "nome do paciente")
}

func TestHandler_CreateForbiddenForTechnician(t *testing.T) {
	e := newTestServer(newFakeRepo(), auth.RoleTechnician)
	rec := do(e, http.MethodPost, "/api/v1/schedules", `{}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandler_Allocate(t *testing.T) {
	repo := newFakeRepo()

	e := newTestServer(repo, auth.RoleReceptionist)
	rec := do(e, http.MethodPatch, "/api/v1/schedules/2/allocate", `{"technicianId":12}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	e = newTestServer(repo, auth.RoleLabChief)
	rec = do(e, http.MethodPatch, "/api/v1/schedules/2/allocate", `{"technicianId":12}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7/12", repo.allocated["2"])
}

func TestHandler_Summary(t *testing.T) {
	e := newTestServer(newFakeRepo(), auth.RoleLabChief)

	rec := do(e, http.MethodGet, "/api/v1/dashboard/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var s Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, 4, s.Schedules)

	e = newTestServer(newFakeRepo(), auth.RoleReceptionist)
	rec = do(e, http.MethodGet, "/api/v1/dashboard/summary", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandler_BackendErrorPassesStatus(t *testing.T) {
	repo := newFakeRepo()
	repo.err = &backend.Error{StatusCode: http.StatusServiceUnavailable, Message: "stack trace at db.go:12"}
	e := newTestServer(repo, auth.RoleLabChief)

	rec := do(e, http.MethodGet, "/api/v1/schedules", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "stack")
}
