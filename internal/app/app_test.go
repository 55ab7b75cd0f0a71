package app

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/todoapi/internal/config"
	"github.com/keyxmakerx/todoapi/internal/middleware"
	"github.com/keyxmakerx/todoapi/internal/response"
)

// newTestApp builds the full router against a live miniredis and a MariaDB
// pool pointing at a closed port. Nothing here reaches the database unless
// a test asks for it.
func newTestApp(t *testing.T) *App {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	db, err := sql.Open("mysql", "todo:todo@tcp(127.0.0.1:1)/todo?parseTime=true&timeout=200ms")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Env:            "test",
		AllowedOrigins: []string{"http://localhost:3000"},
		Auth: config.AuthConfig{
			SecretKey:  "test-secret-key-with-enough-bytes",
			TokenTTL:   time.Hour,
			BcryptCost: 4,
		},
		Pagination: config.PaginationConfig{DefaultLimit: 10, MaxLimit: 50},
		RateLimit:  config.RateLimitConfig{SigninAttempts: 2, SigninWindow: time.Minute},
		Location:   time.UTC,
	}

	a := New(cfg, db, rdb)
	require.NoError(t, a.RegisterRoutes())
	return a
}

func do(a *App, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) response.ErrorEnvelope {
	t.Helper()
	var env response.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestErrorEnvelope_UnknownRoute(t *testing.T) {
	a := newTestApp(t)

	rec := do(a, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	env := decodeError(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, http.MethodGet, env.Method)
	assert.Equal(t, "/nowhere", env.Path)
	assert.Equal(t, "not_found", env.Error.Code)
	assert.Equal(t, "Not Found", env.Error.Name)

	_, err := time.Parse(time.RFC3339, env.Timestamp)
	assert.NoError(t, err)
}

func TestErrorEnvelope_ValidationMessageIsFieldMap(t *testing.T) {
	a := newTestApp(t)

	rec := do(a, http.MethodPost, "/todo", `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env := decodeError(t, rec)
	assert.Equal(t, "validation_error", env.Error.Code)
	fields, ok := env.Error.Message.(map[string]any)
	require.True(t, ok, "message should be an object, got %T", env.Error.Message)
	assert.Contains(t, fields, "title")
}

func TestErrorHandler_LogsRejectedFields(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	a := newTestApp(t)
	rec := do(a, http.MethodPost, "/todo", `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Contains(t, buf.String(), `"msg":"request rejected"`)
	assert.Contains(t, buf.String(), `"fields":["title"]`)
}

func TestErrorEnvelope_StorageFailureHidesCause(t *testing.T) {
	a := newTestApp(t)

	rec := do(a, http.MethodGet, "/todo/1", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	env := decodeError(t, rec)
	assert.Equal(t, "storage_error", env.Error.Code)
	assert.NotContains(t, rec.Body.String(), "127.0.0.1")
}

func TestProfile_RequiresBearer(t *testing.T) {
	a := newTestApp(t)

	rec := do(a, http.MethodGet, "/users/profile", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Error.Code)

	req := httptest.NewRequest(http.MethodGet, "/users/profile", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer not-a-token")
	rec = httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnknownUsersPath_IsNotFound(t *testing.T) {
	a := newTestApp(t)

	rec := do(a, http.MethodGet, "/users/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Error.Code)
}

func TestSignin_RateLimited(t *testing.T) {
	a := newTestApp(t)

	// Empty bodies fail validation but still count against the budget.
	for i := 0; i < 2; i++ {
		rec := do(a, http.MethodPost, "/signin", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}

	rec := do(a, http.MethodPost, "/signin", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "too_many_requests", decodeError(t, rec).Error.Code)
}

func TestRecovery_PanicBecomesEnvelope(t *testing.T) {
	a := newTestApp(t)
	a.Echo.GET("/boom", func(echo.Context) error { panic("kaboom") })

	rec := do(a, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	env := decodeError(t, rec)
	assert.Equal(t, "internal_error", env.Error.Code)
	assert.NotContains(t, rec.Body.String(), "kaboom")
}

func TestRequestID_OnErrorResponses(t *testing.T) {
	a := newTestApp(t)

	rec := do(a, http.MethodGet, "/nowhere", "")
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestHealthz(t *testing.T) {
	a := newTestApp(t)

	rec := do(a, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "down", body.Checks["database"])
	assert.Equal(t, "up", body.Checks["redis"])
}

func TestHealthHandler_AllUp(t *testing.T) {
	e := echo.New()
	h := healthHandler(map[string]func(ctx context.Context) error{
		"a": func(context.Context) error { return nil },
	})

	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"a":"up"}}`, rec.Body.String())
}

func TestCodeForStatus(t *testing.T) {
	assert.Equal(t, "method_not_allowed", codeForStatus(http.StatusMethodNotAllowed))
	assert.Equal(t, "internal_error", codeForStatus(http.StatusBadGateway))
	assert.Equal(t, "http_error", codeForStatus(http.StatusTeapot))
}
