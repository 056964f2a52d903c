package main

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"salbar-be/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func testConfig() *config.Config {
	return &config.Config{
		AppPort:   "8080",
		AppEnv:    "test",
		JWTSecret: testSecret,
		QPay: config.QPayConfig{
			BaseURL: config.DefaultQPayBaseURL,
			Mock:    true,
		},
	}
}

func signToken(t *testing.T, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user_1", "role": role})
	s, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func TestSetupRouter(t *testing.T) {
	db, err := sql.Open("mock_driver_main", "")
	require.NoError(t, err)
	router := setupRouter(newApp(context.Background(), testConfig(), db))

	do := func(method, target, body, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	t.Run("Health Check", func(t *testing.T) {
		rr := do(http.MethodGet, "/health", "", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "OK")
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	})

	t.Run("Webhook Status", func(t *testing.T) {
		rr := do(http.MethodGet, "/webhooks/qpay", "", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"message":"QPay webhook endpoint is active"}`, rr.Body.String())
	})

	t.Run("Webhook Invalid Payload", func(t *testing.T) {
		rr := do(http.MethodPost, "/webhooks/qpay", `{}`, "")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"success":false,"message":"Invalid webhook data"}`, rr.Body.String())
	})

	t.Run("Webhook Burst From One Address", func(t *testing.T) {
		for i := 0; i < 8; i++ {
			req := httptest.NewRequest(http.MethodPost, "/webhooks/qpay", strings.NewReader(`{}`))
			req.RemoteAddr = "203.0.113.5:1234"
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			require.Equal(t, http.StatusOK, rr.Code, "delivery %d", i)
			assert.JSONEq(t, `{"success":false,"message":"Invalid webhook data"}`, rr.Body.String())
		}
	})

	t.Run("Admin Requires Token", func(t *testing.T) {
		rr := do(http.MethodGet, "/admin/metrics/qpay", "", "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Admin Rejects Customer", func(t *testing.T) {
		rr := do(http.MethodDelete, "/admin/product-extensions/prodext_1", "", signToken(t, "customer"))
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("Admin Rejects Bad Signature", func(t *testing.T) {
		rr := do(http.MethodGet, "/admin/metrics/qpay", "", "not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("QPay Metrics", func(t *testing.T) {
		rr := do(http.MethodGet, "/admin/metrics/qpay", "", signToken(t, "admin"))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"requests":0`)
		assert.Contains(t, rr.Body.String(), `"auth_refreshes":0`)
	})

	t.Run("Prometheus Metrics", func(t *testing.T) {
		rr := do(http.MethodGet, "/metrics", "", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `salbar_gateway_requests_total{gateway="qpay"} 0`)
		assert.Contains(t, rr.Body.String(), "go_goroutines")
	})

	t.Run("Unknown Route", func(t *testing.T) {
		rr := do(http.MethodGet, "/query", "", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

// --- Mock Driver for Testing ---
type mockDriver struct{}

func (m *mockDriver) Open(name string) (driver.Conn, error)         { return &mockConn{}, nil }
func (c *mockConn) Prepare(query string) (driver.Stmt, error)       { return &mockStmt{}, nil }
func (c *mockConn) Close() error                                    { return nil }
func (c *mockConn) Begin() (driver.Tx, error)                       { return nil, nil }
func (s *mockStmt) Close() error                                    { return nil }
func (s *mockStmt) NumInput() int                                   { return 0 }
func (s *mockStmt) Exec(args []driver.Value) (driver.Result, error) { return nil, nil }
func (s *mockStmt) Query(args []driver.Value) (driver.Rows, error)  { return nil, nil }

type mockConn struct{}
type mockStmt struct{}

func init() {
	sql.Register("mock_driver_main", &mockDriver{})
}

func TestRun(t *testing.T) {
	origInitDB := initDBFunc
	defer func() { initDBFunc = origInitDB }()
	initDBFunc = func(cfg *config.Config) *sql.DB {
		db, _ := sql.Open("mock_driver_main", "")
		return db
	}

	var gotAddr string
	origStartServer := startServerFunc
	defer func() { startServerFunc = origStartServer }()
	startServerFunc = func(addr string, handler http.Handler) error {
		gotAddr = addr
		return nil
	}

	t.Setenv("APP_PORT", "8080")
	t.Setenv("APP_ENV", "test")
	t.Setenv("QPAY_MOCK", "true")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "user")
	t.Setenv("DB_PASSWORD", "pass")
	t.Setenv("DB_NAME", "db")

	assert.NoError(t, run())
	assert.Equal(t, ":8080", gotAddr)
}

func TestRun_MissingDBHost(t *testing.T) {
	t.Setenv("DB_HOST", "")
	assert.Error(t, run())
}
