package routes

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"seatkeeper/internal/seats"
	"seatkeeper/internal/shared/config"
	"seatkeeper/internal/store"
	"seatkeeper/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIngress struct{ err error }

func (s stubIngress) HealthCheck(context.Context) error { return s.err }

type downStore struct{ store.Store }

func (downStore) Ping(context.Context) error { return store.ErrUnavailable }

func testConfig() *config.Config {
	return &config.Config{
		APIPrefix:  "/api",
		APIVersion: "v1",
		Seats:      config.SeatConfig{Store: "memory"},
		Payments:   config.PaymentsConfig{Ingress: "none"},
	}
}

func newTestEngine(cfg *config.Config, deps Dependencies) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	NewRouter(cfg, nil, deps).SetupRoutes(engine)
	return engine
}

func memoryDeps() Dependencies {
	mem := store.NewMemoryStore()
	return Dependencies{
		Store:  mem,
		Seats:  seats.NewService(seats.NewRepository(mem), seats.Options{Logger: logger.Discard(), ReclaimExpired: true}),
		Logger: logger.Discard(),
	}
}

func do(engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRouter_SeatFlow(t *testing.T) {
	engine := newTestEngine(testConfig(), memoryDeps())

	w := do(engine, http.MethodPost, "/api/v1/seats/register",
		`{"productId":1,"seats":[{"grade":"VIP","section":"A","row":"1","seatNumber":15,"price":150000}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(engine, http.MethodPost, "/api/v1/seats/lock", `{"productId":1,"seatId":"A-1-15","userId":7}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(engine, http.MethodPost, "/api/v1/seats/lock", `{"productId":1,"seatId":"A-1-15","userId":8}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(engine, http.MethodGet, "/api/v1/seats/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"LOCKED"`)
}

func TestRouter_AdminGuardWhenJWTEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.JWT = config.JWTConfig{Enabled: true, Secret: "s3cret"}
	engine := newTestEngine(cfg, memoryDeps())

	w := do(engine, http.MethodPost, "/api/v1/seats/register", `{"productId":1,"seats":[]}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// locking stays open to the booking frontend
	w = do(engine, http.MethodPost, "/api/v1/seats/lock", `{"productId":1,"seatId":"A-1-15","userId":7}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_LedgerRoutesOnlyWhenEnabled(t *testing.T) {
	engine := newTestEngine(testConfig(), memoryDeps())
	w := do(engine, http.MethodGet, "/api/v1/ledger/1/causes", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Health(t *testing.T) {
	deps := memoryDeps()
	deps.Ingress = stubIngress{err: errors.New("reconnecting")}
	engine := newTestEngine(testConfig(), deps)

	w := do(engine, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"payment_ingress":"reconnecting"`)

	deps.Store = downStore{}
	engine = newTestEngine(testConfig(), deps)
	w = do(engine, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"unhealthy"`)
}

func TestRouter_PingAndStatus(t *testing.T) {
	engine := newTestEngine(testConfig(), memoryDeps())

	w := do(engine, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")

	w = do(engine, http.MethodGet, "/status", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"seat_store":"memory"`)
}
