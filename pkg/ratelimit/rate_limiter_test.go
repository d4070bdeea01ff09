package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"seatkeeper/internal/shared/config"
	"seatkeeper/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:         true,
		WindowDuration:  time.Minute,
		DefaultRequests: 60,
		PublicRequests:  300,
		LockRequests:    2,
		AdminRequests:   100,
		HealthRequests:  600,
	}
}

func newTestLimiter(t *testing.T, cfg config.RateLimitConfig) (*RateLimiter, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	rl := NewRateLimiter(client, cfg)
	rl.now = func() time.Time { return fixedNow }
	rl.member = func() string { return "m-1" }
	return rl, mock
}

func expectWindow(mock redismock.ClientMock, key string, limit int) *redismock.ExpectedCmd {
	return mock.ExpectEvalSha(slidingWindow.Hash(), []string{key},
		fixedNow.Add(-time.Minute).UnixMilli(),
		fixedNow.UnixMilli(),
		limit,
		time.Minute.Milliseconds(),
		"m-1",
	)
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	rl, mock := newTestLimiter(t, testConfig())
	expectWindow(mock, "seatkeeper:ratelimit:10.0.0.1:lock", 2).SetVal([]interface{}{int64(1), int64(1)})

	res, err := rl.IsAllowed(context.Background(), "10.0.0.1", RateLimitTypeLock)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Limit)
	assert.Equal(t, 1, res.Remaining)
	assert.Equal(t, fixedNow.Add(time.Minute).Unix(), res.ResetTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_RejectsOverLimit(t *testing.T) {
	rl, mock := newTestLimiter(t, testConfig())
	expectWindow(mock, "seatkeeper:ratelimit:10.0.0.1:lock", 2).SetVal([]interface{}{int64(3), int64(0)})

	res, err := rl.IsAllowed(context.Background(), "10.0.0.1", RateLimitTypeLock)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
}

func TestRateLimiter_SkipsRedis(t *testing.T) {
	cfg := testConfig()
	cfg.WhitelistedIPs = []string{"10.0.0.9"}
	rl, mock := newTestLimiter(t, cfg)

	res, err := rl.IsAllowed(context.Background(), "10.0.0.9", RateLimitTypeLock)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	cfg.Enabled = false
	rl.config = cfg
	res, err = rl.IsAllowed(context.Background(), "10.0.0.1", RateLimitTypePublic)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 300, res.Limit)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_UnexpectedReply(t *testing.T) {
	rl, mock := newTestLimiter(t, testConfig())
	expectWindow(mock, "seatkeeper:ratelimit:10.0.0.1:admin", 100).SetVal([]interface{}{"x"})

	_, err := rl.IsAllowed(context.Background(), "10.0.0.1", RateLimitTypeAdmin)
	assert.Error(t, err)
}

func TestGetRateLimitType(t *testing.T) {
	tests := []struct {
		method, path string
		want         RateLimitType
	}{
		{http.MethodGet, "/health", RateLimitTypeHealth},
		{http.MethodGet, "/ping", RateLimitTypeHealth},
		{http.MethodPost, "/api/v1/seats/register", RateLimitTypeAdmin},
		{http.MethodGet, "/api/v1/ledger/:productId/causes", RateLimitTypeAdmin},
		{http.MethodPost, "/api/v1/seats/lock", RateLimitTypeLock},
		{http.MethodGet, "/api/v1/seats/:productId", RateLimitTypePublic},
		{http.MethodGet, "/api/v1/unknown", RateLimitTypeDefault},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, getRateLimitType(tt.method, tt.path), tt.path)
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl, mock := newTestLimiter(t, testConfig())

	r := gin.New()
	r.Use(Middleware(rl, logger.Discard()))
	r.POST("/api/v1/seats/lock", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/seats/lock", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	key := "seatkeeper:ratelimit:203.0.113.5:lock"
	expectWindow(mock, key, 2).SetVal([]interface{}{int64(2), int64(0)})
	w := send()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	expectWindow(mock, key, 2).SetVal([]interface{}{int64(3), int64(0)})
	w = send()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	// fail open
	expectWindow(mock, key, 2).SetErr(errors.New("connection refused"))
	w = send()
	assert.Equal(t, http.StatusOK, w.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}
