package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return r
}

func TestRequestIDGenerated(t *testing.T) {
	router := newRouter(RequestID())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	rid := w.Header().Get(RequestIDHeader)
	require.NotEmpty(t, rid)
	assert.True(t, strings.HasPrefix(rid, "req_"))
}

func TestRequestIDEchoed(t *testing.T) {
	router := newRouter(RequestID())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req_client_chosen")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req_client_chosen", w.Header().Get(RequestIDHeader))
}

func TestRateLimitRejectsBeyondBurst(t *testing.T) {
	router := newRouter(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 2}))

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
	assert.Equal(t, http.StatusTooManyRequests, codes[3])
}

func TestRateLimitEvictsIdleVisitors(t *testing.T) {
	table := newVisitorTable(RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	clock := time.Unix(3000, 0)
	table.now = func() time.Time { return clock }

	for i := 0; i < maxVisitors; i++ {
		table.allow(fmt.Sprintf("10.1.%d.%d", i/256, i%256))
	}
	require.Len(t, table.visitors, maxVisitors)

	// Every bucket is now idle past the TTL: the next new client
	// triggers eviction instead of growth.
	clock = clock.Add(visitorTTL + time.Second)
	table.allow("192.168.0.1")
	require.Len(t, table.visitors, 1)
	assert.Contains(t, table.visitors, "192.168.0.1")

	// With nothing idle the least recently seen bucket goes; the
	// table never outgrows its cap.
	for i := 0; i < maxVisitors+10; i++ {
		table.allow(fmt.Sprintf("10.2.%d.%d", i/256, i%256))
	}
	assert.LessOrEqual(t, len(table.visitors), maxVisitors)
}

func TestPerIPRateLimitIsolatesClients(t *testing.T) {
	router := newRouter(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 1}))

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2"), "one client's limit must not affect another")
}

func TestCORSPreflights(t *testing.T) {
	router := newRouter(CORS(DefaultCORSConfig()))

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
