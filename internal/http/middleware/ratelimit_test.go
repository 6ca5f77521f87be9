package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func limitedRouter(rps float64, burst int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	rl := NewRateLimiter(rps, burst, KeyByClientIP())
	r.Use(rl.Handler())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	r := limitedRouter(0, 3) // no refill: exactly burst requests pass

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("429 must carry Retry-After")
	}
	if !strings.Contains(w.Body.String(), "rate_limited") {
		t.Fatalf("expected the error envelope, got %s", w.Body.String())
	}
}

func TestRateLimiter_SeparateBucketsPerKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// Key per request header so the test can simulate distinct clients.
	rl := NewRateLimiter(0, 1, func(c *gin.Context) string {
		return c.GetHeader("X-Client")
	})
	r.Use(rl.Handler())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(client string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Client", client)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if send("a") != http.StatusOK {
		t.Fatalf("client a first request must pass")
	}
	if send("a") != http.StatusTooManyRequests {
		t.Fatalf("client a second request must be limited")
	}
	// A different key has its own bucket.
	if send("b") != http.StatusOK {
		t.Fatalf("client b must not share client a's bucket")
	}
}

func TestNewRateLimiter_CoercesBurst(t *testing.T) {
	rl := NewRateLimiter(1, 0, KeyByClientIP())
	if rl.burst != 1 {
		t.Fatalf("burst <= 0 must coerce to 1, got %d", rl.burst)
	}
}

func TestGetVisitor_EvictsIdleEntries(t *testing.T) {
	rl := NewRateLimiter(1, 1, KeyByClientIP())
	rl.ttl = time.Millisecond

	rl.getVisitor("stale")
	time.Sleep(5 * time.Millisecond)

	// Force the opportunistic GC path.
	rl.cleanupN = 4999
	rl.getVisitor("fresh")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.visitors["stale"]; ok {
		t.Fatalf("stale bucket should have been evicted")
	}
	if _, ok := rl.visitors["fresh"]; !ok {
		t.Fatalf("fresh bucket must exist")
	}
}
