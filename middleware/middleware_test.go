package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.POST("/hook", func(c *gin.Context) {
		_, hasDeadline := c.Request.Context().Deadline()
		_, hasLogger := c.Get("logger")
		c.JSON(http.StatusOK, gin.H{"deadline": hasDeadline, "logger": hasLogger})
	})
	return r
}

func post(r *gin.Engine, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/hook", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitPerIP(t *testing.T) {
	r := newEngine(RateLimitMiddleware(4, "Skúste to o chvíľu."))
	// burst is perMinute/4 = 1
	if w := post(r, nil); w.Code != http.StatusOK {
		t.Fatalf("first request: %d", w.Code)
	}
	w := post(r, nil)
	if w.Code != http.StatusTooManyRequests || !strings.Contains(w.Body.String(), "Skúste to o chvíľu.") {
		t.Fatalf("expected 429 with response text, got %d %s", w.Code, w.Body.String())
	}
	if w := post(r, map[string]string{"X-Forwarded-For": "192.0.2.7, 10.0.0.1"}); w.Code != http.StatusOK {
		t.Fatalf("other client should not be limited, got %d", w.Code)
	}
}

func TestLimiterStoreSweep(t *testing.T) {
	s := newRateLimiterStore(60)
	now := time.Now()
	s.getLimiter("a", now.Add(-2*idleLimiterTTL))
	s.getLimiter("b", now)
	s.sweep(now)
	if _, ok := s.visitors["a"]; ok {
		t.Fatalf("idle visitor not swept")
	}
	if _, ok := s.visitors["b"]; !ok {
		t.Fatalf("active visitor swept")
	}
}

func TestRequestLoggerAndTimeout(t *testing.T) {
	r := newEngine(RequestLogger(zap.NewNop()), Timeout(time.Second))
	w := post(r, map[string]string{RequestIDHeader: "abc"})
	if w.Header().Get(RequestIDHeader) != "abc" {
		t.Fatalf("request id not echoed")
	}
	if !strings.Contains(w.Body.String(), `"deadline":true`) || !strings.Contains(w.Body.String(), `"logger":true`) {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
	if w := post(r, nil); w.Header().Get(RequestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestWebhookSecret(t *testing.T) {
	r := newEngine(WebhookSecret("s3cret"))
	if w := post(r, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w := post(r, map[string]string{WebhookSecretHeader: "s3cret"}); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := post(newEngine(WebhookSecret("")), nil); w.Code != http.StatusOK {
		t.Fatalf("empty secret should disable the check, got %d", w.Code)
	}
}

func TestGetClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "10.1.1.1:80"
	if ip := getClientIP(c); ip != "10.1.1.1" {
		t.Fatalf("got %s", ip)
	}
	c.Request.Header.Set("X-Real-IP", "198.51.100.2")
	if ip := getClientIP(c); ip != "198.51.100.2" {
		t.Fatalf("got %s", ip)
	}
}
