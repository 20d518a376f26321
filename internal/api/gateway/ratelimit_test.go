package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"
)

func newLimiter(t *testing.T, requests int) (*RateLimiter, *miniredis.Miniredis, prometheus.Counter) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	limited := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_rate_limited_total"})
	rl := NewRateLimiter(client, RateLimitConfig{
		Requests:       requests,
		Window:         time.Minute,
		IncludeHeaders: true,
	}, limited, zaptest.NewLogger(t))
	return rl, mr, limited
}

func serve(rl *RateLimiter, ip string) *httptest.ResponseRecorder {
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/domains", nil)
	req.RemoteAddr = ip + ":41000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// =============================================================================
// Rate Limiter Tests
// =============================================================================

func TestRateLimiter_FixedWindow(t *testing.T) {
	rl, mr, limited := newLimiter(t, 2)

	for i := 0; i < 2; i++ {
		if rec := serve(rl, "10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d should pass, got %d", i+1, rec.Code)
		}
	}

	rec := serve(rl, "10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request should be throttled, got %d", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("expected remaining 0, got %q", rec.Header().Get("X-RateLimit-Remaining"))
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("throttled response should carry Retry-After")
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["success"] != false || body["message"] != LimitExceededMessage {
		t.Errorf("unexpected body: %v", body)
	}
	if got := testutil.ToFloat64(limited); got != 1 {
		t.Errorf("expected 1 throttled request recorded, got %v", got)
	}

	// Other clients have their own window.
	if rec := serve(rl, "10.0.0.2"); rec.Code != http.StatusOK {
		t.Errorf("other client should pass, got %d", rec.Code)
	}

	mr.FastForward(time.Minute + time.Second)
	if rec := serve(rl, "10.0.0.1"); rec.Code != http.StatusOK {
		t.Errorf("request after the window should pass, got %d", rec.Code)
	}
}

func TestRateLimiter_Headers(t *testing.T) {
	rl, _, _ := newLimiter(t, 5)

	rec := serve(rl, "10.0.0.3")
	if rec.Header().Get("X-RateLimit-Limit") != "5" {
		t.Errorf("expected limit 5, got %q", rec.Header().Get("X-RateLimit-Limit"))
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "4" {
		t.Errorf("expected remaining 4, got %q", rec.Header().Get("X-RateLimit-Remaining"))
	}
	if rec.Header().Get("X-RateLimit-Reset") == "" {
		t.Error("expected reset header")
	}
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	rl, mr, _ := newLimiter(t, 1)
	mr.Close()

	for i := 0; i < 3; i++ {
		if rec := serve(rl, "10.0.0.4"); rec.Code != http.StatusOK {
			t.Fatalf("requests should pass when redis is down, got %d", rec.Code)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.1:1", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "10.0.0.1:1", "198.51.100.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
