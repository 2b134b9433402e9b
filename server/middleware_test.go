package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimitMiddleware(t *testing.T) {
	newHandler := func(t *testing.T, trustForwarded bool) func(remote, fwd string) int {
		ctx, cancel := context.WithCancel(context.Background())
		t.Cleanup(cancel)
		limiter := newIPRateLimiter(ctx, 3, time.Minute)
		handler := rateLimitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}), limiter, trustForwarded)
		return func(remote, fwd string) int {
			req := httptest.NewRequest(http.MethodPost, "/say", nil)
			req.RemoteAddr = remote
			if fwd != "" {
				req.Header.Set("X-Forwarded-For", fwd)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			return rr.Code
		}
	}

	t.Run("per remote address", func(t *testing.T) {
		send := newHandler(t, false)
		for i := 0; i < 3; i++ {
			if code := send("10.0.0.1:1234", ""); code != http.StatusOK {
				t.Fatalf("request %d: status %d, want 200", i, code)
			}
		}
		if code := send("10.0.0.1:5678", ""); code != http.StatusTooManyRequests {
			t.Errorf("4th request from same IP: status %d, want 429", code)
		}
		if code := send("10.0.0.2:1234", ""); code != http.StatusOK {
			t.Errorf("other IP: status %d, want 200", code)
		}
	})

	t.Run("spoofed forwarded header ignored", func(t *testing.T) {
		send := newHandler(t, false)
		for i, fwd := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
			if code := send("10.0.0.1:1234", fwd); code != http.StatusOK {
				t.Fatalf("request %d: status %d, want 200", i, code)
			}
		}
		if code := send("10.0.0.1:1234", "4.4.4.4"); code != http.StatusTooManyRequests {
			t.Errorf("rotating X-Forwarded-For: status %d, want 429", code)
		}
	})

	t.Run("trusted proxy", func(t *testing.T) {
		send := newHandler(t, true)
		for i := 0; i < 3; i++ {
			if code := send("10.0.0.1:1234", "192.168.1.9"); code != http.StatusOK {
				t.Fatalf("request %d: status %d, want 200", i, code)
			}
		}
		if code := send("10.0.0.1:1234", "192.168.1.9, 10.0.0.1"); code != http.StatusTooManyRequests {
			t.Errorf("same forwarded client: status %d, want 429", code)
		}
		if code := send("10.0.0.1:1234", "192.168.1.10"); code != http.StatusOK {
			t.Errorf("other forwarded client behind the proxy: status %d, want 200", code)
		}
	})
}

func TestRateLimiterCleanup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := newIPRateLimiter(ctx, 1, time.Second)

	now := time.Now()
	rl.allow("a", now)
	rl.allow("b", now.Add(10*time.Second))
	rl.cleanup(now.Add(12 * time.Second))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.visitors["a"]; ok {
		t.Error("idle visitor a should be swept")
	}
	if _, ok := rl.visitors["b"]; !ok {
		t.Error("recent visitor b should stay")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote string
		fwd    string
		trust  bool
		want   string
	}{
		{remote: "1.2.3.4:80", want: "1.2.3.4"},
		{remote: "[::1]:80", want: "::1"},
		{remote: "noport", want: "noport"},
		{remote: "1.2.3.4:80", fwd: "5.6.7.8", want: "1.2.3.4"},
		{remote: "1.2.3.4:80", fwd: " 5.6.7.8 , 1.2.3.4", trust: true, want: "5.6.7.8"},
		{remote: "1.2.3.4:80", fwd: " , 9.9.9.9", trust: true, want: "1.2.3.4"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		if tt.fwd != "" {
			req.Header.Set("X-Forwarded-For", tt.fwd)
		}
		if got := clientIP(req, tt.trust); got != tt.want {
			t.Errorf("clientIP(%q, %q, %v) = %q, want %q", tt.remote, tt.fwd, tt.trust, got, tt.want)
		}
	}
}
