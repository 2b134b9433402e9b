package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestHealthURL(t *testing.T) {
	tests := map[string]string{
		"":                      "http://localhost:8080/healthz",
		":9090":                 "http://localhost:9090/healthz",
		"0.0.0.0:9090":          "http://localhost:9090/healthz",
		"status.internal:80":    "http://status.internal:80/healthz",
		"http://10.0.0.5:8080/": "http://10.0.0.5:8080/healthz",
		"[::]:7000":             "http://localhost:7000/healthz",
	}
	for in, want := range tests {
		if got := healthURL(in); got != want {
			t.Errorf("healthURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestProbe(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			http.NotFound(w, r)
			return
		}
		if !healthy.Load() {
			http.Error(w, "connecting", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	if err := probe(context.Background(), healthURL(srv.URL)); err != nil {
		t.Fatalf("healthy probe: %v", err)
	}
	healthy.Store(false)
	if err := probe(context.Background(), healthURL(srv.URL)); err == nil {
		t.Fatal("expected unhealthy error")
	}
}
