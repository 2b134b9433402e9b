// Package server exposes the chat client's status over HTTP: health, status,
// metrics, and an admin route to speak in chat. It injects correlation IDs into
// request contexts for consistent logging.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/onnwee/twitchplay/chat"
	"github.com/onnwee/twitchplay/telemetry"
)

const tracerName = "twitchplay/http"

// ChatClient is the part of *chat.Client the server reads and drives.
type ChatClient interface {
	IsConnected() bool
	IsPendingConnection() bool
	ConnectionInfo() (chat.ConnectionInfo, error)
	SendChat(text, channel string) error
}

// Options configures NewMux.
type Options struct {
	// AdminToken enables POST /say for callers presenting it.
	AdminToken string
	// SayPerMinute caps /say requests per client IP. Zero means 10.
	SayPerMinute int
	// TrustForwardedFor takes the client IP from X-Forwarded-For. Leave it
	// off unless a proxy in front rewrites that header.
	TrustForwardedFor bool
}

// NewMux returns the HTTP handler with all routes. ctx bounds the rate
// limiter's cleanup goroutine.
func NewMux(ctx context.Context, client ChatClient, opts Options) http.Handler {
	perMinute := opts.SayPerMinute
	if perMinute <= 0 {
		perMinute = 10
	}
	h := &Handlers{client: client}
	limiter := newIPRateLimiter(ctx, perMinute, time.Minute)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", h.HandleHealthz)
	mux.HandleFunc("/status", h.HandleStatus)
	mux.Handle("/say", adminAuth(rateLimitMiddleware(http.HandlerFunc(h.HandleSay), limiter, opts.TrustForwardedFor), opts.AdminToken))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		w.Header().Set("X-Correlation-ID", corr)

		ctx, span := telemetry.StartSpan(ctx, tracerName, r.Method+" "+r.URL.Path,
			attribute.String("http.request.method", r.Method),
			attribute.String("http.route", r.URL.Path),
		)
		defer span.End()

		telemetry.LoggerWithCorr(ctx).Debug("request start", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.String("component", "http"))

		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		mux.ServeHTTP(rec, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.response.status_code", rec.statusCode))
		if rec.statusCode >= 400 {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", rec.statusCode))
		}
	})
}

// statusRecorder wraps ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// Start runs the HTTP server and shuts down gracefully on context cancellation.
func Start(ctx context.Context, addr string, client ChatClient, opts Options) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      NewMux(ctx, client, opts),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("http server error", slog.Any("err", err))
		return err
	}
	return nil
}
