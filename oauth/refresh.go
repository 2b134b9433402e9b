// Package oauth keeps the chat account's stored OAuth token fresh. It performs
// jittered checks and refreshes when expiry falls within a configured window.
package oauth

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/onnwee/twitchplay/db"
)

// TokenStore is the persistence the refresher needs. *db.Store satisfies it.
type TokenStore interface {
	GetToken(ctx context.Context, provider string) (db.Token, error)
	SaveToken(ctx context.Context, provider string, tok db.Token) error
}

// RefreshFunc performs provider-specific refresh and returns (access, refresh, expiry, scope).
type RefreshFunc func(ctx context.Context, refreshToken string) (string, string, time.Time, string, error)

// StartRefresher launches a goroutine that periodically checks the stored token
// for provider and refreshes it.
// interval: how often to wake up and check.
// window: refresh when remaining lifetime <= window.
func StartRefresher(ctx context.Context, store TokenStore, provider string, interval, window time.Duration, fn RefreshFunc) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	//nolint:gosec // G404: math/rand is sufficient for scheduling jitter
	initialJitter := time.Duration(rand.Int63n(int64(interval / 2)))
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(initialJitter):
		}
		for {
			if _, err := refreshOnce(ctx, store, provider, window, fn); err != nil {
				slog.Warn("token refresh failed", slog.String("provider", provider), slog.Any("err", err))
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(nextSleep(interval)):
			}
		}
	}()
}

// nextSleep returns interval with +/-20% jitter, never below interval/2.
func nextSleep(interval time.Duration) time.Duration {
	jitterRange := int64(interval / 5)
	if jitterRange <= 0 {
		return interval
	}
	//nolint:gosec // G404: math/rand is sufficient for scheduling jitter
	d := interval + time.Duration(rand.Int63n(jitterRange*2)-jitterRange)
	if d < interval/2 {
		d = interval / 2
	}
	return d
}

// refreshOnce refreshes the stored token when it expires within window. It
// reports whether a new token was saved.
func refreshOnce(ctx context.Context, store TokenStore, provider string, window time.Duration, fn RefreshFunc) (bool, error) {
	tok, err := store.GetToken(ctx, provider)
	if err != nil {
		return false, err
	}
	if tok.Refresh == "" || time.Until(tok.Expiry) > window {
		return false, nil
	}
	ctx2, cancel := context.WithTimeout(ctx, 15*time.Second)
	access, refresh, expiry, scope, err := fn(ctx2, tok.Refresh)
	cancel()
	if err != nil {
		return false, err
	}
	if refresh == "" {
		refresh = tok.Refresh
	}
	if scope == "" {
		scope = tok.Scope
	}
	next := db.Token{Access: access, Refresh: refresh, Expiry: expiry, Scope: strings.TrimSpace(scope)}
	if err := store.SaveToken(ctx, provider, next); err != nil {
		return false, err
	}
	slog.Info("token refreshed", slog.String("provider", provider), slog.Time("expires_at", expiry))
	return true, nil
}
