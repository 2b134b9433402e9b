// Package twitchapi talks to the Twitch identity service to check chat tokens
// before they are used for a chat login.
package twitchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultIDBaseURL is the Twitch identity service.
const DefaultIDBaseURL = "https://id.twitch.tv"

// ErrInvalidToken is returned when the identity service rejects a token.
var ErrInvalidToken = errors.New("twitch token is invalid or expired")

// TokenInfo describes a validated user token.
type TokenInfo struct {
	ClientID  string   `json:"client_id"`
	Login     string   `json:"login"`
	UserID    string   `json:"user_id"`
	Scopes    []string `json:"scopes"`
	ExpiresIn int      `json:"expires_in"`
}

// Expiry returns the absolute expiry relative to now, defaulting to +60m when unknown.
func (ti TokenInfo) Expiry() time.Time {
	if ti.ExpiresIn <= 0 {
		return time.Now().Add(60 * time.Minute)
	}
	return time.Now().Add(time.Duration(ti.ExpiresIn) * time.Second)
}

// HasScope reports whether scope was granted.
func (ti TokenInfo) HasScope(scope string) bool {
	for _, s := range ti.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Validator checks user tokens.
type Validator struct {
	BaseURL    string
	HTTPClient *http.Client
}

func (v *Validator) http() *http.Client {
	if v.HTTPClient != nil {
		return v.HTTPClient
	}
	return http.DefaultClient
}

// Validate asks the identity service who token belongs to. The "oauth:"
// chat prefix is accepted and stripped.
func (v *Validator) Validate(ctx context.Context, token string) (*TokenInfo, error) {
	token = strings.TrimPrefix(strings.TrimSpace(token), "oauth:")
	if token == "" {
		return nil, errors.New("token empty")
	}
	base := v.BaseURL
	if base == "" {
		base = DefaultIDBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/oauth2/validate", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "OAuth "+token)
	resp, err := v.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrInvalidToken
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("twitch validate failed: %s: %s", resp.Status, string(b))
	}
	var info TokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}
