package oauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/twitch"

	"github.com/onnwee/twitchplay/db"
)

// ProviderTwitch is the oauth_tokens key for the chat account.
const ProviderTwitch = "twitch"

// ErrNoChatToken means neither the environment nor the store holds a chat token.
var ErrNoChatToken = errors.New("no twitch chat token: set TWITCH_OAUTH_TOKEN or store one with store-token")

// TwitchRefreshFunc refreshes user tokens against the Twitch identity endpoint.
func TwitchRefreshFunc(clientID, clientSecret string) RefreshFunc {
	return refreshWith(&oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     twitch.Endpoint,
	})
}

func refreshWith(cfg *oauth2.Config) RefreshFunc {
	return func(ctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
		if cfg.ClientID == "" || cfg.ClientSecret == "" || refreshToken == "" {
			return "", "", time.Time{}, "", errors.New("missing clientID/clientSecret/refreshToken")
		}
		tok, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
		if err != nil {
			return "", "", time.Time{}, "", fmt.Errorf("twitch refresh failed: %w", err)
		}
		expiry := tok.Expiry
		if expiry.IsZero() {
			expiry = time.Now().Add(60 * time.Minute)
		}
		return tok.AccessToken, tok.RefreshToken, expiry, scopeOf(tok), nil
	}
}

// scopeOf flattens the scope field, which Twitch sends as a JSON array.
func scopeOf(tok *oauth2.Token) string {
	switch v := tok.Extra("scope").(type) {
	case string:
		return v
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, s := range v {
			if str, ok := s.(string); ok {
				parts = append(parts, str)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}

// ChatToken returns token in the "oauth:<token>" form chat login expects.
func ChatToken(token string) string {
	token = strings.TrimSpace(token)
	if token == "" || strings.HasPrefix(token, "oauth:") {
		return token
	}
	return "oauth:" + token
}

// ResolveChatToken picks the chat password: envToken when set, otherwise the
// access token stored for ProviderTwitch. store may be nil.
func ResolveChatToken(ctx context.Context, envToken string, store TokenStore) (string, error) {
	if t := ChatToken(envToken); t != "" {
		return t, nil
	}
	if store == nil {
		return "", ErrNoChatToken
	}
	tok, err := store.GetToken(ctx, ProviderTwitch)
	if errors.Is(err, db.ErrNoToken) {
		return "", ErrNoChatToken
	}
	if err != nil {
		return "", fmt.Errorf("load stored twitch token: %w", err)
	}
	if tok.Access == "" {
		return "", ErrNoChatToken
	}
	return ChatToken(tok.Access), nil
}
