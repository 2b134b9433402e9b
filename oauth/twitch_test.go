package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/onnwee/twitchplay/db"
)

func TestRefreshWith(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostForm.Get("refresh_token"); got != "rt-1" {
			t.Errorf("refresh_token = %q", got)
		}
		if got := r.PostForm.Get("client_id"); got != "cid" {
			t.Errorf("client_id = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-2","refresh_token":"rt-2","expires_in":3600,"scope":["chat:read","chat:edit"],"token_type":"bearer"}`))
	}))
	defer srv.Close()

	fn := refreshWith(&oauth2.Config{
		ClientID:     "cid",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams},
	})
	at, rt, exp, scope, err := fn(context.Background(), "rt-1")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if at != "at-2" || rt != "rt-2" {
		t.Errorf("tokens = %q, %q", at, rt)
	}
	if scope != "chat:read chat:edit" {
		t.Errorf("scope = %q", scope)
	}
	if until := time.Until(exp); until < 50*time.Minute || until > 61*time.Minute {
		t.Errorf("expiry in %v, want about an hour", until)
	}
}

func TestRefreshWithServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":400,"message":"Invalid refresh token"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	fn := refreshWith(&oauth2.Config{
		ClientID:     "cid",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams},
	})
	if _, _, _, _, err := fn(context.Background(), "rt"); err == nil {
		t.Fatal("expected error")
	}
	if _, _, _, _, err := TwitchRefreshFunc("", "")(context.Background(), "rt"); err == nil {
		t.Fatal("expected error for missing client credentials")
	}
}

func TestChatToken(t *testing.T) {
	tests := map[string]string{
		"abc":       "oauth:abc",
		"oauth:abc": "oauth:abc",
		"  abc \n":  "oauth:abc",
		"":          "",
	}
	for in, want := range tests {
		if got := ChatToken(in); got != want {
			t.Errorf("ChatToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveChatToken(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	if got, err := ResolveChatToken(ctx, "envtok", store); err != nil || got != "oauth:envtok" {
		t.Errorf("env token = %q, %v", got, err)
	}
	if _, err := ResolveChatToken(ctx, "", nil); !errors.Is(err, ErrNoChatToken) {
		t.Errorf("nil store err = %v", err)
	}
	if _, err := ResolveChatToken(ctx, "", store); !errors.Is(err, ErrNoChatToken) {
		t.Errorf("empty store err = %v", err)
	}

	store.tokens[ProviderTwitch] = db.Token{Access: "stored"}
	if got, err := ResolveChatToken(ctx, "", store); err != nil || got != "oauth:stored" {
		t.Errorf("stored token = %q, %v", got, err)
	}

	store.getErr = errors.New("db down")
	if _, err := ResolveChatToken(ctx, "", store); err == nil || errors.Is(err, ErrNoChatToken) {
		t.Errorf("store failure err = %v", err)
	}
}
