package config

import (
	"os"
	"testing"
	"time"

	"github.com/onnwee/twitchplay/chat"
)

func TestDefaultChannelConstant(t *testing.T) {
	if DefaultChannel != "" {
		t.Errorf("DefaultChannel = %q, want empty string", DefaultChannel)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"CHAT_ADDR", "CHAT_MIN_SEND_INTERVAL", "CHAT_POLL_INTERVAL", "CHAT_AUTH_TIMEOUT",
		"CHAT_FRAME_INTERVAL", "CHAT_REQUEST_TAGS", "CHAT_COMMAND_DELIMITER", "CHAT_OPTIONS_DELIMITER", "STATUS_TRUST_PROXY"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ChatAddr != chat.DefaultAddr {
		t.Errorf("ChatAddr = %q, want %q", cfg.ChatAddr, chat.DefaultAddr)
	}
	if cfg.MinSendInterval != 1500*time.Millisecond {
		t.Errorf("MinSendInterval = %v", cfg.MinSendInterval)
	}
	if cfg.PollInterval != chat.DefaultPollInterval {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.AuthTimeout != 30*time.Second {
		t.Errorf("AuthTimeout = %v", cfg.AuthTimeout)
	}
	if cfg.RequestTags || cfg.StatusTrustProxy {
		t.Error("RequestTags and StatusTrustProxy should default to false")
	}
	if cfg.CommandDelimiter != "!" || cfg.OptionsDelimiter != "?" {
		t.Errorf("delimiters = %q %q", cfg.CommandDelimiter, cfg.OptionsDelimiter)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CHAT_ADDR", "127.0.0.1:6667")
	t.Setenv("CHAT_MIN_SEND_INTERVAL", "0s")
	t.Setenv("CHAT_AUTH_TIMEOUT", "5s")
	t.Setenv("CHAT_REQUEST_TAGS", "true")
	t.Setenv("STATUS_ADDR", ":9090")
	t.Setenv("STATUS_ADMIN_TOKEN", "admin")
	t.Setenv("STATUS_TRUST_PROXY", "1")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ChatAddr != "127.0.0.1:6667" || cfg.MinSendInterval != 0 || cfg.AuthTimeout != 5*time.Second || !cfg.RequestTags {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.StatusAddr != ":9090" || cfg.StatusAdminToken != "admin" || !cfg.StatusTrustProxy {
		t.Errorf("status settings = %q %q %v", cfg.StatusAddr, cfg.StatusAdminToken, cfg.StatusTrustProxy)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := map[string]string{
		"CHAT_MIN_SEND_INTERVAL": "soon",
		"CHAT_POLL_INTERVAL":     "-1s",
		"CHAT_REQUEST_TAGS":      "maybe",
		"STATUS_TRUST_PROXY":     "proxy",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", key, val)
			}
		})
	}
}

func TestValidateChatReady(t *testing.T) {
	t.Setenv("TWITCH_CHANNEL", "chan")
	t.Setenv("TWITCH_BOT_USERNAME", "bot")
	t.Setenv("TWITCH_OAUTH_TOKEN", "oauth:token")
	cfg, _ := Load()
	if err := cfg.ValidateChatReady(); err != nil {
		t.Errorf("expected valid chat config, got %v", err)
	}
	if err := os.Unsetenv("TWITCH_OAUTH_TOKEN"); err != nil {
		t.Fatalf("failed to unset TWITCH_OAUTH_TOKEN: %v", err)
	}
	cfg, _ = Load()
	if err := cfg.ValidateChatReady(); err == nil {
		t.Errorf("expected error when token missing")
	}
}

func TestValidateChatReadyWithoutChannel(t *testing.T) {
	t.Setenv("TWITCH_CHANNEL", DefaultChannel)
	t.Setenv("TWITCH_BOT_USERNAME", "bot")
	t.Setenv("TWITCH_OAUTH_TOKEN", "oauth:token")
	cfg, _ := Load()
	if err := cfg.ValidateChatReady(); err != nil {
		t.Errorf("channel is optional, got %v", err)
	}
}

func TestChatConnection(t *testing.T) {
	cfg := &Config{
		TwitchChannel:     "Chan",
		TwitchBotUsername: "Bot",
		TwitchOAuthToken:  "oauth:x",
		ChatAddr:          "localhost:6667",
		MinSendInterval:   time.Second,
		PollInterval:      20 * time.Millisecond,
		AuthTimeout:       time.Minute,
		RequestTags:       true,
	}
	cc := cfg.ChatConnection()
	want := chat.ConnectionConfig{
		AuthToken:       "oauth:x",
		Username:        "Bot",
		Channel:         "Chan",
		MinSendInterval: time.Second,
		Addr:            "localhost:6667",
		PollInterval:    20 * time.Millisecond,
		AuthTimeout:     time.Minute,
		RequestTags:     true,
	}
	if cc != want {
		t.Errorf("ChatConnection() = %+v, want %+v", cc, want)
	}
}
