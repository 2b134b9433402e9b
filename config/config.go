// Package config loads environment variables and provides a typed Config used across the client.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For required credentials use ValidateChatReady.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/onnwee/twitchplay/chat"
)

// DefaultChannel is the channel joined when TWITCH_CHANNEL is unset: none.
const DefaultChannel = ""

type Config struct {
	// Twitch
	TwitchChannel      string
	TwitchBotUsername  string
	TwitchOAuthToken   string
	TwitchClientID     string
	TwitchClientSecret string

	// Chat connection
	ChatAddr        string
	MinSendInterval time.Duration
	PollInterval    time.Duration
	AuthTimeout     time.Duration
	RequestTags     bool

	// Consumer
	FrameInterval    time.Duration
	CommandDelimiter string
	OptionsDelimiter string

	// Status server
	StatusAddr       string
	StatusAdminToken string
	// StatusTrustProxy keys the /say rate limit on X-Forwarded-For. Only set
	// it behind a proxy that overwrites the header.
	StatusTrustProxy bool

	// Database
	DBDsn         string
	EncryptionKey string
}

// Load reads environment variables and applies defaults. It doesn't fail if Twitch creds are missing;
// use ValidateChatReady() before connecting. Malformed durations and booleans are errors.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.TwitchChannel = os.Getenv("TWITCH_CHANNEL")
	cfg.TwitchBotUsername = os.Getenv("TWITCH_BOT_USERNAME")
	cfg.TwitchOAuthToken = os.Getenv("TWITCH_OAUTH_TOKEN")
	cfg.TwitchClientID = os.Getenv("TWITCH_CLIENT_ID")
	cfg.TwitchClientSecret = os.Getenv("TWITCH_CLIENT_SECRET")

	cfg.ChatAddr = os.Getenv("CHAT_ADDR")
	if cfg.ChatAddr == "" {
		cfg.ChatAddr = chat.DefaultAddr
	}

	var err error
	// Twitch allows 20 messages per 30 seconds for accounts that are not moderators.
	if cfg.MinSendInterval, err = durationEnv("CHAT_MIN_SEND_INTERVAL", 1500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = durationEnv("CHAT_POLL_INTERVAL", chat.DefaultPollInterval); err != nil {
		return nil, err
	}
	if cfg.AuthTimeout, err = durationEnv("CHAT_AUTH_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.FrameInterval, err = durationEnv("CHAT_FRAME_INTERVAL", 50*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.RequestTags, err = boolEnv("CHAT_REQUEST_TAGS"); err != nil {
		return nil, err
	}

	cfg.CommandDelimiter = os.Getenv("CHAT_COMMAND_DELIMITER")
	if cfg.CommandDelimiter == "" {
		cfg.CommandDelimiter = "!"
	}
	cfg.OptionsDelimiter = os.Getenv("CHAT_OPTIONS_DELIMITER")
	if cfg.OptionsDelimiter == "" {
		cfg.OptionsDelimiter = "?"
	}

	cfg.StatusAddr = os.Getenv("STATUS_ADDR")
	cfg.StatusAdminToken = os.Getenv("STATUS_ADMIN_TOKEN")
	if cfg.StatusTrustProxy, err = boolEnv("STATUS_TRUST_PROXY"); err != nil {
		return nil, err
	}

	// DB is optional; without it tokens come from the environment only.
	cfg.DBDsn = os.Getenv("DB_DSN")
	cfg.EncryptionKey = os.Getenv("ENCRYPTION_KEY")

	return cfg, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}

func boolEnv(key string) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

// ValidateChatReady checks the credentials a chat connection needs. The
// channel is optional: a client can connect first and join later.
func (c *Config) ValidateChatReady() error {
	if c.TwitchBotUsername == "" || c.TwitchOAuthToken == "" {
		return fmt.Errorf("missing twitch env: require TWITCH_BOT_USERNAME, TWITCH_OAUTH_TOKEN")
	}
	return nil
}

// ChatConnection builds the connection settings for chat.Client.Connect.
func (c *Config) ChatConnection() chat.ConnectionConfig {
	return chat.ConnectionConfig{
		AuthToken:       c.TwitchOAuthToken,
		Username:        c.TwitchBotUsername,
		Channel:         c.TwitchChannel,
		MinSendInterval: c.MinSendInterval,
		Addr:            c.ChatAddr,
		PollInterval:    c.PollInterval,
		AuthTimeout:     c.AuthTimeout,
		RequestTags:     c.RequestTags,
	}
}
