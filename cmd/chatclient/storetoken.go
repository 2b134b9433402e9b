package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/onnwee/twitchplay/config"
	"github.com/onnwee/twitchplay/db"
	"github.com/onnwee/twitchplay/oauth"
	"github.com/onnwee/twitchplay/twitchapi"
)

var chatScopes = []string{"chat:read", "chat:edit"}

type storeTokenOptions struct {
	access     string
	refresh    string
	noValidate bool
}

func newStoreTokenCmd() *cobra.Command {
	var opts storeTokenOptions
	cmd := &cobra.Command{
		Use:   "store-token",
		Short: "Save the bot's Twitch user token in the database for later runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DBDsn == "" {
				return errors.New("DB_DSN is required to store tokens")
			}
			store, closeDB, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDB()
			return storeToken(cmd.Context(), store, &twitchapi.Validator{}, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.access, "access", "", "user access token (with or without the oauth: prefix)")
	cmd.Flags().StringVar(&opts.refresh, "refresh", "", "refresh token, enables automatic refresh when TWITCH_CLIENT_ID/SECRET are set")
	cmd.Flags().BoolVar(&opts.noValidate, "no-validate", false, "skip the token lookup against id.twitch.tv")
	_ = cmd.MarkFlagRequired("access")
	return cmd
}

type tokenValidator interface {
	Validate(ctx context.Context, token string) (*twitchapi.TokenInfo, error)
}

func storeToken(ctx context.Context, store oauth.TokenStore, v tokenValidator, opts storeTokenOptions, out io.Writer) error {
	access := strings.TrimPrefix(strings.TrimSpace(opts.access), "oauth:")
	if access == "" {
		return errors.New("access token is empty")
	}
	tok := db.Token{
		Access:  access,
		Refresh: strings.TrimSpace(opts.refresh),
		Expiry:  time.Now().Add(60 * time.Minute),
	}

	if !opts.noValidate {
		vctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		info, err := v.Validate(vctx, access)
		cancel()
		if err != nil {
			return fmt.Errorf("validate token: %w", err)
		}
		tok.Expiry = info.Expiry()
		tok.Scope = strings.Join(info.Scopes, " ")
		for _, s := range chatScopes {
			if !info.HasScope(s) {
				slog.Warn("token is missing a chat scope", slog.String("scope", s))
			}
		}
		fmt.Fprintf(out, "token belongs to %s\n", info.Login)
	}

	if err := store.SaveToken(ctx, oauth.ProviderTwitch, tok); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	fmt.Fprintf(out, "stored twitch token %s (expires %s)\n", maskToken(access), tok.Expiry.Format(time.RFC3339))
	return nil
}
