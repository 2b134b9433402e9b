package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/onnwee/twitchplay/chat"
	"github.com/onnwee/twitchplay/command"
	"github.com/onnwee/twitchplay/config"
	"github.com/onnwee/twitchplay/db"
	"github.com/onnwee/twitchplay/oauth"
	"github.com/onnwee/twitchplay/server"
	"github.com/onnwee/twitchplay/telemetry"
	"github.com/onnwee/twitchplay/twitchapi"
)

func newRunCmd() *cobra.Command {
	var channel string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to chat and relay it between the channel and the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if channel != "" {
				cfg.TwitchChannel = channel
			}
			return runChat(cmd.Context(), cfg, os.Stdin, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "channel to join (overrides TWITCH_CHANNEL)")
	return cmd
}

// runChat resolves credentials, starts telemetry and the status server, then
// drives one chat session until it ends, stdin asks to quit or ctx is done.
func runChat(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	telemetry.Init()
	shutdown, err := telemetry.InitTracing("twitchplay", version)
	if err != nil {
		return fmt.Errorf("tracing init: %w", err)
	}
	defer shutdown()

	var store oauth.TokenStore
	if cfg.DBDsn != "" {
		s, closeDB, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeDB()
		store = s
		if cfg.TwitchClientID != "" && cfg.TwitchClientSecret != "" {
			oauth.StartRefresher(ctx, s, oauth.ProviderTwitch, 0, 0, oauth.TwitchRefreshFunc(cfg.TwitchClientID, cfg.TwitchClientSecret))
		}
	}

	token, err := oauth.ResolveChatToken(ctx, cfg.TwitchOAuthToken, store)
	if err != nil {
		return err
	}
	cfg.TwitchOAuthToken = token
	slog.Info("chat token resolved", slog.String("tail", maskToken(token)))

	if cfg.TwitchBotUsername == "" {
		vctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		info, err := (&twitchapi.Validator{}).Validate(vctx, token)
		cancel()
		if err != nil {
			return fmt.Errorf("TWITCH_BOT_USERNAME unset and token lookup failed: %w", err)
		}
		cfg.TwitchBotUsername = info.Login
		slog.Info("bot username taken from token", slog.String("login", info.Login))
	}
	if err := cfg.ValidateChatReady(); err != nil {
		return err
	}

	r := newRunner(cfg, out, slog.Default())
	if cfg.StatusAddr != "" {
		go func() {
			if err := server.Start(ctx, cfg.StatusAddr, r.client, server.Options{AdminToken: cfg.StatusAdminToken, TrustForwardedFor: cfg.StatusTrustProxy}); err != nil {
				slog.Error("status server stopped", slog.Any("err", err))
			}
		}()
		slog.Info("status server listening", slog.String("addr", cfg.StatusAddr))
	}
	return r.run(ctx, in)
}

func openStore(ctx context.Context, cfg *config.Config) (*db.Store, func(), error) {
	database, err := db.Connect(cfg.DBDsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	closeDB := func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}
	if err := db.Migrate(ctx, database); err != nil {
		closeDB()
		return nil, nil, err
	}
	store, err := db.NewStore(database, cfg.EncryptionKey)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	return store, closeDB, nil
}

// runner owns one chat.Client and the terminal it relays to.
type runner struct {
	cfg      *config.Config
	client   *chat.Client
	commands *command.Dispatcher
	out      io.Writer
	log      *slog.Logger
}

func newRunner(cfg *config.Config, out io.Writer, logger *slog.Logger) *runner {
	r := &runner{
		cfg:      cfg,
		client:   chat.NewClient(chat.WithLogger(logger)),
		commands: command.NewDispatcher(cfg.CommandDelimiter, cfg.OptionsDelimiter, logger),
		out:      out,
		log:      logger,
	}
	r.registerCommands()
	r.client.OnEvent(r.onEvent)
	r.client.OnMessage(r.onMessage)
	return r
}

func (r *runner) registerCommands() {
	_, _ = r.commands.Register("ping", func(inv command.Invocation) {
		r.send(func() error { return r.client.SendChat("pong @"+inv.Username, inv.Channel) })
	})
	_, _ = r.commands.Register("echo", func(inv command.Invocation) {
		if len(inv.Options) == 0 {
			return
		}
		r.send(func() error { return r.client.SendChat(inv.Options[0], inv.Channel) })
	})
}

func (r *runner) onEvent(e chat.Event) {
	switch e.Kind {
	case chat.EventMessage:
		r.log.Debug("server", slog.String("line", e.Message))
	case chat.EventConnected:
		fmt.Fprintln(r.out, "* connected")
	case chat.EventError:
		r.log.Warn("chat error", slog.String("message", e.Message), slog.Any("err", e.Err))
	default:
		fmt.Fprintf(r.out, "* %s: %s\n", e.Kind, e.Message)
	}
}

func (r *runner) onMessage(m chat.ChatMessage) {
	name := m.Username
	if m.Tags != nil && m.Tags.DisplayName != "" {
		name = m.Tags.DisplayName
	}
	fmt.Fprintf(r.out, "[#%s] %s: %s\n", m.Channel, name, m.Text)
	r.commands.Dispatch(m)
}

func (r *runner) send(fn func() error) {
	if err := fn(); err != nil {
		r.log.Warn("send rejected", slog.Any("err", err))
	}
}

// run connects and loops at the frame interval until the session ends.
func (r *runner) run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := r.client.Connect(r.cfg.ChatConnection()); err != nil {
		return err
	}
	lines := readLines(ctx, in)

	frame := r.cfg.FrameInterval
	if frame <= 0 {
		frame = 50 * time.Millisecond
	}
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.client.Disconnect(true)
			_, err := r.poll()
			return err
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			if r.handleLine(line) {
				r.client.Disconnect(true)
				_, err := r.poll()
				return err
			}
		case <-ticker.C:
			if done, err := r.poll(); done {
				return err
			}
		}
	}
}

// poll drains the client and reports whether the session reached a terminal
// event, along with that event's error.
func (r *runner) poll() (bool, error) {
	events, _ := r.client.Poll()
	for _, e := range events {
		if !e.Kind.Terminal() {
			continue
		}
		if e.Err != nil {
			return true, fmt.Errorf("chat session ended: %w", e.Err)
		}
		return true, nil
	}
	return false, nil
}

// handleLine executes a console line and reports whether it asked to quit.
func (r *runner) handleLine(line string) bool {
	act, ok := parseConsole(line)
	if !ok {
		return false
	}
	switch act.kind {
	case consoleQuit:
		return true
	case consoleSay:
		r.send(func() error { return r.client.SendChat(act.text, "") })
	case consoleWhisper:
		r.send(func() error { return r.client.SendWhisper(act.user, act.text, "") })
	case consoleJoin:
		r.send(func() error { return r.client.JoinChannel(act.channel) })
	case consolePart:
		r.send(func() error { return r.client.JoinChannel("") })
	case consoleInvalid:
		fmt.Fprintln(r.out, "* "+act.text)
	}
	return false
}

// readLines forwards lines from in until EOF or ctx is done.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
			slog.Warn("stdin read failed", slog.Any("err", err))
		}
	}()
	return ch
}
