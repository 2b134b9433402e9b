package chat

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
)

func TestClassifyDialError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"dns", &net.DNSError{Err: "no such host", Name: "irc.twitch.tv"}, HostResolutionFailure},
		{"wrapped dns", fmt.Errorf("dial: %w", &net.DNSError{Err: "server misbehaving"}), HostResolutionFailure},
		{"bad address", &net.AddrError{Err: "missing port in address", Addr: "irc.twitch.tv"}, HostResolutionFailure},
		{"fd exhaustion", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.EMFILE}, SocketCreationFailure},
		{"refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, ConnectFailure},
		{"other", errors.New("boom"), ConnectFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyDialError(tt.err); got != tt.want {
				t.Errorf("ClassifyDialError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorFormatting(t *testing.T) {
	base := errors.New("broken pipe")
	err := &Error{Kind: SendFailure, Detail: "bar", Err: base}
	if got := err.Error(); got != "send failure: bar: broken pipe" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, base) {
		t.Error("Error should unwrap to its cause")
	}
	if got := (&Error{Kind: AuthRejected}).Error(); got != "auth rejected" {
		t.Errorf("Error() = %q", got)
	}
}

func TestErrorKindString(t *testing.T) {
	for k := HostResolutionFailure; k <= InvalidParameters; k++ {
		if k.String() == "unknown" {
			t.Errorf("ErrorKind(%d) has no name", k)
		}
	}
	if ErrorKind(99).String() != "unknown" {
		t.Error("out of range kind should be unknown")
	}
}

func TestEventKindTerminal(t *testing.T) {
	terminal := map[EventKind]bool{
		EventConnected:            false,
		EventFailedToConnect:      true,
		EventFailedToAuthenticate: true,
		EventError:                false,
		EventMessage:              false,
		EventDisconnected:         true,
	}
	for k, want := range terminal {
		if got := k.Terminal(); got != want {
			t.Errorf("%v.Terminal() = %v, want %v", k, got, want)
		}
	}
}

func TestConfigNormalized(t *testing.T) {
	cfg, err := ConnectionConfig{AuthToken: " oauth:x ", Username: "Bot", Channel: "#Chan"}.normalized()
	if err != nil {
		t.Fatalf("normalized: %v", err)
	}
	if cfg.AuthToken != "oauth:x" || cfg.Username != "bot" || cfg.Channel != "chan" {
		t.Errorf("normalized = %+v", cfg)
	}
	if cfg.Addr != DefaultAddr || cfg.PollInterval != DefaultPollInterval {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.AuthTimeout != 0 {
		t.Error("auth timeout should stay disabled by default")
	}
}
