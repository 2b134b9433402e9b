package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/onnwee/twitchplay/irc"
)

const (
	// DefaultAddr is the plain-text TMI endpoint.
	DefaultAddr = "irc.twitch.tv:6667"
	// DefaultPollInterval bounds each socket read, which doubles as the idle sleep.
	DefaultPollInterval = 100 * time.Millisecond

	writeTimeout = 10 * time.Second
	readBufSize  = 64 * 1024
)

// ConnectionConfig describes one connection attempt. It is copied into the
// worker on Connect and never changes afterwards.
type ConnectionConfig struct {
	AuthToken string // "oauth:..." chat token
	Username  string
	Channel   string // optional; joined right after the welcome

	// MinSendInterval is the minimum gap between chat sends. Zero disables throttling.
	MinSendInterval time.Duration

	Addr         string        // host:port, DefaultAddr when empty
	PollInterval time.Duration // DefaultPollInterval when zero
	// AuthTimeout fails authentication when no welcome arrives in time.
	// Zero waits until the server answers or the client disconnects.
	AuthTimeout time.Duration
	// RequestTags sends CAP REQ :twitch.tv/tags before authenticating so chat
	// messages carry display names, colors and badges.
	RequestTags bool
}

// normalized lowercases names, applies defaults and rejects empty credentials.
func (c ConnectionConfig) normalized() (ConnectionConfig, error) {
	c.AuthToken = strings.TrimSpace(c.AuthToken)
	c.Username = strings.ToLower(strings.TrimSpace(c.Username))
	if c.AuthToken == "" || c.Username == "" {
		return c, fmt.Errorf("%w: auth token and username are required", ErrInvalidParameters)
	}
	c.Channel = irc.NormalizeChannel(c.Channel)
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c, nil
}

// State is the worker's connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateJoining
	StateConnected
	StateFailed
	StateDisconnectedByRequest
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateJoining:
		return "joining"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	case StateDisconnectedByRequest:
		return "disconnected_by_request"
	default:
		return "unknown"
	}
}

// EventKind tags an Event.
type EventKind int

const (
	EventConnected EventKind = iota
	EventFailedToConnect
	EventFailedToAuthenticate
	EventError
	EventMessage
	EventDisconnected
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventFailedToConnect:
		return "failed_to_connect"
	case EventFailedToAuthenticate:
		return "failed_to_authenticate"
	case EventError:
		return "error"
	case EventMessage:
		return "message"
	case EventDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Terminal reports whether the event ends the connection.
func (k EventKind) Terminal() bool {
	return k == EventFailedToConnect || k == EventFailedToAuthenticate || k == EventDisconnected
}

// Event is a connection status change or a server line that is not user chat.
type Event struct {
	Kind    EventKind
	Message string
	// Err is set on failure events and is always a *Error.
	Err  error
	Time time.Time
}

// ChatMessage is one user message received in a channel.
type ChatMessage struct {
	Username string
	Text     string
	Channel  string
	Tags     *irc.Tags // nil unless RequestTags was set
}

// RequestKind tags an OutboundRequest.
type RequestKind int

const (
	RequestChatSend RequestKind = iota
	RequestChannelChange
)

// OutboundRequest is queued by the client and executed by the worker.
// For RequestChatSend an empty Channel means the currently joined channel.
// For RequestChannelChange an empty Channel leaves the current one.
type OutboundRequest struct {
	Kind    RequestKind
	Text    string
	Channel string
}

// ConnectionInfo is a snapshot of the live connection.
type ConnectionInfo struct {
	AuthToken string
	Username  string
	Channel   string
	SessionID string
}
