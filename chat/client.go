package chat

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/twitchplay/irc"
	"github.com/onnwee/twitchplay/mailbox"
)

// Client is the poll-based facade over one chat connection at a time.
// Its methods are safe to call from any goroutine; callbacks run on the
// goroutine that calls Poll.
type Client struct {
	dialer Dialer
	log    *slog.Logger

	mu         sync.Mutex
	sess       *session
	leftEvents []Event // drained from a session retired outside Poll
	leftMsgs   []ChatMessage
	onEvent    func(Event)
	onMessage  func(ChatMessage)
}

type session struct {
	id       string
	box      *chatMailbox
	status   *sessionStatus
	cancel   context.CancelFunc
	done     chan struct{}
	stopping bool // guarded by Client.mu
}

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces the default *net.Dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithLogger sets the logger used by the client and its workers.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient returns an idle client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		dialer: &net.Dialer{Timeout: 15 * time.Second, KeepAlive: 30 * time.Second},
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect validates cfg and starts a worker. It never blocks on the network;
// the outcome arrives as an event through Poll.
func (c *Client) Connect(cfg ConnectionConfig) error {
	cfg, err := cfg.normalized()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.sess; s != nil {
		if !s.stopping && !s.status.finished.Load() {
			return ErrAlreadyConnected
		}
		c.retireLocked()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:     uuid.NewString(),
		box:    mailbox.New[ChatMessage, OutboundRequest, Event](),
		status: &sessionStatus{},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	w := newWorker(cfg, s.id, s.box, s.status, c.dialer, c.log)
	go func() {
		defer close(s.done)
		w.run(ctx)
	}()
	c.sess = s
	return nil
}

// retireLocked stops the current session, waits for its worker and keeps
// whatever it left in the mailbox for the next Poll.
func (c *Client) retireLocked() {
	s := c.sess
	c.sess = nil
	s.cancel()
	<-s.done
	c.leftEvents = append(c.leftEvents, s.box.Events.DrainAll()...)
	c.leftMsgs = append(c.leftMsgs, s.box.Inbound.DrainAll()...)
}

// SendChat queues text for channel, or for the joined channel when channel is
// empty. Requests made while still connecting are executed once connected.
func (c *Client) SendChat(text, channel string) error {
	if text == "" {
		return ErrInvalidParameters
	}
	return c.request(OutboundRequest{Kind: RequestChatSend, Text: text, Channel: irc.NormalizeChannel(channel)})
}

// SendWhisper whispers text to user through the /w chat command, sent via
// channel or the joined channel.
func (c *Client) SendWhisper(user, text, channel string) error {
	if user == "" || text == "" {
		return ErrInvalidParameters
	}
	return c.SendChat(irc.WhisperText(user, text), channel)
}

// JoinChannel leaves the current channel, if any, and joins name. An empty
// name only leaves.
func (c *Client) JoinChannel(name string) error {
	return c.request(OutboundRequest{Kind: RequestChannelChange, Channel: irc.NormalizeChannel(name)})
}

func (c *Client) request(req OutboundRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sess
	if s == nil || s.stopping || s.status.finished.Load() {
		return ErrNotConnected
	}
	s.box.Outbound.Enqueue(req)
	return nil
}

// Disconnect asks the worker to part and close. With graceful set it waits
// until the socket is closed. Calling it again, or with nothing to stop, is a
// no-op.
func (c *Client) Disconnect(graceful bool) {
	c.mu.Lock()
	s := c.sess
	if s == nil {
		c.mu.Unlock()
		return
	}
	first := !s.stopping
	s.stopping = true
	c.mu.Unlock()

	if first {
		c.log.Debug("chat: disconnect requested", slog.String("session", s.id), slog.Bool("graceful", graceful))
		s.cancel()
	}
	if graceful {
		<-s.done
	}
}

// IsConnected reports whether the welcome was received and no disconnect has
// been requested or observed.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sess
	return s != nil && !s.stopping && s.status.connected.Load()
}

// IsPendingConnection reports whether a connection attempt is underway.
func (c *Client) IsPendingConnection() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sess
	return s != nil && !s.stopping && !s.status.finished.Load() && !s.status.connected.Load()
}

// ConnectionInfo returns the latest snapshot published by the worker.
func (c *Client) ConnectionInfo() (ConnectionInfo, error) {
	c.mu.Lock()
	s := c.sess
	stopping := s != nil && s.stopping
	c.mu.Unlock()
	if s == nil || stopping || !s.status.connected.Load() {
		return ConnectionInfo{}, ErrNotConnected
	}
	info := s.status.info.Load()
	if info == nil {
		return ConnectionInfo{}, ErrNotConnected
	}
	return *info, nil
}

// OnEvent registers a callback Poll invokes for every event. nil removes it.
func (c *Client) OnEvent(fn func(Event)) {
	c.mu.Lock()
	c.onEvent = fn
	c.mu.Unlock()
}

// OnMessage registers a callback Poll invokes for every chat message. nil removes it.
func (c *Client) OnMessage(fn func(ChatMessage)) {
	c.mu.Lock()
	c.onMessage = fn
	c.mu.Unlock()
}

// Poll drains status events, then chat messages, invokes the callbacks in that
// order and returns both. When a terminal event is among them the connection is
// retired and Connect may be called again.
func (c *Client) Poll() ([]Event, []ChatMessage) {
	c.mu.Lock()
	events, msgs := c.leftEvents, c.leftMsgs
	c.leftEvents, c.leftMsgs = nil, nil
	onEvent, onMessage := c.onEvent, c.onMessage

	if s := c.sess; s != nil {
		drained := s.box.Events.DrainAll()
		events = append(events, drained...)
		msgs = append(msgs, s.box.Inbound.DrainAll()...)
		for _, e := range drained {
			if e.Kind.Terminal() {
				c.retireLocked()
				events, msgs = append(events, c.leftEvents...), append(msgs, c.leftMsgs...)
				c.leftEvents, c.leftMsgs = nil, nil
				break
			}
		}
	}
	c.mu.Unlock()

	if onEvent != nil {
		for _, e := range events {
			onEvent(e)
		}
	}
	if onMessage != nil {
		for _, m := range msgs {
			onMessage(m)
		}
	}
	return events, msgs
}
