package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/twitchplay/irc"
	"github.com/onnwee/twitchplay/mailbox"
	"github.com/onnwee/twitchplay/telemetry"
)

// Dialer opens the TCP connection. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type chatMailbox = mailbox.Mailbox[ChatMessage, OutboundRequest, Event]

var errNoConn = errors.New("no connection")

// sessionStatus is the only worker state the client reads directly.
type sessionStatus struct {
	connected atomic.Bool
	finished  atomic.Bool
	info      atomic.Pointer[ConnectionInfo]
}

// worker runs one connection attempt from dial to close. It is the only
// goroutine that touches conn.
type worker struct {
	cfg     ConnectionConfig
	session string
	box     *chatMailbox
	status  *sessionStatus
	dialer  Dialer
	log     *slog.Logger
	now     func() time.Time

	state   State
	conn    net.Conn
	framer  irc.Framer
	buf     []byte
	sender  *Sender
	channel string // currently joined channel, owned by the worker
}

func newWorker(cfg ConnectionConfig, session string, box *chatMailbox, status *sessionStatus, dialer Dialer, logger *slog.Logger) *worker {
	w := &worker{
		cfg:     cfg,
		session: session,
		box:     box,
		status:  status,
		dialer:  dialer,
		log:     logger.With(slog.String("component", "chat"), slog.String("session", session)),
		now:     time.Now,
		buf:     make([]byte, readBufSize),
	}
	w.sender = NewSender(cfg.MinSendInterval, w.writeLine)
	return w
}

// run drives the state machine until a terminal event has been emitted.
func (w *worker) run(ctx context.Context) {
	defer w.close()
	if !w.handshake(ctx) {
		return
	}
	w.loop(ctx)
}

func (w *worker) handshake(ctx context.Context) bool {
	start := w.now()
	spanCtx, span := telemetry.StartSpan(ctx, telemetry.TracerName, "chat.handshake",
		attribute.String("session", w.session),
		attribute.String("addr", w.cfg.Addr),
		attribute.String("channel", w.cfg.Channel),
	)
	defer span.End()

	if err := w.connect(spanCtx); err != nil {
		telemetry.RecordError(span, err)
		return false
	}
	if err := w.authenticate(ctx); err != nil {
		telemetry.RecordError(span, err)
		return false
	}
	telemetry.ObserveHandshake(w.now().Sub(start))
	telemetry.SetSpanSuccess(span)
	return true
}

// connect dials and sends the credentials. On failure it has already emitted
// the terminal event.
func (w *worker) connect(ctx context.Context) error {
	w.setState(StateConnecting)
	w.log.Info("chat: connecting", slog.String("addr", w.cfg.Addr), slog.String("username", w.cfg.Username))

	conn, err := w.dialer.DialContext(ctx, "tcp", w.cfg.Addr)
	if err != nil {
		if ctx.Err() != nil {
			w.stopped()
			return ctx.Err()
		}
		cerr := &Error{Kind: ClassifyDialError(err), Err: err}
		w.fail(EventFailedToConnect, dialFailureMessage(cerr.Kind), cerr)
		return cerr
	}
	w.conn = conn

	var lines []string
	if w.cfg.RequestTags {
		lines = append(lines, irc.CapReq("twitch.tv/tags"))
	}
	lines = append(lines, irc.Pass(w.cfg.AuthToken), irc.Nick(w.cfg.Username))
	for _, line := range lines {
		if err := w.writeLine(line); err != nil {
			cerr := &Error{Kind: AuthSendFailure, Err: err}
			w.fail(EventFailedToConnect, "could not send initial PASS and NICK messages", cerr)
			return cerr
		}
	}
	return nil
}

func dialFailureMessage(kind ErrorKind) string {
	switch kind {
	case HostResolutionFailure:
		return "could not resolve hostname"
	case SocketCreationFailure:
		return "could not create socket"
	default:
		return "connection to chat server failed"
	}
}

// authenticate waits for the welcome line. The first line that is neither the
// welcome nor an expected CAP acknowledgement fails the attempt.
func (w *worker) authenticate(ctx context.Context) error {
	w.setState(StateAuthenticating)
	var deadline time.Time
	if w.cfg.AuthTimeout > 0 {
		deadline = w.now().Add(w.cfg.AuthTimeout)
	}

	for {
		if ctx.Err() != nil {
			w.stopped()
			return ctx.Err()
		}
		if !deadline.IsZero() && w.now().After(deadline) {
			err := &Error{Kind: AuthRejected, Detail: "no welcome within " + w.cfg.AuthTimeout.String()}
			w.fail(EventFailedToAuthenticate, "timed out waiting for welcome", err)
			return err
		}

		lines, rerr := w.receive()
		for i, line := range lines {
			if w.cfg.RequestTags && irc.IsCapAck(line) {
				w.emit(EventMessage, line, nil)
				continue
			}
			if !irc.IsWelcome(line) {
				err := &Error{Kind: AuthRejected, Detail: line}
				w.fail(EventFailedToAuthenticate, line, err)
				return err
			}
			if err := w.welcome(line); err != nil {
				return err
			}
			w.handleLines(lines[i+1:])
			return nil
		}
		if rerr != nil {
			err := &Error{Kind: ConnectionLost, Detail: "connection closed before welcome", Err: rerr}
			w.fail(EventFailedToAuthenticate, "connection closed before welcome", err)
			return err
		}
	}
}

// welcome emits Connected and joins the configured channel.
func (w *worker) welcome(line string) error {
	w.publish()
	w.status.connected.Store(true)
	telemetry.SetConnected(true)
	w.emit(EventConnected, line, nil)

	if w.cfg.Channel != "" {
		w.setState(StateJoining)
		if err := w.writeLine(irc.Join(w.cfg.Channel)); err != nil {
			jerr := &Error{Kind: JoinFailure, Detail: w.cfg.Channel, Err: err}
			w.fail(EventFailedToAuthenticate, "failed to join channel", jerr)
			return jerr
		}
		w.channel = w.cfg.Channel
	}
	w.setState(StateConnected)
	w.publish()
	w.log.Info("chat: connected", slog.String("channel", w.channel))
	return nil
}

// loop is the steady state: receive, route, drain requests, flush sends.
func (w *worker) loop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			w.leave()
			return
		}
		lines, err := w.receive()
		w.handleLines(lines)
		if err != nil {
			w.fail(EventDisconnected, "lost connection", &Error{Kind: ConnectionLost, Err: err})
			return
		}
		w.drainRequests()
		w.flushSends()
	}
}

// receive reads for at most one poll interval. A read deadline expiring is
// not an error; it is how the worker idles.
func (w *worker) receive() ([]string, error) {
	if err := w.conn.SetReadDeadline(w.now().Add(w.cfg.PollInterval)); err != nil {
		return nil, err
	}
	n, err := w.conn.Read(w.buf)
	lines := w.framer.Push(w.buf[:n])
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			err = nil
		} else {
			lines = append(lines, w.framer.Flush()...)
		}
	}
	telemetry.Add(telemetry.LinesReceived, len(lines))
	return lines, err
}

func (w *worker) handleLines(lines []string) {
	if len(lines) == 0 {
		return
	}
	var batch []ChatMessage
	for _, l := range irc.ParseAll(lines) {
		switch l.Kind {
		case irc.KindPing:
			if err := w.writeLine(irc.Pong()); err != nil {
				w.log.Warn("chat: pong failed", slog.Any("err", err))
				continue
			}
			telemetry.Inc(telemetry.PingsAnswered)
		case irc.KindChat:
			batch = append(batch, ChatMessage{Username: l.Sender, Text: l.Text, Channel: l.Channel, Tags: l.Tags})
		default:
			w.emit(EventMessage, l.Raw, nil)
		}
	}
	if len(batch) > 0 {
		w.box.Inbound.EnqueueAll(batch)
		telemetry.Add(telemetry.ChatReceived, len(batch))
	}
}

// drainRequests executes every queued request. Chat targets are resolved here,
// so a send queued before a channel change goes to the channel joined when it
// is dequeued.
func (w *worker) drainRequests() {
	for _, req := range w.box.Outbound.DrainAll() {
		switch req.Kind {
		case RequestChatSend:
			target := req.Channel
			if target == "" {
				target = w.channel
			}
			if target == "" {
				telemetry.Inc(telemetry.SendErrors)
				w.emit(EventError, "cannot send message: no channel specified and not joined to a channel",
					&Error{Kind: SendFailure, Detail: "no channel"})
				continue
			}
			w.sender.Enqueue(req.Text, target)
		case RequestChannelChange:
			w.changeChannel(req.Channel)
		}
	}
}

func (w *worker) changeChannel(next string) {
	next = irc.NormalizeChannel(next)
	if w.channel != "" {
		if err := w.writeLine(irc.Part(w.channel)); err != nil {
			w.emit(EventError, "failed to part channel", &Error{Kind: SendFailure, Detail: w.channel, Err: err})
		}
	}
	w.channel = next
	if next != "" {
		if err := w.writeLine(irc.Join(next)); err != nil {
			w.emit(EventError, "failed to join channel", &Error{Kind: JoinFailure, Detail: next, Err: err})
		}
	}
	w.publish()
	w.log.Info("chat: channel changed", slog.String("channel", next))
}

func (w *worker) flushSends() {
	sent, errs := w.sender.Flush(w.now())
	telemetry.Add(telemetry.ChatSent, sent)
	for _, err := range errs {
		telemetry.Inc(telemetry.SendErrors)
		w.emit(EventError, "failed to send chat message", &Error{Kind: SendFailure, Err: err})
	}
}

// discardBacklog reports throttled lines that will never be written.
func (w *worker) discardBacklog() {
	if w.sender.Pending() == 0 {
		return
	}
	n := w.sender.Discard()
	telemetry.Add(telemetry.SendErrors, n)
	w.log.Warn("chat: dropping queued messages", slog.Int("count", n))
	msg := fmt.Sprintf("dropped %d queued messages", n)
	w.emit(EventError, msg, &Error{Kind: SendFailure, Detail: msg})
}

// leave parts the joined channel and reports the requested disconnect.
func (w *worker) leave() {
	if w.channel != "" {
		if err := w.writeLine(irc.Part(w.channel)); err != nil {
			w.log.Debug("chat: part on shutdown failed", slog.Any("err", err))
		}
	}
	w.finish(StateDisconnectedByRequest, EventDisconnected, "disconnected by request", nil)
}

// stopped reports a stop request that arrived before the connection was up.
func (w *worker) stopped() {
	w.finish(StateDisconnectedByRequest, EventDisconnected, "disconnected by request", nil)
}

func (w *worker) fail(kind EventKind, message string, err *Error) {
	w.log.Warn("chat: connection ended", slog.String("event", kind.String()), slog.Any("err", err))
	state := StateFailed
	if kind == EventDisconnected {
		state = StateDisconnected
	}
	w.finish(state, kind, message, err)
}

// finish emits the single terminal event of this attempt.
func (w *worker) finish(state State, kind EventKind, message string, err *Error) {
	w.discardBacklog()
	w.status.connected.Store(false)
	telemetry.SetConnected(false)
	w.setState(state)
	var eventErr error
	if err != nil {
		eventErr = err
	}
	w.emit(kind, message, eventErr)
	w.status.finished.Store(true)
}

func (w *worker) emit(kind EventKind, message string, err error) {
	w.box.Events.Enqueue(Event{Kind: kind, Message: message, Err: err, Time: w.now()})
	telemetry.RecordEvent(kind.String())
}

func (w *worker) setState(s State) {
	if w.state != s {
		w.log.Debug("chat: state", slog.String("from", w.state.String()), slog.String("to", s.String()))
	}
	w.state = s
}

// publish stores a fresh snapshot for ConnectionInfo.
func (w *worker) publish() {
	w.status.info.Store(&ConnectionInfo{
		AuthToken: w.cfg.AuthToken,
		Username:  w.cfg.Username,
		Channel:   w.channel,
		SessionID: w.session,
	})
}

func (w *worker) writeLine(line string) error {
	if w.conn == nil {
		return errNoConn
	}
	if err := w.conn.SetWriteDeadline(w.now().Add(writeTimeout)); err != nil {
		return err
	}
	_, err := w.conn.Write(irc.Terminate(line))
	return err
}

func (w *worker) close() {
	if w.conn == nil {
		return
	}
	if err := w.conn.Close(); err != nil {
		w.log.Debug("chat: close", slog.Any("err", err))
	}
	w.conn = nil
}
