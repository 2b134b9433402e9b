package chat

import (
	"errors"
	"net"
	"syscall"
)

var (
	// ErrInvalidParameters is returned by Connect for empty credentials and by
	// send calls for empty input.
	ErrInvalidParameters = errors.New("invalid connection parameters")
	// ErrAlreadyConnected is returned by Connect while a connection is live or pending.
	ErrAlreadyConnected = errors.New("already connected or connecting")
	// ErrNotConnected is returned when there is no live connection.
	ErrNotConnected = errors.New("not connected")
)

// ErrorKind classifies connection failures.
type ErrorKind int

const (
	HostResolutionFailure ErrorKind = iota
	SocketCreationFailure
	ConnectFailure
	AuthSendFailure
	AuthRejected
	JoinFailure
	ConnectionLost
	// SendFailure is never fatal.
	SendFailure
	InvalidParameters
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case HostResolutionFailure:
		return "host resolution failure"
	case SocketCreationFailure:
		return "socket creation failure"
	case ConnectFailure:
		return "connect failure"
	case AuthSendFailure:
		return "auth send failure"
	case AuthRejected:
		return "auth rejected"
	case JoinFailure:
		return "join failure"
	case ConnectionLost:
		return "connection lost"
	case SendFailure:
		return "send failure"
	case InvalidParameters:
		return "invalid parameters"
	default:
		return "unknown"
	}
}

// Error is attached to failure events.
type Error struct {
	Kind ErrorKind
	// Detail is the offending server line for AuthRejected, otherwise a short description.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// ClassifyDialError maps a dial error onto the failure it represents.
func ClassifyDialError(err error) ErrorKind {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return HostResolutionFailure
	}
	var addrErr *net.AddrError
	if errors.As(err, &addrErr) {
		return HostResolutionFailure
	}
	if errors.Is(err, syscall.EMFILE) || errors.Is(err, syscall.ENFILE) || errors.Is(err, syscall.EAFNOSUPPORT) {
		return SocketCreationFailure
	}
	return ConnectFailure
}
