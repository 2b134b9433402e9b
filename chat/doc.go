// Package chat is a poll-driven client for Twitch chat (TMI).
//
// A Client owns at most one connection at a time. Connect starts a worker
// goroutine that exclusively owns the TCP socket and runs the connection state
// machine:
//   - Connecting: dial Addr (irc.twitch.tv:6667 by default).
//   - Authenticating: send PASS and NICK, wait for the 001 welcome line. Any
//     other line fails the attempt.
//   - Joining: JOIN the configured channel, if any.
//   - Connected: answer pings, collect chat, drain send requests through a
//     rate limiter.
//
// The worker and the caller share nothing but three mailbox queues (inbound
// chat, outbound requests, status events) and a few atomics. Callers drain the
// queues with Poll on their own cadence, typically once per frame or tick, and
// may register OnEvent/OnMessage callbacks that Poll invokes synchronously.
//
// Every connection attempt ends with exactly one terminal event
// (FailedToConnect, FailedToAuthenticate or Disconnected). Poll retires the
// connection when it sees one, after which Connect may be called again.
package chat
