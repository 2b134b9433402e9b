// Package irc holds the wire-level pieces of the Twitch chat (TMI) protocol:
// splitting raw socket reads into lines, formatting outbound lines, and
// classifying inbound lines into pings, chat messages and server messages.
//
// Nothing in here touches a socket. The chat package owns the connection and
// feeds bytes in and lines out.
package irc

import (
	"bytes"
	"strings"
)

// Host is the server name TMI uses in its own prefixes and keep-alives.
const Host = "tmi.twitch.tv"

const (
	// PingLine is the exact keep-alive line the server sends.
	PingLine = "PING :" + Host
	// PongLine is the reply PingLine requires.
	PongLine = "PONG :" + Host

	lineTerminator = "\r\n"
)

// Verb is an IRC command token.
type Verb string

const (
	VerbPass    Verb = "PASS"
	VerbNick    Verb = "NICK"
	VerbJoin    Verb = "JOIN"
	VerbPart    Verb = "PART"
	VerbPong    Verb = "PONG"
	VerbPrivmsg Verb = "PRIVMSG"
	VerbCap     Verb = "CAP"
)

// DecodeFrame splits a raw chunk into its non-empty lines, in order, without
// line terminators. Bytes are kept as-is; message bodies are opaque.
func DecodeFrame(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var lines []string
	for len(raw) > 0 {
		var line []byte
		if i := bytes.IndexByte(raw, '\n'); i >= 0 {
			line, raw = raw[:i], raw[i+1:]
		} else {
			line, raw = raw, nil
		}
		line = bytes.TrimRight(line, "\r")
		if len(line) == 0 {
			continue
		}
		lines = append(lines, string(line))
	}
	return lines
}

// MaxLineLen bounds a buffered fragment. Tagged TMI lines stay well under it.
const MaxLineLen = 8 * 1024

// Framer accumulates socket reads and releases only complete lines. A read
// that ends mid-line keeps the fragment until the rest arrives. A fragment
// that outgrows MaxLineLen is discarded along with the rest of its line.
type Framer struct {
	partial []byte
	skip    bool // discarding up to the next terminator
}

// Push appends data and returns every line completed by it.
func (f *Framer) Push(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	if f.skip {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			return nil
		}
		f.skip = false
		data = data[i+1:]
	}
	f.partial = append(f.partial, data...)
	end := bytes.LastIndexByte(f.partial, '\n')
	var lines []string
	if end >= 0 {
		lines = DecodeFrame(f.partial[:end+1])
		rest := f.partial[end+1:]
		f.partial = append(f.partial[:0:0], rest...)
	}
	if len(f.partial) > MaxLineLen {
		f.partial = nil
		f.skip = true
	}
	return lines
}

// pending reports how many bytes are waiting for a terminator.
func (f *Framer) pending() int { return len(f.partial) }

// Flush returns the buffered fragment as a line (if any) and resets the framer.
// Used when the connection ends so an unterminated last line is not lost.
func (f *Framer) Flush() []string {
	lines := DecodeFrame(f.partial)
	f.partial = nil
	f.skip = false
	return lines
}

// EncodeChat formats a chat line. With an empty channel the message is
// returned untouched so callers can pass pre-formatted raw lines.
func EncodeChat(message, channel string) string {
	if channel == "" {
		return message
	}
	return string(VerbPrivmsg) + " #" + channel + " :" + message
}

// WhisperText is the chat body that asks the server to whisper user.
func WhisperText(user, message string) string {
	return "/w " + strings.ToLower(user) + " " + message
}

// EncodeWhisper formats a whisper as the /w chat command sent through a
// channel the account can talk in.
func EncodeWhisper(user, message, channel string) string {
	return EncodeChat(WhisperText(user, message), channel)
}

// EncodeControl formats a protocol control line. Channel verbs get the '#'
// prefix, PONG always answers the server keep-alive.
func EncodeControl(verb Verb, arg string) string {
	switch verb {
	case VerbJoin, VerbPart:
		return string(verb) + " #" + arg
	case VerbPong:
		return PongLine
	case VerbCap:
		return string(verb) + " REQ :" + arg
	default:
		return string(verb) + " " + arg
	}
}

func Pass(token string) string { return EncodeControl(VerbPass, token) }

func Nick(name string) string { return EncodeControl(VerbNick, name) }

func Join(channel string) string { return EncodeControl(VerbJoin, channel) }

func Part(channel string) string { return EncodeControl(VerbPart, channel) }

func Pong() string { return PongLine }

// CapReq requests one or more capabilities in a single line.
func CapReq(caps ...string) string { return EncodeControl(VerbCap, strings.Join(caps, " ")) }

// Terminate returns the line as wire bytes.
func Terminate(line string) []byte {
	return []byte(line + lineTerminator)
}

// NormalizeChannel lowercases a channel name and drops a leading '#'.
func NormalizeChannel(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "#"))
}
