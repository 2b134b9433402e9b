package irc

import (
	"strings"

	twitch "github.com/gempir/go-twitch-irc/v4"
)

// Kind classifies a parsed line.
type Kind int

const (
	// KindControl is anything that is not a user chat message: server notices,
	// numerics, JOIN/PART echoes, malformed input.
	KindControl Kind = iota
	// KindPing is the server keep-alive. The caller must answer with Pong().
	KindPing
	// KindChat is a PRIVMSG from a user.
	KindChat
)

func (k Kind) String() string {
	switch k {
	case KindControl:
		return "control"
	case KindPing:
		return "ping"
	case KindChat:
		return "chat"
	default:
		return "unknown"
	}
}

// Tags carries the IRCv3 metadata Twitch attaches to a PRIVMSG when the
// twitch.tv/tags capability was requested.
type Tags struct {
	UserID      string
	DisplayName string
	Color       string
	MessageID   string
	Badges      map[string]int
	Action      bool
}

// Line is one classified inbound line.
type Line struct {
	Kind    Kind
	Sender  string
	Channel string
	Text    string
	Raw     string
	Tags    *Tags
}

// Parse classifies a single decoded line. It never fails: anything that does
// not look like a user message comes back as KindControl with the raw line.
func Parse(line string) Line {
	if line == PingLine {
		return Line{Kind: KindPing, Raw: line}
	}
	if strings.HasPrefix(line, "@") {
		return parseTagged(line)
	}
	return parsePlain(line, line)
}

// ParseAll classifies lines in order.
func ParseAll(lines []string) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, Parse(l))
	}
	return out
}

// parsePlain handles ":nick!user@host PRIVMSG #channel :text". The first ':'
// after the prefix separates metadata from content; content keeps any later
// colons verbatim.
func parsePlain(body, raw string) Line {
	control := Line{Kind: KindControl, Raw: raw}

	meta, content, hasContent := strings.Cut(strings.TrimPrefix(body, ":"), ":")
	fields := strings.Fields(meta)
	if len(fields) < 2 {
		return control
	}
	if Verb(fields[1]) != VerbPrivmsg {
		return control
	}
	sender, _, ok := strings.Cut(fields[0], "!")
	if !ok || sender == "" {
		return control
	}
	if !hasContent || content == "" {
		return control
	}

	l := Line{Kind: KindChat, Sender: sender, Text: content, Raw: raw}
	if len(fields) > 2 {
		l.Channel = strings.TrimPrefix(fields[2], "#")
	}
	return l
}

// parseTagged strips the "@k=v;..." block. PRIVMSGs go through go-twitch-irc so
// the tag values are unescaped the same way Twitch's own clients do it.
func parseTagged(line string) Line {
	_, body, ok := strings.Cut(line, " ")
	if !ok {
		return Line{Kind: KindControl, Raw: line}
	}
	if body == PingLine {
		return Line{Kind: KindPing, Raw: line}
	}

	if pm, ok := twitch.ParseMessage(line).(*twitch.PrivateMessage); ok && pm.User.Name != "" && pm.Message != "" {
		return Line{
			Kind:    KindChat,
			Sender:  pm.User.Name,
			Channel: pm.Channel,
			Text:    pm.Message,
			Raw:     line,
			Tags: &Tags{
				UserID:      pm.User.ID,
				DisplayName: pm.User.DisplayName,
				Color:       pm.User.Color,
				MessageID:   pm.ID,
				Badges:      pm.User.Badges,
				Action:      pm.Action,
			},
		}
	}
	return parsePlain(body, line)
}

// IsWelcome reports whether line is the numeric 001 the server sends after a
// successful PASS/NICK.
func IsWelcome(line string) bool {
	return strings.HasPrefix(line, ":"+Host+" 001") && strings.Contains(line, ":Welcome, GLHF!")
}

// IsCapAck reports whether line acknowledges a CAP REQ.
func IsCapAck(line string) bool {
	return strings.HasPrefix(line, ":"+Host+" CAP ") && strings.Contains(line, " ACK ")
}
