package main

import "strings"

type consoleKind int

const (
	consoleSay consoleKind = iota
	consoleJoin
	consolePart
	consoleWhisper
	consoleQuit
	consoleInvalid
)

// consoleAction is one parsed stdin line.
type consoleAction struct {
	kind    consoleKind
	channel string
	user    string
	text    string
}

// parseConsole turns a stdin line into an action:
//
//	/join <channel>       leave the current channel and join another
//	/part                 leave the current channel
//	/w <user> <message>   whisper
//	/quit                 disconnect and exit
//	//text                say "/text"
//	anything else         say it in the joined channel
//
// Blank lines report ok=false.
func parseConsole(line string) (act consoleAction, ok bool) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return consoleAction{}, false
	}
	if strings.HasPrefix(line, "//") {
		return consoleAction{kind: consoleSay, text: line[1:]}, true
	}
	if !strings.HasPrefix(line, "/") {
		return consoleAction{kind: consoleSay, text: line}, true
	}

	verb, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)
	switch strings.ToLower(verb) {
	case "join":
		if rest == "" {
			return consoleAction{kind: consoleInvalid, text: "usage: /join <channel>"}, true
		}
		return consoleAction{kind: consoleJoin, channel: rest}, true
	case "part":
		return consoleAction{kind: consolePart}, true
	case "w", "whisper":
		user, msg, _ := strings.Cut(rest, " ")
		msg = strings.TrimSpace(msg)
		if user == "" || msg == "" {
			return consoleAction{kind: consoleInvalid, text: "usage: /w <user> <message>"}, true
		}
		return consoleAction{kind: consoleWhisper, user: user, text: msg}, true
	case "quit", "exit":
		return consoleAction{kind: consoleQuit}, true
	}
	return consoleAction{kind: consoleInvalid, text: "unknown command /" + verb}, true
}
