package main

import "testing"

func TestParseConsole(t *testing.T) {
	tests := []struct {
		line string
		ok   bool
		want consoleAction
	}{
		{line: "", ok: false},
		{line: "   \r\n", ok: false},
		{line: "hello there", ok: true, want: consoleAction{kind: consoleSay, text: "hello there"}},
		{line: "//me waves", ok: true, want: consoleAction{kind: consoleSay, text: "/me waves"}},
		{line: "/join #Other", ok: true, want: consoleAction{kind: consoleJoin, channel: "#Other"}},
		{line: "/join", ok: true, want: consoleAction{kind: consoleInvalid, text: "usage: /join <channel>"}},
		{line: "/part", ok: true, want: consoleAction{kind: consolePart}},
		{line: "/w Someone psst hi", ok: true, want: consoleAction{kind: consoleWhisper, user: "Someone", text: "psst hi"}},
		{line: "/whisper someone", ok: true, want: consoleAction{kind: consoleInvalid, text: "usage: /w <user> <message>"}},
		{line: "/QUIT", ok: true, want: consoleAction{kind: consoleQuit}},
		{line: "/dance", ok: true, want: consoleAction{kind: consoleInvalid, text: "unknown command /dance"}},
	}

	for _, tt := range tests {
		got, ok := parseConsole(tt.line)
		if ok != tt.ok {
			t.Errorf("parseConsole(%q) ok = %v, want %v", tt.line, ok, tt.ok)
			continue
		}
		if got != tt.want {
			t.Errorf("parseConsole(%q) = %+v, want %+v", tt.line, got, tt.want)
		}
	}
}
