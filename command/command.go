// Package command turns chat messages into named commands for game-style
// "chat plays" input. A command is the text between the first two command
// delimiters of a message, options are the comma-separated text between the
// first two options delimiters:
//
//	"!jump! ?left,high?"  ->  command "jump", options ["left" "high"]
//
// Only the first command of a message is used.
package command

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/onnwee/twitchplay/chat"
)

var (
	// ErrEmptyCommand is returned when registering or removing a command with an empty name.
	ErrEmptyCommand = errors.New("command name is empty")
	// ErrNotRegistered is returned by Unregister for unknown commands.
	ErrNotRegistered = errors.New("no command of this name is registered")
)

// Invocation is a matched command.
type Invocation struct {
	Name     string
	Options  []string
	Username string
	Channel  string
}

// Handler runs a command.
type Handler func(Invocation)

// Dispatcher maps command names to handlers.
type Dispatcher struct {
	mu           sync.RWMutex
	commandDelim string
	optionsDelim string
	handlers     map[string]Handler
	log          *slog.Logger
}

// NewDispatcher returns a dispatcher with the given delimiters.
func NewDispatcher(commandDelim, optionsDelim string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		commandDelim: commandDelim,
		optionsDelim: optionsDelim,
		handlers:     make(map[string]Handler),
		log:          logger.With(slog.String("component", "command")),
	}
}

// SetDelimiters changes the encapsulation strings.
func (d *Dispatcher) SetDelimiters(commandDelim, optionsDelim string) {
	d.mu.Lock()
	d.commandDelim, d.optionsDelim = commandDelim, optionsDelim
	d.mu.Unlock()
}

// Register binds h to name, replacing any earlier handler. It reports whether
// one was replaced. Names are case-insensitive.
func (d *Dispatcher) Register(name string, h Handler) (replaced bool, err error) {
	key := strings.ToLower(name)
	if key == "" {
		return false, ErrEmptyCommand
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, replaced = d.handlers[key]
	d.handlers[key] = h
	return replaced, nil
}

// Unregister removes name.
func (d *Dispatcher) Unregister(name string) error {
	key := strings.ToLower(name)
	if key == "" {
		return ErrEmptyCommand
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.handlers[key]; !ok {
		return ErrNotRegistered
	}
	delete(d.handlers, key)
	return nil
}

// Dispatch runs the handler for the command in msg, if any. It reports whether
// a handler ran.
func (d *Dispatcher) Dispatch(msg chat.ChatMessage) bool {
	d.mu.RLock()
	cmdDelim, optDelim := d.commandDelim, d.optionsDelim
	d.mu.RUnlock()

	name := Extract(msg.Text, cmdDelim)
	if name == "" {
		return false
	}
	d.mu.RLock()
	h, ok := d.handlers[strings.ToLower(name)]
	d.mu.RUnlock()
	if !ok {
		return false
	}

	inv := Invocation{
		Name:     name,
		Options:  ParseOptions(msg.Text, optDelim),
		Username: msg.Username,
		Channel:  msg.Channel,
	}
	d.log.Debug("command: dispatch", slog.String("command", name), slog.String("username", msg.Username))
	h(inv)
	return true
}

// Extract returns the text between the first two occurrences of delim, or ""
// when there are fewer than two.
func Extract(text, delim string) string {
	if text == "" || delim == "" {
		return ""
	}
	start := strings.Index(text, delim)
	if start < 0 {
		return ""
	}
	rest := text[start+len(delim):]
	end := strings.Index(rest, delim)
	if end < 0 {
		return ""
	}
	return rest[:end]
}

// ParseOptions splits the options block of text on commas, dropping empty entries.
func ParseOptions(text, delim string) []string {
	block := Extract(text, delim)
	if block == "" {
		return nil
	}
	var out []string
	for _, opt := range strings.Split(block, ",") {
		if opt != "" {
			out = append(out, opt)
		}
	}
	return out
}
