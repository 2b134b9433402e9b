package testutil

import (
	"bufio"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

// DefaultWait bounds every blocking helper on the fake server.
const DefaultWait = 3 * time.Second

// WelcomeLine is the 001 numeric TMI sends after a successful login.
func WelcomeLine(user string) string {
	return ":tmi.twitch.tv 001 " + user + " :Welcome, GLHF!"
}

// FakeTMIServer is a loopback TCP server that speaks just enough TMI for tests.
// Each accepted connection is handed to the test through Accept.
type FakeTMIServer struct {
	t     *testing.T
	ln    net.Listener
	conns chan *TMIConn

	mu  sync.Mutex
	all []*TMIConn
}

// NewFakeTMIServer listens on 127.0.0.1 and closes everything at test cleanup.
func NewFakeTMIServer(t *testing.T) *FakeTMIServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &FakeTMIServer{t: t, ln: ln, conns: make(chan *TMIConn, 8)}
	go s.acceptLoop()
	t.Cleanup(func() {
		_ = ln.Close()
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, c := range s.all {
			c.Close()
		}
	})
	return s
}

// Addr is the host:port clients should dial.
func (s *FakeTMIServer) Addr() string { return s.ln.Addr().String() }

func (s *FakeTMIServer) acceptLoop() {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			return
		}
		tc := &TMIConn{t: s.t, conn: c, lines: make(chan string, 256)}
		go tc.readLoop()
		s.mu.Lock()
		s.all = append(s.all, tc)
		s.mu.Unlock()
		s.conns <- tc
	}
}

// Accept waits for the next client connection.
func (s *FakeTMIServer) Accept() *TMIConn {
	s.t.Helper()
	select {
	case c := <-s.conns:
		return c
	case <-time.After(DefaultWait):
		s.t.Fatal("fake tmi: no client connected")
		return nil
	}
}

// TMIConn is the server side of one client connection.
type TMIConn struct {
	t     *testing.T
	conn  net.Conn
	lines chan string

	closeOnce sync.Once
}

var errClosed = errors.New("connection closed")

func (c *TMIConn) readLoop() {
	defer close(c.lines)
	sc := bufio.NewScanner(c.conn)
	for sc.Scan() {
		c.lines <- strings.TrimRight(sc.Text(), "\r")
	}
}

// ReadLine returns the next line the client sent.
func (c *TMIConn) ReadLine(wait time.Duration) (string, error) {
	select {
	case l, ok := <-c.lines:
		if !ok {
			return "", errClosed
		}
		return l, nil
	case <-time.After(wait):
		return "", errors.New("timed out waiting for line")
	}
}

// Expect fails the test unless the next client line equals want.
func (c *TMIConn) Expect(want string) {
	c.t.Helper()
	got, err := c.ReadLine(DefaultWait)
	if err != nil {
		c.t.Fatalf("fake tmi: expected %q: %v", want, err)
	}
	if got != want {
		c.t.Fatalf("fake tmi: got %q, want %q", got, want)
	}
}

// ExpectPrefix fails the test unless the next client line starts with prefix.
func (c *TMIConn) ExpectPrefix(prefix string) string {
	c.t.Helper()
	got, err := c.ReadLine(DefaultWait)
	if err != nil {
		c.t.Fatalf("fake tmi: expected %q...: %v", prefix, err)
	}
	if !strings.HasPrefix(got, prefix) {
		c.t.Fatalf("fake tmi: got %q, want prefix %q", got, prefix)
	}
	return got
}

// ExpectSilence fails the test if the client sends a line within d.
// A closed connection counts as silence.
func (c *TMIConn) ExpectSilence(d time.Duration) {
	c.t.Helper()
	got, err := c.ReadLine(d)
	if err == nil {
		c.t.Fatalf("fake tmi: expected no line, got %q", got)
	}
}

// ExpectClosed waits for the client to close the connection, failing on any
// line received first.
func (c *TMIConn) ExpectClosed() {
	c.t.Helper()
	got, err := c.ReadLine(DefaultWait)
	switch {
	case errors.Is(err, errClosed):
	case err != nil:
		c.t.Fatalf("fake tmi: connection not closed: %v", err)
	default:
		c.t.Fatalf("fake tmi: expected close, got %q", got)
	}
}

// Send writes lines in a single write, each terminated by CRLF.
func (c *TMIConn) Send(lines ...string) {
	c.t.Helper()
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\r\n")
	}
	if _, err := c.conn.Write([]byte(b.String())); err != nil {
		c.t.Fatalf("fake tmi: write: %v", err)
	}
}

// Handshake consumes PASS and NICK and answers with the welcome line.
func (c *TMIConn) Handshake(user string) {
	c.t.Helper()
	c.ExpectPrefix("PASS ")
	c.Expect("NICK " + user)
	c.Send(WelcomeLine(user))
}

// Close drops the connection from the server side.
func (c *TMIConn) Close() {
	c.closeOnce.Do(func() { _ = c.conn.Close() })
}
