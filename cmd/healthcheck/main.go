// Command healthcheck exits 0 when the chat client's status server reports a
// live chat connection. It is meant for container HEALTHCHECK directives.
package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultStatusAddr = "localhost:8080"

func main() {
	if err := probe(context.Background(), healthURL(os.Getenv("STATUS_ADDR"))); err != nil {
		log.Printf("healthcheck: %v", err)
		os.Exit(1)
	}
}

// healthURL turns a STATUS_ADDR listen address into the URL to probe.
func healthURL(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = defaultStatusAddr
	}
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimRight(addr, "/") + "/healthz"
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr + "/healthz"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/healthz"
}

func probe(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 3 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("failed to close response body: %v", err)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode}
	}
	return nil
}

type statusError struct{ code int }

func (e *statusError) Error() string { return "unhealthy: " + http.StatusText(e.code) }
