package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/onnwee/twitchplay/chat"
	"github.com/onnwee/twitchplay/telemetry"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	client ChatClient
}

// StatusResponse is the /status body. It never carries the auth token.
type StatusResponse struct {
	State     string `json:"state"`
	Username  string `json:"username,omitempty"`
	Channel   string `json:"channel,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

type sayRequest struct {
	Text    string `json:"text"`
	Channel string `json:"channel"`
}

func (h *Handlers) state() string {
	switch {
	case h.client.IsConnected():
		return "connected"
	case h.client.IsPendingConnection():
		return "connecting"
	default:
		return "disconnected"
	}
}

// HandleHealthz answers 200 while the chat connection is up and 503 otherwise.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	state := h.state()
	if state != "connected" {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(state))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleStatus reports the connection state and, when connected, who and where.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{State: h.state()}
	if info, err := h.client.ConnectionInfo(); err == nil {
		resp.Username = info.Username
		resp.Channel = info.Channel
		resp.SessionID = info.SessionID
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleSay queues a chat line: POST {"text": "...", "channel": "..."}.
func (h *Handlers) HandleSay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req sayRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	err := h.client.SendChat(req.Text, req.Channel)
	switch {
	case errors.Is(err, chat.ErrInvalidParameters):
		http.Error(w, "text required", http.StatusBadRequest)
		return
	case errors.Is(err, chat.ErrNotConnected):
		http.Error(w, "chat not connected", http.StatusServiceUnavailable)
		return
	case err != nil:
		telemetry.LoggerWithCorr(r.Context()).Error("say failed", slog.Any("err", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", slog.Any("err", err))
	}
}
