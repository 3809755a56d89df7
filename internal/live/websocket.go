package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/tententen/internal/domain"
	"github.com/ashureev/tententen/internal/identity"
	"github.com/ashureev/tententen/internal/wizard"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 10 * time.Second

// Wizard is the subset of the wizard controller driven over the socket.
type Wizard interface {
	State(ctx context.Context, userID, sessionID string) (*domain.SessionState, error)
	Dispatch(ctx context.Context, userID, sessionID string, action domain.Action) (*domain.SessionState, error)
}

// Message types exchanged over the socket.
const (
	TypeGetState         = "get_state"
	TypeSubmitDecision   = "submit_decision"
	TypeSubmitValues     = "submit_values"
	TypeSubmitReflection = "submit_reflection"
	TypeGenerateInsight  = "generate_insight"
	TypePing             = "ping"

	TypeState = "state"
	TypePong  = "pong"
	TypeError = "error"
)

// inbound is a client frame.
type inbound struct {
	Type       string             `json:"type"`
	Decision   string             `json:"decision,omitempty"`
	Values     *domain.Values     `json:"values,omitempty"`
	Reflection *domain.Reflection `json:"reflection,omitempty"`
}

// outbound is a server frame.
type outbound struct {
	Type    string       `json:"type"`
	View    *wizard.View `json:"view,omitempty"`
	Message string       `json:"message,omitempty"`
}

// WebSocketHandler serves wizard sessions over WebSocket.
type WebSocketHandler struct {
	wizard        Wizard
	sm            *SessionManager
	render        func(string) string
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(w Wizard, sm *SessionManager, render func(string) string, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		wizard:        w,
		sm:            sm,
		render:        render,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	slog.Info("WebSocket connection request", "user_id", userID, "session_id", sessionID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	h.sm.Register(userID, sessionID, ws)
	defer h.sm.Unregister(userID, sessionID, ws)

	ctx := r.Context()

	s, err := h.wizard.State(ctx, userID, sessionID)
	if err != nil {
		slog.Error("Failed to load wizard session", "error", err, "user_id", userID, "session_id", sessionID)
		_ = h.write(ctx, ws, outbound{Type: TypeError, Message: "failed to load session"})
		return
	}
	if err := h.writeState(ctx, ws, s, nil); err != nil {
		slog.Debug("Failed to send initial state", "error", err)
		return
	}

	h.readLoop(ctx, ws, userID, sessionID)
	slog.Info("Wizard connection ended", "user_id", userID, "session_id", sessionID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, userID, sessionID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket closed", "user_id", userID, "session_id", sessionID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			if err := h.write(ctx, ws, outbound{Type: TypeError, Message: "invalid message"}); err != nil {
				return
			}
			continue
		}

		if err := h.handle(ctx, ws, userID, sessionID, msg); err != nil {
			slog.Debug("WebSocket write failed", "error", err, "user_id", userID)
			return
		}
	}
}

func (h *WebSocketHandler) handle(ctx context.Context, ws *websocket.Conn, userID, sessionID string, msg inbound) error {
	var action domain.Action
	switch msg.Type {
	case TypePing:
		return h.write(ctx, ws, outbound{Type: TypePong})
	case TypeGetState:
		s, err := h.wizard.State(ctx, userID, sessionID)
		if err != nil {
			slog.Error("Failed to load wizard session", "error", err, "user_id", userID, "session_id", sessionID)
			return h.write(ctx, ws, outbound{Type: TypeError, Message: "failed to load session"})
		}
		return h.writeState(ctx, ws, s, nil)
	case TypeSubmitDecision:
		action = domain.SubmitDecision(msg.Decision)
	case TypeSubmitValues:
		var v domain.Values
		if msg.Values != nil {
			v = *msg.Values
		}
		action = domain.SubmitValues(v)
	case TypeSubmitReflection:
		var r domain.Reflection
		if msg.Reflection != nil {
			r = *msg.Reflection
		}
		action = domain.SubmitReflection(r)
	case TypeGenerateInsight:
		action = domain.GenerateInsight()
	default:
		return h.write(ctx, ws, outbound{Type: TypeError, Message: "unknown message type"})
	}

	s, err := h.wizard.Dispatch(ctx, userID, sessionID, action)
	if s == nil || (err != nil && wizard.DescribeError(err) == nil) {
		slog.Error("Wizard action failed",
			"error", err,
			"action", action.Type,
			"user_id", userID,
			"session_id", sessionID)
		return h.write(ctx, ws, outbound{Type: TypeError, Message: "internal error"})
	}
	return h.writeState(ctx, ws, s, err)
}

func (h *WebSocketHandler) writeState(ctx context.Context, ws *websocket.Conn, s *domain.SessionState, actionErr error) error {
	view := wizard.NewView(s, actionErr, h.render)
	return h.write(ctx, ws, outbound{Type: TypeState, View: &view})
}

func (h *WebSocketHandler) write(ctx context.Context, ws *websocket.Conn, msg outbound) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, msg)
}
