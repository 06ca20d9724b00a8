// Package stream pushes visualization progress to the page over WebSocket.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/ashureev/scripture-companion/internal/domain"
	"github.com/ashureev/scripture-companion/internal/identity"
	"github.com/ashureev/scripture-companion/internal/visualize"
	"github.com/coder/websocket"
)

// Client message types.
const (
	TypeHero    = "hero"
	TypeInsight = "insight"
	TypeClose   = "close"
	TypePing    = "ping"
)

// Server message types.
const (
	TypeProgress = "progress"
	TypeDone     = "done"
	TypeError    = "error"
	TypePong     = "pong"
	TypeClosed   = "closed"
)

// Visualizer is the workspace surface the stream drives.
type Visualizer interface {
	VisualizeHero(ctx context.Context, progress visualize.Progress) (domain.VisualizationState, error)
	VisualizeInsight(ctx context.Context, text string, progress visualize.Progress) (domain.VisualizationState, error)
	CloseVisualization()
}

// Limiter grants AI runs per user.
type Limiter interface {
	Allow(key string) bool
}

// Resolver finds the caller's workspace.
type Resolver func(userID, sessionID string) Visualizer

// wsMessage represents WebSocket message structure.
type wsMessage struct {
	Type  string                     `json:"type"`
	Run   string                     `json:"run,omitempty"`
	Text  string                     `json:"text,omitempty"`
	State *domain.VisualizationState `json:"state,omitempty"`
	Error string                     `json:"error,omitempty"`
}

// WebSocketHandler streams visualization runs.
type WebSocketHandler struct {
	resolve       Resolver
	limiter       Limiter
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler. limiter may be nil.
func NewWebSocketHandler(resolve Resolver, limiter Limiter, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{resolve: resolve, limiter: limiter, allowedOrigin: allowedOrigin, isDev: isDev}
}

// conn serialises writes to one socket.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) writeJSON(ctx context.Context, v wsMessage) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.Write(ctx, websocket.MessageText, data)
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	slog.Info("WebSocket connection request", "user_id", userID, "session_id", sessionID, "ip", r.RemoteAddr)

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
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &conn{ws: ws}
	target := h.resolve(userID, sessionID)

	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = c.writeJSON(ctx, wsMessage{Type: TypeError, Error: "invalid message"})
			continue
		}

		switch msg.Type {
		case TypePing:
			if err := c.writeJSON(ctx, wsMessage{Type: TypePong}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}
		case TypeClose:
			target.CloseVisualization()
			if err := c.writeJSON(ctx, wsMessage{Type: TypeClosed}); err != nil {
				slog.Debug("Failed to send closed acknowledgment", "error", err)
			}
		case TypeHero, TypeInsight:
			if msg.Type == TypeInsight && strings.TrimSpace(msg.Text) == "" {
				_ = c.writeJSON(ctx, wsMessage{Type: TypeError, Run: msg.Type, Error: "text is required"})
				continue
			}
			if h.limiter != nil && !h.limiter.Allow(userID) {
				slog.Warn("WebSocket run rate limited", "user_id", userID, "run", msg.Type)
				_ = c.writeJSON(ctx, wsMessage{Type: TypeError, Run: msg.Type, Error: "rate limit exceeded"})
				continue
			}
			// Runs proceed in the background so close requests are still read.
			wg.Add(1)
			go func(msg wsMessage) {
				defer wg.Done()
				h.run(ctx, c, target, msg, userID)
			}(msg)
		default:
			_ = c.writeJSON(ctx, wsMessage{Type: TypeError, Error: "unknown message type"})
		}
	}
}

func (h *WebSocketHandler) run(ctx context.Context, c *conn, target Visualizer, msg wsMessage, userID string) {
	progress := func(s domain.VisualizationState) {
		if err := c.writeJSON(ctx, wsMessage{Type: TypeProgress, Run: msg.Type, State: &s}); err != nil {
			slog.Debug("Failed to send progress", "error", err, "user_id", userID)
		}
	}

	var (
		state domain.VisualizationState
		err   error
	)
	if msg.Type == TypeHero {
		state, err = target.VisualizeHero(ctx, progress)
	} else {
		state, err = target.VisualizeInsight(ctx, msg.Text, progress)
	}

	reply := wsMessage{Type: TypeDone, Run: msg.Type, State: &state}
	if err != nil {
		reply = wsMessage{Type: TypeError, Run: msg.Type, Error: err.Error()}
	}
	if werr := c.writeJSON(ctx, reply); werr != nil {
		slog.Debug("Failed to send run result", "error", werr, "user_id", userID)
	}
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
