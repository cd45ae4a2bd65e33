package bridge

import (
	"context"
	"net/http"
	"sync"
	"time"

	voicelive "github.com/bt-bridge/voicelive-avatar"
	"github.com/bt-bridge/voicelive-avatar/shared"
	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	maxClientMessageBytes = 160 * 1024
	writeWait             = 10 * time.Second
	messagesPerSecond     = 100
)

// Client message types.
const (
	msgAudio           = "audio"
	msgText            = "text"
	msgAvatarSDP       = "avatar.sdp"
	msgResponseTrigger = "response.trigger"
	msgModeSet         = "mode.set"
)

type clientMessage struct {
	Type      string `json:"type"`
	Data      string `json:"data,omitempty"`
	Text      string `json:"text,omitempty"`
	SDP       string `json:"sdp,omitempty"`
	TurnBased bool   `json:"turn_based,omitempty"`
}

// SessionFactory builds a fresh session per websocket connection.
type SessionFactory func(logger shared.LoggerAdapter) (*voicelive.Session, error)

// Handler upgrades browser connections and bridges them to voice sessions.
type Handler struct {
	logger   shared.LoggerAdapter
	factory  SessionFactory
	upgrader websocket.Upgrader
}

func NewHandler(logger shared.LoggerAdapter, factory SessionFactory) (*Handler, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	if factory == nil {
		return nil, shared.ErrNoConfig
	}
	return &Handler{
		logger:  logger,
		factory: factory,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}, nil
}

// wsConn serializes writes; the event forwarder and the read loop both reply
// on the same connection.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) writeJSON(v any) error {
	payload, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", err)
		return
	}
	raw.SetReadLimit(maxClientMessageBytes)
	conn := &wsConn{conn: raw}

	logger := h.logger.With(zap.String("remote", r.RemoteAddr))
	logger.Info("client connected")
	defer logger.Info("client disconnected")

	session, err := h.factory(logger)
	if err != nil {
		logger.Error("creating session failed", err)
		_ = conn.writeJSON(voicelive.BridgeEvent{Type: voicelive.EventError, Message: "session setup failed"})
		_ = raw.Close()
		return
	}

	ctx := r.Context()
	if err := session.Connect(ctx); err != nil {
		logger.Error("connecting session failed", err)
		_ = conn.writeJSON(voicelive.BridgeEvent{Type: voicelive.EventError, Message: "upstream connection failed"})
		_ = raw.Close()
		return
	}
	defer func() {
		cleanup, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		session.Disconnect(cleanup)
	}()

	// Forward session events until the upstream stream ends, then close the
	// client socket to release the read loop.
	go func() {
		for ev := range session.Events() {
			if err := conn.writeJSON(ev); err != nil {
				logger.Warn("writing event to client failed", zap.Error(err))
				return
			}
		}
		_ = raw.Close()
	}()

	h.readLoop(ctx, logger, conn, raw, session)
}

func (h *Handler) readLoop(ctx context.Context, logger shared.LoggerAdapter, conn *wsConn, raw *websocket.Conn, session *voicelive.Session) {
	limiter := newRateLimiter(messagesPerSecond, time.Second)
	for {
		_, payload, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("client read error", zap.Error(err))
			}
			return
		}
		if !limiter.Allow() {
			logger.Warn("client message rate limit exceeded, dropping message")
			continue
		}

		var msg clientMessage
		if err := sonic.Unmarshal(payload, &msg); err != nil {
			logger.Warn("malformed client message", zap.Error(err))
			_ = conn.writeJSON(voicelive.BridgeEvent{Type: voicelive.EventError, Message: "malformed message"})
			continue
		}
		h.dispatch(ctx, logger, conn, session, &msg)
	}
}

func (h *Handler) dispatch(ctx context.Context, logger shared.LoggerAdapter, conn *wsConn, session *voicelive.Session, msg *clientMessage) {
	switch msg.Type {
	case msgAudio:
		if err := validateAudioChunk(msg.Data); err != nil {
			logger.Warn("rejecting audio chunk", zap.Error(err))
			_ = conn.writeJSON(voicelive.BridgeEvent{Type: voicelive.EventAudioDropped, Reason: err.Error()})
			return
		}
		if !session.SendAudio(ctx, msg.Data) {
			_ = conn.writeJSON(voicelive.BridgeEvent{Type: voicelive.EventAudioDropped, Reason: "session not ready"})
		}

	case msgText:
		if err := validateText(msg.Text); err != nil {
			logger.Warn("rejecting text message", zap.Error(err))
			_ = conn.writeJSON(voicelive.BridgeEvent{Type: voicelive.EventTextDropped, Reason: err.Error()})
			return
		}
		if !session.SendText(ctx, msg.Text) {
			_ = conn.writeJSON(voicelive.BridgeEvent{Type: voicelive.EventTextDropped, Reason: "session not ready"})
		}

	case msgAvatarSDP:
		if err := validateSDP(msg.SDP); err != nil {
			logger.Warn("rejecting avatar SDP", zap.Error(err))
			_ = conn.writeJSON(voicelive.BridgeEvent{Type: voicelive.EventError, Message: err.Error()})
			return
		}
		if !session.SendAvatarSDP(ctx, msg.SDP) {
			_ = conn.writeJSON(voicelive.BridgeEvent{Type: voicelive.EventError, Message: "avatar negotiation failed"})
		}

	case msgResponseTrigger:
		session.TriggerResponse(ctx)

	case msgModeSet:
		session.SetMode(ctx, msg.TurnBased)

	default:
		logger.Warn("unknown client message type", zap.String("type", msg.Type))
		_ = conn.writeJSON(voicelive.BridgeEvent{Type: voicelive.EventError, Message: "unknown message type"})
	}
}
