package voicelive

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bt-bridge/voicelive-avatar/internal/websocket"
	"github.com/bt-bridge/voicelive-avatar/shared"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// Operation bounds for the realtime connection.
const (
	sendTimeout       = 10 * time.Second
	handshakeTimeout  = 15 * time.Second
	disconnectTimeout = 5 * time.Second
	eventQueueSize    = 100
)

const defaultAPIVersion = "2025-05-01-preview"

// Conn is the duplex channel to the realtime service. Send is bounded by the
// caller's context; the events channel is closed when the stream ends.
type Conn interface {
	Send(ctx context.Context, cmd Command) error
	Events() <-chan ServerEvent
	Close(ctx context.Context) error
}

// Dialer opens a Conn for a session. Swappable so tests can supply a fake.
type Dialer func(ctx context.Context, logger shared.LoggerAdapter, cfg *SessionConfig) (Conn, error)

type liveConn struct {
	ws     *websocket.Client
	logger shared.LoggerAdapter
	events chan ServerEvent
}

var _ Conn = (*liveConn)(nil)

// DialVoiceLive connects to the VoiceLive websocket endpoint.
func DialVoiceLive(ctx context.Context, logger shared.LoggerAdapter, cfg *SessionConfig) (Conn, error) {
	if cfg.Endpoint == "" {
		return nil, shared.ErrNoEndpoint
	}
	if cfg.APIKey == "" {
		return nil, shared.ErrNoAPIKey
	}
	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint: %w", err)
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	endpoint = endpoint.JoinPath("/voice-live/realtime")
	query := endpoint.Query()
	query.Set("api-version", apiVersion)
	query.Set("model", cfg.Model)
	endpoint.RawQuery = query.Encode()

	c := &liveConn{
		logger: logger,
		events: make(chan ServerEvent, eventQueueSize),
	}
	headers := http.Header{}
	headers.Set("api-key", cfg.APIKey)

	c.ws, err = websocket.Connect(ctx, websocket.Config{
		URL:     endpoint.String(),
		Headers: headers,
		Logger:  logger,
		OnText:  c.onFrame,
	})
	if err != nil {
		return nil, fmt.Errorf("dialing realtime service: %w", err)
	}
	go func() {
		<-c.ws.Done()
		close(c.events)
	}()
	return c, nil
}

func (c *liveConn) onFrame(data []byte) {
	ev, err := DecodeServerEvent(data)
	if err != nil {
		c.logger.Warn("dropping undecodable event", zap.Error(err), zap.ByteString("data", data))
		return
	}
	// The event loop is the sole consumer; a full buffer here applies
	// backpressure to the service read loop instead of growing memory.
	select {
	case c.events <- ev:
	case <-c.ws.Done():
	}
}

func (c *liveConn) Send(ctx context.Context, cmd Command) error {
	data, err := sonic.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshaling %s command: %w", cmd.CommandType(), err)
	}
	if err := c.ws.SendText(ctx, data); err != nil {
		return fmt.Errorf("sending %s command: %w", cmd.CommandType(), err)
	}
	return nil
}

func (c *liveConn) Events() <-chan ServerEvent {
	return c.events
}

func (c *liveConn) Close(ctx context.Context) error {
	return c.ws.Close(ctx)
}
