// Package websocket wraps gobwas/ws with a channel-based duplex client.
package websocket

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bt-bridge/voicelive-avatar/shared"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"
)

const defaultDialTimeout = 10 * time.Second

type Config struct {
	URL         string
	Headers     http.Header
	DialTimeout time.Duration
	Logger      shared.LoggerAdapter
	// OnText is called from the read loop for every text frame.
	OnText func(data []byte)
}

type Client struct {
	out      chan wsutil.Message
	done     chan struct{}
	doneOnce sync.Once
	logger   shared.LoggerAdapter
}

func (c *Client) setDone() {
	c.doneOnce.Do(func() {
		close(c.done)
	})
}

// Done is closed once the connection is no longer usable.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// SendText queues a text frame for the writer loop. It never blocks past the
// given context deadline.
func (c *Client) SendText(ctx context.Context, data []byte) error {
	select {
	case c.out <- wsutil.Message{OpCode: ws.OpText, Payload: data}:
		return nil
	case <-c.done:
		return shared.ErrConnClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) Close(ctx context.Context) error {
	select {
	case c.out <- wsutil.Message{
		OpCode:  ws.OpClose,
		Payload: ws.NewCloseFrameBody(ws.StatusNormalClosure, "closing"),
	}:
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		c.setDone()
		return ctx.Err()
	}
}

func Connect(ctx context.Context, config Config) (*Client, error) {
	if config.Logger == nil {
		return nil, shared.ErrNoLogger
	}
	logger := config.Logger.With(zap.String("url", config.URL))

	dialTimeout := config.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = defaultDialTimeout
	}
	hsCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	d := ws.Dialer{
		Timeout: dialTimeout,
		Header:  ws.HandshakeHeaderHTTP(config.Headers),
	}
	conn, buf, _, err := d.Dial(hsCtx, config.URL)
	if err != nil {
		return nil, err
	}
	if buf != nil {
		ws.PutReader(buf)
	}
	logger.Info("websocket connected")

	client := &Client{
		out:    make(chan wsutil.Message, 64),
		done:   make(chan struct{}),
		logger: logger,
	}

	onText := config.OnText
	if onText == nil {
		onText = func([]byte) {}
	}

	// reader: frames -> handler
	go func() {
		defer client.setDone()
		defer conn.Close()
		for {
			messages, err := wsutil.ReadServerMessage(conn, nil)
			if err != nil {
				if !errors.Is(err, io.EOF) {
					logger.Debug("websocket read ended", zap.Error(err))
				}
				return
			}
			for _, msg := range messages {
				if ws.OpCode.IsControl(msg.OpCode) {
					if err := wsutil.HandleServerControlMessage(conn, msg); err != nil {
						logger.Warn("handling control message failed", zap.Error(err))
					}
					if msg.OpCode == ws.OpClose {
						return
					}
					continue
				}
				if msg.OpCode == ws.OpText {
					onText(msg.Payload)
				}
			}
		}
	}()

	// writer: out channel -> frames
	go func() {
		for {
			select {
			case <-ctx.Done():
				client.setDone()
				return
			case <-client.done:
				return
			case msg := <-client.out:
				if err := wsutil.WriteClientMessage(conn, msg.OpCode, msg.Payload); err != nil {
					logger.Warn("websocket write failed", zap.Error(err))
					client.setDone()
					return
				}
				if msg.OpCode == ws.OpClose {
					client.setDone()
					return
				}
			}
		}
	}()

	return client, nil
}
