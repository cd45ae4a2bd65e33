package voicelive

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bt-bridge/voicelive-avatar/shared"
	"github.com/goccy/go-yaml"
	"go.uber.org/zap"
)

// Number of recent user utterances kept for retrieval hints.
const utteranceHistorySize = 3

// Bound on the synchronous full-response agent call in turn-based mode.
const agentResponseTimeout = 30 * time.Second

// ContextProvider supplies best-effort knowledge-base context. May be slow or
// unavailable; every call is bounded by the caller's context.
type ContextProvider interface {
	GetContext(ctx context.Context, query, threadID string, priorUtterances []string) (string, error)
	CreateThread(ctx context.Context) (string, error)
	DeleteThread(ctx context.Context, threadID string) error
}

// ResponseAgent produces a complete response for a query. Used only in
// turn-based mode, where it replaces the realtime service's own generation.
type ResponseAgent interface {
	ProcessQuery(ctx context.Context, query string) (string, error)
}

// Session owns one realtime connection: readiness, turn-taking, in-flight
// response tracking, interruption, and outbound command sequencing. It is
// safe for concurrent use by the event loop, the input handler, and the
// event-forwarding task of a single connection; sessions are never shared.
type Session struct {
	logger   shared.LoggerAdapter
	cfg      *SessionConfig
	dialer   Dialer
	provider ContextProvider
	agent    ResponseAgent

	mu         sync.Mutex
	conn       Conn
	used       bool
	utterances []string
	threadID   string
	iceServers []ICEServer

	ready          atomic.Bool
	responseActive atomic.Bool
	turnBased      atomic.Bool
	audioChunks    atomic.Int64

	injector injector
	tasks    *taskGroup
	events   chan BridgeEvent
}

func NewSession(logger shared.LoggerAdapter, cfg *SessionConfig) (*Session, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	if cfg == nil {
		return nil, shared.ErrNoConfig
	}
	s := &Session{
		logger: logger,
		cfg:    cfg,
		dialer: DialVoiceLive,
		events: make(chan BridgeEvent, eventQueueSize),
	}
	s.turnBased.Store(cfg.TurnBased)
	return s, nil
}

// SetDialer replaces the connection dialer. Must be called before Connect.
func (s *Session) SetDialer(d Dialer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return shared.ErrSessionActive
	}
	s.dialer = d
	return nil
}

// SetContextProvider enables context augmentation. Must be called before
// Connect.
func (s *Session) SetContextProvider(p ContextProvider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return shared.ErrSessionActive
	}
	s.provider = p
	return nil
}

// SetResponseAgent enables the full-response path in turn-based mode. Must be
// called before Connect.
func (s *Session) SetResponseAgent(a ResponseAgent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return shared.ErrSessionActive
	}
	s.agent = a
	return nil
}

// Ready reports whether the configuration handshake has been acknowledged.
func (s *Session) Ready() bool {
	return s.ready.Load()
}

// TurnBased reports the current turn-taking mode.
func (s *Session) TurnBased() bool {
	return s.turnBased.Load()
}

// Events yields translated client-facing events. The channel is closed when
// the realtime stream ends.
func (s *Session) Events() <-chan BridgeEvent {
	return s.events
}

// Connect opens the realtime connection and sends the configuration
// handshake. It returns once the handshake is on the wire; readiness arrives
// asynchronously with the acknowledgment event. A handshake send failure is
// fatal; a thread-creation failure is not. A Session serves exactly one
// connection; after Disconnect a new Session must be created.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil || s.used {
		return shared.ErrSessionActive
	}

	conn, err := s.dialer(ctx, s.logger, s.cfg)
	if err != nil {
		return fmt.Errorf("connecting session: %w", err)
	}

	payload := buildSessionPayload(s.cfg, s.turnBased.Load())
	if cfgYaml, err := yaml.MarshalWithOptions(payload, yaml.UseJSONMarshaler()); err == nil {
		s.logger.Debug("session config", zap.ByteString("config", cfgYaml))
	}

	hsCtx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()
	if err := conn.Send(hsCtx, NewSessionUpdate(payload)); err != nil {
		closeCtx, cancelClose := context.WithTimeout(context.Background(), disconnectTimeout)
		defer cancelClose()
		if cerr := conn.Close(closeCtx); cerr != nil {
			s.logger.Error("closing connection after failed handshake", cerr)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return shared.ErrHandshakeTimeout
		}
		return fmt.Errorf("sending configuration handshake: %w", err)
	}

	if s.provider != nil {
		threadID, err := s.provider.CreateThread(ctx)
		if err != nil {
			s.logger.Warn("creating provider thread failed", zap.Error(err))
		} else if threadID != "" {
			s.threadID = threadID
			s.logger.Info("created provider thread", zap.String("thread_id", threadID))
		}
	}

	s.conn = conn
	s.used = true
	s.tasks = newTaskGroup(context.Background())
	s.tasks.Go(s.runEventLoop)
	return nil
}

// SendAudio forwards a base64 audio chunk. Reports false when the chunk is
// dropped because the session is not ready or the send failed.
func (s *Session) SendAudio(ctx context.Context, audioBase64 string) bool {
	if !s.ready.Load() {
		s.logger.Warn("audio dropped: session not ready")
		return false
	}
	if n := s.audioChunks.Add(1); n%100 == 1 {
		s.logger.Info("audio streaming", zap.Int64("chunks", n), zap.Int("size", len(audioBase64)))
	}
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := s.send(ctx, NewAudioAppend(audioBase64)); err != nil {
		s.logger.Warn("audio send failed", zap.Error(err))
		return false
	}
	return true
}

// SendText submits a typed user message. In turn-based mode with a response
// agent the complete reply is generated here and handed to the service for
// rendering only; otherwise the service generates its own response, steered
// by asynchronously injected context.
func (s *Session) SendText(ctx context.Context, text string) bool {
	if !s.ready.Load() {
		s.logger.Warn("text dropped: session not ready")
		return false
	}
	s.pushUtterance(text)

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := s.send(sendCtx, NewUserMessage(text)); err != nil {
		s.logger.Warn("user message send failed", zap.Error(err))
		return false
	}

	if s.turnBased.Load() && s.agent != nil {
		if ok := s.renderAgentResponse(ctx, text); ok {
			return true
		}
		s.logger.Warn("response agent yielded nothing, falling back to service generation")
	}

	s.requestInjection(text)
	createCtx, cancelCreate := context.WithTimeout(ctx, sendTimeout)
	defer cancelCreate()
	if err := s.send(createCtx, NewResponseCreate()); err != nil {
		s.logger.Warn("response create failed", zap.Error(err))
		return false
	}
	return true
}

// renderAgentResponse runs the full-response agent synchronously and, on
// success, injects the reply as a pre-formed assistant message followed by a
// render request.
func (s *Session) renderAgentResponse(ctx context.Context, query string) bool {
	agentCtx, cancel := context.WithTimeout(ctx, agentResponseTimeout)
	defer cancel()
	response, err := s.agent.ProcessQuery(agentCtx, query)
	if err != nil {
		s.logger.Warn("response agent failed", zap.Error(err))
		return false
	}
	if response == "" {
		return false
	}
	sendCtx, cancelSend := context.WithTimeout(ctx, sendTimeout)
	err = s.send(sendCtx, NewAssistantMessage(response))
	cancelSend()
	if err != nil {
		s.logger.Warn("assistant message send failed", zap.Error(err))
		return false
	}
	createCtx, cancelCreate := context.WithTimeout(ctx, sendTimeout)
	defer cancelCreate()
	if err := s.send(createCtx, NewResponseCreate()); err != nil {
		s.logger.Warn("render request failed", zap.Error(err))
		return false
	}
	return true
}

// TriggerResponse explicitly requests a response. Used in turn-based mode
// where silence never auto-triggers one.
func (s *Session) TriggerResponse(ctx context.Context) bool {
	if !s.ready.Load() {
		s.logger.Warn("cannot trigger response: session not ready")
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := s.send(ctx, NewResponseCreate()); err != nil {
		s.logger.Warn("trigger response failed", zap.Error(err))
		return false
	}
	return true
}

// SetMode switches turn-taking at runtime. Affects subsequent turns only.
func (s *Session) SetMode(ctx context.Context, turnBased bool) bool {
	if !s.ready.Load() {
		s.logger.Warn("cannot set mode: session not ready")
		return false
	}
	s.turnBased.Store(turnBased)
	s.logger.Info("switching turn-taking mode", zap.Bool("turn_based", turnBased))

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	update := SessionPayload{TurnDetection: buildTurnDetection(turnBased)}
	if err := s.send(ctx, NewSessionUpdate(update)); err != nil {
		s.logger.Warn("mode update failed", zap.Error(err))
		return false
	}
	return true
}

// SendAvatarSDP relays the browser's offer, wrapped in the opaque envelope.
func (s *Session) SendAvatarSDP(ctx context.Context, clientSDP string) bool {
	s.mu.Lock()
	connected := s.conn != nil
	s.mu.Unlock()
	if !connected {
		s.logger.Warn("cannot send avatar SDP: no connection")
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := s.send(ctx, NewAvatarConnect(EncodeClientSDP(clientSDP))); err != nil {
		s.logger.Warn("avatar connect failed", zap.Error(err))
		return false
	}
	s.logger.Info("avatar connect sent", zap.Int("sdp_chars", len(clientSDP)))
	return true
}

// Disconnect tears the session down: background tasks are cancelled and
// awaited (bounded), the provider thread is deleted exactly once, the
// connection is closed, and readiness is cleared. Idempotent and safe on a
// session that never connected.
func (s *Session) Disconnect(ctx context.Context) {
	s.mu.Lock()
	tasks := s.tasks
	s.mu.Unlock()
	if tasks != nil {
		if !tasks.Shutdown(errors.New("session disconnecting"), disconnectTimeout) {
			s.logger.Warn("abandoning background tasks that did not stop in time")
		}
	}

	s.mu.Lock()
	threadID := s.threadID
	s.threadID = ""
	s.utterances = nil
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if threadID != "" && s.provider != nil {
		delCtx, cancel := context.WithTimeout(ctx, disconnectTimeout)
		defer cancel()
		if err := s.provider.DeleteThread(delCtx, threadID); err != nil {
			s.logger.Warn("deleting provider thread failed", zap.Error(err), zap.String("thread_id", threadID))
		}
	}

	if conn != nil {
		closeCtx, cancel := context.WithTimeout(ctx, disconnectTimeout)
		defer cancel()
		if err := conn.Close(closeCtx); err != nil {
			s.logger.Error("closing realtime connection", err)
		}
	}

	s.ready.Store(false)
	s.logger.Info("session disconnected")
}

// runEventLoop consumes the realtime stream in arrival order and feeds the
// translator. The loop owns the outbound events channel.
func (s *Session) runEventLoop(ctx context.Context) {
	defer close(s.events)
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-conn.Events():
			if !ok {
				return
			}
			out := s.translate(ev)
			if out == nil {
				continue
			}
			// The client queue is bounded; a slow consumer loses events
			// instead of stalling the realtime path.
			select {
			case s.events <- *out:
			default:
				s.logger.Warn("client event queue full, dropping event", zap.String("type", out.Type))
			}
		}
	}
}

func (s *Session) send(ctx context.Context, cmd Command) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return shared.ErrSessionNotConnected
	}
	return conn.Send(ctx, cmd)
}

// pushUtterance records a user utterance, evicting the oldest past the cap.
func (s *Session) pushUtterance(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.utterances = append(s.utterances, text)
	if len(s.utterances) > utteranceHistorySize {
		s.utterances = s.utterances[len(s.utterances)-utteranceHistorySize:]
	}
}

// priorUtterances returns the conversation hint for retrieval: everything
// before the current query, or nil when there is no prior history.
func (s *Session) priorUtterances() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.utterances) <= 1 {
		return nil
	}
	prior := make([]string, len(s.utterances)-1)
	copy(prior, s.utterances[:len(s.utterances)-1])
	return prior
}

func (s *Session) threadHandle() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadID
}

// ICEServers returns the servers cached from the configuration
// acknowledgment.
func (s *Session) ICEServers() []ICEServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iceServers
}
