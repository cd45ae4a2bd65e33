package voicelive

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Client-facing event types.
const (
	EventSessionReady      = "session.ready"
	EventAvatarSDP         = "avatar.sdp"
	EventAvatarConnected   = "avatar.connected"
	EventAvatarError       = "avatar.error"
	EventUserSpeakingStart = "user.speaking.started"
	EventUserSpeakingStop  = "user.speaking.stopped"
	EventTranscript        = "transcript"
	EventTranscriptDelta   = "transcript.delta"
	EventResponseStarted   = "assistant.response.started"
	EventResponseDone      = "assistant.response.done"
	EventResponseCancelled = "assistant.response.cancelled"
	EventAudioDelta        = "audio.delta"
	EventSpeakingDone      = "assistant.speaking.done"
	EventAudioTimestamp    = "audio.timestamp"
	EventError             = "error"
	EventAudioDropped      = "audio.dropped"
	EventTextDropped       = "text.dropped"
)

// BridgeEvent is one JSON message for the browser client.
type BridgeEvent struct {
	Type       string      `json:"type"`
	Role       string      `json:"role,omitempty"`
	Text       string      `json:"text,omitempty"`
	Delta      string      `json:"delta,omitempty"`
	Data       string      `json:"data,omitempty"`
	Language   string      `json:"language,omitempty"`
	Message    string      `json:"message,omitempty"`
	Code       string      `json:"code,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	ServerSDP  string      `json:"server_sdp,omitempty"`
	ICEServers []ICEServer `json:"ice_servers,omitempty"`
	OffsetMs   int64       `json:"offset_ms,omitempty"`
}

// Service error codes produced by expected interruption races. Never
// forwarded to the client.
var benignErrorCodes = map[string]struct{}{
	"response_cancel_not_active": {},
}

// translate maps one inbound event to at most one client event, applying the
// session-state side effects along the way. Events are handled strictly in
// arrival order.
func (s *Session) translate(ev ServerEvent) *BridgeEvent {
	switch e := ev.(type) {
	case *SessionUpdated:
		var ice []ICEServer
		if e.Session.Avatar != nil {
			ice = e.Session.Avatar.IceServers
		}
		s.mu.Lock()
		s.iceServers = ice
		s.mu.Unlock()
		s.ready.Store(true)
		s.logger.Info("session ready", zap.Int("ice_servers", len(ice)))
		return &BridgeEvent{Type: EventSessionReady, ICEServers: ice}

	case *AvatarConnecting:
		if e.ServerSDP == "" {
			s.logger.Error("avatar connecting event has no server SDP", nil)
			return &BridgeEvent{Type: EventAvatarSDP}
		}
		return &BridgeEvent{Type: EventAvatarSDP, ServerSDP: DecodeServerSDP(e.ServerSDP)}

	case *AvatarConnected:
		s.logger.Info("avatar media connection established")
		return &BridgeEvent{Type: EventAvatarConnected}

	case *AvatarFailed:
		msg := e.Message
		if msg == "" && e.Error != nil {
			msg = e.Error.Message
		}
		if msg == "" {
			msg = "avatar connection failed"
		}
		s.logger.Error("avatar failed", nil, zap.String("message", msg))
		return &BridgeEvent{Type: EventAvatarError, Message: msg}

	case *SpeechStarted:
		s.logger.Info("user started speaking")
		// Interruption: clear the flag immediately, cancel in the background.
		// The cancel can lose the race with response completion; that failure
		// is expected and swallowed.
		if s.responseActive.CompareAndSwap(true, false) {
			s.logger.Info("cancelling in-progress response (user interruption)")
			s.tasks.Go(func(ctx context.Context) {
				ctx, cancel := context.WithTimeout(ctx, sendTimeout)
				defer cancel()
				if err := s.send(ctx, NewResponseCancel()); err != nil {
					s.logger.Debug("response cancel failed (expected on race)", zap.Error(err))
				}
			})
		}
		return &BridgeEvent{Type: EventUserSpeakingStart}

	case *SpeechStopped:
		s.logger.Info("user stopped speaking")
		return &BridgeEvent{Type: EventUserSpeakingStop}

	case *TranscriptionCompleted:
		if strings.TrimSpace(e.Transcript) == "" {
			return nil
		}
		s.pushUtterance(e.Transcript)
		s.requestInjection(e.Transcript)
		return &BridgeEvent{
			Type:     EventTranscript,
			Role:     "user",
			Text:     e.Transcript,
			Language: DetectLanguage(e.Transcript),
		}

	case *ResponseCreated:
		s.responseActive.Store(true)
		return &BridgeEvent{Type: EventResponseStarted}

	case *ResponseAudioDelta:
		if e.Delta == "" {
			return nil
		}
		return &BridgeEvent{Type: EventAudioDelta, Data: e.Delta}

	case *ResponseAudioDone:
		return &BridgeEvent{Type: EventSpeakingDone}

	case *TranscriptDelta:
		if e.Delta == "" {
			return nil
		}
		return &BridgeEvent{Type: EventTranscriptDelta, Role: "assistant", Delta: e.Delta}

	case *TranscriptDone:
		if strings.TrimSpace(e.Transcript) == "" {
			return nil
		}
		return &BridgeEvent{Type: EventTranscript, Role: "assistant", Text: e.Transcript}

	case *ResponseDone:
		s.responseActive.Store(false)
		return &BridgeEvent{Type: EventResponseDone}

	case *ResponseCancelled:
		s.responseActive.Store(false)
		return &BridgeEvent{Type: EventResponseCancelled}

	case *AudioTimestampDelta:
		return &BridgeEvent{Type: EventAudioTimestamp, Text: e.Text, OffsetMs: e.AudioOffsetMs}

	case *ErrorEvent:
		if _, benign := benignErrorCodes[e.Error.Code]; benign {
			s.logger.Debug("suppressing expected service error",
				zap.String("code", e.Error.Code), zap.String("message", e.Error.Message))
			return nil
		}
		s.logger.Error("service error", nil,
			zap.String("code", e.Error.Code), zap.String("message", e.Error.Message))
		return &BridgeEvent{Type: EventError, Code: e.Error.Code, Message: e.Error.Message}

	default:
		s.logger.Debug("unhandled event", zap.String("type", ev.ServerEventType()))
		return nil
	}
}
