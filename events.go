package voicelive

import (
	"github.com/bytedance/sonic"
)

// Server event type tags, as sent by the VoiceLive service.
const (
	serverEventError                  = "error"
	serverEventSessionUpdated         = "session.updated"
	serverEventAvatarConnecting       = "session.avatar.connecting"
	serverEventAvatarConnected        = "session.avatar.connected"
	serverEventAvatarError            = "session.avatar.error"
	serverEventAvatarFailed           = "session.avatar.failed"
	serverEventSpeechStarted          = "input_audio_buffer.speech_started"
	serverEventSpeechStopped          = "input_audio_buffer.speech_stopped"
	serverEventTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"
	serverEventResponseCreated        = "response.created"
	serverEventResponseAudioDelta     = "response.audio.delta"
	serverEventResponseAudioDone      = "response.audio.done"
	serverEventTranscriptDelta        = "response.audio_transcript.delta"
	serverEventTranscriptDone         = "response.audio_transcript.done"
	serverEventResponseDone           = "response.done"
	serverEventResponseCancelled      = "response.cancelled"
	serverEventAudioTimestampDelta    = "response.audio_timestamp.delta"
)

// ServerEvent is the closed set of inbound realtime events. Events the bridge
// does not care about decode to *RawEvent and are dropped by the translator.
type ServerEvent interface {
	ServerEventType() string
}

// ICEServer describes a connectivity server relayed to the browser for the
// avatar media handshake.
type ICEServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

type ErrorDetail struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type ErrorEvent struct {
	Error ErrorDetail `json:"error"`
}

func (*ErrorEvent) ServerEventType() string { return serverEventError }

// SessionUpdated acknowledges the configuration handshake. Its arrival marks
// the session ready; the avatar block carries the ICE servers.
type SessionUpdated struct {
	Session struct {
		Avatar *struct {
			IceServers []ICEServer `json:"ice_servers"`
		} `json:"avatar"`
	} `json:"session"`
}

func (*SessionUpdated) ServerEventType() string { return serverEventSessionUpdated }

type AvatarConnecting struct {
	ServerSDP string `json:"server_sdp"`
}

func (*AvatarConnecting) ServerEventType() string { return serverEventAvatarConnecting }

type AvatarConnected struct{}

func (*AvatarConnected) ServerEventType() string { return serverEventAvatarConnected }

// AvatarFailed covers both the error and failed variants of the avatar
// handshake going wrong.
type AvatarFailed struct {
	Type    string       `json:"type"`
	Message string       `json:"message"`
	Error   *ErrorDetail `json:"error"`
}

func (e *AvatarFailed) ServerEventType() string {
	if e.Type == serverEventAvatarFailed {
		return serverEventAvatarFailed
	}
	return serverEventAvatarError
}

type SpeechStarted struct {
	AudioStartMs int64  `json:"audio_start_ms"`
	ItemID       string `json:"item_id"`
}

func (*SpeechStarted) ServerEventType() string { return serverEventSpeechStarted }

type SpeechStopped struct {
	AudioEndMs int64  `json:"audio_end_ms"`
	ItemID     string `json:"item_id"`
}

func (*SpeechStopped) ServerEventType() string { return serverEventSpeechStopped }

type TranscriptionCompleted struct {
	ItemID     string `json:"item_id"`
	Transcript string `json:"transcript"`
}

func (*TranscriptionCompleted) ServerEventType() string { return serverEventTranscriptionCompleted }

type ResponseCreated struct {
	Response map[string]any `json:"response"`
}

func (*ResponseCreated) ServerEventType() string { return serverEventResponseCreated }

type ResponseAudioDelta struct {
	Delta string `json:"delta"` // base64 PCM16
}

func (*ResponseAudioDelta) ServerEventType() string { return serverEventResponseAudioDelta }

type ResponseAudioDone struct{}

func (*ResponseAudioDone) ServerEventType() string { return serverEventResponseAudioDone }

type TranscriptDelta struct {
	Delta string `json:"delta"`
}

func (*TranscriptDelta) ServerEventType() string { return serverEventTranscriptDelta }

type TranscriptDone struct {
	Transcript string `json:"transcript"`
}

func (*TranscriptDone) ServerEventType() string { return serverEventTranscriptDone }

type ResponseDone struct{}

func (*ResponseDone) ServerEventType() string { return serverEventResponseDone }

type ResponseCancelled struct{}

func (*ResponseCancelled) ServerEventType() string { return serverEventResponseCancelled }

// AudioTimestampDelta carries word-level timestamps used for avatar lip sync.
type AudioTimestampDelta struct {
	Text          string `json:"text"`
	AudioOffsetMs int64  `json:"audio_offset_ms"`
}

func (*AudioTimestampDelta) ServerEventType() string { return serverEventAudioTimestampDelta }

// RawEvent holds any event type outside the closed set above.
type RawEvent struct {
	Type string
	Data []byte
}

func (e *RawEvent) ServerEventType() string { return e.Type }

var serverEventFactories = map[string]func() ServerEvent{
	serverEventError:                  func() ServerEvent { return new(ErrorEvent) },
	serverEventSessionUpdated:         func() ServerEvent { return new(SessionUpdated) },
	serverEventAvatarConnecting:       func() ServerEvent { return new(AvatarConnecting) },
	serverEventAvatarConnected:        func() ServerEvent { return new(AvatarConnected) },
	serverEventAvatarError:            func() ServerEvent { return new(AvatarFailed) },
	serverEventAvatarFailed:           func() ServerEvent { return new(AvatarFailed) },
	serverEventSpeechStarted:          func() ServerEvent { return new(SpeechStarted) },
	serverEventSpeechStopped:          func() ServerEvent { return new(SpeechStopped) },
	serverEventTranscriptionCompleted: func() ServerEvent { return new(TranscriptionCompleted) },
	serverEventResponseCreated:        func() ServerEvent { return new(ResponseCreated) },
	serverEventResponseAudioDelta:     func() ServerEvent { return new(ResponseAudioDelta) },
	serverEventResponseAudioDone:      func() ServerEvent { return new(ResponseAudioDone) },
	serverEventTranscriptDelta:        func() ServerEvent { return new(TranscriptDelta) },
	serverEventTranscriptDone:         func() ServerEvent { return new(TranscriptDone) },
	serverEventResponseDone:           func() ServerEvent { return new(ResponseDone) },
	serverEventResponseCancelled:      func() ServerEvent { return new(ResponseCancelled) },
	serverEventAudioTimestampDelta:    func() ServerEvent { return new(AudioTimestampDelta) },
}

type eventEnvelope struct {
	Type string `json:"type"`
}

// DecodeServerEvent parses a raw service frame into a typed event. Unknown
// types come back as *RawEvent; a field missing for a known type is left at
// its zero value rather than failing the whole frame.
func DecodeServerEvent(data []byte) (ServerEvent, error) {
	var env eventEnvelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	factory, ok := serverEventFactories[env.Type]
	if !ok {
		return &RawEvent{Type: env.Type, Data: data}, nil
	}
	ev := factory()
	if err := sonic.Unmarshal(data, ev); err != nil {
		return nil, err
	}
	return ev, nil
}
