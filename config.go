package voicelive

import (
	"strings"
)

// Turn detection timing per mode: turn-based waits longer for silence and
// never auto-responds.
const (
	silenceDurationLiveMs      = 500
	silenceDurationTurnBasedMs = 800
	vadPrefixPaddingMs         = 300
	vadThreshold               = 0.5
	eouTimeoutMs               = 1000
)

// AvatarConfig selects the rendered avatar. A non-empty BaseModel switches
// the session to a photo avatar, which uses a square low-resolution frame.
type AvatarConfig struct {
	Character  string
	Style      string
	BaseModel  string
	Customized bool
	Bitrate    int
}

// SessionConfig carries everything needed to open and configure one realtime
// session.
type SessionConfig struct {
	Endpoint   string
	APIKey     string
	Model      string
	APIVersion string

	Instructions      string
	VoiceName         string
	InputLanguages    string // comma-separated, e.g. "en,zh,ms,ta"
	MaxResponseTokens int
	TurnBased         bool
	Avatar            AvatarConfig
}

// Wire types for the session.update payload.

type AzureVoice struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type EOUDetection struct {
	Type           string `json:"type"`
	ThresholdLevel string `json:"threshold_level"`
	TimeoutMs      int    `json:"timeout_ms"`
}

type TurnDetection struct {
	Type                    string        `json:"type"`
	Threshold               float64       `json:"threshold"`
	PrefixPaddingMs         int           `json:"prefix_padding_ms"`
	SilenceDurationMs       int           `json:"silence_duration_ms"`
	CreateResponse          bool          `json:"create_response"`
	EndOfUtteranceDetection *EOUDetection `json:"end_of_utterance_detection,omitempty"`
}

type VideoResolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type AvatarVideo struct {
	Resolution VideoResolution `json:"resolution"`
	Bitrate    int             `json:"bitrate"`
}

type AvatarPayload struct {
	Type       string      `json:"type"`
	Character  string      `json:"character"`
	Customized bool        `json:"customized"`
	Video      AvatarVideo `json:"video"`
	Style      string      `json:"style,omitempty"`
	Model      string      `json:"model,omitempty"`
}

type InputTranscription struct {
	Model    string `json:"model"`
	Language string `json:"language"`
}

type EchoCancellation struct{}

type NoiseReduction struct {
	Type string `json:"type"`
}

// SessionPayload is the session object of a session.update command. All
// fields are optional on the wire; partial updates (instructions only, turn
// detection only) reuse the same type.
type SessionPayload struct {
	Modalities              []string            `json:"modalities,omitempty"`
	Instructions            string              `json:"instructions,omitempty"`
	Voice                   any                 `json:"voice,omitempty"`
	InputAudioFormat        string              `json:"input_audio_format,omitempty"`
	OutputAudioFormat       string              `json:"output_audio_format,omitempty"`
	TurnDetection           *TurnDetection      `json:"turn_detection,omitempty"`
	InputAudioTranscription *InputTranscription `json:"input_audio_transcription,omitempty"`
	MaxResponseOutputTokens int                 `json:"max_response_output_tokens,omitempty"`
	Avatar                  *AvatarPayload      `json:"avatar,omitempty"`
	EchoCancellation        *EchoCancellation   `json:"input_audio_echo_cancellation,omitempty"`
	NoiseReduction          *NoiseReduction     `json:"input_audio_noise_reduction,omitempty"`
}

func buildTurnDetection(turnBased bool) *TurnDetection {
	silence := silenceDurationLiveMs
	if turnBased {
		silence = silenceDurationTurnBasedMs
	}
	return &TurnDetection{
		Type:              "azure_semantic_vad_multilingual",
		Threshold:         vadThreshold,
		PrefixPaddingMs:   vadPrefixPaddingMs,
		SilenceDurationMs: silence,
		CreateResponse:    !turnBased,
		EndOfUtteranceDetection: &EOUDetection{
			Type:           "azure_semantic_detection_multilingual",
			ThresholdLevel: "medium",
			TimeoutMs:      eouTimeoutMs,
		},
	}
}

func buildVoice(name string) any {
	// Full voice names like en-US-AvaMultilingualNeural need the structured
	// azure-standard form; short aliases go as plain strings.
	if strings.Contains(name, "-") {
		return AzureVoice{Name: name, Type: "azure-standard"}
	}
	return name
}

func buildAvatar(cfg AvatarConfig) *AvatarPayload {
	if cfg.Character == "" {
		return nil
	}
	isPhoto := cfg.BaseModel != ""
	avatar := &AvatarPayload{
		Character:  cfg.Character,
		Customized: cfg.Customized || isPhoto, // photo avatars require customized=true
		Video: AvatarVideo{
			Resolution: VideoResolution{Width: 1280, Height: 720},
			Bitrate:    cfg.Bitrate,
		},
	}
	if isPhoto {
		avatar.Type = "photo-avatar"
		avatar.Model = cfg.BaseModel
		avatar.Video.Resolution = VideoResolution{Width: 512, Height: 512}
	} else {
		avatar.Type = "video-avatar"
		avatar.Style = cfg.Style
	}
	return avatar
}

// buildSessionPayload assembles the full configuration handshake.
func buildSessionPayload(cfg *SessionConfig, turnBased bool) SessionPayload {
	return SessionPayload{
		Modalities:        []string{"text", "audio"},
		Instructions:      cfg.Instructions,
		Voice:             buildVoice(cfg.VoiceName),
		InputAudioFormat:  "pcm16",
		OutputAudioFormat: "pcm16",
		TurnDetection:     buildTurnDetection(turnBased),
		InputAudioTranscription: &InputTranscription{
			Model:    "whisper-1",
			Language: cfg.InputLanguages,
		},
		MaxResponseOutputTokens: cfg.MaxResponseTokens,
		Avatar:                  buildAvatar(cfg.Avatar),
		EchoCancellation:        &EchoCancellation{},
		NoiseReduction:          &NoiseReduction{Type: "azure_deep_noise_suppression"},
	}
}
