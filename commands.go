package voicelive

import (
	nanoid "github.com/matoous/go-nanoid/v2"
)

// Client command type tags.
const (
	commandSessionUpdate     = "session.update"
	commandItemCreate        = "conversation.item.create"
	commandResponseCreate    = "response.create"
	commandResponseCancel    = "response.cancel"
	commandAudioBufferAppend = "input_audio_buffer.append"
	commandAvatarConnect     = "session.avatar.connect"
)

// Command is an outbound message for the realtime service.
type Command interface {
	CommandType() string
}

type baseCommand struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
}

func (c baseCommand) CommandType() string { return c.Type }

func newBaseCommand(commandType string) baseCommand {
	id, err := nanoid.New()
	if err != nil {
		panic(err)
	}
	return baseCommand{EventID: id, Type: commandType}
}

type SessionUpdateCommand struct {
	baseCommand
	Session SessionPayload `json:"session"`
}

func NewSessionUpdate(session SessionPayload) *SessionUpdateCommand {
	return &SessionUpdateCommand{baseCommand: newBaseCommand(commandSessionUpdate), Session: session}
}

type ContentPart struct {
	Type string `json:"type"` // input_text for user, text for assistant
	Text string `json:"text"`
}

type ConversationItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

type ItemCreateCommand struct {
	baseCommand
	Item ConversationItem `json:"item"`
}

func NewUserMessage(text string) *ItemCreateCommand {
	return &ItemCreateCommand{
		baseCommand: newBaseCommand(commandItemCreate),
		Item: ConversationItem{
			Type:    "message",
			Role:    "user",
			Content: []ContentPart{{Type: "input_text", Text: text}},
		},
	}
}

// NewAssistantMessage injects a pre-formed assistant reply; a following
// response.create renders exactly that content as audio.
func NewAssistantMessage(text string) *ItemCreateCommand {
	return &ItemCreateCommand{
		baseCommand: newBaseCommand(commandItemCreate),
		Item: ConversationItem{
			Type:    "message",
			Role:    "assistant",
			Content: []ContentPart{{Type: "text", Text: text}},
		},
	}
}

type ResponseCreateCommand struct {
	baseCommand
}

func NewResponseCreate() *ResponseCreateCommand {
	return &ResponseCreateCommand{baseCommand: newBaseCommand(commandResponseCreate)}
}

type ResponseCancelCommand struct {
	baseCommand
}

func NewResponseCancel() *ResponseCancelCommand {
	return &ResponseCancelCommand{baseCommand: newBaseCommand(commandResponseCancel)}
}

type AudioAppendCommand struct {
	baseCommand
	Audio string `json:"audio"` // base64 PCM16
}

func NewAudioAppend(audioBase64 string) *AudioAppendCommand {
	return &AudioAppendCommand{baseCommand: newBaseCommand(commandAudioBufferAppend), Audio: audioBase64}
}

type RTCConfiguration struct {
	BundlePolicy string `json:"bundle_policy"`
}

type AvatarConnectCommand struct {
	baseCommand
	ClientSDP        string           `json:"client_sdp"`
	RTCConfiguration RTCConfiguration `json:"rtc_configuration"`
}

func NewAvatarConnect(encodedSDP string) *AvatarConnectCommand {
	return &AvatarConnectCommand{
		baseCommand:      newBaseCommand(commandAvatarConnect),
		ClientSDP:        encodedSDP,
		RTCConfiguration: RTCConfiguration{BundlePolicy: "max-bundle"},
	}
}
