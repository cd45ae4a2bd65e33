package voicelive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTurnDetection(t *testing.T) {
	live := buildTurnDetection(false)
	assert.True(t, live.CreateResponse)
	assert.Equal(t, silenceDurationLiveMs, live.SilenceDurationMs)

	turnBased := buildTurnDetection(true)
	assert.False(t, turnBased.CreateResponse)
	assert.Equal(t, silenceDurationTurnBasedMs, turnBased.SilenceDurationMs)
	require.NotNil(t, turnBased.EndOfUtteranceDetection)
	assert.Equal(t, eouTimeoutMs, turnBased.EndOfUtteranceDetection.TimeoutMs)
}

func TestBuildVoice(t *testing.T) {
	structured, ok := buildVoice("en-US-AvaMultilingualNeural").(AzureVoice)
	require.True(t, ok)
	assert.Equal(t, "azure-standard", structured.Type)

	plain, ok := buildVoice("alloy").(string)
	require.True(t, ok)
	assert.Equal(t, "alloy", plain)
}

func TestBuildAvatar(t *testing.T) {
	assert.Nil(t, buildAvatar(AvatarConfig{}))

	video := buildAvatar(AvatarConfig{Character: "lisa", Style: "casual-sitting", Bitrate: 2_000_000})
	require.NotNil(t, video)
	assert.Equal(t, "video-avatar", video.Type)
	assert.Equal(t, "casual-sitting", video.Style)
	assert.Equal(t, VideoResolution{Width: 1280, Height: 720}, video.Video.Resolution)
	assert.False(t, video.Customized)

	photo := buildAvatar(AvatarConfig{Character: "maya", BaseModel: "live-2d"})
	require.NotNil(t, photo)
	assert.Equal(t, "photo-avatar", photo.Type)
	assert.Equal(t, "live-2d", photo.Model)
	assert.Equal(t, VideoResolution{Width: 512, Height: 512}, photo.Video.Resolution)
	assert.True(t, photo.Customized, "photo avatars are always customized")
}

func TestBuildSessionPayload(t *testing.T) {
	cfg := testConfig()
	cfg.InputLanguages = "en,zh"
	cfg.MaxResponseTokens = 512

	payload := buildSessionPayload(cfg, false)
	assert.Equal(t, []string{"text", "audio"}, payload.Modalities)
	assert.Equal(t, "pcm16", payload.InputAudioFormat)
	assert.Equal(t, "pcm16", payload.OutputAudioFormat)
	require.NotNil(t, payload.InputAudioTranscription)
	assert.Equal(t, "whisper-1", payload.InputAudioTranscription.Model)
	assert.Equal(t, "en,zh", payload.InputAudioTranscription.Language)
	assert.Equal(t, 512, payload.MaxResponseOutputTokens)
	require.NotNil(t, payload.Avatar)
	require.NotNil(t, payload.NoiseReduction)
	assert.Equal(t, "azure_deep_noise_suppression", payload.NoiseReduction.Type)
	require.NotNil(t, payload.EchoCancellation)
}
