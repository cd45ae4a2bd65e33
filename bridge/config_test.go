package bridge

import (
	"testing"

	"github.com/bt-bridge/voicelive-avatar/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AZURE_VOICELIVE_ENDPOINT", "wss://example.azure.com")
	t.Setenv("AZURE_VOICELIVE_API_KEY", "test-key")
}

func TestLoadSettingsDefaults(t *testing.T) {
	setRequiredEnv(t)

	s, err := LoadSettings(shared.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, ":8080", s.ListenAddr)
	assert.Equal(t, ProviderNone, s.Provider)
	assert.Equal(t, 100, s.MaxResponseTokens)
	assert.Equal(t, "lisa", s.AvatarCharacter)
	assert.Equal(t, 2_000_000, s.AvatarBitrate)
	assert.Empty(t, s.AvatarBaseModel)
	assert.False(t, s.TurnBased)
}

func TestLoadSettingsOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAX_RESPONSE_TOKENS", "512")
	t.Setenv("AVATAR_VIDEO_BITRATE", "1000000")
	t.Setenv("AVATAR_BASE_MODEL", "vasa-1")
	t.Setenv("AVATAR_CHARACTER", "maya")
	t.Setenv("TURN_BASED", "true")
	t.Setenv("INPUT_LANGUAGES", "en, zh")

	s, err := LoadSettings(shared.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, 512, s.MaxResponseTokens)
	assert.Equal(t, 1_000_000, s.AvatarBitrate)
	assert.Equal(t, "vasa-1", s.AvatarBaseModel)
	assert.Equal(t, "maya", s.AvatarCharacter)
	assert.True(t, s.TurnBased)
	assert.Equal(t, []string{"en", "zh"}, s.InputLanguages)
}

func TestLoadSettingsInvalidEnvFallsBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAX_RESPONSE_TOKENS", "not-a-number")
	t.Setenv("AVATAR_VIDEO_BITRATE", "")

	s, err := LoadSettings(shared.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, 100, s.MaxResponseTokens)
	assert.Equal(t, 2_000_000, s.AvatarBitrate)
}

func TestLoadSettingsValidation(t *testing.T) {
	t.Setenv("AZURE_VOICELIVE_ENDPOINT", "")
	t.Setenv("AZURE_VOICELIVE_API_KEY", "key")
	_, err := LoadSettings(shared.NewNopLogger())
	assert.ErrorIs(t, err, shared.ErrNoEndpoint)

	setRequiredEnv(t)
	t.Setenv("AGENT_PROVIDER", "foundry")
	_, err = LoadSettings(shared.NewNopLogger())
	assert.Error(t, err, "foundry provider without credentials must be rejected")
}