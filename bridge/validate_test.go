package bridge

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAudioChunk(t *testing.T) {
	valid := base64.StdEncoding.EncodeToString(make([]byte, 640))
	assert.NoError(t, validateAudioChunk(valid))

	assert.ErrorIs(t, validateAudioChunk(""), errEmptyPayload)
	assert.ErrorIs(t, validateAudioChunk("!!! not base64 !!!"), errNotBase64)

	oversized := base64.StdEncoding.EncodeToString(make([]byte, maxAudioChunkBytes))
	assert.Error(t, validateAudioChunk(oversized))
}

func TestValidateSDP(t *testing.T) {
	assert.NoError(t, validateSDP("v=0\r\no=- 0 0 IN IP4 127.0.0.1\r\n"))
	assert.ErrorIs(t, validateSDP(""), errEmptyPayload)
	assert.Error(t, validateSDP(strings.Repeat("a", maxSDPBytes+1)))
}

func TestValidateText(t *testing.T) {
	assert.NoError(t, validateText("hello"))
	assert.ErrorIs(t, validateText(""), errEmptyPayload)
	assert.Error(t, validateText(strings.Repeat("a", maxTextChars+1)))
}
