package voicelive

import (
	"encoding/base64"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSDP = "v=0\r\no=- 4611731400430051336 2 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\n"

func TestEncodeClientSDP(t *testing.T) {
	encoded := EncodeClientSDP(sampleSDP)

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)

	var envelope map[string]string
	require.NoError(t, sonic.Unmarshal(decoded, &envelope))
	assert.Equal(t, "offer", envelope["type"])
	assert.Equal(t, sampleSDP, envelope["sdp"])
}

func TestDecodeServerSDP(t *testing.T) {
	envelope, err := sonic.Marshal(map[string]string{"type": "answer", "sdp": sampleSDP})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain SDP passes through", sampleSDP, sampleSDP},
		{"base64 JSON envelope", base64.StdEncoding.EncodeToString(envelope), sampleSDP},
		{"base64 quoted text", base64.StdEncoding.EncodeToString([]byte(`"not an object"`)), `"not an object"`},
		{"not base64", "%%% definitely not base64 %%%", "%%% definitely not base64 %%%"},
		{"base64 of non-JSON", base64.StdEncoding.EncodeToString([]byte("just text")), base64.StdEncoding.EncodeToString([]byte("just text"))},
		{"base64 of binary", base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe, 0x00, 0x01}), base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe, 0x00, 0x01})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeServerSDP(tt.in))
		})
	}
}

func TestSDPRoundTrip(t *testing.T) {
	assert.Equal(t, sampleSDP, DecodeServerSDP(EncodeClientSDP(sampleSDP)))
}
