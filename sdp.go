package voicelive

import (
	"encoding/base64"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	"github.com/pion/webrtc/v4"
)

// Plain SDP always starts with the protocol version line.
const sdpVersionPrefix = "v=0"

// EncodeClientSDP wraps a browser offer in the opaque JSON envelope the
// service expects and transport-encodes it.
func EncodeClientSDP(clientSDP string) string {
	payload, err := sonic.Marshal(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  clientSDP,
	})
	if err != nil {
		// SessionDescription marshaling cannot fail on plain strings.
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(payload)
}

// DecodeServerSDP unwraps the server answer. The service may return plain
// SDP, a base64 JSON envelope, or base64 plain text; anything that fails to
// decode is returned unchanged.
func DecodeServerSDP(raw string) string {
	if raw == "" {
		return ""
	}
	if len(raw) >= len(sdpVersionPrefix) && raw[:len(sdpVersionPrefix)] == sdpVersionPrefix {
		return raw
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || !utf8.Valid(decoded) {
		return raw
	}
	var payload any
	if err := sonic.Unmarshal(decoded, &payload); err != nil {
		return raw
	}
	if obj, ok := payload.(map[string]any); ok {
		if sdp, ok := obj["sdp"].(string); ok {
			return sdp
		}
	}
	return string(decoded)
}
