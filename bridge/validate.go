package bridge

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// Client payload caps. Oversized input is rejected before it reaches the
// session.
const (
	maxAudioChunkBytes = 100 * 1024
	maxSDPBytes        = 10 * 1024
	maxTextChars       = 4 * 1024
)

var (
	errEmptyPayload = errors.New("empty payload")
	errNotBase64    = errors.New("payload is not valid base64")
)

func validateAudioChunk(data string) error {
	if data == "" {
		return errEmptyPayload
	}
	if len(data) > maxAudioChunkBytes {
		return fmt.Errorf("audio chunk exceeds %d bytes", maxAudioChunkBytes)
	}
	if _, err := base64.StdEncoding.DecodeString(data); err != nil {
		return errNotBase64
	}
	return nil
}

func validateSDP(sdp string) error {
	if sdp == "" {
		return errEmptyPayload
	}
	if len(sdp) > maxSDPBytes {
		return fmt.Errorf("SDP exceeds %d bytes", maxSDPBytes)
	}
	return nil
}

func validateText(text string) error {
	if text == "" {
		return errEmptyPayload
	}
	if len(text) > maxTextChars {
		return fmt.Errorf("text exceeds %d characters", maxTextChars)
	}
	return nil
}
