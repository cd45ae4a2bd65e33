package voicelive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateInterruptionCancelsResponse(t *testing.T) {
	s, conn := newConnectedSession(t, nil)
	s.responseActive.Store(true)

	out := s.translate(&SpeechStarted{})
	require.NotNil(t, out)
	assert.Equal(t, EventUserSpeakingStart, out.Type)
	assert.False(t, s.responseActive.Load(), "flag clears synchronously")

	require.Eventually(t, func() bool {
		for _, cmd := range conn.sentCommands() {
			if cmd.CommandType() == "response.cancel" {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestTranslateSpeechStartedWithoutActiveResponse(t *testing.T) {
	s, conn := newConnectedSession(t, nil)
	before := len(conn.sentCommands())

	out := s.translate(&SpeechStarted{})
	require.NotNil(t, out)
	assert.Equal(t, EventUserSpeakingStart, out.Type)

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, conn.sentCommands(), before, "no cancel without an active response")
}

func TestTranslateResponseLifecycle(t *testing.T) {
	s, _ := newConnectedSession(t, nil)

	out := s.translate(&ResponseCreated{})
	assert.Equal(t, EventResponseStarted, out.Type)
	assert.True(t, s.responseActive.Load())

	out = s.translate(&ResponseDone{})
	assert.Equal(t, EventResponseDone, out.Type)
	assert.False(t, s.responseActive.Load())

	s.responseActive.Store(true)
	out = s.translate(&ResponseCancelled{})
	assert.Equal(t, EventResponseCancelled, out.Type)
	assert.False(t, s.responseActive.Load())
}

func TestTranslateTranscription(t *testing.T) {
	s, _ := newConnectedSession(t, nil)

	assert.Nil(t, s.translate(&TranscriptionCompleted{Transcript: "   "}))

	out := s.translate(&TranscriptionCompleted{Transcript: "你好"})
	require.NotNil(t, out)
	assert.Equal(t, EventTranscript, out.Type)
	assert.Equal(t, "user", out.Role)
	assert.Equal(t, "你好", out.Text)
	assert.Equal(t, "ZH", out.Language)
	assert.Equal(t, []string{"你好"}, func() []string {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.utterances
	}())
}

func TestTranslateBenignErrorSuppressed(t *testing.T) {
	s, _ := newConnectedSession(t, nil)

	suppressed := s.translate(&ErrorEvent{Error: ErrorDetail{Code: "response_cancel_not_active", Message: "no active response"}})
	assert.Nil(t, suppressed)

	out := s.translate(&ErrorEvent{Error: ErrorDetail{Code: "server_error", Message: "boom"}})
	require.NotNil(t, out)
	assert.Equal(t, EventError, out.Type)
	assert.Equal(t, "server_error", out.Code)
	assert.Equal(t, "boom", out.Message)
}

func TestTranslateAvatarEvents(t *testing.T) {
	s, _ := newConnectedSession(t, nil)

	sdp := s.translate(&AvatarConnecting{ServerSDP: "v=0\r\nsession"})
	require.NotNil(t, sdp)
	assert.Equal(t, EventAvatarSDP, sdp.Type)
	assert.Equal(t, "v=0\r\nsession", sdp.ServerSDP)

	connected := s.translate(&AvatarConnected{})
	assert.Equal(t, EventAvatarConnected, connected.Type)

	failed := s.translate(&AvatarFailed{Error: &ErrorDetail{Message: "ICE failed"}})
	require.NotNil(t, failed)
	assert.Equal(t, EventAvatarError, failed.Type)
	assert.Equal(t, "ICE failed", failed.Message)

	failedNoDetail := s.translate(&AvatarFailed{})
	assert.Equal(t, "avatar connection failed", failedNoDetail.Message)
}

func TestTranslateEmptyDeltasDropped(t *testing.T) {
	s, _ := newConnectedSession(t, nil)

	assert.Nil(t, s.translate(&ResponseAudioDelta{}))
	assert.Nil(t, s.translate(&TranscriptDelta{}))
	assert.Nil(t, s.translate(&TranscriptDone{Transcript: " "}))

	audio := s.translate(&ResponseAudioDelta{Delta: "AAAA"})
	assert.Equal(t, EventAudioDelta, audio.Type)
	assert.Equal(t, "AAAA", audio.Data)

	delta := s.translate(&TranscriptDelta{Delta: "hel"})
	assert.Equal(t, EventTranscriptDelta, delta.Type)
	assert.Equal(t, "assistant", delta.Role)
}

func TestTranslateAudioTimestamp(t *testing.T) {
	s, _ := newConnectedSession(t, nil)

	out := s.translate(&AudioTimestampDelta{Text: "hello", AudioOffsetMs: 240})
	require.NotNil(t, out)
	assert.Equal(t, EventAudioTimestamp, out.Type)
	assert.Equal(t, "hello", out.Text)
	assert.Equal(t, int64(240), out.OffsetMs)
}

func TestTranslateUnknownEventDropped(t *testing.T) {
	s, _ := newConnectedSession(t, nil)
	assert.Nil(t, s.translate(&RawEvent{Type: "rate_limits.updated"}))
}

func TestEventOrderPreserved(t *testing.T) {
	s, conn := newConnectedSession(t, nil)

	conn.events <- &SessionUpdated{}
	conn.events <- &SpeechStarted{}
	conn.events <- &SpeechStopped{}

	var got []string
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for len(got) < 3 {
		select {
		case ev := <-s.Events():
			got = append(got, ev.Type)
		case <-ctx.Done():
			t.Fatalf("timed out, got %v", got)
		}
	}
	assert.Equal(t, []string{EventSessionReady, EventUserSpeakingStart, EventUserSpeakingStop}, got)
}
