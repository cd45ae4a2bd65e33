package voicelive

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *Session) rewindDebounce() {
	s.injector.mu.Lock()
	s.injector.lastTime = time.Now().Add(-2 * contextDebounce)
	s.injector.mu.Unlock()
}

func waitForCalls(t *testing.T, provider *fakeProvider, want int) {
	t.Helper()
	require.Eventually(t, func() bool { return provider.calls() == want },
		time.Second, 10*time.Millisecond)
}

func TestInjectionSendsAugmentedInstructions(t *testing.T) {
	provider := &fakeProvider{snippet: "Relevant information from knowledge base:\n- opening hours 9-5"}
	s, conn := newConnectedSession(t, func(s *Session) {
		require.NoError(t, s.SetContextProvider(provider))
	})
	s.ready.Store(true)

	s.requestInjection("when are you open")
	waitForCalls(t, provider, 1)

	require.Eventually(t, func() bool {
		for _, cmd := range conn.sentCommands() {
			if update, ok := cmd.(*SessionUpdateCommand); ok &&
				strings.Contains(update.Session.Instructions, "opening hours 9-5") {
				return strings.HasPrefix(update.Session.Instructions, "You are a test assistant.")
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestInjectionDebounce(t *testing.T) {
	provider := &fakeProvider{snippet: "facts"}
	s, _ := newConnectedSession(t, func(s *Session) {
		require.NoError(t, s.SetContextProvider(provider))
	})
	s.ready.Store(true)

	s.requestInjection("first query")
	waitForCalls(t, provider, 1)

	s.requestInjection("second query")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, provider.calls(), "burst within the debounce window is dropped")

	s.rewindDebounce()
	s.requestInjection("second query")
	waitForCalls(t, provider, 2)
}

func TestInjectionSkipsDuplicateQuery(t *testing.T) {
	provider := &fakeProvider{snippet: "facts"}
	s, _ := newConnectedSession(t, func(s *Session) {
		require.NoError(t, s.SetContextProvider(provider))
	})
	s.ready.Store(true)

	s.requestInjection("What Is The Price")
	waitForCalls(t, provider, 1)

	s.rewindDebounce()
	s.requestInjection("  what is the price ")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, provider.calls(), "case and whitespace variants are the same query")

	s.rewindDebounce()
	s.requestInjection("what is the delivery time")
	waitForCalls(t, provider, 2)
}

func TestInjectionSingleFlight(t *testing.T) {
	provider := &fakeProvider{snippet: "facts", block: make(chan struct{})}
	s, _ := newConnectedSession(t, func(s *Session) {
		require.NoError(t, s.SetContextProvider(provider))
	})
	s.ready.Store(true)

	s.requestInjection("slow query")
	waitForCalls(t, provider, 1)

	s.rewindDebounce()
	s.requestInjection("another query")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, provider.calls(), "concurrent retrieval is skipped, not queued")

	close(provider.block)
	require.Eventually(t, func() bool { return !s.injector.inFlight.Load() },
		time.Second, 10*time.Millisecond)

	s.rewindDebounce()
	s.requestInjection("third query")
	waitForCalls(t, provider, 2)
}

func TestInjectionWithoutProviderIsNoop(t *testing.T) {
	s, conn := newConnectedSession(t, nil)
	s.ready.Store(true)

	before := len(conn.sentCommands())
	s.requestInjection("anything")
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, conn.sentCommands(), before)
}

func TestInjectionEmptySnippetSendsNothing(t *testing.T) {
	provider := &fakeProvider{snippet: ""}
	s, conn := newConnectedSession(t, func(s *Session) {
		require.NoError(t, s.SetContextProvider(provider))
	})
	s.ready.Store(true)

	before := len(conn.sentCommands())
	s.requestInjection("query with no matches")
	waitForCalls(t, provider, 1)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, conn.sentCommands(), before)
}
