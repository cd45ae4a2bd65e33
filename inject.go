package voicelive

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Rate protection for the retrieval backend.
const (
	contextDebounce = 2 * time.Second
	contextTimeout  = 10 * time.Second
)

// injector debounces and serializes context retrieval so it never blocks the
// realtime event loop and never runs more than one call at a time.
type injector struct {
	mu        sync.Mutex
	lastTime  time.Time
	lastQuery string
	inFlight  atomic.Bool
}

// requestInjection schedules a background retrieval for query. Bursty,
// duplicate, and concurrent requests are dropped, not queued.
func (s *Session) requestInjection(query string) {
	if s.provider == nil {
		return
	}
	inj := &s.injector

	inj.mu.Lock()
	if since := time.Since(inj.lastTime); since < contextDebounce {
		inj.mu.Unlock()
		s.logger.Debug("skipping context retrieval (debounce)", zap.Duration("since_last", since))
		return
	}
	if strings.EqualFold(strings.TrimSpace(query), strings.TrimSpace(inj.lastQuery)) {
		inj.mu.Unlock()
		s.logger.Debug("skipping context retrieval (duplicate query)")
		return
	}
	inj.mu.Unlock()

	if !inj.inFlight.CompareAndSwap(false, true) {
		s.logger.Debug("skipping context retrieval (another call in progress)")
		return
	}
	inj.mu.Lock()
	inj.lastTime = time.Now()
	inj.lastQuery = query
	inj.mu.Unlock()

	s.tasks.Go(func(ctx context.Context) {
		defer inj.inFlight.Store(false)
		s.injectContext(ctx, query)
	})
}

func (s *Session) injectContext(ctx context.Context, query string) {
	ctx, cancel := context.WithTimeout(ctx, contextTimeout)
	defer cancel()

	snippet, err := s.provider.GetContext(ctx, query, s.threadHandle(), s.priorUtterances())
	if err != nil {
		s.logger.Warn("context retrieval failed", zap.Error(err))
		return
	}
	if snippet == "" {
		s.logger.Debug("no relevant context found")
		return
	}

	augmented := s.cfg.Instructions + "\n\n" + snippet
	s.logger.Info("injecting retrieved context", zap.Int("chars", len(snippet)))

	if !s.Ready() {
		return
	}
	sendCtx, cancelSend := context.WithTimeout(ctx, sendTimeout)
	defer cancelSend()
	if err := s.send(sendCtx, NewSessionUpdate(SessionPayload{Instructions: augmented})); err != nil {
		s.logger.Warn("context injection send failed", zap.Error(err))
	}
}
