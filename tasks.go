package voicelive

import (
	"context"
	"sync"
	"time"
)

// taskGroup is the per-session registry of background work. Every
// fire-and-forget goroutine is spawned through Go so that disconnect can
// cancel and await the lot.
type taskGroup struct {
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelCauseFunc
}

func newTaskGroup(parent context.Context) *taskGroup {
	ctx, cancel := context.WithCancelCause(parent)
	return &taskGroup{ctx: ctx, cancel: cancel}
}

func (g *taskGroup) Go(fn func(ctx context.Context)) {
	select {
	case <-g.ctx.Done():
		return
	default:
	}
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		fn(g.ctx)
	}()
}

// Shutdown cancels all tracked tasks and waits up to grace for them to
// finish. Returns false if any task had to be abandoned.
func (g *taskGroup) Shutdown(cause error, grace time.Duration) bool {
	g.cancel(cause)
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(grace):
		return false
	}
}
