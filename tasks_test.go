package voicelive

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTaskGroupShutdownWaits(t *testing.T) {
	g := newTaskGroup(context.Background())

	var finished atomic.Bool
	g.Go(func(ctx context.Context) {
		<-ctx.Done()
		finished.Store(true)
	})

	assert.True(t, g.Shutdown(errors.New("test"), time.Second))
	assert.True(t, finished.Load())
}

func TestTaskGroupShutdownAbandonsStuckTask(t *testing.T) {
	g := newTaskGroup(context.Background())

	release := make(chan struct{})
	g.Go(func(context.Context) { <-release })

	assert.False(t, g.Shutdown(errors.New("test"), 20*time.Millisecond))
	close(release)
}

func TestTaskGroupRejectsAfterShutdown(t *testing.T) {
	g := newTaskGroup(context.Background())
	g.Shutdown(errors.New("test"), time.Second)

	var ran atomic.Bool
	g.Go(func(context.Context) { ran.Store(true) })
	time.Sleep(20 * time.Millisecond)
	assert.False(t, ran.Load())
}
