package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Background runs detached fire-and-forget tasks. Each task gets its own
// error boundary: panics are recovered and logged, never propagated to the
// submitting flow.
type Background struct {
	wg      sync.WaitGroup
	timeout time.Duration
	logger  *slog.Logger
}

func NewBackground(timeout time.Duration, logger *slog.Logger) *Background {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Background{timeout: timeout, logger: logger}
}

// Go submits fn; the caller does not wait. The task runs under its own
// timeout-bound context, detached from the caller's.
func (b *Background) Go(name string, fn func(ctx context.Context)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("background task panicked", "task", name, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()

		fn(ctx)
	}()
}

// Wait blocks until every submitted task has finished. Used at shutdown.
func (b *Background) Wait() {
	b.wg.Wait()
}
