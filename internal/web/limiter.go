package web

// limiter.go bounds concurrent import processing. The engine materializes
// the whole row list per file, so parallel imports are the main memory
// pressure; a semaphore keeps them to a configurable maximum. When all
// slots are occupied, requests wait up to maxWait before failing with
// errTooManyImports.

import (
	"context"
	"errors"
	"time"
)

// errTooManyImports is returned when all import slots are occupied and
// the wait timeout expires. Clients should retry after a short delay.
var errTooManyImports = errors.New("too many uploads in progress, please try again later")

const (
	defaultMaxConcurrentImports = 5
	defaultMaxWaitTime          = 30 * time.Second
)

// importLimiter restricts parallel imports with a semaphore.
type importLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration
}

func newImportLimiter(maxConcurrent int, maxWait time.Duration) *importLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentImports
	}
	if maxWait <= 0 {
		maxWait = defaultMaxWaitTime
	}
	return &importLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// acquire blocks for a slot until the wait timeout. The returned release
// function must be called exactly once when the import completes.
func (l *importLimiter) acquire(ctx context.Context) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		return func() { <-l.semaphore }, nil
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errTooManyImports
	}
}

// active returns the number of imports currently holding a slot.
func (l *importLimiter) active() int {
	return len(l.semaphore)
}

// waitForDrain blocks until all active imports complete or the context
// is cancelled, for graceful shutdown.
func (l *importLimiter) waitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.active() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
