package memory

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned by Store after the writer has been closed.
var ErrClosed = errors.New("memory writer closed")

// AsyncWriter wraps a Cache so that Store returns immediately.
// Writes are queued and applied in the background; Lookup goes straight through.
type AsyncWriter struct {
	Cache

	queue        chan string
	timeout      time.Duration
	wg           sync.WaitGroup
	mu           sync.RWMutex
	closed       bool
	droppedCount atomic.Uint64
}

// NewAsyncWriter starts a background writer in front of inner.
// queueSize bounds pending writes; each write gets its own timeout.
func NewAsyncWriter(inner Cache, queueSize int, timeout time.Duration) *AsyncWriter {
	if queueSize < 1 {
		queueSize = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	a := &AsyncWriter{
		Cache:   inner,
		queue:   make(chan string, queueSize),
		timeout: timeout,
	}
	a.wg.Add(1)
	go a.loop()
	return a
}

// Store queues text for writing. The caller's context is not used for the
// write itself, so a branch that finishes or is cancelled does not lose it.
// When the queue is full the entry is dropped.
func (a *AsyncWriter) Store(_ context.Context, text string) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return ErrClosed
	}

	select {
	case a.queue <- text:
		return nil
	default:
		count := a.droppedCount.Add(1)
		if count%10 == 1 {
			log.Printf("[memory] WARNING: write queue full, dropped entry (total dropped: %d)", count)
		}
		return nil
	}
}

// DroppedCount returns how many writes were dropped because the queue was full.
func (a *AsyncWriter) DroppedCount() uint64 {
	return a.droppedCount.Load()
}

// Close stops accepting writes and waits for queued ones to finish.
func (a *AsyncWriter) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	a.wg.Wait()
}

func (a *AsyncWriter) loop() {
	defer a.wg.Done()
	for text := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.Cache.Store(ctx, text); err != nil {
			log.Printf("[memory] write-back failed: %v", err)
		}
		cancel()
	}
}
