package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// recordingCache captures stores and can block them until released.
type recordingCache struct {
	mu      sync.Mutex
	stored  []string
	release chan struct{}
	err     error
}

func (c *recordingCache) Lookup(context.Context, string, int) ([]string, error) {
	return []string{"hit"}, nil
}

func (c *recordingCache) Store(_ context.Context, text string) error {
	if c.release != nil {
		<-c.release
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stored = append(c.stored, text)
	return c.err
}

func (c *recordingCache) Stored() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.stored...)
}

func TestAsyncWriter_CloseDrains(t *testing.T) {
	inner := &recordingCache{}
	w := NewAsyncWriter(inner, 10, time.Second)

	for _, text := range []string{"a", "b", "c"} {
		if err := w.Store(context.Background(), text); err != nil {
			t.Fatalf("Store() error = %v", err)
		}
	}
	w.Close()

	got := inner.Stored()
	if len(got) != 3 {
		t.Fatalf("stored %d entries, want 3", len(got))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got[i] != want {
			t.Errorf("stored[%d] = %q, want %q", i, got[i], want)
		}
	}
}

func TestAsyncWriter_StoreDoesNotBlock(t *testing.T) {
	inner := &recordingCache{release: make(chan struct{})}
	w := NewAsyncWriter(inner, 1, time.Second)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			w.Store(context.Background(), "x")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Store() blocked on a slow backend")
	}

	if w.DroppedCount() == 0 {
		t.Error("DroppedCount() = 0, want drops when queue is full")
	}

	close(inner.release)
	w.Close()
}

func TestAsyncWriter_IgnoresCallerCancellation(t *testing.T) {
	inner := &recordingCache{}
	w := NewAsyncWriter(inner, 10, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Store(ctx, "kept"); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	w.Close()

	if got := inner.Stored(); len(got) != 1 {
		t.Errorf("stored %d entries, want 1", len(got))
	}
}

func TestAsyncWriter_BackendErrorsSwallowed(t *testing.T) {
	inner := &recordingCache{err: errors.New("disk full")}
	w := NewAsyncWriter(inner, 10, time.Second)

	if err := w.Store(context.Background(), "x"); err != nil {
		t.Errorf("Store() error = %v, want nil", err)
	}
	w.Close()
}

func TestAsyncWriter_StoreAfterClose(t *testing.T) {
	w := NewAsyncWriter(&recordingCache{}, 1, time.Second)
	w.Close()
	w.Close()

	if err := w.Store(context.Background(), "late"); !errors.Is(err, ErrClosed) {
		t.Errorf("Store() after Close error = %v, want ErrClosed", err)
	}
}

func TestAsyncWriter_LookupPassesThrough(t *testing.T) {
	w := NewAsyncWriter(&recordingCache{}, 1, time.Second)
	defer w.Close()

	got, err := w.Lookup(context.Background(), "q", 2)
	if err != nil || len(got) != 1 || got[0] != "hit" {
		t.Errorf("Lookup() = %v, %v, want [hit], nil", got, err)
	}
}
