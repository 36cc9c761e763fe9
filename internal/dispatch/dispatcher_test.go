package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cmoscoso25/flujosdigitales-api/internal/confirmation"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/logger"
)

type recordingConfirmer struct {
	mu          sync.Mutex
	tokens      []string
	hadDeadline bool
	block       chan struct{}
	entered     chan struct{}
}

func (r *recordingConfirmer) Confirm(ctx context.Context, input confirmation.ConfirmInput) (*confirmation.Result, error) {
	if r.entered != nil {
		r.entered <- struct{}{}
	}
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, input.Token)
	_, r.hadDeadline = ctx.Deadline()
	return &confirmation.Result{Processed: true, Paid: true}, nil
}

func (r *recordingConfirmer) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.tokens))
	copy(out, r.tokens)
	return out
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
}

func newTestDispatcher(t *testing.T, c confirmer, queue, workers int) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(DispatcherParams{
		Confirmer:  c,
		Logger:     testLogger(),
		QueueSize:  queue,
		Workers:    workers,
		JobTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return d
}

func TestNewDispatcherValidatesInputs(t *testing.T) {
	if _, err := NewDispatcher(DispatcherParams{Logger: testLogger()}); err == nil {
		t.Fatal("expected error for missing confirmer")
	}
	if _, err := NewDispatcher(DispatcherParams{Confirmer: &recordingConfirmer{}}); err == nil {
		t.Fatal("expected error for missing logger")
	}
}

func TestDispatcherProcessesQueuedJobs(t *testing.T) {
	c := &recordingConfirmer{}
	d := newTestDispatcher(t, c, 8, 2)
	d.Start()

	for _, token := range []string{"tok-1", "tok-2", "tok-3"} {
		if !d.Enqueue(confirmation.ConfirmInput{Token: token}) {
			t.Fatalf("enqueue of %s rejected", token)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	seen := c.seen()
	if len(seen) != 3 {
		t.Fatalf("expected 3 processed jobs, got %d", len(seen))
	}
	if !c.hadDeadline {
		t.Fatal("jobs must run under the configured timeout")
	}
}

func TestEnqueueRejectsWhenFull(t *testing.T) {
	c := &recordingConfirmer{}
	d := newTestDispatcher(t, c, 1, 1)
	// No Start: nothing drains the queue.

	if !d.Enqueue(confirmation.ConfirmInput{Token: "tok-1"}) {
		t.Fatal("first enqueue must fit")
	}
	if d.Enqueue(confirmation.ConfirmInput{Token: "tok-2"}) {
		t.Fatal("full queue must reject")
	}
}

func TestEnqueueAfterCloseIsRejected(t *testing.T) {
	c := &recordingConfirmer{}
	d := newTestDispatcher(t, c, 4, 1)
	d.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	if d.Enqueue(confirmation.ConfirmInput{Token: "tok-late"}) {
		t.Fatal("closed dispatcher must reject jobs")
	}
	// Close again is a no-op.
	if err := d.Close(ctx); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestCloseGivesUpOnStuckJobs(t *testing.T) {
	c := &recordingConfirmer{
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	d := newTestDispatcher(t, c, 4, 1)
	d.Start()

	if !d.Enqueue(confirmation.ConfirmInput{Token: "tok-slow"}) {
		t.Fatal("enqueue rejected")
	}
	<-c.entered

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := d.Close(ctx)
	if waited := time.Since(start); waited > time.Second {
		t.Fatalf("close must respect the drain deadline, waited %v", waited)
	}
	if err == nil {
		t.Fatal("expected a drain timeout error")
	}
	close(c.block)
}
