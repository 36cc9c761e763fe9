package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cmoscoso25/flujosdigitales-api/internal/confirmation"
	pkgerrors "github.com/cmoscoso25/flujosdigitales-api/pkg/errors"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/logger"
)

const (
	defaultQueueSize  = 64
	defaultWorkers    = 4
	defaultJobTimeout = 45 * time.Second
)

type confirmer interface {
	Confirm(ctx context.Context, input confirmation.ConfirmInput) (*confirmation.Result, error)
}

// Dispatcher runs webhook confirmations on a bounded worker pool so the
// webhook handler can acknowledge the gateway without waiting on the
// status check, the email relay or the database.
type Dispatcher struct {
	confirmer confirmer
	logg      *logger.Logger
	jobs      chan confirmation.ConfirmInput
	timeout   time.Duration
	workers   int

	mu      sync.RWMutex
	closed  bool
	started sync.Once
	wg      sync.WaitGroup
}

// DispatcherParams carries the dispatcher dependencies.
type DispatcherParams struct {
	Confirmer  confirmer
	Logger     *logger.Logger
	QueueSize  int
	Workers    int
	JobTimeout time.Duration
}

// NewDispatcher builds the pool. Call Start to launch the workers.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Confirmer == nil {
		return nil, fmt.Errorf("confirmation service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	queueSize := params.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	workers := params.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	timeout := params.JobTimeout
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	return &Dispatcher{
		confirmer: params.Confirmer,
		logg:      params.Logger,
		jobs:      make(chan confirmation.ConfirmInput, queueSize),
		timeout:   timeout,
		workers:   workers,
	}, nil
}

// Start launches the worker goroutines. Safe to call once.
func (d *Dispatcher) Start() {
	d.started.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.worker()
		}
	})
}

// Enqueue queues one confirmation without blocking. It reports false
// when the queue is full or the dispatcher is shutting down; the
// gateway retries its webhook, so a dropped job is recoverable.
func (d *Dispatcher) Enqueue(input confirmation.ConfirmInput) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.jobs <- input:
		return true
	default:
		return false
	}
}

// Close stops intake and waits for in-flight jobs until ctx expires.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.logg.Warn(ctx, "webhook dispatcher drain timed out")
		return fmt.Errorf("draining webhook dispatcher: %w", ctx.Err())
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for input := range d.jobs {
		d.process(input)
	}
}

func (d *Dispatcher) process(input confirmation.ConfirmInput) {
	// A panicking job must not take the pool down with it.
	defer func() {
		if r := recover(); r != nil {
			d.logg.Error(context.Background(), "webhook confirmation panicked", fmt.Errorf("%v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	result, err := d.confirmer.Confirm(ctx, input)
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeConflict {
			d.logg.Info(ctx, "webhook confirmation already in flight")
			return
		}
		d.logg.Error(ctx, "webhook confirmation failed", err)
		return
	}
	if result != nil && !result.Paid && !result.Processed && !result.AlreadyProcessed {
		d.logg.Info(ctx, "webhook confirmation found order unpaid")
	}
}
