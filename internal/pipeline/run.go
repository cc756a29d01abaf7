package pipeline

import (
	"context"

	"github.com/google/uuid"
)

// Run is the supervised handle for one item's pipeline execution. The
// scheduler keeps it so a future timeout or cancellation policy has a hook
// even though nothing cancels runs today.
type Run struct {
	itemID string
	runID  string
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// ItemID returns the catalog item this run processes.
func (r *Run) ItemID() string { return r.itemID }

// RunID returns the identifier stamped on the item for this run.
func (r *Run) RunID() string { return r.runID }

// Done is closed when the run has finished, successfully or not.
func (r *Run) Done() <-chan struct{} { return r.done }

// Err reports the run outcome. Only valid after Done is closed.
func (r *Run) Err() error { return r.err }

// Cancel aborts the run. The item is marked failed; cancellation is not a
// pause.
func (r *Run) Cancel() { r.cancel() }

// Wait blocks until the run finishes or ctx expires.
func (r *Run) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return r.err
	}
}

// Schedule starts processing an item on its own goroutine and returns the
// supervised handle. A second Schedule for the same item while the first
// run is active fails with ErrRunInFlight. The run's lifetime is detached
// from any request context; only Cancel or processor Close stop it early.
func (p *Processor) Schedule(itemID string) (*Run, error) {
	runCtx, cancel := context.WithCancel(context.Background())
	run := &Run{
		itemID: itemID,
		runID:  uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	if err := p.acquire(itemID, run); err != nil {
		cancel()
		return nil, err
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()
		run.err = p.process(runCtx, run)
		p.release(itemID)
		close(run.done)
	}()

	return run, nil
}
