package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"clipstream/internal/bus"
	"clipstream/internal/catalog"
	"clipstream/internal/config"
	"clipstream/internal/logging"
)

var (
	// ErrRunInFlight is returned when a run is requested for an item that
	// already has one active.
	ErrRunInFlight = errors.New("processing run already in flight")
	// ErrNotRunnable is returned when an item's status does not permit
	// starting a run.
	ErrNotRunnable = errors.New("item is not in a runnable state")
	// ErrClosed is returned once the processor has been shut down.
	ErrClosed = errors.New("processor is closed")
)

// Metadata is what the pipeline needs from a metadata probe.
type Metadata struct {
	DurationSeconds float64
	VideoStreams    int
	AudioStreams    int
}

// Verdict is what the pipeline needs from a sensitivity analysis.
type Verdict struct {
	Classification catalog.Sensitivity
	Confidence     float64
}

// MetadataProber extracts container metadata from a stored file.
type MetadataProber interface {
	Probe(ctx context.Context, path string) (Metadata, error)
}

// SensitivityAnalyzer screens a stored file using its textual metadata.
type SensitivityAnalyzer interface {
	Analyze(ctx context.Context, path, title, description string) (Verdict, error)
}

// Processor owns the per-item processing state machine. It is the sole
// writer of status, progress, duration, and sensitivity while a run is in
// flight; everything else reads those fields through the catalog.
type Processor struct {
	cfg      *config.Config
	store    *catalog.Store
	events   bus.Publisher
	prober   MetadataProber
	analyzer SensitivityAnalyzer
	logger   *slog.Logger

	mu     sync.Mutex
	active map[string]*Run
	closed bool
	wg     sync.WaitGroup
}

// NewProcessor constructs a Processor. The bus publisher, prober, and
// analyzer are injected so tests and future implementations can substitute
// them without touching the state machine.
func NewProcessor(cfg *config.Config, store *catalog.Store, events bus.Publisher, prober MetadataProber, analyzer SensitivityAnalyzer, logger *slog.Logger) *Processor {
	return &Processor{
		cfg:      cfg,
		store:    store,
		events:   events,
		prober:   prober,
		analyzer: analyzer,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		active:   make(map[string]*Run),
	}
}

// ActiveRuns reports the number of in-flight runs.
func (p *Processor) ActiveRuns() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

// Close cancels all in-flight runs and waits for them to finish. Further
// Schedule calls fail with ErrClosed.
func (p *Processor) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	runs := make([]*Run, 0, len(p.active))
	for _, run := range p.active {
		runs = append(runs, run)
	}
	p.mu.Unlock()

	for _, run := range runs {
		run.Cancel()
	}
	p.wg.Wait()
}

// acquire registers a run for itemID, enforcing one run per item.
func (p *Processor) acquire(itemID string, run *Run) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if _, inFlight := p.active[itemID]; inFlight {
		return ErrRunInFlight
	}
	p.active[itemID] = run
	return nil
}

func (p *Processor) release(itemID string) {
	p.mu.Lock()
	delete(p.active, itemID)
	p.mu.Unlock()
}
