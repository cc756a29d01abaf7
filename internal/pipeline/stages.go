package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clipstream/internal/bus"
	"clipstream/internal/catalog"
	"clipstream/internal/logging"
)

// Stage progress checkpoints. Only these values are persisted; the
// intermediate transcode ticks are broadcast-only because they are
// illustrative progress, not recoverable state.
const (
	progressStart     = 0
	progressMetadata  = 30
	progressTranscode = 80
	progressDone      = 100
)

// process drives one item through the linear state machine: metadata,
// simulated transcode, sensitivity screening, finalize. Any fatal error
// transitions the item to failed and emits a failure event; the processor
// never retries on its own.
func (p *Processor) process(ctx context.Context, run *Run) error {
	ctx = logging.WithItemID(logging.WithRunID(ctx, run.runID), run.itemID)
	logger := logging.WithContext(ctx, p.logger)

	item, err := p.store.Get(ctx, run.itemID)
	if err != nil {
		logger.Error("failed to load item for processing", logging.Error(err))
		return fmt.Errorf("load item: %w", err)
	}
	if item.Status.IsTerminal() || item.IsProcessing() {
		logger.Warn("item not runnable", logging.String("status", string(item.Status)))
		return fmt.Errorf("%w: status %s", ErrNotRunnable, item.Status)
	}

	started := time.Now()
	logger.Info("processing started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("stored_path", item.StoredPath),
	)

	if err := p.runStages(ctx, item, run.runID); err != nil {
		if p.failItem(ctx, item, err) {
			logger.Error("processing failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "run_failed"),
				logging.Duration("run_duration", time.Since(started)),
			)
		}
		return err
	}

	logger.Info("processing completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("sensitivity", string(item.Sensitivity)),
		logging.Duration("run_duration", time.Since(started)),
	)
	return nil
}

func (p *Processor) runStages(ctx context.Context, item *catalog.Item, runID string) error {
	if err := p.markProcessing(ctx, item, runID); err != nil {
		return err
	}
	if err := p.metadataStage(ctx, item); err != nil {
		return err
	}
	if err := p.transcodeStage(ctx, item); err != nil {
		return err
	}
	if err := p.sensitivityStage(ctx, item); err != nil {
		return err
	}
	return p.finalize(ctx, item)
}

// markProcessing persists the uploaded->processing transition, stamps the
// run id, and publishes the first progress event.
func (p *Processor) markProcessing(ctx context.Context, item *catalog.Item, runID string) error {
	status := catalog.StatusProcessing
	progress := progressStart
	empty := ""
	if err := p.store.UpdateFields(ctx, item.ID, catalog.FieldPatch{
		Status:       &status,
		Progress:     &progress,
		ErrorMessage: &empty,
		RunID:        &runID,
	}); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	item.Status = status
	item.Progress = progress
	item.RunID = runID
	p.publish(item, bus.Progress(item.ID, progressStart, ""))
	return nil
}

// metadataStage probes the stored file for its duration. Probe failure is
// non-fatal: the item continues with duration 0.
func (p *Processor) metadataStage(ctx context.Context, item *catalog.Item) error {
	ctx = logging.WithStage(ctx, "metadata")
	logger := logging.WithContext(ctx, p.logger)

	p.publish(item, bus.Progress(item.ID, 10, "Extracting metadata..."))

	probeCtx, cancel := context.WithTimeout(ctx, p.cfg.ProbeTimeout())
	md, err := p.prober.Probe(probeCtx, item.StoredPath)
	cancel()
	switch {
	case err == nil:
		item.Duration = md.DurationSeconds
		logger.Debug("metadata extracted",
			logging.Float64("duration_seconds", md.DurationSeconds),
			logging.Int("video_streams", md.VideoStreams),
			logging.Int("audio_streams", md.AudioStreams),
		)
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		return ctx.Err()
	default:
		logger.Warn("metadata probe failed; continuing with default duration",
			logging.Error(err),
			logging.String(logging.FieldEventType, "probe_failed"),
		)
	}

	progress := progressMetadata
	if err := p.store.UpdateFields(ctx, item.ID, catalog.FieldPatch{
		Progress: &progress,
		Duration: &item.Duration,
	}); err != nil {
		return fmt.Errorf("persist metadata checkpoint: %w", err)
	}
	item.Progress = progress
	p.publish(item, bus.Progress(item.ID, progressMetadata, "Metadata extracted"))
	return nil
}

// transcodeStage simulates transcoding: progress advances in +10 broadcast
// ticks on a fixed interval until 70, then the 80 checkpoint is persisted
// when the simulated work completes. The ticker is scoped to this stage and
// stopped on every exit path.
func (p *Processor) transcodeStage(ctx context.Context, item *catalog.Item) error {
	ticker := time.NewTicker(p.cfg.TranscodeTick())
	defer ticker.Stop()
	timer := time.NewTimer(p.cfg.TranscodeDuration())
	defer timer.Stop()

	progress := item.Progress
	for done := false; !done; {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if progress < progressTranscode-10 {
				progress += 10
				p.publish(item, bus.Progress(item.ID, progress, ""))
			}
		case <-timer.C:
			done = true
		}
	}

	checkpoint := progressTranscode
	if err := p.store.UpdateFields(ctx, item.ID, catalog.FieldPatch{Progress: &checkpoint}); err != nil {
		return fmt.Errorf("persist transcode checkpoint: %w", err)
	}
	item.Progress = checkpoint
	p.publish(item, bus.Progress(item.ID, progressTranscode, "Analyzing content..."))
	return nil
}

// sensitivityStage screens the item. Unlike the probe, analyzer failure is
// fatal: an item must not finish processing with an unscreened file.
func (p *Processor) sensitivityStage(ctx context.Context, item *catalog.Item) error {
	ctx = logging.WithStage(ctx, "sensitivity")
	logger := logging.WithContext(ctx, p.logger)

	analyzeCtx, cancel := context.WithTimeout(ctx, p.cfg.AnalyzeTimeout())
	verdict, err := p.analyzer.Analyze(analyzeCtx, item.StoredPath, item.Title, item.Description)
	cancel()
	if err != nil {
		return fmt.Errorf("sensitivity analysis: %w", err)
	}

	item.Sensitivity = verdict.Classification
	logger.Debug("content screened",
		logging.String("classification", string(verdict.Classification)),
		logging.Float64("confidence", verdict.Confidence),
	)
	return nil
}

func (p *Processor) finalize(ctx context.Context, item *catalog.Item) error {
	status := catalog.StatusProcessed
	progress := progressDone
	if err := p.store.UpdateFields(ctx, item.ID, catalog.FieldPatch{
		Status:      &status,
		Progress:    &progress,
		Sensitivity: &item.Sensitivity,
	}); err != nil {
		return fmt.Errorf("persist completion: %w", err)
	}
	item.Status = status
	item.Progress = progress
	p.publish(item, bus.Completed(item.ID, item.Sensitivity))
	return nil
}

// failItem transitions the item to failed and emits the failure event. It
// runs on a context detached from the run so a cancelled run can still
// persist its terminal state. Returns false when even that persist failed.
func (p *Processor) failItem(ctx context.Context, item *catalog.Item, cause error) bool {
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	status := catalog.StatusFailed
	message := cause.Error()
	if err := p.store.UpdateFields(persistCtx, item.ID, catalog.FieldPatch{
		Status:       &status,
		ErrorMessage: &message,
	}); err != nil {
		logging.WithContext(ctx, p.logger).Error("failed to persist failure state", logging.Error(err))
		return false
	}
	item.Status = status
	item.ErrorMessage = message
	p.publish(item, bus.Failure(item.ID, "Processing failed"))
	return true
}

// publish fans an event out to the item topic and the tenant room.
func (p *Processor) publish(item *catalog.Item, event bus.Event) {
	p.events.Publish(bus.ItemTopic(item.ID), event)
	p.events.Publish(bus.TenantTopic(item.TenantID), event)
}
