package daemon

import (
	"context"
	"log/slog"

	"clipstream/internal/bus"
	"clipstream/internal/catalog"
	"clipstream/internal/config"
	"clipstream/internal/logging"
	"clipstream/internal/pipeline"
	"clipstream/internal/probe"
	"clipstream/internal/sensitivity"
	"clipstream/internal/server"
)

// proberAdapter narrows the ffprobe wrapper to the pipeline capability.
type proberAdapter struct {
	prober *probe.Prober
}

func (a proberAdapter) Probe(ctx context.Context, path string) (pipeline.Metadata, error) {
	result, err := a.prober.Probe(ctx, path)
	if err != nil {
		return pipeline.Metadata{}, err
	}
	return pipeline.Metadata{
		DurationSeconds: result.DurationSeconds(),
		VideoStreams:    result.VideoStreamCount(),
		AudioStreams:    result.AudioStreamCount(),
	}, nil
}

// analyzerAdapter narrows the keyword analyzer to the pipeline capability.
type analyzerAdapter struct {
	analyzer *sensitivity.Analyzer
}

func (a analyzerAdapter) Analyze(ctx context.Context, path, title, description string) (pipeline.Verdict, error) {
	analysis, err := a.analyzer.Analyze(ctx, path, title, description)
	if err != nil {
		return pipeline.Verdict{}, err
	}
	return pipeline.Verdict{
		Classification: analysis.Classification,
		Confidence:     analysis.Confidence,
	}, nil
}

// Build assembles a fully wired daemon from configuration: catalog store,
// progress hub, pipeline processor with the shipped prober and analyzer,
// and the HTTP server.
func Build(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	store, err := catalog.Open(cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("catalog opened", logging.String("db_path", store.Path()))

	hub := bus.NewHub(cfg.Pipeline.EventBuffer)
	processor := pipeline.NewProcessor(
		cfg,
		store,
		hub,
		proberAdapter{prober: probe.New(cfg.FFprobeBinary())},
		analyzerAdapter{analyzer: sensitivity.New()},
		logger,
	)
	api := server.New(cfg, store, hub, processor, logger)

	d, err := New(cfg, store, hub, processor, api, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return d, nil
}
