// Package run orchestrates the postal-code loop: collection, deduplication,
// batched sink pushes, and per-code failure isolation.
package run

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/dealer-scout/internal/model"
)

// Collector produces records for one search. Implemented by site.Engine.
type Collector interface {
	Collect(ctx context.Context, criteria model.SearchCriteria, emit func(*model.Record) error) error
}

// Sink receives admitted records in batches, append-only.
type Sink interface {
	PushBatch(ctx context.Context, records []*model.Record) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, records []*model.Record) error

// PushBatch calls f.
func (f SinkFunc) PushBatch(ctx context.Context, records []*model.Record) error {
	return f(ctx, records)
}

// Snapshotter persists a diagnostic page capture under a key. A nil
// Snapshotter disables capture; snapshot failures are never fatal.
type Snapshotter interface {
	Capture(ctx context.Context, key string) error
}

// Config controls one run of the coordinator.
type Config struct {
	RadiusKm   int
	Categories []model.Category

	// BatchSize bounds how many admitted records accumulate before a sink
	// push; a flush also happens at the end of each postal code.
	BatchSize int

	// Pace is the fixed delay between postal codes.
	Pace time.Duration
}

func (c Config) withDefaults() Config {
	if c.RadiusKm <= 0 {
		c.RadiusKm = 50
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 25
	}
	return c
}

// Stats summarizes one run.
type Stats struct {
	Codes      int
	Failed     int
	Units      int
	Saved      int
	Duplicates int
}

// Coordinator iterates the postal-code list sequentially: the page's form
// state is shared and mutable, so there is no cross-code parallelism.
type Coordinator struct {
	collector Collector
	sink      Sink
	snap      Snapshotter
	dedup     *Deduplicator
	limiter   *rate.Limiter
	cfg       Config
}

// NewCoordinator creates a coordinator with a fresh dedup set.
func NewCoordinator(collector Collector, sink Sink, snap Snapshotter, cfg Config) *Coordinator {
	cfg = cfg.withDefaults()
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.Pace > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.Pace), 1)
	}
	return &Coordinator{
		collector: collector,
		sink:      sink,
		snap:      snap,
		dedup:     NewDeduplicator(),
		limiter:   limiter,
		cfg:       cfg,
	}
}

// Run processes every postal code in order. A failure inside one code's
// pipeline is logged and the run moves on; only context cancellation stops
// the loop early.
func (c *Coordinator) Run(ctx context.Context, codes []string) (Stats, error) {
	var stats Stats
	total := len(codes)

	for i, code := range codes {
		if err := c.limiter.Wait(ctx); err != nil {
			return stats, err
		}

		units, saved, dups, err := c.runCode(ctx, code)
		stats.Codes++
		stats.Units += units
		stats.Saved += saved
		stats.Duplicates += dups

		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.Failed++
			zap.L().Warn("postal code failed",
				zap.Int("index", i+1),
				zap.Int("total", total),
				zap.String("postal_code", code),
				zap.Error(err),
			)
			c.capture(ctx, code)
			continue
		}

		if units == 0 {
			c.capture(ctx, code)
		}

		zap.L().Info("postal code processed",
			zap.Int("index", i+1),
			zap.Int("total", total),
			zap.String("postal_code", code),
			zap.Int("units", units),
			zap.Int("saved", saved),
		)
	}

	zap.L().Info("run complete",
		zap.Int("codes", stats.Codes),
		zap.Int("failed", stats.Failed),
		zap.Int("saved", stats.Saved),
		zap.Int("duplicates", stats.Duplicates),
	)
	return stats, nil
}

// runCode executes the full pipeline for one postal code.
func (c *Coordinator) runCode(ctx context.Context, code string) (units, saved, dups int, err error) {
	criteria := model.NewSearchCriteria(code, c.cfg.RadiusKm, c.cfg.Categories)

	batch := make([]*model.Record, 0, c.cfg.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		// The sink may retain the slice, so each flush hands off a copy.
		out := make([]*model.Record, len(batch))
		copy(out, batch)
		if err := c.sink.PushBatch(ctx, out); err != nil {
			return err
		}
		saved += len(out)
		batch = batch[:0]
		return nil
	}

	collectErr := c.collector.Collect(ctx, criteria, func(rec *model.Record) error {
		units++
		if !c.dedup.Admit(rec) {
			dups++
			return nil
		}
		batch = append(batch, rec)
		if len(batch) >= c.cfg.BatchSize {
			return flush()
		}
		return nil
	})
	if collectErr != nil {
		return units, saved, dups, collectErr
	}

	return units, saved, dups, flush()
}

func (c *Coordinator) capture(ctx context.Context, code string) {
	if c.snap == nil {
		return
	}
	if err := c.snap.Capture(ctx, code); err != nil {
		zap.L().Debug("snapshot capture failed", zap.String("postal_code", code), zap.Error(err))
	}
}
