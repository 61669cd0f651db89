package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/covsweep/api/schemas"
	"github.com/xkilldash9x/covsweep/internal/config"
	"github.com/xkilldash9x/covsweep/internal/coverage"
	"github.com/xkilldash9x/covsweep/internal/observability"
)

// -- Interfaces for Dependency Inversion --

// Flattener turns one URL's merged ranges into disjoint executed intervals.
type Flattener interface {
	Flatten(url string, ranges []schemas.Range) ([]schemas.DisjointRange, error)
}

// FlattenerFunc adapts a plain function to the Flattener interface.
type FlattenerFunc func(url string, ranges []schemas.Range) ([]schemas.DisjointRange, error)

func (f FlattenerFunc) Flatten(url string, ranges []schemas.Range) ([]schemas.DisjointRange, error) {
	return f(url, ranges)
}

// Pipeline merges a run's captures by URL and flattens every URL.
type Pipeline struct {
	cfg       config.CoverageConfig
	logger    *zap.Logger
	flattener Flattener
	now       func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithFlattener replaces the default sweep-line flattener.
func WithFlattener(f Flattener) Option {
	return func(p *Pipeline) { p.flattener = f }
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline. A non-positive concurrency is treated as 1.
func New(cfg config.CoverageConfig, logger *zap.Logger, opts ...Option) *Pipeline {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.OnMalformed == "" {
		cfg.OnMalformed = schemas.MalformedAbort
	}
	p := &Pipeline{
		cfg:       cfg,
		logger:    logger.Named("engine"),
		flattener: FlattenerFunc(coverage.Flatten),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type urlResult struct {
	ranges []schemas.DisjointRange
	err    error
}

// Run merges captures and flattens each URL, fanning out up to the configured
// concurrency. Entries keep first-seen URL order whatever the concurrency.
//
// Under the abort policy the first malformed URL cancels the run and its
// error is returned with a nil report. Under the skip policy malformed URLs
// are listed in the report's Skipped section and their errors are returned,
// combined, next to the partial report.
func (p *Pipeline) Run(ctx context.Context, captures []schemas.CoverageCapture) (*schemas.CoverageReport, error) {
	runID := uuid.NewString()
	logger := p.logger.With(observability.RunID(runID))

	merged := coverage.MergeByURL(captures)
	entries := merged.Entries()
	logger.Info("Merged coverage captures",
		zap.Int("captures", len(captures)),
		zap.Int("urls", len(entries)),
		zap.Int("concurrency", p.cfg.Concurrency),
	)

	results := make([]urlResult, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for i := range entries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entry := entries[i]
			ranges, err := p.flattener.Flatten(entry.URL, entry.Ranges)
			if err == nil {
				results[i] = urlResult{ranges: ranges}
				logger.Debug("Flattened coverage",
					observability.URL(entry.URL),
					zap.Int("raw_ranges", len(entry.Ranges)),
					zap.Int("intervals", len(ranges)),
				)
				return nil
			}

			var malformed *coverage.MalformedRangeError
			if p.cfg.OnMalformed == schemas.MalformedSkip && errors.As(err, &malformed) {
				logger.Warn("Skipping URL with malformed coverage",
					observability.URL(entry.URL),
					zap.Int("raw_ranges", len(entry.Ranges)),
					zap.Error(err),
				)
				results[i] = urlResult{err: err}
				return nil
			}
			return fmt.Errorf("failed to flatten coverage for %s: %w", entry.URL, err)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Coverage run aborted", zap.Error(err))
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &schemas.CoverageReport{
		RunID:     runID,
		Timestamp: p.now(),
		Entries:   make([]schemas.FlattenedEntry, 0, len(entries)),
	}
	var skipErrs error
	var coveredBytes int64
	for i, entry := range entries {
		res := results[i]
		if res.err != nil {
			report.Skipped = append(report.Skipped, schemas.SkippedEntry{URL: entry.URL, Reason: res.err.Error()})
			skipErrs = multierr.Append(skipErrs, res.err)
			continue
		}
		covered := coverage.CoveredBytes(res.ranges)
		coveredBytes += covered
		report.Entries = append(report.Entries, schemas.FlattenedEntry{
			URL:           entry.URL,
			RawRangeCount: len(entry.Ranges),
			RawRanges:     entry.Ranges,
			Ranges:        res.ranges,
			CoveredBytes:  covered,
		})
	}

	logger.Info("Coverage run complete",
		zap.Int("flattened", len(report.Entries)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int64("covered_bytes", coveredBytes),
	)
	return report, skipErrs
}
