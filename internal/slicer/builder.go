// Package slicer builds bounded "top N by rank" slices of ranked datasets.
package slicer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/raphaelgruber/propslice/internal/artifact"
	"github.com/raphaelgruber/propslice/internal/config"
	"github.com/raphaelgruber/propslice/internal/manifest"
	"github.com/raphaelgruber/propslice/internal/metrics"
	"github.com/raphaelgruber/propslice/internal/models"
)

// Reporter receives one result per finished job.
// Implementations must be safe for concurrent use.
type Reporter interface {
	Report(result models.JobResult)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(result models.JobResult)

// Report calls f(result).
func (f ReporterFunc) Report(result models.JobResult) {
	f(result)
}

// Options configures a Builder.
type Options struct {
	// DefaultLimit applies to jobs without a positive limit (default 200)
	DefaultLimit int
	// Concurrency sets the number of parallel workers in RunBatch (default 4)
	Concurrency int
	// Logger for structured diagnostics (default slog.Default())
	Logger *slog.Logger
	// Reporter for per-job events (optional)
	Reporter Reporter
	// Metrics collects run statistics (optional)
	Metrics *metrics.Collector
}

// Builder turns source datasets into top-by-rank slices.
type Builder struct {
	defaultLimit int
	concurrency  int
	logger       *slog.Logger
	reporter     Reporter
	metrics      *metrics.Collector
}

// NewBuilder creates a new slice builder.
func NewBuilder(opts Options) *Builder {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = config.DefaultSliceLimit
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = config.DefaultConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Builder{
		defaultLimit: opts.DefaultLimit,
		concurrency:  opts.Concurrency,
		logger:       opts.Logger,
		reporter:     opts.Reporter,
		metrics:      opts.Metrics,
	}
}

// BuildTopByRank loads job.Source, keeps the job.Limit best-ranked props and
// writes the result to job.Destination.
//
// A missing source yields OutcomeSkipped. Unreadable or malformed sources and
// write errors yield OutcomeFailed; in every non-success case the destination
// is left untouched.
func (b *Builder) BuildTopByRank(ctx context.Context, job models.JobDescriptor) models.JobResult {
	return b.buildTopByRank(ctx, b.logger, job)
}

func (b *Builder) buildTopByRank(ctx context.Context, logger *slog.Logger, job models.JobDescriptor) models.JobResult {
	start := time.Now()
	job = b.normalize(job)

	result := b.slice(ctx, job)
	result.Duration = time.Since(start)

	b.finish(logger, result)
	return result
}

func (b *Builder) normalize(job models.JobDescriptor) models.JobDescriptor {
	if job.Limit < 1 {
		job.Limit = b.defaultLimit
	}
	if job.Destination == "" {
		job.Destination = manifest.DestinationFor(job.Source, job.Limit)
	}
	return job
}

func (b *Builder) slice(ctx context.Context, job models.JobDescriptor) models.JobResult {
	fail := func(err error) models.JobResult {
		return models.JobResult{Job: job, Outcome: models.OutcomeFailed, Err: err}
	}
	skip := func() models.JobResult {
		return models.JobResult{
			Job:     job,
			Outcome: models.OutcomeSkipped,
			Err:     fmt.Errorf("%w: %s", ErrMissingInput, job.Source),
		}
	}

	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("job not started: %w", err))
	}

	exists, err := artifact.Exists(job.Source)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrMalformedInput, err))
	}
	if !exists {
		return skip()
	}

	ds, err := artifact.ReadDataset(job.Source)
	if err != nil {
		// Removed between the existence check and the read.
		if errors.Is(err, fs.ErrNotExist) {
			return skip()
		}
		return fail(fmt.Errorf("%w: %s: %v", ErrMalformedInput, job.Source, err))
	}

	sliced := ds.SliceTopByRank(job.Limit)

	data, err := artifact.Encode(sliced)
	if err != nil {
		return fail(fmt.Errorf("%w: encode %s: %v", ErrWriteFailure, job.Destination, err))
	}

	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("job cancelled before write: %w", err))
	}

	if err := artifact.WriteFile(job.Destination, data); err != nil {
		return fail(fmt.Errorf("%w: %s: %v", ErrWriteFailure, job.Destination, err))
	}

	return models.JobResult{
		Job:     job,
		Outcome: models.OutcomeSucceeded,
		Props:   len(sliced.Props),
		Bytes:   int64(len(data)),
	}
}

// finish logs, records and reports a job result.
func (b *Builder) finish(logger *slog.Logger, result models.JobResult) {
	job := result.Job

	switch result.Outcome {
	case models.OutcomeSucceeded:
		logger.Info("slice written",
			"source", job.Source,
			"destination", job.Destination,
			"limit", job.Limit,
			"props", result.Props,
			"bytes", result.Bytes,
			"duration", result.Duration)
		if b.metrics != nil {
			b.metrics.RecordWrite(metrics.OpSliced, result.Duration, result.Bytes, int64(result.Props))
		}
	case models.OutcomeSkipped:
		logger.Warn("missing input, slice skipped", "source", job.Source, "destination", job.Destination)
		if b.metrics != nil {
			b.metrics.RecordTiming(metrics.OpSkipped, result.Duration)
		}
	default:
		logger.Error("slice failed", "source", job.Source, "destination", job.Destination, "error", result.Err)
		if b.metrics != nil {
			b.metrics.RecordTiming(metrics.OpFailed, result.Duration)
		}
	}

	if b.reporter != nil {
		b.reporter.Report(result)
	}
}
