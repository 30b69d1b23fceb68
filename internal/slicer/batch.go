package slicer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/propslice/internal/models"
)

// BatchResult summarizes a RunBatch call. Results are in job order.
type BatchResult struct {
	RunID    string
	Results  []models.JobResult
	Duration time.Duration
}

// Count returns the number of jobs that ended with outcome.
func (r *BatchResult) Count(outcome models.Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == outcome {
			n++
		}
	}
	return n
}

// AnySucceeded reports whether at least one job wrote its slice.
func (r *BatchResult) AnySucceeded() bool {
	return r.Count(models.OutcomeSucceeded) > 0
}

// Err returns ErrJobsFailed when at least one job failed, nil otherwise.
// Skipped jobs are not failures.
func (r *BatchResult) Err() error {
	failed := r.Count(models.OutcomeFailed)
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d", ErrJobsFailed, failed, len(r.Results))
}

// RunBatch builds every job independently. A failing job never stops the
// others; every job gets a result.
func (b *Builder) RunBatch(ctx context.Context, jobs []models.JobDescriptor) *BatchResult {
	start := time.Now()
	runID := uuid.New().String()[:8] // Short ID for log correlation
	logger := b.logger.With("run_id", runID)

	concurrency := b.concurrency
	if concurrency > len(jobs) {
		concurrency = len(jobs)
	}

	logger.Info("starting slice batch", "jobs", len(jobs), "concurrency", concurrency)

	results := make([]models.JobResult, len(jobs))
	var processed atomic.Int32

	// Worker pool
	jobChan := make(chan int, len(jobs))
	var wg sync.WaitGroup

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range jobChan {
				n := processed.Add(1)
				logger.Debug("processing job",
					"worker", workerID,
					"source", jobs[idx].Source,
					"progress", fmt.Sprintf("%d/%d", n, len(jobs)))

				results[idx] = b.buildTopByRank(ctx, logger, jobs[idx])
			}
		}(i)
	}

	for idx := range jobs {
		jobChan <- idx
	}
	close(jobChan)

	wg.Wait()

	batch := &BatchResult{
		RunID:    runID,
		Results:  results,
		Duration: time.Since(start),
	}

	logger.Info("slice batch complete",
		"succeeded", batch.Count(models.OutcomeSucceeded),
		"skipped", batch.Count(models.OutcomeSkipped),
		"failed", batch.Count(models.OutcomeFailed),
		"duration", batch.Duration)

	return batch
}
