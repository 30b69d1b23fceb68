// Package metrics provides in-memory statistics for slice runs.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Artifact metrics (only for operations that write)
	TotalBytes int64
	TotalProps int64
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64

	TotalBytes int64
	TotalProps int64
}

// Snapshot represents run statistics at a point in time.
type Snapshot struct {
	ElapsedSeconds float64
	Sliced         *OperationSnapshot
	Skipped        *OperationSnapshot
	Failed         *OperationSnapshot
	Hierarchy      *OperationSnapshot
}

// Operation names for the collector.
const (
	OpSliced    = "sliced"
	OpSkipped   = "skipped"
	OpFailed    = "failed"
	OpHierarchy = "hierarchy_write"
)

// Collector aggregates in-memory run statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{
			MinTime: time.Duration(math.MaxInt64),
		}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.RecordWrite(op, duration, 0, 0)
}

// RecordWrite records timing plus the size and entity count of a written artifact.
func (c *Collector) RecordWrite(op string, duration time.Duration, bytes, props int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration
	m.TotalBytes += bytes
	m.TotalProps += props

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	return &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
		TotalBytes:  m.TotalBytes,
		TotalProps:  m.TotalProps,
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		ElapsedSeconds: time.Since(c.startTime).Seconds(),
		Sliced:         snapshotOp(c.ops[OpSliced]),
		Skipped:        snapshotOp(c.ops[OpSkipped]),
		Failed:         snapshotOp(c.ops[OpFailed]),
		Hierarchy:      snapshotOp(c.ops[OpHierarchy]),
	}
}
