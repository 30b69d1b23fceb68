package models

import "time"

// JobDescriptor describes one slice to build.
type JobDescriptor struct {
	Source      string `yaml:"source"`
	Destination string `yaml:"destination,omitempty"`
	Limit       int    `yaml:"limit,omitempty"`
}

// Outcome is the terminal state of a slice job.
type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// JobResult reports what happened to a single job.
type JobResult struct {
	Job     JobDescriptor
	Outcome Outcome
	Err     error // nil on success

	Props    int   // entities written
	Bytes    int64 // artifact size
	Duration time.Duration
}
