package cron_feature

import (
	"context"
	"time"
)

// Job is a named task run on a fixed interval.
type Job struct {
	Name           string
	Interval       time.Duration
	RunImmediately bool
	Run            func(ctx context.Context) error
}

// JobStatus is what the API reports for a registered job.
type JobStatus struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	Running   bool       `json:"running"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	Duration  int64      `json:"duration"` // last run, in milliseconds
}
