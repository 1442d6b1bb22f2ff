package models

import "time"

// RunStatus is the lifecycle state of a pipeline_runs audit row.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// PipelineRun is the audit record for one load attempt. Exactly one row is
// written per attempt, including failed ones.
type PipelineRun struct {
	RunID          int64
	ExternalRunID  string
	FileProcessed  string
	RowsInserted   int
	RowsSkipped    int
	Status         RunStatus
	ArchiveWarning bool
	StartedAt      time.Time
	FinishedAt     *time.Time
}
