package integration

import (
	"fmt"
	"runtime/debug"
	"time"
)

// RunStatus is the lifecycle state of one job invocation
type RunStatus string

const (
	RunStatusProcessing RunStatus = "processing"
	RunStatusFinished   RunStatus = "finished"
	RunStatusError      RunStatus = "error"
)

// RunError is the structured error payload stored on a failed run
type RunError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// NewRunError captures err together with the current goroutine stack
func NewRunError(err error) *RunError {
	if err == nil {
		return nil
	}
	return &RunError{
		Name:    fmt.Sprintf("%T", err),
		Message: err.Error(),
		Stack:   string(debug.Stack()),
	}
}

// RunLog is one audit row per job invocation
type RunLog struct {
	ID         int64
	RunID      string
	CompanyID  int64
	Platform   PlatformSlug
	Command    string
	Status     RunStatus
	Counters   map[string]any
	Error      *RunError
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Finish marks the run as finished with the final counters
func (r *RunLog) Finish(counters map[string]any) {
	now := time.Now()
	r.Status = RunStatusFinished
	r.Counters = counters
	r.Error = nil
	r.FinishedAt = &now
}

// Fail marks the run as failed with the counters collected so far
func (r *RunLog) Fail(counters map[string]any, err error) {
	now := time.Now()
	r.Status = RunStatusError
	r.Counters = counters
	r.Error = NewRunError(err)
	r.FinishedAt = &now
}
