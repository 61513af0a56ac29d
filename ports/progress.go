package ports

import (
	"time"

	"epinet/domain/core"
	"epinet/domain/sim"
)

// Progress event kinds
const (
	EventExperimentStarted  = "experiment_started"
	EventExperimentFinished = "experiment_finished"
	EventBatchFinished      = "batch_finished"
	EventBatchFailed        = "batch_failed"
)

// ProgressEvent reports batch progress to listeners such as the SSE hub
type ProgressEvent struct {
	BatchID   core.BatchID `json:"batch_id"`
	Kind      string       `json:"kind"`
	Index     int          `json:"index"`
	Total     int          `json:"total"`
	Progress  float64      `json:"progress"`
	Summary   *sim.Summary `json:"summary,omitempty"`
	Error     string       `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// ProgressListener receives progress events; implementations must not block
type ProgressListener interface {
	Publish(event ProgressEvent)
}
