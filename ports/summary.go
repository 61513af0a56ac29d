package ports

import (
	"context"

	"epinet/domain/core"
	"epinet/domain/sim"
)

// SummaryRepository persists experiment summaries
type SummaryRepository interface {
	// Save stores one summary under its batch
	Save(ctx context.Context, batchID core.BatchID, summary *sim.Summary) error

	// List returns the most recent summaries, newest first
	List(ctx context.Context, limit int) ([]*sim.Summary, error)

	// ListBatch returns every summary recorded for batchID in insertion order
	ListBatch(ctx context.Context, batchID core.BatchID) ([]*sim.Summary, error)
}

// SummarySink receives the summaries of a finished batch (files, reports, databases)
type SummarySink interface {
	Name() string
	Record(ctx context.Context, batchID core.BatchID, summaries []*sim.Summary) error
}
