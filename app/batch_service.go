package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"epinet/domain/core"
	"epinet/domain/params"
	"epinet/domain/sim"
	"epinet/internal"
	apperrors "epinet/internal/errors"
	"epinet/ports"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// BatchRequest describes a list of experiments sharing a trial count and master seed
type BatchRequest struct {
	Experiments []params.Experiment `json:"experiments"`
	Trials      int                 `json:"trials"`
	MasterSeed  uint64              `json:"master_seed"`

	// BatchID is generated when empty
	BatchID core.BatchID `json:"-"`
}

// BatchResult holds one summary per requested experiment, in request order
type BatchResult struct {
	BatchID   core.BatchID   `json:"batch_id"`
	Summaries []*sim.Summary `json:"summaries"`
	RuntimeMs int64          `json:"runtime_ms"`
}

// BatchService runs batches of experiments and hands their summaries to sinks
type BatchService struct {
	monteCarlo *MonteCarloService
	sinks      []ports.SummarySink
	listeners  []ports.ProgressListener
	logger     *internal.Logger
}

// NewBatchService creates a batch service writing to sinks in the given order
func NewBatchService(monteCarlo *MonteCarloService, logger *internal.Logger, sinks ...ports.SummarySink) *BatchService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &BatchService{
		monteCarlo: monteCarlo,
		sinks:      sinks,
		logger:     logger.WithComponent("batch"),
	}
}

// AddSink appends a sink for subsequent batches
func (s *BatchService) AddSink(sink ports.SummarySink) {
	s.sinks = append(s.sinks, sink)
}

// AddListener subscribes l to progress events of subsequent batches
func (s *BatchService) AddListener(l ports.ProgressListener) {
	s.listeners = append(s.listeners, l)
}

func (s *BatchService) publish(event ports.ProgressEvent) {
	event.Timestamp = time.Now().UTC()
	if event.Total > 0 {
		event.Progress = float64(event.Index) / float64(event.Total)
	}
	for _, l := range s.listeners {
		l.Publish(event)
	}
}

// Run executes every experiment of req with the same master seed. Experiments run
// one after another; trials inside an experiment run in parallel. Every sink is
// attempted and their failures are joined into the returned error.
func (s *BatchService) Run(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	if len(req.Experiments) == 0 {
		return nil, apperrors.InvalidInput("batch has no experiments")
	}
	start := time.Now()
	result := &BatchResult{BatchID: req.BatchID}
	if result.BatchID == "" {
		result.BatchID = core.NewBatchID()
	}
	total := len(req.Experiments)

	s.logger.Info("batch %s: %d experiments x %d trials", result.BatchID, total, req.Trials)
	for i, exp := range req.Experiments {
		s.publish(ports.ProgressEvent{BatchID: result.BatchID, Kind: ports.EventExperimentStarted, Index: i, Total: total})
		summary, err := s.monteCarlo.Run(ctx, exp, req.Trials, req.MasterSeed)
		if err != nil {
			err = apperrors.Wrapf(err, "experiment %d of %d (%s)", i+1, total, exp)
			s.publish(ports.ProgressEvent{BatchID: result.BatchID, Kind: ports.EventBatchFailed, Index: i, Total: total, Error: err.Error()})
			return nil, err
		}
		summary.BatchID = result.BatchID
		result.Summaries = append(result.Summaries, summary)
		s.publish(ports.ProgressEvent{BatchID: result.BatchID, Kind: ports.EventExperimentFinished, Index: i + 1, Total: total, Summary: summary})
	}
	result.RuntimeMs = time.Since(start).Milliseconds()

	if err := s.record(ctx, result); err != nil {
		s.publish(ports.ProgressEvent{BatchID: result.BatchID, Kind: ports.EventBatchFailed, Index: total, Total: total, Error: err.Error()})
		return result, err
	}
	s.publish(ports.ProgressEvent{BatchID: result.BatchID, Kind: ports.EventBatchFinished, Index: total, Total: total})
	return result, nil
}

func (s *BatchService) record(ctx context.Context, result *BatchResult) error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Record(ctx, result.BatchID, result.Summaries); err != nil {
			s.logger.Error("sink %s failed for batch %s: %v", sink.Name(), result.BatchID, err)
			errs = append(errs, apperrors.OutputFailed(sink.Name(), err))
			continue
		}
		s.logger.Debug("sink %s recorded batch %s", sink.Name(), result.BatchID)
	}
	return errors.Join(errs...)
}

// Replay re-runs a recorded summary with its seed and trial count and reports
// core.ErrNonDeterministic when the outcome counts or means differ
func (s *BatchService) Replay(ctx context.Context, recorded *sim.Summary) (*sim.Summary, error) {
	if recorded == nil {
		return nil, apperrors.InvalidInput("nothing to replay")
	}
	fresh, err := s.monteCarlo.Run(ctx, recorded.Experiment, recorded.Trials, recorded.MasterSeed)
	if err != nil {
		return nil, err
	}
	fresh.BatchID = recorded.BatchID

	diff := cmp.Diff(recorded, fresh,
		cmpopts.IgnoreFields(sim.Summary{}, "Elapsed", "CreatedAt"),
		cmpopts.EquateApprox(0, 1e-9))
	if diff != "" {
		return fresh, fmt.Errorf("%w: %s", core.ErrNonDeterministic, diff)
	}
	return fresh, nil
}
