package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"time"

	"epinet/domain/core"
	"epinet/domain/network"
	"epinet/domain/params"
	"epinet/domain/sim"
	"epinet/internal"
	apperrors "epinet/internal/errors"
	"epinet/ports"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoTrials is returned when a batch asks for fewer than one trial
	ErrNoTrials = errors.New("trial count must be at least 1")
	errNoStream = errors.New("no random stream for trial")
)

// MonteCarloService runs many independent trials of one experiment in parallel
// and reduces them to a summary
type MonteCarloService struct {
	streams ports.StreamSource
	workers int
	logger  *internal.Logger
}

// trialTask is one unit of work: an immutable config and the stream owned by index
type trialTask struct {
	index  int
	cfg    params.Experiment
	stream *rand.Rand
}

// NewMonteCarloService creates the orchestrator. workers <= 0 means runtime.NumCPU().
func NewMonteCarloService(streams ports.StreamSource, workers int, logger *internal.Logger) *MonteCarloService {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &MonteCarloService{
		streams: streams,
		workers: workers,
		logger:  logger.WithComponent("montecarlo"),
	}
}

// Workers returns the concurrency limit
func (s *MonteCarloService) Workers() int {
	return s.workers
}

// Run executes trials runs of cfg. Trial i draws only from stream (masterSeed, i),
// so equal inputs give identical summaries regardless of scheduling.
func (s *MonteCarloService) Run(ctx context.Context, cfg params.Experiment, trials int, masterSeed uint64) (*sim.Summary, error) {
	if trials < 1 {
		return nil, apperrors.WithCode(apperrors.CodeInvalidInput, fmt.Errorf("%w: got %d", ErrNoTrials, trials))
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.WithCode(apperrors.CodeConfigInvalid, err)
	}

	streams, err := s.streams.Spawn(masterSeed, trials)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to spawn random streams")
	}
	if len(streams) != trials {
		return nil, apperrors.New(apperrors.CodeInternalError, fmt.Sprintf("spawned %d random streams for %d trials", len(streams), trials))
	}
	for i, stream := range streams {
		if stream == nil {
			return nil, apperrors.SimulationFailed(i, errNoStream)
		}
	}

	start := time.Now()
	s.logger.Info("running %d trials of %s on %d workers (seed %d)", trials, cfg, s.workers, masterSeed)

	outcomes := make([]*sim.Outcome, trials)
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range trials {
		task := trialTask{index: i, cfg: cfg, stream: streams[i]}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = apperrors.SimulationFailed(task.index, fmt.Errorf("panic: %v", r))
				}
			}()
			if err := gCtx.Err(); err != nil {
				return err
			}
			outcome, err := s.runTrial(gCtx, task)
			if err != nil {
				return apperrors.SimulationFailed(task.index, err)
			}
			outcomes[task.index] = &outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, o := range outcomes {
		if o == nil {
			return nil, apperrors.SimulationFailed(i, errors.New("trial produced no outcome"))
		}
	}

	summary, err := Summarize(cfg, outcomes)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to summarize outcomes")
	}
	summary.MasterSeed = masterSeed
	summary.Elapsed = time.Since(start)
	summary.CreatedAt = core.Now()

	s.logger.Info("%s: %d/%d consensus (%.3f) in %s", cfg, summary.Consensus, summary.Trials,
		summary.ProportionConsensus, summary.Elapsed.Round(time.Millisecond))
	return summary, nil
}

func (s *MonteCarloService) runTrial(ctx context.Context, task trialTask) (sim.Outcome, error) {
	net, err := network.Build(task.cfg, task.stream)
	if err != nil {
		return sim.Outcome{}, err
	}
	run, err := sim.NewRun(net, sim.RunConfigFor(task.cfg), task.stream)
	if err != nil {
		return sim.Outcome{}, err
	}
	if s.logger.Enabled(internal.LogLevelTrace) {
		run.OnRound = func(round int, credences []float64, report network.RoundReport) {
			s.logger.Trace("trial %d round %d: credences %v, %d continued, %d stopped",
				task.index, round, credences, report.Continued, report.Stopped)
		}
	}
	outcome, err := run.Execute(ctx)
	if err != nil {
		return sim.Outcome{}, err
	}
	s.logger.Debug("trial %d: %s at round %d", task.index, outcome.State, outcome.FinalRound)
	return outcome, nil
}
