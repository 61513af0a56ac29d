// Package sim drives one simulation trial over an epistemic network until the
// scientists reach consensus, abandon research or exhaust the round budget.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"epinet/domain/network"
	"epinet/domain/params"
)

// ErrRunFinished is returned when Execute is called on a terminated run
var ErrRunFinished = errors.New("simulation run already finished")

// State of a simulation run
type State int

const (
	StateRunning State = iota
	StateConsensus
	StateAbandoned
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateConsensus:
		return "consensus"
	case StateAbandoned:
		return "abandoned"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further rounds will be played
func (s State) Terminal() bool { return s != StateRunning }

// Outcome is the immutable result of one run. At most one of ConsensusRound and
// AbandonedRound is set; neither is set when the budget ran out.
type Outcome struct {
	State              State    `json:"state"`
	ConsensusRound     *int     `json:"consensus_round,omitempty"`
	AbandonedRound     *int     `json:"abandoned_round,omitempty"`
	FinalRound         int      `json:"final_round"`
	PassiveAvgCredence *float64 `json:"passive_avg_credence,omitempty"`
}

// RunConfig holds the termination parameters of a run
type RunConfig struct {
	MaxRounds     int
	LowThreshold  float64
	HighThreshold float64
}

// RunConfigFor derives termination parameters from an experiment: research is
// abandoned once every scientist is below its own stop threshold.
func RunConfigFor(cfg params.Experiment) RunConfig {
	cfg = cfg.WithDefaults()
	return RunConfig{
		MaxRounds:     cfg.MaxRounds,
		LowThreshold:  cfg.StopThreshold,
		HighThreshold: cfg.ConsensusThreshold,
	}
}

// RoundHook is called after every played round
type RoundHook func(round int, credences []float64, report network.RoundReport)

// Run is a single-use state machine: Running -> Consensus | Abandoned | Exhausted
type Run struct {
	net    *network.Network
	cfg    RunConfig
	rng    *rand.Rand
	round  int
	state  State
	result *Outcome

	// OnRound, when set, observes each played round
	OnRound RoundHook
}

// NewRun prepares a run over net drawing experiment outcomes from rng
func NewRun(net *network.Network, cfg RunConfig, rng *rand.Rand) (*Run, error) {
	if net == nil {
		return nil, fmt.Errorf("%w: nil network", params.ErrInvalidConfig)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", params.ErrInvalidConfig)
	}
	if cfg.MaxRounds < 1 {
		return nil, fmt.Errorf("%w: max rounds must be at least 1, got %d", params.ErrInvalidConfig, cfg.MaxRounds)
	}
	if err := params.ValidateProbability("low threshold", cfg.LowThreshold); err != nil {
		return nil, err
	}
	if err := params.ValidateProbability("high threshold", cfg.HighThreshold); err != nil {
		return nil, err
	}
	return &Run{net: net, cfg: cfg, rng: rng}, nil
}

// State returns the current state
func (r *Run) State() State { return r.state }

// Round returns the last round checked
func (r *Run) Round() int { return r.round }

// Outcome returns the result once the run has terminated
func (r *Run) Outcome() (Outcome, bool) {
	if r.result == nil {
		return Outcome{}, false
	}
	return *r.result, true
}

// Step checks termination for the next round and, if still running, plays it.
// It returns the state after the step.
func (r *Run) Step() State {
	if r.state.Terminal() {
		return r.state
	}
	r.round++

	credences := r.net.ScientistCredences()
	switch {
	case allBelow(credences, r.cfg.LowThreshold):
		round := r.round
		r.finish(StateAbandoned)
		r.result.AbandonedRound = &round
		return r.state
	case allAbove(credences, r.cfg.HighThreshold):
		round := r.round
		r.finish(StateConsensus)
		r.result.ConsensusRound = &round
		if mean, ok := r.net.ObserverMeanCredence(); ok {
			r.result.PassiveAvgCredence = &mean
		}
		return r.state
	}

	report := r.net.PlayRound(r.rng)
	if r.OnRound != nil {
		r.OnRound(r.round, r.net.ScientistCredences(), report)
	}
	if r.round >= r.cfg.MaxRounds {
		r.finish(StateExhausted)
	}
	return r.state
}

// Execute runs to termination. ctx is polled between rounds so an orchestrator
// can abandon outstanding trials.
func (r *Run) Execute(ctx context.Context) (Outcome, error) {
	if r.state.Terminal() {
		return Outcome{}, ErrRunFinished
	}
	for !r.Step().Terminal() {
		if r.round%64 == 0 {
			if err := ctx.Err(); err != nil {
				return Outcome{}, err
			}
		}
	}
	return *r.result, nil
}

func (r *Run) finish(s State) {
	r.state = s
	r.result = &Outcome{State: s, FinalRound: r.round}
}

func allBelow(values []float64, bound float64) bool {
	for _, v := range values {
		if !(v < bound) {
			return false
		}
	}
	return true
}

func allAbove(values []float64, bound float64) bool {
	for _, v := range values {
		if !(v > bound) {
			return false
		}
	}
	return true
}
