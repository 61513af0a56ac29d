// Package agent contains the participants of an epistemic network. Roles are
// composed from narrow capabilities rather than a type hierarchy: anything that
// holds a belief is a CredenceHolder, anything that shares data is an
// evidence.Source and anything that may quit research carries a StopPolicy.
package agent

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"epinet/domain/credence"
	"epinet/domain/evidence"
	"epinet/domain/params"
)

// CredenceHolder exposes an agent's degree of belief in the high hypothesis
type CredenceHolder interface {
	Credence() float64
}

// ScientistConfig holds the construction parameters of a scientist
type ScientistConfig struct {
	Prior         float64
	Epsilon       float64
	SampleSize    int
	StopThreshold float64
}

// Scientist runs binomial experiments, shares the latest result and updates its
// credence on its own and its influencers' evidence.
type Scientist struct {
	credence    float64
	epsilon     float64
	sampleSize  int
	policy      StopPolicy
	influencers []evidence.Source
	last        *evidence.Trial
	stopped     bool
}

// NewScientist validates cfg and returns a scientist with no influencers
func NewScientist(cfg ScientistConfig) (*Scientist, error) {
	if err := params.ValidateProbability("prior", cfg.Prior); err != nil {
		return nil, err
	}
	if err := params.ValidateEpsilon(cfg.Epsilon); err != nil {
		return nil, err
	}
	if cfg.SampleSize < 1 {
		return nil, fmt.Errorf("%w: sample size must be at least 1, got %d", params.ErrInvalidConfig, cfg.SampleSize)
	}
	policy, err := NewThresholdPolicy(cfg.StopThreshold)
	if err != nil {
		return nil, err
	}
	return &Scientist{
		credence:   cfg.Prior,
		epsilon:    cfg.Epsilon,
		sampleSize: cfg.SampleSize,
		policy:     policy,
	}, nil
}

// Credence returns the current belief in the high hypothesis
func (s *Scientist) Credence() float64 { return s.credence }

// Stopped reports whether the scientist stopped experimenting in its last round
func (s *Scientist) Stopped() bool { return s.stopped }

// AddInfluencer appends a source whose evidence this scientist will fold in.
// Duplicates and self-reference are allowed and weigh the source accordingly.
func (s *Scientist) AddInfluencer(src evidence.Source) {
	s.influencers = append(s.influencers, src)
}

// Influencers returns the influencer list in fold order
func (s *Scientist) Influencers() []evidence.Source {
	out := make([]evidence.Source, len(s.influencers))
	copy(out, s.influencers)
	return out
}

// Experiment samples k ~ Binomial(n, 0.5+epsilon) from rng and stores it as the
// latest trial. Credence is not touched.
func (s *Scientist) Experiment(rng *rand.Rand) evidence.Trial {
	dist := distuv.Binomial{
		N:   float64(s.sampleSize),
		P:   credence.HighProbability(s.epsilon),
		Src: rng,
	}
	t := evidence.Trial{Successes: int(dist.Rand()), Trials: s.sampleSize}
	s.last = &t
	return t
}

// DecideRoundAction consults the stop policy. Stopping clears the latest trial
// so observers see no new evidence; continuing runs a fresh experiment.
func (s *Scientist) DecideRoundAction(rng *rand.Rand) Action {
	if s.policy.ShouldStop(s.credence) {
		s.stopped = true
		s.last = nil
		return ActionStop
	}
	s.stopped = false
	s.Experiment(rng)
	return ActionContinue
}

// UpdateCredence folds the latest evidence of every influencer, in list order.
// Own evidence enters through the self influencer; a scientist without any
// influencers folds only its own trial.
func (s *Scientist) UpdateCredence() {
	if len(s.influencers) == 0 {
		if s.last != nil {
			s.credence = credence.Posterior(s.credence, *s.last, s.epsilon)
		}
		return
	}
	s.credence = credence.Fold(s.credence, evidence.Collect(s.influencers), s.epsilon)
}

// LatestEvidence returns the trial from the most recent round, or nil
func (s *Scientist) LatestEvidence() []evidence.Trial {
	if s.last == nil {
		return nil
	}
	return []evidence.Trial{*s.last}
}
