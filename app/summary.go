package app

import (
	"epinet/domain/params"
	"epinet/domain/sim"

	"github.com/montanaflynn/stats"
)

// Summarize reduces outcomes, in index order, to a summary of cfg. Means over an
// empty set stay nil.
func Summarize(cfg params.Experiment, outcomes []*sim.Outcome) (*sim.Summary, error) {
	if len(outcomes) == 0 {
		return nil, ErrNoTrials
	}

	fingerprint, err := cfg.Fingerprint()
	if err != nil {
		return nil, err
	}
	summary := &sim.Summary{
		Experiment:  cfg,
		Fingerprint: fingerprint,
		Trials:      len(outcomes),
	}

	var consensusRounds, abandonedRounds, passive stats.Float64Data
	for _, o := range outcomes {
		switch o.State {
		case sim.StateConsensus:
			summary.Consensus++
			if o.ConsensusRound != nil {
				consensusRounds = append(consensusRounds, float64(*o.ConsensusRound))
			}
			if o.PassiveAvgCredence != nil {
				passive = append(passive, *o.PassiveAvgCredence)
			}
		case sim.StateAbandoned:
			summary.Abandoned++
			if o.AbandonedRound != nil {
				abandonedRounds = append(abandonedRounds, float64(*o.AbandonedRound))
			}
		case sim.StateExhausted:
			summary.Exhausted++
		}
	}

	proportion, err := stats.Round(float64(summary.Consensus)/float64(summary.Trials), 3)
	if err != nil {
		return nil, err
	}
	summary.ProportionConsensus = proportion

	if summary.MeanConsensusRound, err = meanOrNil(consensusRounds); err != nil {
		return nil, err
	}
	if summary.MeanAbandonedRound, err = meanOrNil(abandonedRounds); err != nil {
		return nil, err
	}
	if summary.MeanPassiveCredence, err = meanOrNil(passive); err != nil {
		return nil, err
	}
	return summary, nil
}

func meanOrNil(data stats.Float64Data) (*float64, error) {
	if data.Len() == 0 {
		return nil, nil
	}
	m, err := stats.Mean(data)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
