// Package network wires scientists, observers and an optional propagandist
// into an epistemic network and plays simulation rounds over it.
package network

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"epinet/domain/agent"
	"epinet/domain/evidence"
	"epinet/domain/params"
)

// Network is the population of one simulation trial. It is not safe for
// concurrent use; each trial owns its network exclusively.
type Network struct {
	cfg          params.Experiment
	scientists   []*agent.Scientist
	observers    []*agent.Observer
	propagandist *agent.Propagandist
}

// Priors holds the initial credences used by Assemble
type Priors struct {
	Scientists []float64
	Observers  []float64
}

// Build draws priors from rng (scientists uniform on [0, 1), observers uniform on
// the configured range) and assembles the network.
func Build(cfg params.Experiment, rng *rand.Rand) (*Network, error) {
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", params.ErrInvalidConfig)
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	priors := Priors{Scientists: draw(cfg.Scientists, 0, 1, rng)}
	if cfg.Passive != nil {
		priors.Observers = draw(cfg.Passive.Count, cfg.Passive.MinPrior, cfg.Passive.MaxPrior, rng)
	}
	return Assemble(cfg, priors)
}

func draw(count int, min, max float64, rng *rand.Rand) []float64 {
	u := distuv.Uniform{Min: min, Max: max, Src: rng}
	out := make([]float64, count)
	for i := range out {
		out[i] = u.Rand()
	}
	return out
}

// Assemble builds a network with the given priors. The number of priors must
// match the configured population sizes.
func Assemble(cfg params.Experiment, priors Priors) (*Network, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(priors.Scientists) != cfg.Scientists {
		return nil, fmt.Errorf("%w: %d scientist priors for %d scientists",
			params.ErrInvalidConfig, len(priors.Scientists), cfg.Scientists)
	}
	if len(priors.Observers) != cfg.PassiveCount() {
		return nil, fmt.Errorf("%w: %d observer priors for %d observers",
			params.ErrInvalidConfig, len(priors.Observers), cfg.PassiveCount())
	}

	n := &Network{cfg: cfg}
	for _, prior := range priors.Scientists {
		s, err := agent.NewScientist(agent.ScientistConfig{
			Prior:         prior,
			Epsilon:       cfg.Epsilon,
			SampleSize:    cfg.SampleSize,
			StopThreshold: cfg.StopThreshold,
		})
		if err != nil {
			return nil, err
		}
		n.scientists = append(n.scientists, s)
	}
	if err := wire(cfg.Topology, n.scientists); err != nil {
		return nil, err
	}

	if cfg.Propagandist {
		n.propagandist = agent.NewPropagandist(cfg.ShareMode)
		for _, s := range n.scientists {
			n.propagandist.Add(s)
		}
	}

	for _, prior := range priors.Observers {
		o, err := agent.NewObserver(prior, cfg.Epsilon)
		if err != nil {
			return nil, err
		}
		for i := 0; i < cfg.Passive.InfluencerCount && i < len(n.scientists); i++ {
			o.AddInfluencer(n.scientists[i])
		}
		if n.propagandist != nil {
			o.AddInfluencer(n.propagandist)
		}
		n.observers = append(n.observers, o)
	}
	return n, nil
}

// wire sets every scientist's influencer list according to the topology
func wire(kind params.TopologyKind, scientists []*agent.Scientist) error {
	switch kind {
	case params.TopologyComplete:
		for _, s := range scientists {
			for _, other := range scientists {
				s.AddInfluencer(other)
			}
		}
	case params.TopologyRing:
		for i, s := range scientists {
			for _, j := range RingNeighbors(i, len(scientists)) {
				s.AddInfluencer(scientists[j])
			}
		}
	default:
		return fmt.Errorf("%w: %q", params.ErrUnknownTopology, kind)
	}
	return nil
}

// RingNeighbors returns [i-1 mod n, i, i+1 mod n]. For n <= 3 indices repeat
// and a repeated neighbour is folded once per occurrence.
func RingNeighbors(i, n int) []int {
	return []int{(i - 1 + n) % n, i, (i + 1) % n}
}

// Config returns the experiment this network was built from
func (n *Network) Config() params.Experiment { return n.cfg }

// Scientists returns the experimenting agents in index order
func (n *Network) Scientists() []*agent.Scientist { return n.scientists }

// Observers returns the passive updaters in index order
func (n *Network) Observers() []*agent.Observer { return n.observers }

// Propagandist returns the selective sharer, or nil when inactive
func (n *Network) Propagandist() *agent.Propagandist { return n.propagandist }

// ScientistCredences snapshots every scientist's credence
func (n *Network) ScientistCredences() []float64 {
	out := make([]float64, len(n.scientists))
	for i, s := range n.scientists {
		out[i] = s.Credence()
	}
	return out
}

// ObserverMeanCredence returns the mean observer credence, false without observers
func (n *Network) ObserverMeanCredence() (float64, bool) {
	if len(n.observers) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, o := range n.observers {
		sum += o.Credence()
	}
	return sum / float64(len(n.observers)), true
}

// RoundReport counts what scientists did in a round
type RoundReport struct {
	Continued int
	Stopped   int
}

// PlayRound runs one round in three phases: every scientist decides and, if it
// continues, experiments; every continuing scientist then folds the evidence;
// finally every observer folds the evidence. Updates happen only after all
// experiments of the round are in, so no agent sees a sibling mid-update.
func (n *Network) PlayRound(rng *rand.Rand) RoundReport {
	var report RoundReport
	continuing := make([]*agent.Scientist, 0, len(n.scientists))
	for _, s := range n.scientists {
		if s.DecideRoundAction(rng) == agent.ActionStop {
			report.Stopped++
			continue
		}
		report.Continued++
		continuing = append(continuing, s)
	}
	for _, s := range continuing {
		s.UpdateCredence()
	}
	for _, o := range n.observers {
		o.UpdateCredence()
	}
	return report
}

var _ evidence.Source = (*agent.Scientist)(nil)
var _ evidence.Source = (*agent.Propagandist)(nil)
var _ evidence.Source = (*agent.Observer)(nil)
