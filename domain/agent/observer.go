package agent

import (
	"epinet/domain/credence"
	"epinet/domain/evidence"
	"epinet/domain/params"
)

// Observer is a passive updater: it never experiments and nobody listens to it
type Observer struct {
	credence    float64
	epsilon     float64
	influencers []evidence.Source
}

// NewObserver validates prior and epsilon
func NewObserver(prior, epsilon float64) (*Observer, error) {
	if err := params.ValidateProbability("prior", prior); err != nil {
		return nil, err
	}
	if err := params.ValidateEpsilon(epsilon); err != nil {
		return nil, err
	}
	return &Observer{credence: prior, epsilon: epsilon}, nil
}

// Credence returns the current belief in the high hypothesis
func (o *Observer) Credence() float64 { return o.credence }

// AddInfluencer appends a source to observe
func (o *Observer) AddInfluencer(src evidence.Source) {
	o.influencers = append(o.influencers, src)
}

// Influencers returns the influencer list in fold order
func (o *Observer) Influencers() []evidence.Source {
	out := make([]evidence.Source, len(o.influencers))
	copy(out, o.influencers)
	return out
}

// UpdateCredence folds whatever the influencers currently offer
func (o *Observer) UpdateCredence() {
	o.credence = credence.Fold(o.credence, evidence.Collect(o.influencers), o.epsilon)
}

// LatestEvidence is always empty: observers produce no data
func (o *Observer) LatestEvidence() []evidence.Trial { return nil }
