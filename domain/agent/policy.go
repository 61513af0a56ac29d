package agent

import (
	"fmt"

	"epinet/domain/params"
)

// Action is what a scientist does in a round
type Action int

const (
	ActionContinue Action = iota
	ActionStop
)

func (a Action) String() string {
	switch a {
	case ActionContinue:
		return "continue"
	case ActionStop:
		return "stop"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// StopPolicy decides from a credence whether to stop experimenting
type StopPolicy interface {
	ShouldStop(credence float64) bool
}

// ThresholdPolicy stops research once credence drops below Threshold
type ThresholdPolicy struct {
	Threshold float64
}

// NewThresholdPolicy validates the threshold range [0, 1]
func NewThresholdPolicy(threshold float64) (ThresholdPolicy, error) {
	if err := params.ValidateProbability("stop threshold", threshold); err != nil {
		return ThresholdPolicy{}, err
	}
	return ThresholdPolicy{Threshold: threshold}, nil
}

// ShouldStop reports credence < Threshold
func (p ThresholdPolicy) ShouldStop(credence float64) bool {
	return credence < p.Threshold
}
