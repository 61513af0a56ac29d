package params

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"epinet/domain/core"
)

// Configuration errors
var (
	ErrInvalidConfig   = errors.New("invalid experiment configuration")
	ErrUnknownTopology = errors.New("unknown network topology")
)

// DefaultConsensusThreshold is the credence every scientist must exceed for consensus
const DefaultConsensusThreshold = 0.99

// TopologyKind selects how scientists are wired to each other
type TopologyKind string

const (
	TopologyComplete TopologyKind = "complete"
	TopologyRing     TopologyKind = "ring"
)

// ParseTopology accepts "complete", "ring" and the alias "cycle"
func ParseTopology(s string) (TopologyKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "complete":
		return TopologyComplete, nil
	case "ring", "cycle":
		return TopologyRing, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTopology, s)
	}
}

// ShareMode controls what a propagandist forwards
type ShareMode string

const (
	// ShareFavorable forwards every trial with k/n < 0.5
	ShareFavorable ShareMode = "favorable"
	// ShareMostFavorable forwards only the qualifying trial with the lowest k/n
	ShareMostFavorable ShareMode = "most-favorable"
)

// PassiveConfig describes observers who never experiment (e.g. policymakers)
type PassiveConfig struct {
	Count           int     `json:"count" yaml:"count"`
	MinPrior        float64 `json:"min_prior" yaml:"min_prior"`
	MaxPrior        float64 `json:"max_prior" yaml:"max_prior"`
	InfluencerCount int     `json:"influencer_count" yaml:"influencer_count"`
}

// Experiment is one simulation configuration. It is passed by value to every
// trial so concurrent trials never share it mutably.
type Experiment struct {
	Scientists         int            `json:"scientists" yaml:"scientists"`
	Topology           TopologyKind   `json:"topology" yaml:"topology"`
	SampleSize         int            `json:"sample_size" yaml:"sample_size"`
	Epsilon            float64        `json:"epsilon" yaml:"epsilon"`
	StopThreshold      float64        `json:"stop_threshold" yaml:"stop_threshold"`
	MaxRounds          int            `json:"max_rounds" yaml:"max_rounds"`
	ConsensusThreshold float64        `json:"consensus_threshold" yaml:"consensus_threshold"`
	Passive            *PassiveConfig `json:"passive,omitempty" yaml:"passive,omitempty"`
	Propagandist       bool           `json:"propagandist" yaml:"propagandist"`
	ShareMode          ShareMode      `json:"share_mode,omitempty" yaml:"share_mode,omitempty"`
}

// WithDefaults fills optional fields left at their zero value
func (e Experiment) WithDefaults() Experiment {
	if e.ConsensusThreshold == 0 {
		e.ConsensusThreshold = DefaultConsensusThreshold
	}
	if e.ShareMode == "" {
		e.ShareMode = ShareFavorable
	}
	if e.Passive != nil {
		p := *e.Passive
		e.Passive = &p
	}
	return e
}

// Validate rejects out-of-range parameters instead of coercing them
func (e Experiment) Validate() error {
	if e.Scientists < 1 {
		return invalid("scientists must be at least 1, got %d", e.Scientists)
	}
	switch e.Topology {
	case TopologyComplete, TopologyRing:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTopology, e.Topology)
	}
	if e.SampleSize < 1 {
		return invalid("sample size must be at least 1, got %d", e.SampleSize)
	}
	if err := ValidateEpsilon(e.Epsilon); err != nil {
		return err
	}
	if err := ValidateProbability("stop threshold", e.StopThreshold); err != nil {
		return err
	}
	if e.MaxRounds < 1 {
		return invalid("max rounds must be at least 1, got %d", e.MaxRounds)
	}
	if err := ValidateProbability("consensus threshold", e.ConsensusThreshold); err != nil {
		return err
	}
	switch e.ShareMode {
	case "", ShareFavorable, ShareMostFavorable:
	default:
		return invalid("unknown share mode %q", e.ShareMode)
	}
	if e.Passive != nil {
		if err := e.Passive.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks observer count and prior range
func (p PassiveConfig) Validate() error {
	if p.Count < 0 {
		return invalid("passive count must not be negative, got %d", p.Count)
	}
	if p.InfluencerCount < 0 {
		return invalid("passive influencer count must not be negative, got %d", p.InfluencerCount)
	}
	if err := ValidateProbability("passive min prior", p.MinPrior); err != nil {
		return err
	}
	if err := ValidateProbability("passive max prior", p.MaxPrior); err != nil {
		return err
	}
	if p.MinPrior > p.MaxPrior {
		return invalid("passive prior range [%v, %v] is empty", p.MinPrior, p.MaxPrior)
	}
	return nil
}

// ValidateEpsilon requires epsilon in [0, 0.5)
func ValidateEpsilon(epsilon float64) error {
	if !(epsilon >= 0 && epsilon < 0.5) {
		return invalid("epsilon must be in [0, 0.5), got %v", epsilon)
	}
	return nil
}

// ValidateProbability requires v in [0, 1]
func ValidateProbability(name string, v float64) error {
	if !(v >= 0 && v <= 1) {
		return invalid("%s must be in [0, 1], got %v", name, v)
	}
	return nil
}

// PassiveCount returns the number of configured observers
func (e Experiment) PassiveCount() int {
	if e.Passive == nil {
		return 0
	}
	return e.Passive.Count
}

// Fingerprint identifies a configuration independent of how defaults were
// spelled. Non-finite parameters cannot be encoded and yield ErrInvalidConfig.
func (e Experiment) Fingerprint() (core.Hash, error) {
	data, err := json.Marshal(e.WithDefaults())
	if err != nil {
		return "", fmt.Errorf("%w: cannot fingerprint: %v", ErrInvalidConfig, err)
	}
	return core.NewHash(data), nil
}

func (e Experiment) String() string {
	s := fmt.Sprintf("%s N=%d n=%d eps=%g stop=%g rounds=%d consensus=%g",
		e.Topology, e.Scientists, e.SampleSize, e.Epsilon, e.StopThreshold, e.MaxRounds, e.ConsensusThreshold)
	if e.Passive != nil {
		s += fmt.Sprintf(" passive=%d[%g,%g)k=%d", e.Passive.Count, e.Passive.MinPrior, e.Passive.MaxPrior, e.Passive.InfluencerCount)
	}
	if e.Propagandist {
		s += " propagandist=" + string(e.ShareMode)
	}
	return s
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
