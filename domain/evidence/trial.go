package evidence

import (
	"errors"
	"fmt"
)

// ErrInvalidTrial is returned when a trial's counts are out of range
var ErrInvalidTrial = errors.New("invalid binomial trial")

// Trial is one batch of Successes out of Trials independent binary draws.
// It is the unit of evidence exchanged between agents.
type Trial struct {
	Successes int `json:"successes"`
	Trials    int `json:"trials"`
}

// NewTrial validates the counts and returns a Trial
func NewTrial(successes, trials int) (Trial, error) {
	t := Trial{Successes: successes, Trials: trials}
	if err := t.Validate(); err != nil {
		return Trial{}, err
	}
	return t, nil
}

// Validate checks 0 <= Successes <= Trials and Trials > 0
func (t Trial) Validate() error {
	if t.Trials <= 0 {
		return fmt.Errorf("%w: trials must be positive, got %d", ErrInvalidTrial, t.Trials)
	}
	if t.Successes < 0 || t.Successes > t.Trials {
		return fmt.Errorf("%w: successes %d outside [0, %d]", ErrInvalidTrial, t.Successes, t.Trials)
	}
	return nil
}

// Proportion returns the observed success rate k/n
func (t Trial) Proportion() float64 {
	if t.Trials == 0 {
		return 0
	}
	return float64(t.Successes) / float64(t.Trials)
}

// FavorsLow reports whether the observed rate points at the low hypothesis (k/n < 0.5)
func (t Trial) FavorsLow() bool {
	return 2*t.Successes < t.Trials
}

// Combine pools two trials into one
func (t Trial) Combine(other Trial) Trial {
	return Trial{
		Successes: t.Successes + other.Successes,
		Trials:    t.Trials + other.Trials,
	}
}

func (t Trial) String() string {
	return fmt.Sprintf("%d/%d", t.Successes, t.Trials)
}

// Source is anything an agent can harvest evidence from: another scientist, a
// propagandist or an observer. A nil or empty slice means no new evidence this round.
type Source interface {
	LatestEvidence() []Trial
}

// Collect gathers the latest evidence of every source in order
func Collect(sources []Source) []Trial {
	var trials []Trial
	for _, src := range sources {
		trials = append(trials, src.LatestEvidence()...)
	}
	return trials
}
