package agent

import (
	"epinet/domain/evidence"
	"epinet/domain/params"
)

// Propagandist harvests the latest trials of a pool of scientists and forwards
// only those whose observed rate favors the low hypothesis. It does not own the
// pool and never alters the trials it passes on.
type Propagandist struct {
	mode params.ShareMode
	pool []evidence.Source
}

// NewPropagandist returns a propagandist in the given mode; an empty mode means ShareFavorable
func NewPropagandist(mode params.ShareMode, pool ...evidence.Source) *Propagandist {
	if mode == "" {
		mode = params.ShareFavorable
	}
	return &Propagandist{mode: mode, pool: pool}
}

// Add registers another source in the pool
func (p *Propagandist) Add(src evidence.Source) {
	p.pool = append(p.pool, src)
}

// Mode returns the sharing mode
func (p *Propagandist) Mode() params.ShareMode { return p.mode }

// LatestEvidence returns the selected trials, or nil when nothing qualifies
func (p *Propagandist) LatestEvidence() []evidence.Trial {
	var selected []evidence.Trial
	for _, t := range evidence.Collect(p.pool) {
		if t.FavorsLow() {
			selected = append(selected, t)
		}
	}
	if len(selected) == 0 {
		return nil
	}
	if p.mode == params.ShareMostFavorable {
		best := selected[0]
		for _, t := range selected[1:] {
			// compare k1/n1 < k2/n2 without division
			if t.Successes*best.Trials < best.Successes*t.Trials {
				best = t
			}
		}
		return []evidence.Trial{best}
	}
	return selected
}
