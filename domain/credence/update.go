// Package credence implements the two-hypothesis binomial belief update.
//
// An agent weighs H_high (success probability 0.5+epsilon) against H_low
// (0.5-epsilon). With only two symmetric hypotheses the binomial coefficients
// cancel and Bayes' rule reduces to
//
//	posterior = 1 / (1 + ((1-prior)/prior) * ((1-p)/p)^(2k-n))
//
// where k successes each contribute the likelihood ratio (1-p)/p and the n-k
// failures contribute its inverse.
package credence

import (
	"math"

	"epinet/domain/evidence"
)

// HighProbability is the success probability under the high hypothesis
func HighProbability(epsilon float64) float64 {
	return 0.5 + epsilon
}

// Posterior returns the credence in the high hypothesis after observing t.
// A prior of zero is a fixed point: no evidence revives certainty against
// H_high. The update runs in log-odds so long runs of one-sided evidence
// cannot overflow, and a credence strictly inside (0, 1) stays strictly inside.
func Posterior(prior float64, t evidence.Trial, epsilon float64) float64 {
	if prior <= 0 {
		return 0
	}
	if prior >= 1 {
		return 1
	}
	p := HighProbability(epsilon)
	exponent := float64(2*t.Successes - t.Trials)
	// log of the odds against H_high
	logOdds := math.Log1p(-prior) - math.Log(prior) + exponent*(math.Log1p(-p)-math.Log(p))
	posterior := 1 / (1 + math.Exp(logOdds))
	switch {
	case posterior <= 0:
		return math.SmallestNonzeroFloat64
	case posterior >= 1:
		return maxCredence
	}
	return posterior
}

// maxCredence is the largest float64 below one
var maxCredence = math.Nextafter(1, 0)

// Fold applies Posterior for each trial in order. The evaluation order is fixed
// so that repeated runs reproduce the same floating-point result.
func Fold(prior float64, trials []evidence.Trial, epsilon float64) float64 {
	c := prior
	for _, t := range trials {
		c = Posterior(c, t, epsilon)
	}
	return c
}
