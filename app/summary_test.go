package app

import (
	"testing"

	"epinet/domain/params"
	"epinet/domain/sim"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestSummarize(t *testing.T) {
	cfg := quickExperiment().WithDefaults()
	outcomes := []*sim.Outcome{
		{State: sim.StateConsensus, ConsensusRound: intPtr(4), FinalRound: 4, PassiveAvgCredence: floatPtr(0.8)},
		{State: sim.StateConsensus, ConsensusRound: intPtr(8), FinalRound: 8, PassiveAvgCredence: floatPtr(0.6)},
		{State: sim.StateAbandoned, AbandonedRound: intPtr(3), FinalRound: 3},
		{State: sim.StateExhausted, FinalRound: 1000},
		{State: sim.StateConsensus, ConsensusRound: intPtr(6), FinalRound: 6},
		{State: sim.StateAbandoned, AbandonedRound: intPtr(1), FinalRound: 1},
	}

	s, err := Summarize(cfg, outcomes)
	require.NoError(t, err)

	assert.Equal(t, 6, s.Trials)
	assert.Equal(t, 3, s.Consensus)
	assert.Equal(t, 2, s.Abandoned)
	assert.Equal(t, 1, s.Exhausted)
	assert.Equal(t, 0.5, s.ProportionConsensus)
	require.NotNil(t, s.MeanConsensusRound)
	assert.InDelta(t, 6.0, *s.MeanConsensusRound, 1e-12)
	require.NotNil(t, s.MeanAbandonedRound)
	assert.InDelta(t, 2.0, *s.MeanAbandonedRound, 1e-12)
	require.NotNil(t, s.MeanPassiveCredence)
	assert.InDelta(t, 0.7, *s.MeanPassiveCredence, 1e-12)
	want, err := cfg.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, want, s.Fingerprint)
}

func TestSummarizeNoConsensus(t *testing.T) {
	outcomes := []*sim.Outcome{
		{State: sim.StateAbandoned, AbandonedRound: intPtr(1), FinalRound: 1},
		{State: sim.StateExhausted, FinalRound: 10},
		{State: sim.StateExhausted, FinalRound: 10},
	}

	s, err := Summarize(params.Experiment{}, outcomes)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.ProportionConsensus)
	assert.Nil(t, s.MeanConsensusRound)
	assert.Nil(t, s.MeanPassiveCredence)
}

func TestSummarizeRoundsProportion(t *testing.T) {
	outcomes := []*sim.Outcome{
		{State: sim.StateConsensus, ConsensusRound: intPtr(1), FinalRound: 1},
		{State: sim.StateExhausted, FinalRound: 2},
		{State: sim.StateExhausted, FinalRound: 2},
	}

	s, err := Summarize(params.Experiment{}, outcomes)
	require.NoError(t, err)
	assert.Equal(t, 0.333, s.ProportionConsensus)
}

func TestSummarizeEmpty(t *testing.T) {
	_, err := Summarize(params.Experiment{}, nil)
	assert.ErrorIs(t, err, ErrNoTrials)
}
