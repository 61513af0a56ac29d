package presets

import (
	"errors"
	"strings"
	"testing"

	"epinet/domain/core"
	"epinet/domain/params"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPresets(t *testing.T) {
	set := Default()
	assert.Equal(t, []string{"policymakers", "propaganda", "zollman-complete", "zollman-cycle"}, set.Names())

	complete, err := set.Get("zollman-complete")
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, params.Experiment{
		Scientists:         5,
		Topology:           params.TopologyComplete,
		SampleSize:         1000,
		Epsilon:            0.001,
		StopThreshold:      0.5,
		MaxRounds:          10000,
		ConsensusThreshold: 0.99,
		ShareMode:          params.ShareFavorable,
	}, complete[0])

	cycle, err := set.Get("zollman-cycle")
	require.NoError(t, err)
	require.Len(t, cycle, 1)
	assert.Equal(t, params.TopologyRing, cycle[0].Topology)
	assert.Equal(t, 2, cycle[0].Scientists)
}

func TestPolicymakersExpandPopulations(t *testing.T) {
	exps, err := Default().Get("policymakers")
	require.NoError(t, err)
	require.Len(t, exps, 2)

	assert.Equal(t, 4, exps[0].Scientists)
	assert.Equal(t, 6, exps[1].Scientists)
	for _, e := range exps {
		require.NotNil(t, e.Passive)
		assert.Equal(t, 2, e.Passive.Count)
		assert.Equal(t, 0.0, e.Passive.MinPrior)
		assert.Equal(t, 0.5, e.Passive.MaxPrior)
		assert.False(t, e.Propagandist)
	}
	assert.NotSame(t, exps[0].Passive, exps[1].Passive)
}

func TestPropagandaPreset(t *testing.T) {
	exps, err := Default().Get("propaganda")
	require.NoError(t, err)
	for _, e := range exps {
		assert.True(t, e.Propagandist)
		assert.Equal(t, params.ShareFavorable, e.ShareMode)
	}
}

func TestUnknownPreset(t *testing.T) {
	_, err := Default().Get("counter-propaganda")
	assert.True(t, errors.Is(err, core.ErrPresetNotFound))
	assert.True(t, core.IsNotFoundError(err))
}

func TestLoadRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", "presets: {}\n"},
		{"unknown field", "presets:\n  x:\n    populations: [2]\n    colour: red\n"},
		{"no populations", "presets:\n  x:\n    experiment: {topology: ring, sample_size: 10, epsilon: 0.1, stop_threshold: 0.5, max_rounds: 5}\n"},
		{"bad epsilon", "presets:\n  x:\n    populations: [2]\n    experiment: {topology: ring, sample_size: 10, epsilon: 0.9, stop_threshold: 0.5, max_rounds: 5}\n"},
		{"bad topology", "presets:\n  x:\n    populations: [2]\n    experiment: {topology: star, sample_size: 10, epsilon: 0.1, stop_threshold: 0.5, max_rounds: 5}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadCustomPreset(t *testing.T) {
	doc := `
presets:
  tiny:
    description: smoke test
    populations: [3, 4]
    experiment:
      topology: ring
      sample_size: 10
      epsilon: 0.1
      stop_threshold: 0.5
      max_rounds: 5
      share_mode: most-favorable
`
	set, err := Load(strings.NewReader(doc))
	require.NoError(t, err)
	exps, err := set.Get("tiny")
	require.NoError(t, err)
	require.Len(t, exps, 2)
	assert.Equal(t, params.DefaultConsensusThreshold, exps[1].ConsensusThreshold)
	assert.Equal(t, params.ShareMostFavorable, exps[1].ShareMode)

	all := set.All()
	require.Len(t, all, 1)
	assert.Equal(t, "tiny", all[0].Name)
}

func TestResolveEmptyPathUsesDefaults(t *testing.T) {
	set, err := Resolve("")
	require.NoError(t, err)
	assert.Len(t, set.Names(), 4)

	_, err = Resolve("/nonexistent/presets.yaml")
	assert.Error(t, err)
}
