package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"epinet/domain/params"
	"epinet/domain/sim"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSummaries(t *testing.T) []*sim.Summary {
	t.Helper()
	mean := 41.25
	exp := params.Experiment{
		Scientists:    2,
		Topology:      params.TopologyRing,
		SampleSize:    1000,
		Epsilon:       0.001,
		StopThreshold: 0.5,
		MaxRounds:     10000,
	}.WithDefaults()
	fingerprint, err := exp.Fingerprint()
	require.NoError(t, err)
	return []*sim.Summary{
		{
			Experiment:          exp,
			Fingerprint:         fingerprint,
			MasterSeed:          25359,
			Trials:              100,
			Consensus:           64,
			Abandoned:           36,
			ProportionConsensus: 0.64,
			MeanConsensusRound:  &mean,
			Elapsed:             1234 * time.Millisecond,
		},
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown("batch-1", sampleSummaries(t))

	assert.True(t, strings.HasPrefix(md, "# Batch batch-1\n"))
	assert.Contains(t, md, "| 100 | 64 | 36 | 0 | 0.640 | 41.250 | N/A | 1.234s |")
	assert.Contains(t, md, "Master seed: `25359`")
}

func TestMarkdownEmpty(t *testing.T) {
	assert.Contains(t, Markdown("b", nil), "No experiments were run.")
}

func TestHTML(t *testing.T) {
	page := string(HTML("batch-1", sampleSummaries(t)))

	assert.Contains(t, page, "<title>epinet batch batch-1</title>")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "41.250")
}

func TestSinkWritesFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	require.NoError(t, Sink{Dir: dir}.Record(context.Background(), "batch-9", sampleSummaries(t)))

	for _, name := range []string{"batch-9.md", "batch-9.html"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}
