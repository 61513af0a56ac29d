package postgres

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	"epinet/domain/core"
	"epinet/domain/params"
	"epinet/domain/sim"
	"epinet/internal/migration"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSummary(t *testing.T) *sim.Summary {
	t.Helper()
	mean := 12.5
	exp := params.Experiment{
		Scientists:    5,
		Topology:      params.TopologyRing,
		SampleSize:    1000,
		Epsilon:       0.001,
		StopThreshold: 0.5,
		MaxRounds:     10000,
		Passive:       &params.PassiveConfig{Count: 2, MaxPrior: 0.5, InfluencerCount: 2},
	}.WithDefaults()
	fingerprint, err := exp.Fingerprint()
	require.NoError(t, err)
	return &sim.Summary{
		Experiment:          exp,
		Fingerprint:         fingerprint,
		MasterSeed:          math.MaxUint64,
		Trials:              100,
		Consensus:           61,
		Abandoned:           30,
		Exhausted:           9,
		ProportionConsensus: 0.61,
		MeanConsensusRound:  &mean,
		Elapsed:             1500 * time.Millisecond,
		CreatedAt:           core.Timestamp(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	}
}

func TestRowConversionKeepsSeedAndNulls(t *testing.T) {
	batch := core.BatchID("batch-1")
	in := sampleSummary(t)

	row, err := toRow(batch, in)
	require.NoError(t, err)
	assert.Equal(t, "18446744073709551615", row.MasterSeed)
	assert.True(t, row.MeanConsensusRound.Valid)
	assert.False(t, row.MeanPassiveCredence.Valid)
	assert.Equal(t, int64(1500), row.ElapsedMs)

	out, err := fromRow(row)
	require.NoError(t, err)
	assert.Equal(t, batch, out.BatchID)
	assert.Equal(t, in.MasterSeed, out.MasterSeed)
	assert.Equal(t, in.Experiment, out.Experiment)
	refingerprint, err := out.Experiment.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, in.Fingerprint, refingerprint)
	assert.Nil(t, out.MeanPassiveCredence)
	assert.Equal(t, 12.5, *out.MeanConsensusRound)
}

func TestFromRowRejectsBadSeed(t *testing.T) {
	row, err := toRow("b", sampleSummary(t))
	require.NoError(t, err)
	row.MasterSeed = "not-a-number"
	_, err = fromRow(row)
	assert.Error(t, err)
}

// TestSummaryRepositoryIntegration runs against a real database when TEST_DATABASE_URL is set
func TestSummaryRepositoryIntegration(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, migration.NewRunner().Run(ctx, db))

	repo := NewSummaryRepository(db)
	batch := core.NewBatchID()
	require.NoError(t, repo.Record(ctx, batch, []*sim.Summary{sampleSummary(t), sampleSummary(t)}))

	got, err := repo.ListBatch(ctx, batch)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(math.MaxUint64), got[0].MasterSeed)

	_, err = repo.ListBatch(ctx, core.NewBatchID())
	assert.True(t, core.IsNotFoundError(err))
}
