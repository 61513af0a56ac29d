package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"epinet/internal/config"
	"epinet/internal/presets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPresetsCommand(t *testing.T) {
	t.Setenv("SIM_PRESETS", "")
	out, err := execute(t, "presets")
	require.NoError(t, err)
	for _, name := range presets.Default().Names() {
		assert.Contains(t, out, name)
	}
}

func TestRunCommandWritesCSV(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LOG_LEVEL", "ERROR")
	path := filepath.Join(t.TempDir(), "out.csv")

	out, err := execute(t, "run",
		"--scientists", "3", "--topology", "cycle", "--epsilon", "0.05",
		"--max-rounds", "200", "--trials", "6", "--seed", "42",
		"--csv", path, "--no-db")
	require.NoError(t, err)
	assert.Contains(t, out, "# Batch")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "6", records[1][0])
	assert.Equal(t, "ring", records[1][2])
}

func TestRunCommandRejectsBadTopology(t *testing.T) {
	_, err := execute(t, "run", "--topology", "star", "--no-db", "--csv", filepath.Join(t.TempDir(), "x.csv"))
	assert.Error(t, err)
}

func TestPresetCommandUnknown(t *testing.T) {
	t.Setenv("SIM_PRESETS", "")
	_, err := execute(t, "preset", "counter-propaganda", "--no-db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zollman-cycle")
}

func TestRunOptionsApplyOnlyChangedFlags(t *testing.T) {
	cmd := newRunCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--trials", "9", "--no-db"}))

	cfg := &config.Config{
		Simulation: config.SimulationConfig{Trials: 1000, MasterSeed: 25359, Workers: 4},
		Output:     config.OutputConfig{CSVPath: "results.csv"},
		Database:   config.DatabaseConfig{URL: "postgres://x"},
	}
	opts := &runOptions{trials: 9, noDB: true}
	opts.apply(cmd, cfg)

	assert.Equal(t, 9, cfg.Simulation.Trials)
	assert.Equal(t, uint64(25359), cfg.Simulation.MasterSeed)
	assert.Equal(t, "results.csv", cfg.Output.CSVPath)
	assert.False(t, cfg.Database.Enabled())
}
