package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"epinet/internal"
	"epinet/internal/config"
	"epinet/internal/container"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "epinet",
		Short: "Monte-Carlo simulations of Bayesian scientists on epistemic networks",
		Long: `epinet runs Zollman-style epistemic network experiments: scientists with
random priors test an action that is slightly better than a known alternative,
share results with their neighbours and either converge on the truth or abandon it.

Defaults come from the environment (SIM_TRIALS, SIM_SEED, SIM_WORKERS, RESULTS_CSV,
RESULTS_XLSX, REPORT_DIR, DATABASE_URL); flags override them.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newPresetCmd(),
		newPresetsCmd(),
		newReplayCmd(),
		newMigrateCmd(),
	)
	return rootCmd
}

// runOptions are the flags shared by commands that execute batches
type runOptions struct {
	trials  int
	seed    uint64
	workers int
	csv     string
	xlsx    string
	report  string
	noDB    bool
}

func (o *runOptions) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&o.trials, "trials", 0, "Trials per experiment (default SIM_TRIALS)")
	cmd.Flags().Uint64Var(&o.seed, "seed", 0, "Master seed (default SIM_SEED)")
	cmd.Flags().IntVar(&o.workers, "workers", 0, "Parallel workers (default SIM_WORKERS or NumCPU)")
	cmd.Flags().StringVar(&o.csv, "csv", "", "Append summaries to this CSV file (default RESULTS_CSV)")
	cmd.Flags().StringVar(&o.xlsx, "xlsx", "", "Write summaries to this XLSX workbook")
	cmd.Flags().StringVar(&o.report, "report-dir", "", "Write Markdown and HTML reports to this directory")
	cmd.Flags().BoolVar(&o.noDB, "no-db", false, "Do not persist summaries even if DATABASE_URL is set")
}

// apply overlays explicitly set flags onto cfg
func (o *runOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("trials") {
		cfg.Simulation.Trials = o.trials
	}
	if flags.Changed("seed") {
		cfg.Simulation.MasterSeed = o.seed
	}
	if flags.Changed("workers") {
		cfg.Simulation.Workers = o.workers
	}
	if flags.Changed("csv") {
		cfg.Output.CSVPath = o.csv
	}
	if flags.Changed("xlsx") {
		cfg.Output.XLSXPath = o.xlsx
	}
	if flags.Changed("report-dir") {
		cfg.Output.ReportDir = o.report
	}
	if o.noDB {
		cfg.Database.URL = ""
	}
}

// setup loads configuration, applies flag overrides and builds the container
func setup(cmd *cobra.Command, opts *runOptions) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts != nil {
		opts.apply(cmd, cfg)
	}

	logger := internal.DefaultLogger
	c, err := container.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := c.ConnectDatabase(cmd.Context()); err != nil {
		return nil, err
	}
	return c, nil
}
