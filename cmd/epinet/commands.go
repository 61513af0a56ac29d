package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"epinet/app"
	"epinet/domain/core"
	"epinet/domain/params"
	"epinet/internal/config"
	"epinet/internal/migration"
	"epinet/internal/presets"
	"epinet/internal/report"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	var (
		exp          params.Experiment
		topology     string
		shareMode    string
		passiveCount int
		passiveMin   float64
		passiveMax   float64
		passiveK     int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one experiment configuration",
		Long: `Run a single experiment configuration for the configured number of trials.

Example: epinet run --scientists 5 --topology complete --epsilon 0.001 --trials 1000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := params.ParseTopology(topology)
			if err != nil {
				return err
			}
			exp.Topology = kind
			exp.ShareMode = params.ShareMode(shareMode)
			if passiveCount > 0 {
				if passiveK == 0 {
					passiveK = exp.Scientists
				}
				exp.Passive = &params.PassiveConfig{
					Count:           passiveCount,
					MinPrior:        passiveMin,
					MaxPrior:        passiveMax,
					InfluencerCount: passiveK,
				}
			}
			return runBatch(cmd, opts, []params.Experiment{exp})
		},
	}

	opts.bind(cmd)
	cmd.Flags().IntVar(&exp.Scientists, "scientists", 5, "Number of scientists")
	cmd.Flags().StringVar(&topology, "topology", "complete", "Network topology: complete or ring (cycle)")
	cmd.Flags().IntVar(&exp.SampleSize, "sample-size", 1000, "Binomial trials per experiment")
	cmd.Flags().Float64Var(&exp.Epsilon, "epsilon", 0.001, "Advantage of the uncertain action over 0.5")
	cmd.Flags().Float64Var(&exp.StopThreshold, "stop-threshold", 0.5, "Credence below which a scientist stops experimenting")
	cmd.Flags().IntVar(&exp.MaxRounds, "max-rounds", 10000, "Round budget per trial")
	cmd.Flags().Float64Var(&exp.ConsensusThreshold, "consensus-threshold", params.DefaultConsensusThreshold, "Credence above which every scientist counts as converged")
	cmd.Flags().BoolVar(&exp.Propagandist, "propagandist", false, "Add a selective-sharing propagandist")
	cmd.Flags().StringVar(&shareMode, "share-mode", string(params.ShareFavorable), "Propagandist sharing: favorable or most-favorable")
	cmd.Flags().IntVar(&passiveCount, "passive", 0, "Number of passive observers (policymakers)")
	cmd.Flags().Float64Var(&passiveMin, "passive-min-prior", 0, "Lower bound of observer priors")
	cmd.Flags().Float64Var(&passiveMax, "passive-max-prior", 0.5, "Upper bound (exclusive) of observer priors")
	cmd.Flags().IntVar(&passiveK, "passive-influencers", 0, "Scientists each observer listens to (0 means all)")

	return cmd
}

func newPresetCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "preset [name]",
		Short: "Run a named preset",
		Long: `Run every experiment of a named preset.

Example: epinet preset zollman-cycle --trials 10000 --seed 25359`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := presetSet()
			if err != nil {
				return err
			}
			exps, err := set.Get(args[0])
			if err != nil {
				return fmt.Errorf("%w (available: %s)", err, strings.Join(set.Names(), ", "))
			}
			return runBatch(cmd, opts, exps)
		},
	}

	opts.bind(cmd)
	return cmd
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := presetSet()
			if err != nil {
				return err
			}
			return printPresets(cmd.OutOrStdout(), set)
		},
	}
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay [batch-id]",
		Short: "Re-run a stored batch and check that it reproduces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(cmd, nil)
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			if c.Summaries == nil {
				return fmt.Errorf("replay needs DATABASE_URL")
			}
			batchID, err := core.ParseBatchID(args[0])
			if err != nil {
				return err
			}
			summaries, err := c.Summaries.ListBatch(cmd.Context(), batchID)
			if err != nil {
				return err
			}
			for _, s := range summaries {
				if _, err := c.Batches.Replay(cmd.Context(), s); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reproduced %s (%s)\n", s.Fingerprint.Short(), s.Experiment)
			}
			return nil
		},
	}
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the summary tables in DATABASE_URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(cmd, nil)
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())
			if c.DB == nil {
				return fmt.Errorf("migrate needs DATABASE_URL")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %s is up to date\n", migration.NewRunner().Version())
			return nil
		},
	}
}

func runBatch(cmd *cobra.Command, opts *runOptions, exps []params.Experiment) error {
	c, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	defer c.Shutdown(cmd.Context())

	result, err := c.Batches.Run(cmd.Context(), app.BatchRequest{
		Experiments: exps,
		Trials:      c.Config.Simulation.Trials,
		MasterSeed:  c.Config.Simulation.MasterSeed,
	})
	if result != nil {
		fmt.Fprintln(cmd.OutOrStdout(), report.Markdown(result.BatchID, result.Summaries))
	}
	return err
}

func presetSet() (*presets.Set, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return presets.Resolve(cfg.Simulation.PresetsFile)
}

func printPresets(w io.Writer, set *presets.Set) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPOPULATIONS\tDESCRIPTION")
	for _, p := range set.All() {
		fmt.Fprintf(tw, "%s\t%v\t%s\n", p.Name, p.Populations, p.Description)
	}
	return tw.Flush()
}
