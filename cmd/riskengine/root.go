package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nirujan123/risk-engine/internal/config"
	"github.com/nirujan123/risk-engine/internal/finance"
	"github.com/nirujan123/risk-engine/internal/pipeline"
)

// Execute builds the command tree and runs it with args.
func Execute(ctx context.Context, args []string) error {
	root := newRootCmd(pipeline.NewRunner())
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd(runner *pipeline.Runner) *cobra.Command {
	root := &cobra.Command{
		Use:           "riskengine",
		Short:         "Portfolio risk metrics from historical prices",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd(runner), fingerprintCmd())
	return root
}

func runCmd(runner *pipeline.Runner) *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a risk analysis from a YAML config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			res, err := runner.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run saved to: %s\n", res.RunDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to the YAML config")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func fingerprintCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the price cache key for a config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			req := finance.Request{
				Tickers:    cfg.Universe.Tickers,
				Start:      cfg.DateRange.Start,
				End:        cfg.DateRange.End,
				Interval:   cfg.Data.Interval,
				AutoAdjust: cfg.Data.AutoAdjust,
			}
			fmt.Fprintln(cmd.OutOrStdout(), req.CacheKey())
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to the YAML config")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
