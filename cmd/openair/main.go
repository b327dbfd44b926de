package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openair-rf/openair/cmd/openair/app"
	"github.com/openair-rf/openair/internal/scan"
	"github.com/openair-rf/openair/internal/spectrum"
)

var rootCmd = &cobra.Command{
	Use:           "openair",
	Short:         "Drive a VISA-connected spectrum analyzer through multi-band scans.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	configPath string

	exportSessionID int64
	exportOut       string

	planStartMHz   float64
	planStopMHz    float64
	planMaxSpanMHz float64
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the configuration file")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "scan",
		Short: "Run a full band scan and persist the stitched trace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConfig(func(ctx context.Context, config *app.Config, logger *slog.Logger) error {
				return app.Run(ctx, config, logger)
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "sessions",
		Short: "List stored scan sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConfig(func(ctx context.Context, config *app.Config, logger *slog.Logger) error {
				return app.ListSessions(ctx, config, os.Stdout)
			})
		},
	})

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Re-export a stored session's stitched trace to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConfig(func(ctx context.Context, config *app.Config, logger *slog.Logger) error {
				return app.ExportSession(ctx, config, exportSessionID, exportOut, logger)
			})
		},
	}
	exportCmd.Flags().Int64VarP(&exportSessionID, "session", "s", 0, "session ID to export")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output CSV path")
	_ = exportCmd.MarkFlagRequired("session")
	rootCmd.AddCommand(exportCmd)

	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the segment plan for a frequency range without touching hardware",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printPlan(planStartMHz, planStopMHz, planMaxSpanMHz)
		},
	}
	planCmd.Flags().Float64Var(&planStartMHz, "start", 0, "range start in MHz")
	planCmd.Flags().Float64Var(&planStopMHz, "stop", 0, "range stop in MHz")
	planCmd.Flags().Float64Var(&planMaxSpanMHz, "max-span", 0, "maximum segment span in MHz")
	_ = planCmd.MarkFlagRequired("start")
	_ = planCmd.MarkFlagRequired("stop")
	rootCmd.AddCommand(planCmd)
}

func withConfig(run func(ctx context.Context, config *app.Config, logger *slog.Logger) error) error {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &logLevel}))

	if configPath == "" {
		return fmt.Errorf("no configuration file provided")
	}

	config, err := app.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration file %s: %w", configPath, err)
	}

	logLevel.Set(config.Settings.SlogLevel())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return run(ctx, config, logger)
}

func printPlan(startMHz, stopMHz, maxSpanMHz float64) error {
	if stopMHz <= startMHz {
		return fmt.Errorf("stop must be above start")
	}

	segments := scan.PlanSegments(startMHz*spectrum.MHzToHz, stopMHz*spectrum.MHzToHz, maxSpanMHz*spectrum.MHzToHz)
	for i, s := range segments {
		fmt.Printf("%3d  center %12.6f MHz  span %10.6f MHz  [%12.6f - %12.6f]\n",
			i+1,
			s.CenterHz/spectrum.MHzToHz,
			s.SpanHz/spectrum.MHzToHz,
			s.StartHz()/spectrum.MHzToHz,
			s.StopHz()/spectrum.MHzToHz)
	}
	fmt.Printf("%d segments\n", len(segments))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
