package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sandvault/sandvault/internal/monitor"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "serve",
		Short:        "Run the lease monitoring loop",
		SilenceUsage: true,
		Long: `Serve scans every active and frozen lease on a fixed interval,
comparing accrued cost and remaining time against the lease's thresholds.
Crossed thresholds raise alerts, freeze accounts, or terminate leases.`,
		RunE: runServe,
	}

	cmd.Flags().Duration("interval", 0, "scan interval (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := buildServices(ctx)
	if err != nil {
		return err
	}
	scanner, err := svc.newScanner()
	if err != nil {
		return err
	}

	interval := svc.cfg.Scan.Interval
	if override, _ := cmd.Flags().GetDuration("interval"); override > 0 {
		interval = override
	}

	runner, err := monitor.NewRunner(scanner, interval, svc.log)
	if err != nil {
		return err
	}
	if err := runner.Start(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
