package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bill-tracker/internal/model"
	"github.com/sells-group/bill-tracker/internal/orchestrator"
	"github.com/sells-group/bill-tracker/internal/runlog"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the recurring crawl scheduler",
	Long: `Run the full crawl-and-merge cycle across every jurisdiction
on the configured interval (default every 14 days at 09:00), idling
between runs. Stops on SIGINT/SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runLog, err := runlog.Open(cfg.Run.DBPath)
		if err != nil {
			return err
		}
		defer runLog.Close()

		orch := orchestrator.New(newCrawler(), runLog, orchestratorConfig(model.JurisdictionCodes()))
		sched := orchestrator.Schedule{
			EveryDays: cfg.Schedule.EveryDays,
			At:        cfg.Schedule.At,
		}

		zap.L().Info("scheduler started",
			zap.Int("every_days", sched.EveryDays),
			zap.String("at", sched.At),
		)

		if err := orch.RunEvery(ctx, sched); err != nil && !eris.Is(err, context.Canceled) {
			return eris.Wrap(err, "schedule")
		}
		zap.L().Info("scheduler stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}
