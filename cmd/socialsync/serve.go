package main

import (
	"log/slog"
	"socialsync-backend/internal/components/chrono"
	"socialsync-backend/internal/components/telemetry"
	"socialsync-backend/internal/store"
	libtelemetry "socialsync-backend/lib/telemetry"
	"socialsync-backend/lib/util/serviceutil"
	"time"

	"github.com/spf13/cobra"
)

const report_serve_sync = "serve.sync"

var runOnStart bool

func init() {
	serveCmd.Flags().BoolVar(&runOnStart, "now", false, "also sync once right after starting")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Sync every tracked profile on the configured cron schedule until interrupted.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		app, shutdown := openApp(ctx, true)
		defer shutdown()

		libtelemetry.InstrumentPerfStats(ctx, 30*time.Second)

		tel := telemetry.NewScopedAPI("socialsync", telemetry.SlogAPI{})
		sync := func() {
			result, err := app.Orchestrator.SyncAllProfiles(ctx, store.Filter{})
			if err != nil {
				tel.ReportBroken(report_serve_sync, err)
				return
			}
			slog.Info(
				"sync finished",
				"run_id", result.RunID,
				"success", result.Success,
				"failed", result.Failed,
				"total", result.Total,
			)
		}

		cron := chrono.NewStandardCron(app.Clock, tel)
		defer cron.Stop()
		err := cron.Cron(app.Config.Schedule, sync)
		if err != nil {
			serviceutil.Fatal("invalid schedule", err)
		}
		slog.Info("waiting for schedule...", "schedule", app.Config.Schedule, "timezone", app.Clock.Location().String())

		if runOnStart {
			sync()
		}
		<-ctx.Done()
	},
}
