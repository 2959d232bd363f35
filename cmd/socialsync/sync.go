package main

import (
	"fmt"
	"socialsync-backend/internal/orchestrator"
	"socialsync-backend/internal/platform"
	"socialsync-backend/internal/store"
	"socialsync-backend/lib/util/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var filterFlags struct {
	handles   []string
	ids       []int64
	regions   []string
	platforms []string
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&filterFlags.handles, "handle", nil, "only profiles with these handles")
	cmd.Flags().Int64SliceVar(&filterFlags.ids, "id", nil, "only profiles with these ids")
	cmd.Flags().StringSliceVar(&filterFlags.regions, "region", nil, "only profiles in these regions")
	cmd.Flags().StringSliceVar(&filterFlags.platforms, "platform", nil, "only profiles on these platforms")
}

func filterFromFlags() (store.Filter, error) {
	filter := store.Filter{
		Handles: filterFlags.handles,
		IDs:     filterFlags.ids,
		Regions: filterFlags.regions,
	}
	for _, name := range filterFlags.platforms {
		p, err := platform.Parse(name)
		if err != nil {
			return store.Filter{}, err
		}
		filter.Platforms = append(filter.Platforms, p)
	}
	return filter, nil
}

func init() {
	addFilterFlags(syncCmd)
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Collect today's counts for every tracked profile (or the ones matching the filters).",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := filterFromFlags()
		if err != nil {
			return err
		}

		app, shutdown := openApp(cmd.Context(), true)
		defer shutdown()

		result, err := app.Orchestrator.SyncAllProfiles(cmd.Context(), filter)
		if err != nil {
			serviceutil.Fatal("sync failed", err)
		}
		printResult(result)
		return nil
	},
}

func printResult(result orchestrator.Result) {
	fmt.Printf(
		"run %s (%s): %d ok, %d failed, %d total, %d retried\n",
		result.RunID,
		result.Date,
		result.Success,
		result.Failed,
		result.Total,
		len(result.Retryable),
	)
	if len(result.Failures) == 0 {
		return
	}

	t := newTable()
	t.AppendHeader(table.Row{"id", "platform", "handle", "code", "message"})
	for _, f := range result.Failures {
		t.AppendRow(table.Row{f.Profile.ID, f.Profile.Platform, f.Profile.Handle, f.Code, f.Message})
	}
	t.Render()
}
