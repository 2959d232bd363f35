package main

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history <profile id>",
	Short: "Print the stored daily counts of a profile.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid profile id '%s'", args[0])
		}

		app, shutdown := openApp(cmd.Context(), false)
		defer shutdown()

		profile, err := app.Store.GetProfile(cmd.Context(), id)
		if err != nil {
			return err
		}
		points, err := app.Store.History(cmd.Context(), id)
		if err != nil {
			return err
		}

		fmt.Printf("%s @%s\n", profile.Platform, profile.Handle)
		t := newTable()
		t.AppendHeader(table.Row{"date", "followers", "posts"})
		for _, p := range points {
			t.AppendRow(table.Row{p.Date, p.FollowersCount, p.PostsCount})
		}
		t.Render()
		return nil
	},
}
