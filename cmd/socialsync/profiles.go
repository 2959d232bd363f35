package main

import (
	"fmt"
	"socialsync-backend/internal/platform"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage tracked profiles.",
}

var addFlags struct {
	region     string
	url        string
	externalID string
}

func init() {
	addProfileCmd.Flags().StringVar(&addFlags.region, "region", "", "region the profile is reported under")
	addProfileCmd.Flags().StringVar(&addFlags.url, "url", "", "profile page, derived from the handle when empty")
	addProfileCmd.Flags().StringVar(&addFlags.externalID, "external-id", "", "platform side id, used to match vendor records")
	addFilterFlags(listProfilesCmd)

	profilesCmd.AddCommand(addProfileCmd)
	profilesCmd.AddCommand(listProfilesCmd)
	rootCmd.AddCommand(profilesCmd)
}

var addProfileCmd = &cobra.Command{
	Use:   "add <platform> <handle>...",
	Short: "Track one or more handles of a platform.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := platform.Parse(args[0])
		if err != nil {
			return err
		}
		if len(args) > 2 && (addFlags.url != "" || addFlags.externalID != "") {
			return fmt.Errorf("--url and --external-id only apply to a single handle")
		}

		var profiles []platform.Profile
		for _, handle := range args[1:] {
			profiles = append(profiles, platform.Profile{
				Platform:   p,
				Handle:     handle,
				URL:        addFlags.url,
				ExternalID: addFlags.externalID,
				Region:     addFlags.region,
			})
		}

		app, shutdown := openApp(cmd.Context(), false)
		defer shutdown()

		added, err := app.Store.AddProfiles(cmd.Context(), profiles)
		if err != nil {
			return err
		}
		printProfiles(added)
		return nil
	},
}

var listProfilesCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked profiles.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := filterFromFlags()
		if err != nil {
			return err
		}

		app, shutdown := openApp(cmd.Context(), false)
		defer shutdown()

		profiles, err := app.Store.ListProfiles(cmd.Context(), filter)
		if err != nil {
			return err
		}
		printProfiles(profiles)
		return nil
	},
}

func printProfiles(profiles []platform.Profile) {
	t := newTable()
	t.AppendHeader(table.Row{"id", "platform", "handle", "region", "url"})
	for _, p := range profiles {
		t.AppendRow(table.Row{strconv.FormatInt(p.ID, 10), p.Platform, p.Handle, p.Region, p.CanonicalURL()})
	}
	t.Render()
}
