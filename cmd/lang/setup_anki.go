package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var setupAnkiCmd = &cobra.Command{
	Use:   "setup-anki",
	Short: "Create or update the Anki note type for the profile",
	Long: `Setup-anki makes sure the profile's note type exists in Anki with the
profile's fields, card templates, and styling. An existing note type gets
its templates and styling refreshed; its fields are left alone.`,
	Args: cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		client := a.ankiClient()
		ctx := cmd.Context()
		if err := client.Ping(ctx); err != nil {
			return fmt.Errorf("is Anki running with AnkiConnect? %w", err)
		}

		created, err := client.EnsureModel(ctx, a.profile.Anki)
		if err != nil {
			return fmt.Errorf("setting up note type %q: %w", a.profile.Anki.ModelName, err)
		}

		w := cmd.OutOrStdout()
		if created {
			fmt.Fprintf(w, "Created note type %q\n", a.profile.Anki.ModelName)
		} else {
			fmt.Fprintf(w, "Updated templates and styling of note type %q\n", a.profile.Anki.ModelName)
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(setupAnkiCmd)
}
