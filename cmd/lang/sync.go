package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/lang-engine/internal/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push unsynced records to Anki",
	Long: `Sync sends every unsynced record to Anki through AnkiConnect, creating
decks as needed. Each record is marked synced only after Anki confirms the
note; a rejected record is reported and retried on the next sync.

Anki must be running with the AnkiConnect add-on installed. Run
'lang setup-anki' once to create the note type.`,
	Args: cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		store, err := a.openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		agent := &syncer.Agent{
			Store:          store,
			Target:         a.ankiClient(),
			Profile:        a.profile,
			UpdateExisting: a.cfg.Sync.UpdateExisting,
			Log:            a.log,
		}

		w := cmd.OutOrStdout()
		summary, err := agent.Sync(cmd.Context(), w)
		if summary.Total() > 0 {
			fmt.Fprintf(w, "\nSync complete: %d created, %d updated, %d failed (%d total)\n",
				summary.Created, summary.Updated, summary.Failed, summary.Total())
		}
		if err != nil {
			return err
		}
		if summary.HasFailures() {
			return fmt.Errorf("%d record(s) failed to sync", summary.Failed)
		}
		return nil
	}),
}

func init() {
	syncCmd.Flags().Bool("update-existing", false, "update a matching note in the deck instead of adding a new one")
	viper.BindPFlag("sync.update_existing", syncCmd.Flags().Lookup("update-existing"))

	rootCmd.AddCommand(syncCmd)
}
