package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/lang-engine/internal/vocab"
)

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Bulk import phrases from a CSV export",
	Long: `Import reads a CSV file with a header row (for example a LanguagePlayer
export) and appends one record per row, tagged with the current level.
Columns are matched to profile fields by name or alias, ignoring case.
Rows without a phrase or a required field are skipped and reported.

Imported rows are not enriched.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		levelFlag, _ := cmd.Flags().GetString("level")
		level, err := a.level(levelFlag)
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()

		rows, err := vocab.ReadRows(f)
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		store, err := a.openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		summary, err := vocab.ImportBulk(cmd.Context(), store, vocab.SchemaFor(a.profile), rows, level, time.Now)
		w := cmd.OutOrStdout()
		for _, rej := range summary.Rejected {
			// +2: one for the header, one for 1-based line numbers.
			fmt.Fprintf(w, "  skipped line %d: %v\n", rej.Row+2, rej.Err)
		}
		if err != nil {
			return fmt.Errorf("importing %s: %w", args[0], err)
		}

		a.log.Info("import finished",
			zap.String("file", args[0]),
			zap.Int("imported", summary.Imported),
			zap.Int("skipped", summary.Skipped))
		fmt.Fprintf(w, "\nImport complete: %d imported, %d skipped (%d rows) into %s\n",
			summary.Imported, summary.Skipped, summary.Total(), a.profile.DeckFor(level))
		return nil
	}),
}

func init() {
	importCmd.Flags().StringP("level", "l", "", "level to tag the imported rows with (default: current level)")

	rootCmd.AddCommand(importCmd)
}
