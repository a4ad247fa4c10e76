package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

const defaultRecent = 5

var vocabCmd = &cobra.Command{
	Use:     "vocab [n]",
	Aliases: []string{"list"},
	Short:   "Show the most recently added phrases",
	Long: `Vocab lists the last n records (default 5), newest first. Synced
records are marked with *.`,
	Args: cobra.MaximumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		n, err := parseCount(args)
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		store, err := a.openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		recs, err := store.ListRecent(cmd.Context(), n)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(recs)
		}

		if len(recs) == 0 {
			fmt.Fprintf(w, "No %s vocabulary yet. Add a phrase with 'lang new'.\n", a.profile.Language)
			return nil
		}
		for i, rec := range recs {
			if i > 0 {
				fmt.Fprintln(w)
			}
			printRecord(w, a.profile, rec)
		}
		return nil
	}),
}

func init() {
	vocabCmd.Flags().Bool("json", false, "print records as JSON")

	rootCmd.AddCommand(vocabCmd)
}

// parseCount reads the optional record count argument.
func parseCount(args []string) (int, error) {
	if len(args) == 0 {
		return defaultRecent, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid count %q: must be a non-negative integer", args[0])
	}
	return n, nil
}
