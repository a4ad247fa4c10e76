package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/lang-engine/internal/profile"
)

var levelCmd = &cobra.Command{
	Use:   "level [value]",
	Short: "Show or set the current level",
	Long: `Level sets the level new and imported phrases are tagged with (for
example 3 for HSK 3, or B2 for CEFR). The level decides the Anki deck.
It stays set until changed. Without an argument, level prints the
current level and the accepted values.`,
	Args: cobra.MaximumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		w := cmd.OutOrStdout()
		p := a.profile

		if len(args) == 0 {
			st, err := a.state()
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "Current level: %s (deck %s)\n", levelLabel(p, st.CurrentLevel), p.DeckFor(st.CurrentLevel))
			fmt.Fprintf(w, "Accepted: %s\n", strings.Join(acceptedLevels(p.Levels.Values, p.Levels.Special), ", "))
			return nil
		}

		level, err := profile.CheckLevel(p, args[0])
		if err != nil {
			return err
		}
		if err := profile.SaveState(a.cfg.DataDir, p, profile.State{CurrentLevel: level}); err != nil {
			return err
		}
		fmt.Fprintf(w, "Level set to %s. New phrases go to %s.\n", levelLabel(p, level), p.DeckFor(level))
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(levelCmd)
}

func acceptedLevels(values []string, special map[string]string) []string {
	out := append([]string{}, values...)
	keys := make([]string, 0, len(special))
	for k := range special {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s (%s)", k, strings.TrimLeft(special[k], ":")))
	}
	return out
}
