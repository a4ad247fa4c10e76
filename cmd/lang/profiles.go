package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/lang-engine/internal/profile"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the available language profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(viper.GetViper())
		w := cmd.OutOrStdout()
		for _, code := range profile.List(cfg.DataDir) {
			p, err := profile.Load(code, cfg.DataDir)
			if err != nil {
				fmt.Fprintf(w, "  %-4s (invalid: %v)\n", code, err)
				continue
			}
			mark := " "
			if code == cfg.Profile {
				mark = "*"
			}
			fmt.Fprintf(w, "%s %-4s %-10s %s levels, store %s\n", mark, p.Code, p.Language, p.Levels.Type, p.Storage.Format)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}
