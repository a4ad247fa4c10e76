package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/lang-engine/internal/backup"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Render the vocabulary to a PDF with pandoc",
	Long: `Backup writes every record to a PDF, one table per deck. It needs
pandoc and a LaTeX engine (xelatex by default, for CJK text) on PATH.
The store is only read.`,
	Args: cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		out, _ := cmd.Flags().GetString("out")
		engine, _ := cmd.Flags().GetString("engine")
		font, _ := cmd.Flags().GetString("font")
		keepMD, _ := cmd.Flags().GetBool("keep-md")

		if out == "" {
			out = backup.DefaultPath(".", a.profile, time.Now())
		}

		store, err := a.openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := backup.Backup(cmd.Context(), store, a.profile, out, backup.Options{
			Engine:       engine,
			MainFont:     font,
			KeepMarkdown: keepMD,
		}, a.log)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Backed up %d record(s) to %s\n", n, out)
		return nil
	}),
}

func init() {
	backupCmd.Flags().String("out", "", "output PDF (default: ./<profile>-vocab-<date>.pdf)")
	backupCmd.Flags().String("engine", "xelatex", "pandoc PDF engine")
	backupCmd.Flags().String("font", "", "main font, also used for CJK text")
	backupCmd.Flags().Bool("keep-md", false, "also write the intermediate Markdown next to the PDF")

	rootCmd.AddCommand(backupCmd)
}
