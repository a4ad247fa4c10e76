package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/lang-engine/internal/vocab"
	"github.com/pdiddy/lang-engine/pkg/types"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every record with its deck as YAML or JSON",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")

		store, err := a.openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if out == "" {
			_, err := vocab.Export(cmd.Context(), store, a.profile, format, cmd.OutOrStdout())
			return err
		}

		n, err := exportToFile(cmd.Context(), store, a.profile, format, out)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d record(s) to %s\n", n, out)
		return nil
	}),
}

func init() {
	exportCmd.Flags().String("format", "yaml", "output format: yaml or json")
	exportCmd.Flags().String("out", "", "output file (default: stdout)")

	rootCmd.AddCommand(exportCmd)
}

// exportToFile writes the export through a temp file in the same directory
// and renames it over path, so a failed export leaves path untouched.
func exportToFile(ctx context.Context, store vocab.Store, p *types.LanguageProfile, format, path string) (int, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	n, err := vocab.Export(ctx, store, p, format, tmp)
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("closing %s: %w", tmpPath, closeErr)
	}
	if err != nil {
		os.Remove(tmpPath)
		return 0, err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("renaming export file: %w", err)
	}
	return n, nil
}
