// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the lang CLI: capture vocabulary,
// enrich it with an AI backend, and sync it to Anki.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the lang CLI.
var rootCmd = &cobra.Command{
	Use:   "lang",
	Short: "Capture vocabulary and sync it to Anki",
	Long: `lang keeps one vocabulary list per language profile. New phrases are
enriched by an AI backend (pinyin, translations, examples) and appended to
the profile's store; sync pushes unsynced records to Anki through
AnkiConnect, one deck per level.

Profiles: cn (Chinese, HSK levels) and fr (French, CEFR levels) are built in;
drop a YAML file into <data-dir>/profiles/ to add or override one.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./lang.yaml or ~/.config/lang/config.yaml)")
	rootCmd.PersistentFlags().StringP("profile", "p", "", "language profile code (default from config, else cn)")
	rootCmd.PersistentFlags().String("data-dir", "", "directory holding per-profile stores and state")
	rootCmd.PersistentFlags().Bool("debug", false, "write debug entries to the log file")

	viper.BindPFlag("profile", rootCmd.PersistentFlags().Lookup("profile"))
	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("lang")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "lang"))
		}
	}

	setDefaults(viper.GetViper())

	viper.SetEnvPrefix("LANGCLI")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
