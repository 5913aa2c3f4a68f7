package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/goosewin/kotoba/internal/config"
	"github.com/goosewin/kotoba/internal/logger"
)

// Version is overridden at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:               "kotoba",
	Short:             "On-device translation with llama.cpp",
	Long:              "Kotoba translates text locally by driving llama.cpp with a prompt grammar matched to the installed model.",
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute runs the root command.
func Execute() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads .env, the layered config for the working directory, and the
// logger, in that order, so each can see the previous step's values.
func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	if err := loadConfigForCwd(); err != nil {
		return err
	}
	_, err := logger.Init(config.String("logging.env", "development"), config.String("logging.level", "info"))
	return err
}
