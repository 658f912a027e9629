package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "voxmeter",
	Short: "Usage accounting and eligibility engine for a TTS/STT assistant",
	Long: `voxmeter meters text-to-speech and speech-to-text consumption
against time-boxed quotas (free trial, subscription, or a shared pool)
and gates further use once a quota is exhausted.

Quick start:
  voxmeter serve    # Start the API server

Management:
  voxmeter users    # Register and list users
  voxmeter usage    # Show a user's usage summary
  voxmeter seed     # Populate a development database`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "voxmeter.yaml", "config file path")
}
