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

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Relay - chat API proxy for accelerator backends",
	Long: `Relay fronts a fleet of hardware-accelerator inference backends with
the OpenAI and Ollama chat APIs.

It flattens chat conversations into the prompt format the accelerators
expect, drives their start/poll generation protocol, rotates requests
across the fleet round-robin, and transparently recovers from
accelerator cache-overflow faults by resetting and retrying.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "relay.yaml", "config file path")
}
