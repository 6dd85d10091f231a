// Package main provides the ranker CLI: serve the HTTP API, rank candidates
// for a job, preview aspect weights and load fixtures.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonathan/candidate-ranker/internal/config"
)

var (
	// Used for flags.
	cfgFile string

	v = config.New()

	rootCmd = &cobra.Command{
		Use:           "ranker",
		Short:         "Aspect-weighted candidate ranking engine",
		Long:          "ranker scores the candidates of a job against recruiter-weighted aspects and explains the resulting ranking.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ranker.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	if err := v.BindPFlag("log.debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		panic(fmt.Sprintf("failed to bind debug flag: %v", err))
	}
	if err := v.BindPFlag("log.json", rootCmd.PersistentFlags().Lookup("json")); err != nil {
		panic(fmt.Sprintf("failed to bind json flag: %v", err))
	}
}

// initErr is returned by loadConfig so a bad config file fails the command
// instead of the process.
var initErr error

func initConfig() {
	initErr = config.ReadFile(v, cfgFile)
}

// loadConfig returns the validated configuration for the running command.
func loadConfig() (*config.Config, error) {
	if initErr != nil {
		return nil, initErr
	}
	return config.Load(v)
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
