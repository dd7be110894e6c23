package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/tendril/internal/cli"
	"github.com/aretw0/tendril/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "tendril",
	Short:         "Tendril runs checkpointed workflow graphs",
	Long:          `Tendril runs a sentiment chatbot graph with durable sessions and human approval before every reply.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to a YAML config file (default: ./"+config.DefaultFile+" when present)")
	flags.String("store", "", "Checkpoint backend: memory, file, redis or sqlite")
	flags.String("store-dir", "", "Directory for the file backend")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.Int("max-steps", 0, "Node invocations allowed per run")
}

// loadConfig resolves file, environment and flags, in increasing precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		if _, err := os.Stat(config.DefaultFile); err == nil {
			path = config.DefaultFile
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg, err := config.Load(path, os.LookupEnv)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("store") {
		cfg.Store.Backend, _ = flags.GetString("store")
	}
	if flags.Changed("store-dir") {
		cfg.Store.Dir, _ = flags.GetString("store-dir")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("max-steps") {
		cfg.MaxSteps, _ = flags.GetInt("max-steps")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup loads configuration and opens the backend. The caller closes the backend.
func setup(cmd *cobra.Command, quiet bool) (*config.Config, *cli.Backend, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := cli.NewLogger(cfg.LogLevel, quiet)
	if err != nil {
		return nil, nil, nil, err
	}
	b, err := cli.OpenBackend(cfg, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, b, logger, nil
}
