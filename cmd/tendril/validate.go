package main

import (
	"fmt"

	"github.com/aretw0/tendril/internal/cli"
	"github.com/aretw0/tendril/internal/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check configuration and graph for consistency",
	Long:  `Loads the configuration, compiles the chatbot graph and checks that every configured interrupt names a node.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runValidate(cmd); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Graph is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// The memory backend keeps validation free of side effects on disk or network.
	probe := *cfg
	probe.Store.Backend = config.BackendMemory
	backend, err := cli.OpenBackend(&probe, nil)
	if err != nil {
		return err
	}
	defer backend.Close()

	logger, err := cli.NewLogger(cfg.LogLevel, true)
	if err != nil {
		return err
	}
	eng, err := cli.NewChatEngine(&probe, backend, logger, nil)
	if err != nil {
		return err
	}

	topo := eng.Topology()
	fmt.Fprintf(cmd.OutOrStdout(), "%d nodes, %d edges\n", len(topo.Nodes), len(topo.Edges))
	return nil
}
