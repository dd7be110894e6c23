package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/tendril/internal/cli"
	"github.com/aretw0/tendril/internal/presentation/graph"
	"github.com/aretw0/tendril/pkg/chatbot"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the chatbot graph",
	Long:  `Outputs a Mermaid diagram (graph TD) of the compiled graph. Approval gates are drawn as parallelograms.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		sessionID, _ := cmd.Flags().GetString("session")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		g, err := chatbot.NewGraph(nil)
		if err != nil {
			return err
		}
		topo := g.Topology()

		if format == "json" {
			data, err := json.MarshalIndent(topo, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		overlay := &graph.Overlay{Gated: cfg.Interrupts}
		if cfg.Interrupts == nil {
			overlay.Gated = chatbot.DefaultInterrupts
		}
		if sessionID != "" {
			backend, err := cli.OpenBackend(cfg, nil)
			if err != nil {
				return err
			}
			defer backend.Close()
			cp, err := backend.Store.Load(cmd.Context(), sessionID)
			if err != nil {
				return fmt.Errorf("loading session '%s': %w", sessionID, err)
			}
			overlay.Cursor = cp.Cursor
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(topo, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("format", "mermaid", "Output format: mermaid or json")
	graphCmd.Flags().String("session", "", "Highlight the cursor of this session")
}
