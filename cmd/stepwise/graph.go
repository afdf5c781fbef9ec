package main

import (
	"fmt"

	"github.com/aretw0/stepwise/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <definition>",
	Short: "Export a definition as a Mermaid diagram",
	Long: `Outputs a Mermaid diagram (graph TD) of the definition. With --run, the steps a
persisted run visited and its current step are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd, nil)
		logger, err := cfg.logger()
		if err != nil {
			return err
		}
		engine, err := cfg.engine(logger)
		if err != nil {
			return err
		}

		def, err := engine.Loader().Load(args[0])
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if runID, _ := cmd.Flags().GetString("run"); runID != "" {
			snap, err := cfg.store().Load(cmd.Context(), runID)
			if err != nil {
				return fmt.Errorf("failed to load run %s: %w", runID, err)
			}
			overlay = graph.OverlayFromSnapshot(*snap)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(def, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("run", "", "Highlight the progress of a persisted run")
}
