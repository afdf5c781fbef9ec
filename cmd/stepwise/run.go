package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/stepwise/internal/cli"
	"github.com/aretw0/stepwise/internal/presentation/tui"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [path]",
	Short: "Run a flow interactively",
	Long: `Runs a definition in the terminal. Press enter to complete the current step,
type 'help' for the other commands. Audio is simulated with timers.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd, args)
		definition, _ := cmd.Flags().GetString("definition")
		runID, _ := cmd.Flags().GetString("run-id")
		watch, _ := cmd.Flags().GetBool("watch")
		debug, _ := cmd.Flags().GetBool("debug")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return cli.Execute(ctx, cli.RunOptions{
			Path:       cfg.Path,
			Definition: definition,
			RunID:      runID,
			StateDir:   cfg.StateDir,
			RedisAddr:  cfg.Redis,
			Watch:      watch,
			Debug:      debug || cfg.LogLevel == "debug",
			NoBanner:   !tui.IsTerminal(os.Stdout),
			Render:     tui.NewRenderer(os.Stdout),
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("definition", "d", "", "Definition to run when the path holds several")
	runCmd.Flags().String("run-id", "", "Persist the run's snapshots under this ID")
	runCmd.Flags().BoolP("watch", "w", false, "Restart the run whenever a definition file changes")
	runCmd.Flags().Bool("debug", false, "Log engine events to stderr")
}
