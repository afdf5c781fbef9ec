package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/pkg/adapters/file"
	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/adapters/redis"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/aretw0/stepwise/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stepwise",
	Short: "Stepwise runs audio-gated step sequences",
	Long: `Stepwise runs multi-step experiences (tutorials, training flows, narrative beats)
described in YAML or JSON files, either interactively or behind an HTTP or MCP server.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("file", "f", ".", "Definition file, directory or step-document repository (env STEPWISE_FILE)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (env STEPWISE_LOG_LEVEL)")
	rootCmd.PersistentFlags().String("redis", "", "Redis address for snapshots, locks and variables (env STEPWISE_REDIS)")
	rootCmd.PersistentFlags().String("state-dir", "", "Directory of persisted runs, default .stepwise/runs (env STEPWISE_STATE_DIR)")
}

// config is the resolved global configuration: flags win over environment.
type config struct {
	Path     string
	LogLevel string
	Redis    string
	StateDir string
}

func loadConfig(cmd *cobra.Command, args []string) config {
	cfg := config{
		Path:     flagOrEnv(cmd, "file", "STEPWISE_FILE"),
		LogLevel: flagOrEnv(cmd, "log-level", "STEPWISE_LOG_LEVEL"),
		Redis:    flagOrEnv(cmd, "redis", "STEPWISE_REDIS"),
		StateDir: flagOrEnv(cmd, "state-dir", "STEPWISE_STATE_DIR"),
	}
	if !cmd.Flags().Changed("file") && os.Getenv("STEPWISE_FILE") == "" && len(args) > 0 {
		cfg.Path = args[0]
	}
	return cfg
}

func flagOrEnv(cmd *cobra.Command, name, env string) string {
	value, _ := cmd.Flags().GetString(name)
	if cmd.Flags().Changed(name) {
		return value
	}
	if v, ok := os.LookupEnv(env); ok {
		return v
	}
	return value
}

func (c config) logger() (*slog.Logger, error) {
	if c.LogLevel == "" {
		return logging.NewNop(), nil
	}
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}

func (c config) engine(logger *slog.Logger, opts ...stepwise.Option) (*stepwise.Engine, error) {
	opts = append([]stepwise.Option{
		stepwise.WithLogger(logger),
		stepwise.WithAudio(func() ports.AudioHandle { return memory.NewAudio() }),
	}, opts...)
	return stepwise.New(c.Path, opts...)
}

// store returns where run snapshots live: Redis when configured, else files.
func (c config) store() ports.SnapshotStore {
	if c.Redis != "" {
		return redis.New(c.Redis, "", 0)
	}
	return file.NewStore(c.StateDir)
}

// managerOptions wires persistence. With Redis, runs also share a distributed
// lock and read their variables from Redis keys.
func (c config) managerOptions(logger *slog.Logger) []session.Option {
	if c.Redis == "" {
		return []session.Option{session.WithStore(file.NewStore(c.StateDir))}
	}

	client := backend.NewClient(&backend.Options{Addr: c.Redis})
	vars := redis.NewVariables(client, redis.WithVariablesLogger(logger))
	return []session.Option{
		session.WithStore(redis.NewFromClient(client)),
		session.WithLocker(redis.NewLocker(client, "stepwise:")),
		session.WithVariables(func(*domain.Definition) ports.VariableResolver { return vars }),
	}
}
