package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/pkg/adapters/file"
	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/adapters/redis"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
)

// createLogger configures the application logger.
// In debug mode, it writes to Stderr (to separate from Stdout flow UI).
func createLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}

// createEngine initializes an engine with the CLI conventions: simulated
// audio, and debug hooks when requested.
func createEngine(opts RunOptions, logger *slog.Logger) (*stepwise.Engine, error) {
	engineOpts := []stepwise.Option{
		stepwise.WithLogger(logger),
		stepwise.WithAudio(func() ports.AudioHandle { return memory.NewAudio() }),
	}
	if opts.Debug {
		engineOpts = append(engineOpts, stepwise.WithLifecycleHooks(createDebugHooks(logger)))
	}

	engine, err := stepwise.New(opts.Path, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}

// createStore picks where snapshots go. Runs without an ID are not persisted.
func createStore(opts RunOptions) ports.SnapshotStore {
	switch {
	case opts.RunID == "":
		return nil
	case opts.RedisAddr != "":
		return redis.New(opts.RedisAddr, "", 0)
	default:
		return file.NewStore(opts.StateDir)
	}
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStatus: func(ctx context.Context, e *domain.StatusEvent) {
			logger.Debug("Status", "node", e.Node, "kind", e.Kind, "status", e.Status)
		},
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.Debug("Transition", "from", e.From, "to", e.To, "index", e.Index, "notify", e.Notify)
		},
		OnRunEnd: func(ctx context.Context, e *domain.RunEvent) {
			logger.Debug("Run End", "run_id", e.RunID, "reason", e.Reason, "err", e.Err)
		},
	}
}

// pickDefinition returns the definition to run: the requested one, or the
// only one available.
func pickDefinition(engine *stepwise.Engine, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	names, err := engine.Definitions()
	if err != nil {
		return "", err
	}
	switch len(names) {
	case 0:
		return "", fmt.Errorf("no definitions found")
	case 1:
		return names[0], nil
	}
	return "", fmt.Errorf("several definitions found (%s), pick one with --definition", strings.Join(names, ", "))
}

// readLines pumps r into a channel so a single reader serves every session,
// including the ones restarted by watch mode. The channel closes on EOF.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case out <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

// waitBackoff waits d unless ctx ends first.
func waitBackoff(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
