package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/stepwise/internal/presentation/tui"
)

// RunWatch executes Stepwise in development mode: the run restarts from the
// first step whenever a definition file changes.
func RunWatch(ctx context.Context, opts RunOptions, lines <-chan string) error {
	opts.defaults()
	logger := createLogger(opts.Debug)
	if !opts.NoBanner {
		tui.PrintBanner(opts.Out)
	}

	logger.Info("Starting Watcher", "path", opts.Path)
	printSystemMessage(opts.Out, "Watching '%s' for changes.", opts.Path)

	for {
		engine, err := createEngine(opts, logger)
		if err != nil {
			logger.Error("Engine initialization failed", "err", err)
			printSystemMessage(opts.Out, "Error: %v", err)
			if !waitBackoff(ctx, 2*time.Second) {
				return nil
			}
			continue
		}

		iterCtx, cancel := context.WithCancel(ctx)
		changes, err := engine.Watch(iterCtx)
		if err != nil {
			cancel()
			return fmt.Errorf("watch mode needs a definitions directory: %w", err)
		}

		reloaded := make(chan struct{})
		go func() {
			if _, ok := <-changes; ok {
				close(reloaded)
				cancel()
			}
		}()

		quit, err := runSession(iterCtx, engine, opts, lines)
		if err != nil && ctx.Err() == nil {
			logger.Error("Session failed", "err", err)
			printSystemMessage(opts.Out, "Error: %v", err)
			printSystemMessage(opts.Out, "Waiting for changes...")
			select {
			case <-reloaded:
			case <-ctx.Done():
			}
		}
		cancel()

		if ctx.Err() != nil || (quit && err == nil) {
			return nil
		}
		logger.Info("Watcher restarting")
		printSystemMessage(opts.Out, "Change detected, restarting.")
	}
}
