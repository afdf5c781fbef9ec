package cli

import (
	"context"
	"fmt"
	"io"
	"os"
)

// RunOptions contains all the configuration for the Run command.
type RunOptions struct {
	Path       string // definition file or directory
	Definition string // which definition to run when Path holds several
	RunID      string // when set, snapshots are persisted under this ID
	StateDir   string // file store directory for persisted runs
	RedisAddr  string // persist to Redis instead of StateDir
	Watch      bool
	Debug      bool
	NoBanner   bool

	In     io.Reader
	Out    io.Writer
	Render func(markdown string) (string, error)
}

func (o *RunOptions) defaults() {
	if o.In == nil {
		o.In = os.Stdin
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Render == nil {
		o.Render = func(markdown string) (string, error) { return markdown, nil }
	}
}

// Execute handles the 'run' command logic, dispatching to Session or Watch mode.
func Execute(ctx context.Context, opts RunOptions) error {
	opts.defaults()
	if opts.Path == "" {
		return fmt.Errorf("no definition path given")
	}

	lines := readLines(ctx, opts.In)
	if opts.Watch {
		return RunWatch(ctx, opts, lines)
	}
	return RunSession(ctx, opts, lines)
}
