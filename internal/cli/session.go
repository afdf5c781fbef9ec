package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/internal/presentation/tui"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/session"
)

const helpText = `Commands:
  <enter>, n, next   complete the current step
  b, back            go back one step (linear flows)
  r, restart         begin the run again
  reset              reset the run to inactive
  set NAME VALUE     change a variable
  vars               show the variables
  s, status          show progress
  q, quit            leave`

// RunSession executes a single interactive run, driven by the lines typed
// by the user, until they quit or the input ends.
func RunSession(ctx context.Context, opts RunOptions, lines <-chan string) error {
	opts.defaults()
	logger := createLogger(opts.Debug)

	if !opts.NoBanner {
		tui.PrintBanner(opts.Out)
	}

	engine, err := createEngine(opts, logger)
	if err != nil {
		return err
	}
	_, err = runSession(ctx, engine, opts, lines)
	return err
}

// runSession returns quit=true when the user left or the input ended, and
// false when ctx was cancelled.
func runSession(ctx context.Context, engine *stepwise.Engine, opts RunOptions, lines <-chan string) (bool, error) {
	name, err := pickDefinition(engine, opts.Definition)
	if err != nil {
		return false, err
	}
	def, err := engine.Loader().Load(name)
	if err != nil {
		return false, err
	}

	out := &syncWriter{w: opts.Out}
	feed := newNotices()

	managerOpts := []session.Option{session.WithHooks(feed.hooks())}
	if store := createStore(opts); store != nil {
		managerOpts = append(managerOpts, session.WithStore(store))
	}
	manager := engine.Manager(managerOpts...)

	run, err := manager.Create(ctx, name, opts.RunID)
	if err != nil {
		manager.Shutdown()
		return false, err
	}

	h := &host{manager: manager, runID: run.ID(), def: def, out: out, term: opts.Out, render: opts.Render}
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.follow(feed.ch)
	}()
	defer func() {
		manager.Shutdown()
		feed.close()
		<-done
	}()

	if opts.RunID != "" {
		printSystemMessage(out, "Run '%s' is persisted.", opts.RunID)
	}
	if _, err := manager.Begin(ctx, h.runID); err != nil {
		return false, err
	}

	for {
		select {
		case <-ctx.Done():
			return false, nil
		case line, ok := <-lines:
			if !ok {
				return true, nil
			}
			quit, err := h.dispatch(ctx, line)
			if err != nil {
				printSystemMessage(out, "Error: %v", err)
			}
			if quit {
				return true, nil
			}
		}
	}
}

// host drives one run from text commands and prints what the run does.
type host struct {
	manager *session.Manager
	runID   string
	def     *domain.Definition
	out     io.Writer
	term    io.Writer // unwrapped output, for color detection
	render  func(string) (string, error)
}

func (h *host) dispatch(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	cmd := ""
	if len(fields) > 0 {
		cmd = strings.ToLower(fields[0])
	}

	var err error
	switch cmd {
	case "", "n", "next":
		_, err = h.manager.Complete(ctx, h.runID, "")
	case "b", "back":
		_, err = h.manager.Previous(ctx, h.runID)
	case "r", "restart":
		_, err = h.manager.Begin(ctx, h.runID)
	case "reset":
		if _, err = h.manager.Reset(ctx, h.runID); err == nil {
			printSystemMessage(h.out, "Run reset. Type 'restart' to begin again.")
		}
	case "s", "status":
		var snap domain.Snapshot
		if snap, err = h.manager.Snapshot(ctx, h.runID); err == nil {
			fmt.Fprintln(h.out, tui.StatusLine(h.term, snap))
		}
	case "vars":
		err = h.printVariables()
	case "set":
		if len(fields) < 3 {
			return false, fmt.Errorf("usage: set NAME VALUE")
		}
		err = h.manager.SetVariable(ctx, h.runID, fields[1], strings.Join(fields[2:], " "))
	case "h", "help", "?":
		fmt.Fprintln(h.out, helpText)
	case "q", "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q (type 'help')", cmd)
	}
	return false, err
}

func (h *host) printVariables() error {
	values, err := h.manager.Variables(h.runID)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		fmt.Fprintln(h.out, "No variables.")
		return nil
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(h.out, "  %s = %v\n", name, values[name])
	}
	return nil
}

// follow prints every step the run enters and how the run ends.
func (h *host) follow(ch <-chan notice) {
	for n := range ch {
		switch {
		case n.status != nil:
			if n.status.Kind != domain.KindStep || n.status.Status != domain.StatusStarted {
				continue
			}
			h.showStep(n.status.Node)
		case n.end != nil:
			switch n.end.Reason {
			case domain.ReasonReset, domain.ReasonRestarted:
			case domain.ReasonFinished, domain.ReasonTerminal:
				printSystemMessage(h.out, "Finished. Type 'restart' to run again or 'q' to leave.")
			default:
				printSystemMessage(h.out, "Ended early (%s): %s", n.end.Reason, n.end.Err)
			}
		}
	}
}

func (h *host) showStep(id string) {
	printSystemMessage(h.out, "Step '%s'", id)
	step, ok := h.def.Step(id)
	if !ok || step.Content == "" {
		return
	}
	rendered, err := h.render(step.Content)
	if err != nil {
		rendered = step.Content
	}
	fmt.Fprintln(h.out, strings.TrimRight(rendered, "\n"))
}

type notice struct {
	status *domain.StatusEvent
	end    *domain.RunEvent
}

// notices queues hook events in order for the printing goroutine. Hooks run
// on the run's loop, so a full queue drops instead of blocking.
type notices struct {
	mu     sync.Mutex
	ch     chan notice
	closed bool
}

func newNotices() *notices {
	return &notices{ch: make(chan notice, 256)}
}

func (n *notices) push(v notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	select {
	case n.ch <- v:
	default:
	}
}

func (n *notices) close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.closed {
		n.closed = true
		close(n.ch)
	}
}

func (n *notices) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStatus: func(_ context.Context, e *domain.StatusEvent) {
			ev := *e
			n.push(notice{status: &ev})
		},
		OnRunEnd: func(_ context.Context, e *domain.RunEvent) {
			ev := *e
			n.push(notice{end: &ev})
		},
	}
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
