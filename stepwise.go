package stepwise

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/stepwise/internal/compiler"
	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/internal/validator"
	"github.com/aretw0/stepwise/pkg/adapters/file"
	loamAdapter "github.com/aretw0/stepwise/pkg/adapters/loam"
	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/aretw0/stepwise/pkg/sequence"
	"github.com/aretw0/stepwise/pkg/session"
)

// ErrNotWatchable is returned by Watch when the loader cannot report changes.
var ErrNotWatchable = errors.New("loader does not support watching")

// Engine is the high-level entry point for the Stepwise library.
// It binds a definition loader to the logger, hooks, audio and variables
// every compiled run shares.
type Engine struct {
	loader  ports.DefinitionLoader
	logger  *slog.Logger
	hooks   []domain.LifecycleHooks
	audio   ports.AudioFactory
	newVars session.VariablesFactory
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLoader injects a custom DefinitionLoader, bypassing the file loader.
func WithLoader(l ports.DefinitionLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithLogger sets a custom structured logger for the engine and its runs.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks. Repeated calls compose.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = append(e.hooks, hooks)
	}
}

// WithAudio sets the factory for the audio handle each run allocates.
func WithAudio(factory ports.AudioFactory) Option {
	return func(e *Engine) {
		e.audio = factory
	}
}

// WithVariables sets the resolver factory conditions are bound against.
// The default gives every run its own in-memory variables.
func WithVariables(factory session.VariablesFactory) Option {
	return func(e *Engine) {
		e.newVars = factory
	}
}

// New initializes a new Engine over path, which may be a directory of
// definition files, a Loam repository of step documents (any directory with a
// sequence document) or a single file. If WithLoader is provided, path can be
// empty.
func New(path string, opts ...Option) (*Engine, error) {
	eng := &Engine{
		logger:  logging.NewNop(),
		newVars: func(*domain.Definition) ports.VariableResolver { return memory.NewVariables() },
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.loader != nil {
		return eng, nil
	}
	if path == "" {
		return nil, fmt.Errorf("path is required when no custom loader is provided")
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	if info.IsDir() {
		if loamAdapter.IsRepository(path) {
			l, err := loamAdapter.Open(path, loamAdapter.WithLogger(eng.logger))
			if err != nil {
				return nil, err
			}
			eng.loader = l
			return eng, nil
		}
		eng.loader = file.New(path, file.WithLogger(eng.logger))
		return eng, nil
	}

	def, err := file.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if eng.loader, err = memory.NewLoader(*def); err != nil {
		return nil, err
	}
	return eng, nil
}

// Loader returns the definition loader.
func (e *Engine) Loader() ports.DefinitionLoader {
	return e.loader
}

// Definitions lists the names of the available definitions.
func (e *Engine) Definitions() ([]string, error) {
	return e.loader.List()
}

// Validate loads the named definition and reports every structural problem
// as a *validator.ValidationError.
func (e *Engine) Validate(name string) error {
	def, err := e.loader.Load(name)
	if err != nil {
		return err
	}
	return validator.Validate(def)
}

// Compile builds a fresh run of the named definition bound to loop. The run
// is not begun. The returned resolver holds the run's variables.
func (e *Engine) Compile(name string, loop *sequence.Loop, opts ...sequence.Option) (sequence.Runner, ports.VariableResolver, error) {
	def, err := e.loader.Load(name)
	if err != nil {
		return nil, nil, err
	}

	vars := e.newVars(def)
	seqOpts := []sequence.Option{
		sequence.WithLoop(loop),
		sequence.WithLogger(e.logger),
	}
	if e.audio != nil {
		seqOpts = append(seqOpts, sequence.WithAudio(e.audio))
	}
	if len(e.hooks) > 0 {
		seqOpts = append(seqOpts, sequence.WithHooks(domain.ComposeHooks(e.hooks...)))
	}

	runner, err := compiler.Compile(def, vars, append(seqOpts, opts...)...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compile %s: %w", name, err)
	}
	return runner, vars, nil
}

// Manager returns a session manager sharing the engine's loader, logger,
// hooks, audio and variables. Extra options are applied last.
func (e *Engine) Manager(opts ...session.Option) *session.Manager {
	base := []session.Option{
		session.WithLogger(e.logger),
		session.WithVariables(e.newVars),
	}
	if e.audio != nil {
		base = append(base, session.WithAudio(e.audio))
	}
	for _, h := range e.hooks {
		base = append(base, session.WithHooks(h))
	}
	return session.NewManager(e.loader, append(base, opts...)...)
}

// Watch signals whenever the definitions change.
func (e *Engine) Watch(ctx context.Context) (<-chan struct{}, error) {
	w, ok := e.loader.(ports.Watchable)
	if !ok {
		return nil, ErrNotWatchable
	}
	return w.Watch(ctx)
}
