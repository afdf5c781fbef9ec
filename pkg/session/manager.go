package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/stepwise/internal/compiler"
	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/observability"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/aretw0/stepwise/pkg/sequence"
	"github.com/google/uuid"
)

var (
	// ErrRunClosed is returned when an operation races with Close.
	ErrRunClosed = errors.New("run closed")

	// ErrReadOnlyVariables is returned by SetVariable when the run's resolver
	// does not accept values from hosts.
	ErrReadOnlyVariables = errors.New("variables are read-only")

	// ErrNotRewindable is returned by Previous on runs that cannot go back.
	ErrNotRewindable = errors.New("run cannot go back")
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager hosts live runs, each driven by its own loop goroutine.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	loader  ports.DefinitionLoader
	store   ports.SnapshotStore
	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
	newVars VariablesFactory
	hooks   []domain.LifecycleHooks
	seqOpts []sequence.Option

	mu    sync.Mutex
	runs  map[string]*Run
	locks map[string]*lockEntry
}

// NewManager creates a Manager compiling definitions from loader.
func NewManager(loader ports.DefinitionLoader, opts ...Option) *Manager {
	m := &Manager{
		loader:  loader,
		lockTTL: 30 * time.Second,
		logger:  logging.NewNop(),
		newVars: func(*domain.Definition) ports.VariableResolver { return memory.NewVariables() },
		runs:    make(map[string]*Run),
		locks:   make(map[string]*lockEntry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run is one live run. Its runner is only touched on its loop goroutine.
type Run struct {
	id         string
	definition string
	createdAt  time.Time

	runner sequence.Runner
	vars   ports.VariableResolver
	loop   *sequence.Loop

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	detach func()
}

func (r *Run) ID() string           { return r.id }
func (r *Run) Definition() string   { return r.definition }
func (r *Run) CreatedAt() time.Time { return r.createdAt }

// call runs fn on the run's loop and waits for it.
func (r *Run) call(ctx context.Context, fn func(sequence.Runner)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(r.ctx, cancel)
	defer stop()

	err := r.loop.Call(ctx, func() { fn(r.runner) })
	if err != nil && r.ctx.Err() != nil {
		return fmt.Errorf("%w: %s", ErrRunClosed, r.id)
	}
	return err
}

// Create compiles the named definition into a new run. An empty id gets a
// generated one. The run is not begun.
func (m *Manager) Create(ctx context.Context, definition, id string) (*Run, error) {
	if id == "" {
		id = uuid.NewString()
	}

	def, err := m.loader.Load(definition)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	_, exists := m.runs[id]
	m.mu.Unlock()
	if exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunExists, id)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	loop := sequence.NewLoop()
	vars := m.newVars(def)

	opts := append([]sequence.Option{
		sequence.WithLoop(loop),
		sequence.WithContext(runCtx),
		sequence.WithLogger(m.logger),
		sequence.WithRunID(id),
	}, m.seqOpts...)
	if len(m.hooks) > 0 {
		opts = append(opts, sequence.WithHooks(domain.ComposeHooks(m.hooks...)))
	}

	runner, err := compiler.Compile(def, vars, opts...)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to compile %s: %w", definition, err)
	}

	run := &Run{
		id:         id,
		definition: def.Name,
		createdAt:  time.Now(),
		runner:     runner,
		vars:       vars,
		loop:       loop,
		ctx:        runCtx,
		cancel:     cancel,
		done:       make(chan struct{}),
		detach:     func() {},
	}
	if m.store != nil {
		run.detach = observability.NewRecorder(m.store, observability.WithRecorderLogger(m.logger)).Attach(runner)
	}

	m.mu.Lock()
	if _, exists := m.runs[id]; exists {
		m.mu.Unlock()
		cancel()
		return nil, fmt.Errorf("%w: %s", domain.ErrRunExists, id)
	}
	m.runs[id] = run
	m.mu.Unlock()

	go func() {
		defer close(run.done)
		_ = loop.Run(runCtx)
	}()

	m.logger.Info("run created", "run_id", id, "definition", def.Name)
	return run, nil
}

// Get returns a live run.
func (m *Manager) Get(id string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
	}
	return run, nil
}

// List returns the IDs of live runs, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.runs))
	for id := range m.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Do runs fn on the run's loop while holding the run's locks, and returns the
// snapshot taken right after it.
func (m *Manager) Do(ctx context.Context, id string, fn func(sequence.Runner) error) (domain.Snapshot, error) {
	run, err := m.Get(id)
	if err != nil {
		return domain.Snapshot{}, err
	}

	var snap domain.Snapshot
	var fnErr error
	err = m.WithLock(ctx, id, func(ctx context.Context) error {
		return run.call(ctx, func(r sequence.Runner) {
			if fn != nil {
				fnErr = fn(r)
			}
			snap = r.Snapshot()
		})
	})
	if err != nil {
		return domain.Snapshot{}, err
	}
	return snap, fnErr
}

// Begin starts (or restarts) the run.
func (m *Manager) Begin(ctx context.Context, id string) (domain.Snapshot, error) {
	return m.Do(ctx, id, func(r sequence.Runner) error {
		r.Begin()
		return nil
	})
}

// Complete finishes the current step. With step set, only that step is
// completed; a stale step ID is ignored like any stale completion.
func (m *Manager) Complete(ctx context.Context, id, step string) (domain.Snapshot, error) {
	return m.Do(ctx, id, func(r sequence.Runner) error {
		cur := r.CurrentStep()
		if cur == nil || (step != "" && cur.ID() != step) {
			return nil
		}
		cur.Skip()
		return nil
	})
}

// Previous re-enters the previous step of a linear run.
func (m *Manager) Previous(ctx context.Context, id string) (domain.Snapshot, error) {
	return m.Do(ctx, id, func(r sequence.Runner) error {
		rw, ok := r.(sequence.Rewinder)
		if !ok {
			return fmt.Errorf("%w: %s is %s", ErrNotRewindable, id, r.Kind())
		}
		rw.GoToPreviousStep()
		return nil
	})
}

// Reset returns the run to Inactive.
func (m *Manager) Reset(ctx context.Context, id string) (domain.Snapshot, error) {
	return m.Do(ctx, id, func(r sequence.Runner) error {
		r.Reset()
		return nil
	})
}

// Snapshot returns the state of a live run, or the last stored snapshot of a
// run that is no longer live.
func (m *Manager) Snapshot(ctx context.Context, id string) (domain.Snapshot, error) {
	snap, err := m.Do(ctx, id, nil)
	if err == nil || !errors.Is(err, domain.ErrRunNotFound) || m.store == nil {
		return snap, err
	}

	stored, err := m.store.Load(ctx, id)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return *stored, nil
}

// SetVariable parses raw according to the variable's kind and stores it in
// the run's resolver.
func (m *Manager) SetVariable(ctx context.Context, id, name, raw string) error {
	run, err := m.Get(id)
	if err != nil {
		return err
	}
	setter, ok := run.vars.(ports.VariableSetter)
	if !ok {
		return ErrReadOnlyVariables
	}
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		var setErr error
		if err := run.call(ctx, func(sequence.Runner) { setErr = setter.SetRaw(name, raw) }); err != nil {
			return err
		}
		return setErr
	})
}

// Variables returns the current values of the run's variables, when its
// resolver can list them.
func (m *Manager) Variables(id string) (map[string]any, error) {
	run, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	lister, ok := run.vars.(interface{ Values() map[string]any })
	if !ok {
		return map[string]any{}, nil
	}
	return lister.Values(), nil
}

// Events streams status events of the run and all its steps until ctx is done
// or the run is closed. Slow consumers miss events instead of blocking the run.
func (m *Manager) Events(ctx context.Context, id string) (<-chan domain.StatusEvent, error) {
	run, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	ch := make(chan domain.StatusEvent, 64)
	var mu sync.Mutex
	closed := false
	listener := func(e domain.StatusEvent) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- e:
		default:
		}
	}

	var unsubscribe []func()
	err = run.call(ctx, func(r sequence.Runner) {
		unsubscribe = append(unsubscribe, r.Subscribe(listener), sequence.SubscribeSteps(r, listener))
	})
	if err != nil {
		return nil, err
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-run.done:
		}
		for _, u := range unsubscribe {
			u()
		}
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()
	return ch, nil
}

// Close stops the run's loop and forgets it. Pending audio waits are
// abandoned; the stored snapshot, if any, is kept.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	run, ok := m.runs[id]
	delete(m.runs, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
	}

	run.cancel()
	<-run.done
	run.detach()
	m.logger.Info("run closed", "run_id", id)
	return nil
}

// Delete closes the run, if live, and removes its stored snapshot.
func (m *Manager) Delete(ctx context.Context, id string) error {
	closeErr := m.Close(id)
	if m.store == nil {
		return closeErr
	}
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		return m.store.Delete(ctx, id)
	})
}

// Shutdown closes every live run.
func (m *Manager) Shutdown() {
	for _, id := range m.List() {
		_ = m.Close(id)
	}
}

// Store returns the snapshot store, if any.
func (m *Manager) Store() ports.SnapshotStore {
	return m.store
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// WithLock executes fn while holding the local and, if configured, the
// distributed lock of the run.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, id, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"run_id", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
