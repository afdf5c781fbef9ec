package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// Variables resolves condition values from Redis string keys, so any process
// can drive a flow by writing a key. Missing keys and unreadable values read
// as the zero value of their kind.
type Variables struct {
	client  *backend.Client
	prefix  string
	timeout time.Duration
	logger  *slog.Logger

	mu    sync.RWMutex
	kinds map[string]domain.ValueKind
}

// VariablesOption configures Variables.
type VariablesOption func(*Variables)

// WithVariablePrefix sets the key prefix. Default "stepwise:var:".
func WithVariablePrefix(prefix string) VariablesOption {
	return func(v *Variables) {
		v.prefix = prefix
	}
}

// WithReadTimeout bounds each synchronous read. Default 500ms.
func WithReadTimeout(d time.Duration) VariablesOption {
	return func(v *Variables) {
		v.timeout = d
	}
}

// WithVariablesLogger sets a custom structured logger.
func WithVariablesLogger(logger *slog.Logger) VariablesOption {
	return func(v *Variables) {
		v.logger = logger
	}
}

// NewVariables creates a resolver over client.
func NewVariables(client *backend.Client, opts ...VariablesOption) *Variables {
	v := &Variables{
		client:  client,
		prefix:  "stepwise:var:",
		timeout: 500 * time.Millisecond,
		logger:  logging.NewNop(),
		kinds:   make(map[string]domain.ValueKind),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Value is an observable backed by one Redis key.
type Value[T ports.Primitive] struct {
	vars *Variables
	name string
	kind domain.ValueKind
}

func (v *Value[T]) Name() string { return v.name }

// Value reads the key. It returns the zero value when the key is missing or
// does not parse as the variable's kind.
func (v *Value[T]) Value() T {
	var zero T
	ctx, cancel := context.WithTimeout(context.Background(), v.vars.timeout)
	defer cancel()

	raw, err := v.vars.client.Get(ctx, v.vars.key(v.name)).Result()
	if err != nil {
		if !errors.Is(err, backend.Nil) {
			v.vars.logger.Warn("failed to read variable", "var", v.name, "error", err)
		}
		return zero
	}
	parsed, err := domain.ParseValue(v.kind, raw)
	if err != nil {
		v.vars.logger.Warn("unreadable variable value", "var", v.name, "value", raw, "error", err)
		return zero
	}
	out, _ := parsed.(T)
	return out
}

func (r *Variables) key(name string) string {
	return r.prefix + name
}

func bind[T ports.Primitive](r *Variables, name string, kind domain.ValueKind) (*Value[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if known, ok := r.kinds[name]; ok && known != kind {
		return nil, fmt.Errorf("variable %s is %s, not %s: %w", name, known, kind, domain.ErrVariableKind)
	}
	r.kinds[name] = kind
	return &Value[T]{vars: r, name: name, kind: kind}, nil
}

func (r *Variables) Bool(name string) (ports.Observable[bool], error) {
	return bind[bool](r, name, domain.ValueBool)
}

func (r *Variables) Int(name string) (ports.Observable[int], error) {
	return bind[int](r, name, domain.ValueInt)
}

func (r *Variables) Float(name string) (ports.Observable[float64], error) {
	return bind[float64](r, name, domain.ValueFloat)
}

func (r *Variables) String(name string) (ports.Observable[string], error) {
	return bind[string](r, name, domain.ValueString)
}

// Declare records the kind of a variable and writes its default unless the
// key already holds a value.
func (r *Variables) Declare(def domain.VariableDef) error {
	kind := def.Kind
	switch kind {
	case domain.ValueBool, domain.ValueInt, domain.ValueFloat, domain.ValueString:
	default:
		return fmt.Errorf("variable %s: %w: %q", def.Name, domain.ErrVariableKind, kind)
	}
	r.mu.Lock()
	r.kinds[def.Name] = kind
	r.mu.Unlock()

	if def.Default == nil {
		return nil
	}
	val, err := domain.CoerceValue(kind, def.Default)
	if err != nil {
		return fmt.Errorf("variable %s default: %w", def.Name, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.client.SetNX(ctx, r.key(def.Name), fmt.Sprint(val), 0).Err(); err != nil {
		return fmt.Errorf("failed to declare variable %s: %w", def.Name, err)
	}
	return nil
}

// SetRaw validates raw against the variable's kind and stores it.
func (r *Variables) SetRaw(name string, raw string) error {
	r.mu.RLock()
	kind, ok := r.kinds[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownVariable, name)
	}

	val, err := domain.ParseValue(kind, raw)
	if err != nil {
		return fmt.Errorf("variable %s: %w", name, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return r.client.Set(ctx, r.key(name), fmt.Sprint(val), 0).Err()
}

// Names returns the sorted names of variables bound or declared so far.
func (r *Variables) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
