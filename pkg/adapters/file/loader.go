package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/fsnotify/fsnotify"
)

// Loader implements ports.DefinitionLoader and ports.Watchable over a directory
// of YAML/JSON definition files. A definition is named by its `name` field, or
// by its file name when the field is empty.
type Loader struct {
	dir      string
	logger   *slog.Logger
	debounce time.Duration
}

// Option configures the Loader.
type Option func(*Loader)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithDebounce sets how long Watch waits for changes to settle. Default 200ms.
func WithDebounce(d time.Duration) Option {
	return func(l *Loader) {
		l.debounce = d
	}
}

// New creates a loader over dir.
func New(dir string, opts ...Option) *Loader {
	l := &Loader{dir: dir, logger: logging.NewNop(), debounce: 200 * time.Millisecond}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFile reads a single definition file.
func LoadFile(path string) (*domain.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}
	def, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if def.Name == "" {
		def.Name = stem(path)
	}
	def.Source = path
	return def, nil
}

// Dir returns the watched directory.
func (l *Loader) Dir() string { return l.dir }

// Load returns the named definition.
func (l *Loader) Load(name string) (*domain.Definition, error) {
	defs, err := l.scan()
	if err != nil {
		return nil, err
	}
	def, ok := defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrDefinitionNotFound, name)
	}
	return def, nil
}

// List returns all definition names.
func (l *Loader) List() ([]string, error) {
	defs, err := l.scan()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (l *Loader) scan() (map[string]*domain.Definition, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions directory: %w", err)
	}

	defs := make(map[string]*domain.Definition)
	for _, entry := range entries {
		if entry.IsDir() || !isDefinitionFile(entry.Name()) {
			continue
		}
		def, err := LoadFile(filepath.Join(l.dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if other, dup := defs[def.Name]; dup {
			return nil, fmt.Errorf("definition %s declared in %s and %s", def.Name, other.Source, def.Source)
		}
		defs[def.Name] = def
	}
	return defs, nil
}

// Watch signals on the returned channel whenever definition files change.
// Bursts of file events are debounced into one signal. The channel is closed
// when ctx is done.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(l.dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", l.dir, err)
	}
	l.logger.Debug("watching definitions", "dir", l.dir)

	out := make(chan struct{}, 1)
	go l.watchLoop(ctx, watcher, out)
	return out, nil
}

func (l *Loader) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, out chan struct{}) {
	defer close(out)
	defer watcher.Close()

	timer := time.NewTimer(l.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isDefinitionFile(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				l.logger.Debug("definition changed", "file", event.Name, "op", event.Op.String())
				timer.Reset(l.debounce)
			}

		case <-timer.C:
			select {
			case out <- struct{}{}:
			default:
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l.logger.Error("definition watcher error", "error", err)
		}
	}
}
