package loam

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/pkg/adapters/file"
	"github.com/aretw0/stepwise/pkg/domain"
)

// SequenceDocument is the reserved document name that turns a directory into a definition.
const SequenceDocument = "sequence"

// Loader adapts a Loam document repository to ports.DefinitionLoader.
// Every directory holding a sequence document is one definition: the sequence
// document carries the header (name, kind, entry, variables, step order) and
// every other document in the directory is a step, with audio, flags and
// transitions in its frontmatter and its markdown body as content.
type Loader struct {
	Repo   *loam.TypedRepository[StepMetadata]
	root   string
	logger *slog.Logger
}

// Option configures the Loader.
type Option func(*Loader)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithRoot names the definition at the repository root when its sequence
// document has no name.
func WithRoot(name string) Option {
	return func(l *Loader) {
		l.root = name
	}
}

// New creates a Loam adapter.
func New(repo *loam.TypedRepository[StepMetadata], opts ...Option) *Loader {
	l := &Loader{Repo: repo, root: "root", logger: logging.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open initializes a read-only Loam repository at dir and adapts it.
func Open(dir string, opts ...Option) (*Loader, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	// Strict mode hands numbers back as json.Number, which the decode hooks accept.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}

	typedRepo := loam.NewTypedRepository[StepMetadata](repo)
	return New(typedRepo, append([]Option{WithRoot(filepath.Base(absPath))}, opts...)...), nil
}

// IsRepository reports whether dir holds step documents, that is a sequence
// document at its root or in one of its immediate subdirectories.
func IsRepository(dir string) bool {
	for _, pattern := range []string{
		filepath.Join(dir, SequenceDocument+".md"),
		filepath.Join(dir, "*", SequenceDocument+".md"),
	} {
		if matches, _ := filepath.Glob(pattern); len(matches) > 0 {
			return true
		}
	}
	return false
}

// Load returns the named definition.
func (l *Loader) Load(name string) (*domain.Definition, error) {
	defs, err := l.scan(context.Background())
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
	defs, err := l.scan(context.Background())
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

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				if hidden(trimExtension(evt.ID)) {
					continue
				}
				l.logger.Debug("document changed", "id", evt.ID)
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}

type document struct {
	id      string
	meta    StepMetadata
	content string
}

func (l *Loader) scan(ctx context.Context) (map[string]*domain.Definition, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	headers := make(map[string]document)
	steps := make(map[string][]document)
	for _, doc := range docs {
		id := trimExtension(doc.ID)
		if hidden(id) {
			continue
		}
		dir, base := path.Split(id)
		dir = strings.TrimSuffix(dir, "/")

		d := document{id: base, meta: doc.Data, content: strings.TrimSpace(doc.Content)}
		if base == SequenceDocument {
			headers[dir] = d
			continue
		}
		if d.meta.ID != "" {
			d.id = d.meta.ID
		}
		steps[dir] = append(steps[dir], d)
	}

	defs := make(map[string]*domain.Definition, len(headers))
	for dir, header := range headers {
		def, err := l.assemble(dir, header, steps[dir])
		if err != nil {
			return nil, err
		}
		if other, dup := defs[def.Name]; dup {
			return nil, fmt.Errorf("definition %s declared in %s and %s", def.Name, other.Source, def.Source)
		}
		defs[def.Name] = def
	}
	for dir := range steps {
		if _, ok := headers[dir]; !ok {
			l.logger.Debug("skipping directory without sequence document", "dir", dir)
		}
	}
	return defs, nil
}

func (l *Loader) assemble(dir string, header document, docs []document) (*domain.Definition, error) {
	name := header.meta.Name
	if name == "" {
		name = l.root
		if dir != "" {
			name = path.Base(dir)
		}
	}

	ordered, err := order(header.meta.Steps, docs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	steps := make([]any, 0, len(ordered))
	for _, d := range ordered {
		steps = append(steps, d.step())
	}

	raw := map[string]any{"name": name, "steps": steps}
	if header.content != "" {
		raw["description"] = header.content
	}
	if m := header.meta; m.Kind != "" {
		raw["kind"] = m.Kind
	}
	if m := header.meta; m.Entry != "" {
		raw["entry"] = m.Entry
	}
	if m := header.meta; m.BasePitch != nil {
		raw["base_pitch"] = m.BasePitch
	}
	if m := header.meta; len(m.Variables) > 0 {
		raw["variables"] = m.Variables
	}

	def, err := file.DecodeMap(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	def.Source = path.Join(dir, SequenceDocument)
	return def, nil
}

func (d document) step() map[string]any {
	s := map[string]any{"id": d.id}
	if d.content != "" {
		s["content"] = d.content
	}
	if d.meta.Audio != nil {
		s["audio"] = d.meta.Audio
	}
	if d.meta.AudioOnly {
		s["audio_only"] = true
	}
	if d.meta.FinishEarly {
		s["finish_early"] = true
	}
	if len(d.meta.Transitions) > 0 {
		s["transitions"] = d.meta.Transitions
	}
	return s
}

// order puts the steps the header lists first, in its order, then the rest by ID.
func order(names []any, docs []document) ([]document, error) {
	byID := make(map[string]document, len(docs))
	for _, d := range docs {
		if _, dup := byID[d.id]; dup {
			return nil, fmt.Errorf("duplicate step id %s", d.id)
		}
		byID[d.id] = d
	}

	out := make([]document, 0, len(docs))
	for _, n := range names {
		id := fmt.Sprint(n)
		d, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("sequence lists unknown step %s", id)
		}
		out = append(out, d)
		delete(byID, id)
	}

	rest := make([]string, 0, len(byID))
	for id := range byID {
		rest = append(rest, id)
	}
	sort.Strings(rest)
	for _, id := range rest {
		out = append(out, byID[id])
	}
	return out, nil
}

func trimExtension(id string) string {
	id = filepath.ToSlash(id)
	if ext := path.Ext(id); ext != "" {
		return strings.TrimSuffix(id, ext)
	}
	return id
}

// hidden reports whether any segment of id starts with a dot, as run state
// directories like .stepwise do.
func hidden(id string) bool {
	for _, seg := range strings.Split(id, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
