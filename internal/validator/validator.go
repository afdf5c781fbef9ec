package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/stepwise/internal/compiler"
	"github.com/aretw0/stepwise/pkg/domain"
)

// Severity tells whether an issue prevents a definition from being used.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one problem found in a definition.
type Issue struct {
	Severity Severity
	Step     string
	Message  string
}

func (i Issue) String() string {
	if i.Step == "" {
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("%s: step '%s': %s", i.Severity, i.Step, i.Message)
}

// ValidationError lists the errors that make a definition unusable.
type ValidationError struct {
	Definition string
	Issues     []Issue
}

func (e *ValidationError) Error() string {
	lines := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		lines[i] = issue.String()
	}
	return fmt.Sprintf("definition '%s' has %d errors:\n- %s", e.Definition, len(e.Issues), strings.Join(lines, "\n- "))
}

// Validate returns a *ValidationError when def has error-level issues.
func Validate(def *domain.Definition) error {
	var errs []Issue
	for _, issue := range Check(def) {
		if issue.Severity == SeverityError {
			errs = append(errs, issue)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Definition: def.Name, Issues: errs}
}

// Check inspects def and returns every issue found, errors and warnings.
func Check(def *domain.Definition) []Issue {
	c := &checker{def: def, ids: make(map[string]bool)}
	c.header()
	c.variables()
	c.steps()
	if def.Kind == domain.KindBranching {
		c.graph()
	}
	return c.issues
}

type checker struct {
	def    *domain.Definition
	ids    map[string]bool
	issues []Issue
}

func (c *checker) errorf(step, format string, args ...any) {
	c.issues = append(c.issues, Issue{Severity: SeverityError, Step: step, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) warnf(step, format string, args ...any) {
	c.issues = append(c.issues, Issue{Severity: SeverityWarning, Step: step, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) header() {
	if c.def.Name == "" {
		c.errorf("", "definition has no name")
	}
	switch c.def.Kind {
	case domain.KindLinear, domain.KindBranching:
	default:
		c.errorf("", "unknown kind %q (want %s or %s)", c.def.Kind, domain.KindLinear, domain.KindBranching)
	}
	if c.def.BasePitch < 0 {
		c.errorf("", "base pitch must not be negative")
	}
}

func (c *checker) variables() {
	seen := make(map[string]bool)
	for _, v := range c.def.Variables {
		if v.Name == "" {
			c.errorf("", "variable without name")
			continue
		}
		if seen[v.Name] {
			c.errorf("", "duplicate variable '%s'", v.Name)
		}
		seen[v.Name] = true

		kind, err := domain.ParseValueKind(string(v.Kind))
		if err != nil {
			c.errorf("", "variable '%s': %v", v.Name, err)
			continue
		}
		if v.Default != nil {
			if _, err := domain.CoerceValue(kind, v.Default); err != nil {
				c.errorf("", "variable '%s' default: %v", v.Name, err)
			}
		}
	}
}

func (c *checker) steps() {
	if len(c.def.Steps) == 0 {
		c.warnf("", "definition has no steps")
	}
	for _, s := range c.def.Steps {
		if s.ID == "" {
			c.errorf("", "step without id")
			continue
		}
		if c.ids[s.ID] {
			c.errorf(s.ID, "duplicate step id")
		}
		c.ids[s.ID] = true

		if a := s.Audio; a != nil {
			if a.Clip.Name == "" {
				c.errorf(s.ID, "audio cue has no clip")
			}
			if a.Delay < 0 {
				c.errorf(s.ID, "audio delay must not be negative")
			}
			if a.Pitch != nil && *a.Pitch <= 0 {
				c.errorf(s.ID, "pitch must be positive")
			}
		}
		if s.AudioOnly && (s.Audio == nil || s.Audio.Clip.Name == "") {
			c.warnf(s.ID, "audio-only step without clip completes immediately")
		}
		if c.def.Kind == domain.KindLinear && len(s.Transitions) > 0 {
			c.warnf(s.ID, "transitions are ignored in linear sequences")
		}
	}
}

func (c *checker) graph() {
	if c.def.Entry == "" {
		c.errorf("", "branching sequence has no entry step")
	} else if !c.ids[c.def.Entry] {
		c.errorf("", "entry step '%s' does not exist", c.def.Entry)
	}

	for _, s := range c.def.Steps {
		for i, t := range s.Transitions {
			switch {
			case t.To == "":
				c.errorf(s.ID, "transition %d has no target", i)
			case !c.ids[t.To]:
				c.errorf(s.ID, "transition %d targets unknown step '%s'", i, t.To)
			}
			if t.When == nil {
				if i < len(s.Transitions)-1 {
					c.warnf(s.ID, "default transition %d shadows the %d transitions after it", i, len(s.Transitions)-1-i)
				}
				continue
			}
			c.condition(s.ID, i, t.When)
		}
	}

	for _, id := range c.unreachable() {
		c.warnf(id, "step is unreachable from the entry step")
	}
}

func (c *checker) condition(step string, i int, cd *domain.ConditionDef) {
	if cd.Var == "" {
		c.errorf(step, "transition %d condition has no variable", i)
		return
	}
	op, err := domain.ParseComparison(string(cd.Op))
	if err != nil {
		c.errorf(step, "transition %d: %v", i, err)
		return
	}
	kind, err := compiler.KindOf(c.def, cd)
	if err != nil {
		c.errorf(step, "transition %d: %v", i, err)
		return
	}
	if !kind.Supports(op) {
		c.errorf(step, "transition %d: %s does not support %s", i, kind, op.Symbol())
	}
	if _, err := domain.CoerceValue(kind, cd.Value); err != nil {
		c.errorf(step, "transition %d: %v", i, err)
	}
}

// unreachable crawls the graph from the entry step and returns the steps it never visits.
func (c *checker) unreachable() []string {
	entry, ok := c.def.Step(c.def.Entry)
	if !ok {
		return nil
	}

	visited := map[string]bool{entry.ID: true}
	queue := []string{entry.ID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		s, ok := c.def.Step(current)
		if !ok {
			continue
		}
		for _, t := range s.Transitions {
			if t.To != "" && !visited[t.To] {
				visited[t.To] = true
				queue = append(queue, t.To)
			}
		}
	}

	var out []string
	for _, s := range c.def.Steps {
		if s.ID != "" && !visited[s.ID] {
			out = append(out, s.ID)
		}
	}
	return out
}
