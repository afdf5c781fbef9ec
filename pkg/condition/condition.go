// Package condition implements branch conditions: predicates over one externally
// owned observable value.
//
// A condition is one of Bool, Int, Float or String, chosen at construction time.
// The operator is checked against the kind when the condition is built, so an
// invalid pairing is an error up front instead of a silently true edge at runtime.
// A nil Condition (or Always) is unbound and always true; it is meant for the
// default edge, which should be ordered last.
package condition

import (
	"cmp"
	"fmt"
	"strconv"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
)

// Condition is a predicate evaluated when its transition is considered.
// The set of implementations is closed.
type Condition interface {
	// Evaluate reads the bound value synchronously and applies the comparison.
	Evaluate() bool
	// Kind is the value kind the condition is bound to, or "" when unbound.
	Kind() domain.ValueKind
	String() string

	sealed()
}

// Evaluate applies c, treating a nil condition as unbound (true).
func Evaluate(c Condition) bool {
	if c == nil {
		return true
	}
	return c.Evaluate()
}

type always struct{}

// Always returns the unbound condition. It evaluates true.
func Always() Condition { return always{} }

func (always) Evaluate() bool         { return true }
func (always) Kind() domain.ValueKind { return "" }
func (always) String() string         { return "always" }
func (always) sealed()                {}

// Bool compares a boolean value. Only Equals and NotEquals are supported.
type Bool struct {
	source ports.Observable[bool]
	op     domain.Comparison
	target bool
}

// NewBool binds source to an equality test against target.
func NewBool(source ports.Observable[bool], op domain.Comparison, target bool) (*Bool, error) {
	if err := check(source != nil, domain.ValueBool, op); err != nil {
		return nil, err
	}
	return &Bool{source: source, op: op, target: target}, nil
}

func (c *Bool) Evaluate() bool {
	return equality(c.source.Value() == c.target, c.op)
}

func (c *Bool) Kind() domain.ValueKind { return domain.ValueBool }

func (c *Bool) String() string {
	return describe(c.source, c.op, strconv.FormatBool(c.target))
}

func (*Bool) sealed() {}

// Int compares an integer value with any of the six operators.
type Int struct {
	source ports.Observable[int]
	op     domain.Comparison
	target int
}

// NewInt binds source to a numeric comparison against target.
func NewInt(source ports.Observable[int], op domain.Comparison, target int) (*Int, error) {
	if err := check(source != nil, domain.ValueInt, op); err != nil {
		return nil, err
	}
	return &Int{source: source, op: op, target: target}, nil
}

func (c *Int) Evaluate() bool {
	return ordered(c.source.Value(), c.target, c.op)
}

func (c *Int) Kind() domain.ValueKind { return domain.ValueInt }

func (c *Int) String() string {
	return describe(c.source, c.op, strconv.Itoa(c.target))
}

func (*Int) sealed() {}

// Float compares a floating point value with any of the six operators.
// NaN compares equal to NaN and below every other value, matching cmp.Compare.
type Float struct {
	source ports.Observable[float64]
	op     domain.Comparison
	target float64
}

// NewFloat binds source to a numeric comparison against target.
func NewFloat(source ports.Observable[float64], op domain.Comparison, target float64) (*Float, error) {
	if err := check(source != nil, domain.ValueFloat, op); err != nil {
		return nil, err
	}
	return &Float{source: source, op: op, target: target}, nil
}

func (c *Float) Evaluate() bool {
	return ordered(c.source.Value(), c.target, c.op)
}

func (c *Float) Kind() domain.ValueKind { return domain.ValueFloat }

func (c *Float) String() string {
	return describe(c.source, c.op, strconv.FormatFloat(c.target, 'g', -1, 64))
}

func (*Float) sealed() {}

// String compares a string value ordinally. Only Equals and NotEquals are supported.
type String struct {
	source ports.Observable[string]
	op     domain.Comparison
	target string
}

// NewString binds source to an ordinal equality test against target.
func NewString(source ports.Observable[string], op domain.Comparison, target string) (*String, error) {
	if err := check(source != nil, domain.ValueString, op); err != nil {
		return nil, err
	}
	return &String{source: source, op: op, target: target}, nil
}

func (c *String) Evaluate() bool {
	return equality(c.source.Value() == c.target, c.op)
}

func (c *String) Kind() domain.ValueKind { return domain.ValueString }

func (c *String) String() string {
	return describe(c.source, c.op, strconv.Quote(c.target))
}

func (*String) sealed() {}

// Must panics if err is non-nil. It is meant for conditions built from literals.
func Must(c Condition, err error) Condition {
	if err != nil {
		panic(err)
	}
	return c
}

func check(bound bool, kind domain.ValueKind, op domain.Comparison) error {
	if !bound {
		return fmt.Errorf("%s condition requires a source", kind)
	}
	if !kind.Supports(op) {
		return fmt.Errorf("%w: %q on %s values", domain.ErrUnsupportedComparison, op, kind)
	}
	return nil
}

// equality is only reached with Equals or NotEquals; constructors reject the rest.
func equality(equal bool, op domain.Comparison) bool {
	switch op {
	case domain.Equals:
		return equal
	case domain.NotEquals:
		return !equal
	}
	return false
}

func ordered[T cmp.Ordered](value, target T, op domain.Comparison) bool {
	c := cmp.Compare(value, target)
	switch op {
	case domain.Equals:
		return c == 0
	case domain.NotEquals:
		return c != 0
	case domain.GreaterThan:
		return c > 0
	case domain.LessThan:
		return c < 0
	case domain.GreaterOrEqual:
		return c >= 0
	case domain.LessOrEqual:
		return c <= 0
	}
	return false
}

func describe(source any, op domain.Comparison, target string) string {
	name := "value"
	if n, ok := source.(ports.Named); ok && n.Name() != "" {
		name = n.Name()
	}
	return fmt.Sprintf("%s %s %s", name, op.Symbol(), target)
}
