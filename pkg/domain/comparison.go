package domain

import (
	"fmt"
	"strings"
)

// Comparison is the operator a branch condition applies between the observed value
// and its literal target.
type Comparison string

const (
	Equals         Comparison = "equals"
	NotEquals      Comparison = "not_equals"
	GreaterThan    Comparison = "greater_than"
	LessThan       Comparison = "less_than"
	GreaterOrEqual Comparison = "greater_or_equal"
	LessOrEqual    Comparison = "less_or_equal"
)

var comparisonSymbols = map[Comparison]string{
	Equals:         "==",
	NotEquals:      "!=",
	GreaterThan:    ">",
	LessThan:       "<",
	GreaterOrEqual: ">=",
	LessOrEqual:    "<=",
}

var comparisonAliases = map[string]Comparison{
	"==": Equals, "eq": Equals,
	"!=": NotEquals, "ne": NotEquals,
	">": GreaterThan, "gt": GreaterThan,
	"<": LessThan, "lt": LessThan,
	">=": GreaterOrEqual, "ge": GreaterOrEqual, "gte": GreaterOrEqual,
	"<=": LessOrEqual, "le": LessOrEqual, "lte": LessOrEqual,
}

// ParseComparison accepts canonical names ("greater_or_equal"), symbols (">=")
// and short aliases ("ge").
func ParseComparison(s string) (Comparison, error) {
	clean := strings.ToLower(strings.TrimSpace(s))
	if clean == "" {
		return Equals, nil
	}
	c := Comparison(clean)
	if _, ok := comparisonSymbols[c]; ok {
		return c, nil
	}
	if c, ok := comparisonAliases[clean]; ok {
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedComparison, s)
}

// Valid reports whether c is one of the six known operators.
func (c Comparison) Valid() bool {
	_, ok := comparisonSymbols[c]
	return ok
}

// Ordered reports whether the operator needs an ordering (not just equality).
func (c Comparison) Ordered() bool {
	return c.Valid() && c != Equals && c != NotEquals
}

// Symbol returns the infix form used in logs and diagrams.
func (c Comparison) Symbol() string {
	if s, ok := comparisonSymbols[c]; ok {
		return s
	}
	return string(c)
}

// ValueKind is the primitive kind of an observable value.
type ValueKind string

const (
	ValueBool   ValueKind = "bool"
	ValueInt    ValueKind = "int"
	ValueFloat  ValueKind = "float"
	ValueString ValueKind = "string"
)

// ParseValueKind converts a kind name. "integer", "number" and "text" are accepted aliases.
func ParseValueKind(s string) (ValueKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bool", "boolean":
		return ValueBool, nil
	case "int", "integer":
		return ValueInt, nil
	case "float", "number", "double":
		return ValueFloat, nil
	case "string", "text":
		return ValueString, nil
	}
	return "", fmt.Errorf("%w: %q", ErrVariableKind, s)
}

// Supports reports whether the kind accepts the operator.
// Bool and String only support equality.
func (k ValueKind) Supports(c Comparison) bool {
	switch k {
	case ValueBool, ValueString:
		return c == Equals || c == NotEquals
	case ValueInt, ValueFloat:
		return c.Valid()
	}
	return false
}
