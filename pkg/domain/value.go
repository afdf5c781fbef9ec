package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseValue parses a raw string (CLI argument, Redis payload, form value) into the Go
// type used for kind: bool, int, float64 or string.
func ParseValue(kind ValueKind, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch kind {
	case ValueBool:
		return strconv.ParseBool(raw)
	case ValueInt:
		return strconv.Atoi(raw)
	case ValueFloat:
		return strconv.ParseFloat(raw, 64)
	case ValueString:
		return raw, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrVariableKind, kind)
}

// CoerceValue converts a decoded literal (YAML/JSON scalars arrive as bool, int,
// float64, json.Number or string) into the Go type used for kind.
func CoerceValue(kind ValueKind, v any) (any, error) {
	if s, ok := v.(string); ok && kind != ValueString {
		return ParseValue(kind, s)
	}
	if n, ok := v.(json.Number); ok {
		return ParseValue(kind, n.String())
	}

	switch kind {
	case ValueBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case ValueInt:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case uint64:
			return int(n), nil
		case float64:
			if n == math.Trunc(n) {
				return int(n), nil
			}
		}
	case ValueFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case uint64:
			return float64(n), nil
		}
	case ValueString:
		if v == nil {
			return "", nil
		}
		return fmt.Sprint(v), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrVariableKind, kind)
	}
	return nil, fmt.Errorf("%w: cannot use %v (%T) as %s", ErrVariableKind, v, v, kind)
}
