package file

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Decode parses a YAML or JSON definition. Durations accept Go syntax ("1.5s")
// or a number of seconds; operators accept names, symbols or aliases.
func Decode(data []byte) (*domain.Definition, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse definition: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("definition is empty")
	}
	return DecodeMap(raw)
}

// DecodeMap decodes an already parsed definition with the same hooks as Decode.
func DecodeMap(raw map[string]any) (*domain.Definition, error) {
	var def domain.Definition
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &def,
		ErrorUnused: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			secondsToDurationHook,
			mapstructure.StringToTimeDurationHookFunc(),
			comparisonHook,
			valueKindHook,
			kindHook,
		),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode definition: %w", err)
	}

	if def.Kind == "" {
		def.Kind = domain.KindLinear
		if def.Entry != "" {
			def.Kind = domain.KindBranching
		}
	}
	return &def, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func secondsToDurationHook(from, to reflect.Type, data any) (any, error) {
	if to != durationType {
		return data, nil
	}
	switch v := data.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return time.Duration(f * float64(time.Second)), nil
	case int:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	}
	return data, nil
}

func comparisonHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(domain.Comparison("")) || from.Kind() != reflect.String {
		return data, nil
	}
	return domain.ParseComparison(data.(string))
}

func valueKindHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(domain.ValueKind("")) || from.Kind() != reflect.String {
		return data, nil
	}
	return domain.ParseValueKind(data.(string))
}

func kindHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(domain.Kind("")) || from.Kind() != reflect.String {
		return data, nil
	}
	return domain.Kind(strings.ToLower(strings.TrimSpace(data.(string)))), nil
}

// isDefinitionFile reports whether the path has a supported extension.
func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// stem returns the file name without extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
