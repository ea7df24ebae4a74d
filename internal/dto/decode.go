package dto

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

var (
	candidatesType = reflect.TypeOf([]domain.Candidate{})
	machinesType   = reflect.TypeOf([]domain.MachineDefinition{})
	statesType     = reflect.TypeOf([]domain.StateDefinition{})
)

// Decode converts a generic document into a group definition.
// Unknown keys are rejected so that typos do not silently drop transitions.
func Decode(raw map[string]any) (domain.GroupDefinition, error) {
	var def domain.GroupDefinition
	if raw == nil {
		return def, fmt.Errorf("empty group document")
	}

	if contexts, ok := raw["contexts"]; ok && contexts != nil {
		normalized, err := normalizeContexts(contexts)
		if err != nil {
			return def, err
		}
		raw["contexts"] = normalized
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.ComposeDecodeHookFunc(namedListHook, candidatesHook),
		ErrorUnused: true,
		TagName:     "json",
		Result:      &def,
	})
	if err != nil {
		return def, err
	}
	if err := dec.Decode(raw); err != nil {
		return def, fmt.Errorf("failed to decode group %v: %w", raw["name"], err)
	}
	if def.Name == "" {
		return def, fmt.Errorf("group missing name")
	}
	return def, nil
}

// Marshal renders a definition as the canonical JSON loaders hand to the compiler.
func Marshal(def domain.GroupDefinition) ([]byte, error) {
	bytes, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal group %s: %w", def.Name, err)
	}
	return bytes, nil
}

// candidatesHook expands `KIND: target`, `KIND: {guard, target}` and mixed lists.
func candidatesHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != candidatesType {
		return data, nil
	}
	switch v := data.(type) {
	case nil:
		return []any{}, nil
	case string:
		return []any{map[string]any{"target": v}}, nil
	case map[string]any:
		return []any{v}, nil
	case []any:
		out := make([]any, 0, len(v))
		for i, item := range v {
			switch c := item.(type) {
			case string:
				out = append(out, map[string]any{"target": c})
			case map[string]any:
				out = append(out, c)
			default:
				return nil, fmt.Errorf("candidate %d: expected target or {guard, target}, got %T", i, item)
			}
		}
		return out, nil
	}
	return data, nil
}

// namedListHook rejects mappings where an ordered list is required. Sources that keep
// key order (see DecodeYAML) turn them into lists before decoding.
func namedListHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if (to == machinesType || to == statesType) && from.Kind() == reflect.Map {
		return nil, fmt.Errorf("%s written as a mapping lose their order here; write them as a list of {name: ...}", describe(to))
	}
	return data, nil
}

func describe(t reflect.Type) string {
	if t == machinesType {
		return "machines"
	}
	return "states"
}

func normalizeContexts(raw any) (map[string]any, error) {
	kinds, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("contexts: expected a mapping of kinds, got %T", raw)
	}
	out := make(map[string]any, len(kinds))
	for kind, fields := range kinds {
		m, ok := fields.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("contexts.%s: expected a mapping of fields, got %T", kind, fields)
		}
		normalized := make(map[string]any, len(m))
		for key, value := range m {
			typeStr, err := formatSchemaType(value)
			if err != nil {
				return nil, fmt.Errorf("contexts.%s.%s: %w", kind, key, err)
			}
			normalized[key] = typeStr
		}
		out[kind] = normalized
	}
	return out, nil
}

// formatSchemaType accepts "int" as well as the YAML list form [int] for slices.
func formatSchemaType(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []any:
		if len(v) != 1 {
			return "", fmt.Errorf("expected single element list for slice type")
		}
		inner, err := formatSchemaType(v[0])
		if err != nil {
			return "", err
		}
		return "[" + inner + "]", nil
	case []string:
		if len(v) != 1 {
			return "", fmt.Errorf("expected single element list for slice type")
		}
		return "[" + v[0] + "]", nil
	default:
		return "", fmt.Errorf("expected string or list, got %T", value)
	}
}
