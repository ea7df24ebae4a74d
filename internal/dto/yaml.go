package dto

import (
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
	"gopkg.in/yaml.v3"
)

// DecodeYAML parses a YAML (or JSON) group document. Mappings under "machines" and
// "states" keep their source order and become lists of named entries.
func DecodeYAML(data []byte) (domain.GroupDefinition, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return domain.GroupDefinition{}, fmt.Errorf("failed to parse group document: %w", err)
	}
	v, err := fromNode(&root, true)
	if err != nil {
		return domain.GroupDefinition{}, err
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return domain.GroupDefinition{}, fmt.Errorf("group document must be a mapping, got %T", v)
	}
	return Decode(raw)
}

// fromNode converts a node to generic values. body marks the group root and machine or
// state bodies, the only places where "machines" and "states" are structural.
func fromNode(n *yaml.Node, body bool) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromNode(n.Content[0], body)
	case yaml.AliasNode:
		return fromNode(n.Alias, body)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromNode(c, body)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		out := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, value := n.Content[i].Value, n.Content[i+1]
			structural := body && (key == "machines" || key == "states")
			var (
				v   any
				err error
			)
			switch {
			case structural && value.Kind == yaml.MappingNode:
				v, err = namedList(value)
			default:
				v, err = fromNode(value, structural)
			}
			if err != nil {
				return nil, err
			}
			out[key] = v
		}
		return out, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("line %d: unsupported node", n.Line)
}

// namedList turns `{a: {...}, b: {...}}` into `[{name: a, ...}, {name: b, ...}]`.
func namedList(n *yaml.Node) ([]any, error) {
	out := make([]any, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		name := n.Content[i].Value
		v, err := fromNode(n.Content[i+1], true)
		if err != nil {
			return nil, err
		}
		entry := map[string]any{}
		switch b := v.(type) {
		case nil:
		case map[string]any:
			entry = b
		default:
			return nil, fmt.Errorf("line %d: %q must be a mapping, got %T", n.Content[i].Line, name, v)
		}
		if existing, ok := entry["name"]; ok && existing != name {
			return nil, fmt.Errorf("line %d: %q declares a different name %v", n.Content[i].Line, name, existing)
		}
		entry["name"] = name
		out = append(out, entry)
	}
	return out, nil
}
