// Package dto decodes group documents written by hand (YAML, JSON or Markdown frontmatter)
// into domain definitions.
//
// Documents accept the shorthand of the bundled groups: a message maps to a target string,
// a {guard, target} object or a list mixing both, and "machines"/"states" may be written
// as a mapping keyed by name when the source preserves key order.
package dto

import "github.com/aretw0/lattice/pkg/domain"

// GroupDocument is the frontmatter of a group document as Loam decodes it.
// The body of the document is the group description.
type GroupDocument struct {
	Name        string                    `json:"name" mapstructure:"name"`
	Description string                    `json:"description" mapstructure:"description"`
	Machines    any                       `json:"machines" mapstructure:"machines"`
	Guards      map[string]any            `json:"guards" mapstructure:"guards"`
	Contexts    map[string]map[string]any `json:"contexts" mapstructure:"contexts"`
}

// Raw returns the document as a generic map suitable for Decode.
func (d GroupDocument) Raw() map[string]any {
	raw := map[string]any{
		"name":     d.Name,
		"machines": d.Machines,
	}
	if d.Description != "" {
		raw["description"] = d.Description
	}
	if len(d.Guards) > 0 {
		raw["guards"] = d.Guards
	}
	if len(d.Contexts) > 0 {
		contexts := make(map[string]any, len(d.Contexts))
		for kind, fields := range d.Contexts {
			contexts[kind] = fields
		}
		raw["contexts"] = contexts
	}
	return raw
}

// Summary is the listing entry of a group.
type Summary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Machines    int    `json:"machines"`
}

// Summarize builds the listing entry of a definition.
func Summarize(def domain.GroupDefinition) Summary {
	return Summary{Name: def.Name, Description: def.Description, Machines: len(def.Machines)}
}
