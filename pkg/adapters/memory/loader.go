package memory

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/aretw0/lattice/pkg/domain"
)

// Loader implements ports.GroupLoader using an in-memory map.
type Loader struct {
	groups map[string][]byte
}

// NewLoader creates a new Loader with the provided raw data (JSON strings keyed by group name).
func NewLoader(data map[string]string) *Loader {
	groups := make(map[string][]byte, len(data))
	for k, v := range data {
		groups[k] = []byte(v)
	}
	return &Loader{groups: groups}
}

// NewFromGroups creates a new Loader from domain objects.
// This handles serialization automatically, improving DX for tests.
func NewFromGroups(defs ...domain.GroupDefinition) (*Loader, error) {
	data := make(map[string][]byte, len(defs))
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("group missing name")
		}
		if _, dup := data[d.Name]; dup {
			return nil, fmt.Errorf("duplicate group %s", d.Name)
		}
		bytes, err := json.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal group %s: %w", d.Name, err)
		}
		data[d.Name] = bytes
	}
	return &Loader{groups: data}, nil
}

// GetGroup retrieves the raw definition of a group by name.
func (l *Loader) GetGroup(name string) ([]byte, error) {
	content, ok := l.groups[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrGroupNotFound, name)
	}
	return content, nil
}

// ListGroups returns all available group names in sorted order.
func (l *Loader) ListGroups() ([]string, error) {
	return slices.Sorted(maps.Keys(l.groups)), nil
}
