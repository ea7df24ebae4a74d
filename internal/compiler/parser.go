package compiler

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
)

// Parser is responsible for converting the normalized JSON produced by loaders into a
// GroupDefinition.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes a group definition and checks that it is named.
func (p *Parser) Parse(data []byte) (domain.GroupDefinition, error) {
	var def domain.GroupDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return def, fmt.Errorf("failed to parse group: %w", err)
	}
	if def.Name == "" {
		return def, fmt.Errorf("group missing name")
	}
	return def, nil
}
