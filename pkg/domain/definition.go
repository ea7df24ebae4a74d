package domain

// GroupDefinition is the declarative description of a machine group.
type GroupDefinition struct {
	Name        string               `json:"name" yaml:"name"`
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	Machines    []MachineDefinition  `json:"machines" yaml:"machines"`
	Guards      map[string]GuardSpec `json:"guards,omitempty" yaml:"guards,omitempty"`
	// Contexts declares, per message kind, the expected context field types
	// ("string", "int", "float", "bool", "[string]", suffix "?" for optional).
	Contexts map[string]map[string]string `json:"contexts,omitempty" yaml:"contexts,omitempty"`
}

// MachineDefinition is a named state tree.
type MachineDefinition struct {
	Name string `json:"name" yaml:"name"`
	// Initial is the initial root state; a dotted value selects a descendant directly.
	Initial    string            `json:"initial" yaml:"initial"`
	SilentOnly bool              `json:"silent,omitempty" yaml:"silent,omitempty"`
	States     []StateDefinition `json:"states" yaml:"states"`
}

// StateDefinition is a node of a machine's state tree.
//
// A state with children is composite and must name its Initial child.
// A state with Machines hosts nested machines while it is active.
type StateDefinition struct {
	Name     string                 `json:"name" yaml:"name"`
	Initial  string                 `json:"initial,omitempty" yaml:"initial,omitempty"`
	States   []StateDefinition      `json:"states,omitempty" yaml:"states,omitempty"`
	Machines []MachineDefinition    `json:"machines,omitempty" yaml:"machines,omitempty"`
	Messages map[string][]Candidate `json:"on,omitempty" yaml:"on,omitempty"`
}

// IsComposite reports whether the state has children.
func (s StateDefinition) IsComposite() bool {
	return len(s.States) > 0
}

// Candidate is one entry of a transition list: the first candidate whose
// guard is empty or true wins.
type Candidate struct {
	Guard  string `json:"guard,omitempty" yaml:"guard,omitempty"`
	Target string `json:"target" yaml:"target"`
}

// GuardSpec declares a guard as data.
//
// Exactly one of Flag, State, All or Any is expected.
type GuardSpec struct {
	Flag   string      `json:"flag,omitempty" yaml:"flag,omitempty" mapstructure:"flag"`
	Negate bool        `json:"negate,omitempty" yaml:"negate,omitempty" mapstructure:"negate"`
	State  string      `json:"state,omitempty" yaml:"state,omitempty" mapstructure:"state"`
	All    []GuardSpec `json:"all,omitempty" yaml:"all,omitempty" mapstructure:"all"`
	Any    []GuardSpec `json:"any,omitempty" yaml:"any,omitempty" mapstructure:"any"`
}
