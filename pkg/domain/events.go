package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventDispatch       EventType = "dispatch"
	EventTransition     EventType = "transition"
	EventMachineCreate  EventType = "machine_create"
	EventMachineDestroy EventType = "machine_destroy"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Group     string    `json:"group"`
}

// DispatchEvent is emitted once per dispatch, after it completed or failed.
type DispatchEvent struct {
	EventBase
	Kind     string        `json:"kind"`
	Changes  ChangeSet     `json:"changes"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// TransitionEvent is emitted for every applied transition, epsilon moves included.
type TransitionEvent struct {
	EventBase
	Machine string   `json:"machine"`
	Kind    string   `json:"kind"`
	From    []string `json:"from"`
	To      []string `json:"to"`
	Guard   string   `json:"guard,omitempty"`
	Silent  bool     `json:"silent,omitempty"`
}

// MachineEvent is emitted when a nested machine instance is created or destroyed.
type MachineEvent struct {
	EventBase
	Machine string   `json:"machine"`
	Path    []string `json:"path,omitempty"`
	Silent  bool     `json:"silent,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks fire after the dispatch committed; a failed dispatch only reports OnDispatch.
type LifecycleHooks struct {
	OnDispatch       func(context.Context, *DispatchEvent)
	OnTransition     func(context.Context, *TransitionEvent)
	OnMachineCreate  func(context.Context, *MachineEvent)
	OnMachineDestroy func(context.Context, *MachineEvent)
}
