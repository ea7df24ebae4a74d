package ports

import "context"

// GroupLoader defines how the engine retrieves group definitions.
// This allows the storage layer (Loam, FS, Memory) to be decoupled.
type GroupLoader interface {
	// GetGroup retrieves the raw definition of a group by name.
	// It returns the raw bytes (which the compiler will parse) or an error wrapping
	// domain.ErrGroupNotFound.
	GetGroup(name string) ([]byte, error)

	// ListGroups returns the names of all available groups.
	// This is used for introspection and visualization tools (e.g. 'lattice graph').
	ListGroups() ([]string, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is typically used for hot-reload or dev-mode functionality.
type Watchable interface {
	// Watch returns a channel that receives the ID of each changed document.
	Watch(ctx context.Context) (<-chan string, error)
}
