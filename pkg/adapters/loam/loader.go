package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/lattice/internal/dto"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/loam"
)

// Loader adapts the Loam library to the lattice GroupLoader interface.
// Each document holds one group: the frontmatter declares it and the body, when the
// frontmatter has no description, becomes its Markdown description.
type Loader struct {
	Repo *loam.TypedRepository[dto.GroupDocument]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[dto.GroupDocument]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// GetGroup retrieves a group by name. Documents are looked up by ID first (toggle.md
// serves "toggle"), then by the name their frontmatter declares.
func (l *Loader) GetGroup(name string) ([]byte, error) {
	ctx := context.Background()

	doc, err := l.Repo.Get(ctx, name)
	if err == nil {
		def, derr := l.decode(doc.ID, doc.Data, doc.Content)
		if derr != nil {
			return nil, derr
		}
		if def.Name == name {
			return dto.Marshal(def)
		}
	}

	docs, lerr := l.Repo.List(ctx)
	if lerr != nil {
		return nil, fmt.Errorf("loam list failed: %w", lerr)
	}
	for _, d := range docs {
		if groupName(d.ID, d.Data) != name {
			continue
		}
		def, derr := l.decode(d.ID, d.Data, d.Content)
		if derr != nil {
			return nil, derr
		}
		return dto.Marshal(def)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrGroupNotFound, name, err)
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrGroupNotFound, name)
}

// ListGroups lists all groups in the repository.
func (l *Loader) ListGroups() ([]string, error) {
	ctx := context.Background()
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	names := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.Data.Machines == nil {
			// Not a group document (e.g. a README).
			continue
		}
		name := groupName(doc.ID, doc.Data)
		if existing, ok := seen[name]; ok {
			return nil, fmt.Errorf("collision detected: group '%s' is defined in both '%s' and '%s'", name, existing, doc.ID)
		}
		seen[name] = doc.ID
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (l *Loader) decode(id string, meta dto.GroupDocument, content string) (domain.GroupDefinition, error) {
	meta.Name = groupName(id, meta)
	if meta.Description == "" {
		meta.Description = strings.TrimSpace(content)
	}
	def, err := dto.Decode(meta.Raw())
	if err != nil {
		return def, fmt.Errorf("document %s: %w", id, err)
	}
	return def, nil
}

func groupName(id string, meta dto.GroupDocument) string {
	if meta.Name != "" {
		return meta.Name
	}
	return trimExtension(id)
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- trimExtension(evt.ID):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
