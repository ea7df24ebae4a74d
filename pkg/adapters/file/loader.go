package file

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/lattice/internal/dto"
	"github.com/aretw0/lattice/pkg/domain"
)

// Extensions lists the file extensions the loader reads.
var Extensions = []string{".yaml", ".yml", ".json"}

// Loader implements ports.GroupLoader over a directory of YAML or JSON group documents.
// Mapping keys keep their file order, so machines and states may be written as mappings.
type Loader struct {
	Root string
}

// NewLoader creates a loader reading documents below root.
func NewLoader(root string) *Loader {
	return &Loader{Root: root}
}

// GetGroup returns the canonical JSON of the group named name.
func (l *Loader) GetGroup(name string) ([]byte, error) {
	index, err := l.index()
	if err != nil {
		return nil, err
	}
	entry, ok := index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrGroupNotFound, name)
	}
	return dto.Marshal(entry.def)
}

// ListGroups returns the names of every group below root, sorted.
func (l *Loader) ListGroups() ([]string, error) {
	index, err := l.index()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(index))
	for name := range index {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// ReadFile decodes a single group document.
func ReadFile(path string) (domain.GroupDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.GroupDefinition{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	def, err := dto.DecodeYAML(data)
	if err != nil {
		return domain.GroupDefinition{}, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

type entry struct {
	path string
	def  domain.GroupDefinition
}

func (l *Loader) index() (map[string]entry, error) {
	index := make(map[string]entry)
	err := filepath.WalkDir(l.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != l.Root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !slices.Contains(Extensions, strings.ToLower(filepath.Ext(path))) {
			return nil
		}
		def, err := ReadFile(path)
		if err != nil {
			return err
		}
		if existing, ok := index[def.Name]; ok {
			return fmt.Errorf("collision detected: group '%s' is defined in both '%s' and '%s'", def.Name, existing.path, path)
		}
		index[def.Name] = entry{path: path, def: def}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load groups from %s: %w", l.Root, err)
	}
	return index, nil
}
