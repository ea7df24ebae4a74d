package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/lattice/pkg/domain"
)

// TextStore implements ports.TextStore as a single file.
type TextStore struct {
	Path string
}

// NewTextStore stores the text at path.
func NewTextStore(path string) *TextStore {
	return &TextStore{Path: path}
}

func (s *TextStore) Get(ctx context.Context) (string, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", domain.ErrTextNotSet
	}
	if err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	if len(data) == 0 {
		return "", domain.ErrTextNotSet
	}
	return string(data), nil
}

func (s *TextStore) Set(ctx context.Context, content string) error {
	ok, err := domain.CheckText(content)
	if err != nil {
		return err
	}
	if !ok {
		return s.Clear(ctx)
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure text directory: %w", err)
	}
	return writeAtomic(dir, s.Path, []byte(content))
}

func (s *TextStore) Clear(ctx context.Context) error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear text: %w", err)
	}
	return nil
}
