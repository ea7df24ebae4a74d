package memory

import (
	"context"
	"sync"

	"github.com/aretw0/lattice/pkg/domain"
)

// TextStore implements ports.TextStore in memory.
type TextStore struct {
	mu      sync.RWMutex
	content string
}

// NewTextStore creates an empty text store.
func NewTextStore() *TextStore {
	return &TextStore{}
}

func (s *TextStore) Get(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.content == "" {
		return "", domain.ErrTextNotSet
	}
	return s.content, nil
}

func (s *TextStore) Set(ctx context.Context, content string) error {
	ok, err := domain.CheckText(content)
	if err != nil {
		return err
	}
	if !ok {
		content = ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content = content
	return nil
}

func (s *TextStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content = ""
	return nil
}
