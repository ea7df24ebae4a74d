package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// TextStore implements ports.TextStore as a single Redis string.
type TextStore struct {
	client *backend.Client
	key    string
}

// NewTextStore stores the text under key.
func NewTextStore(client *backend.Client, key string) *TextStore {
	if key == "" {
		key = "lattice:llms_txt"
	}
	return &TextStore{client: client, key: key}
}

func (s *TextStore) Get(ctx context.Context) (string, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, backend.Nil) || (err == nil && val == "") {
		return "", domain.ErrTextNotSet
	}
	if err != nil {
		return "", fmt.Errorf("failed to get text from redis: %w", err)
	}
	return val, nil
}

func (s *TextStore) Set(ctx context.Context, content string) error {
	ok, err := domain.CheckText(content)
	if err != nil {
		return err
	}
	if !ok {
		return s.Clear(ctx)
	}
	if err := s.client.Set(ctx, s.key, content, 0).Err(); err != nil {
		return fmt.Errorf("failed to save text to redis: %w", err)
	}
	return nil
}

func (s *TextStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear text in redis: %w", err)
	}
	return nil
}
