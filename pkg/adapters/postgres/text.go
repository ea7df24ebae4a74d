package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/jackc/pgx/v5"
)

// textRowID is the single row of llms_txts.
const textRowID = 1

// TextStore implements ports.TextStore on the llms_txts table.
type TextStore struct {
	db DB
}

// NewTextStore creates a text store.
func NewTextStore(db DB) *TextStore {
	return &TextStore{db: db}
}

func (s *TextStore) Get(ctx context.Context) (string, error) {
	var content string
	err := s.db.QueryRow(ctx, `SELECT content FROM llms_txts WHERE id = $1`, textRowID).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrTextNotSet
	}
	if err != nil {
		return "", fmt.Errorf("failed to read llms_txt: %w", err)
	}
	if content == "" {
		return "", domain.ErrTextNotSet
	}
	return content, nil
}

func (s *TextStore) Set(ctx context.Context, content string) error {
	ok, err := domain.CheckText(content)
	if err != nil {
		return err
	}
	if !ok {
		content = ""
	}
	return s.write(ctx, content)
}

// Clear keeps the row and empties it.
func (s *TextStore) Clear(ctx context.Context) error {
	return s.write(ctx, "")
}

func (s *TextStore) write(ctx context.Context, content string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO llms_txts (id, content, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content, updated_at = now()`,
		textRowID, content)
	if err != nil {
		return fmt.Errorf("failed to write llms_txt: %w", err)
	}
	return nil
}
