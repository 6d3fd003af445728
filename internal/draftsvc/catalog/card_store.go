package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
)

type CardStore struct {
	db *pgxpool.Pool
}

func NewCardStore(db *pgxpool.Pool) *CardStore {
	return &CardStore{db: db}
}

func (s *CardStore) GetCard(ctx context.Context, id string) (*models.Card, error) {
	query := `
		SELECT card_id, name, score, archetypes, colors, card_type
		FROM cards
		WHERE card_id = $1
		LIMIT 1
	`

	var card models.Card
	err := s.db.QueryRow(ctx, query, id).Scan(
		&card.ID,
		&card.Name,
		&card.Score,
		&card.Archetypes,
		&card.Colors,
		&card.Type,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}

	return &card, nil
}

// Load reads the whole cards table into a Catalog.
func (s *CardStore) Load(ctx context.Context) (*Catalog, error) {
	rows, err := s.db.Query(ctx, `SELECT card_id, name, score, archetypes, colors, card_type FROM cards`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}

	cards, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Card, error) {
		var c models.Card
		err := row.Scan(&c.ID, &c.Name, &c.Score, &c.Archetypes, &c.Colors, &c.Type)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan cards: %w", err)
	}

	return New(cards), nil
}

// Upsert writes cards into the table, replacing existing rows by id.
func (s *CardStore) Upsert(ctx context.Context, cards []models.Card) error {
	batch := &pgx.Batch{}
	for _, c := range cards {
		batch.Queue(`
			INSERT INTO cards (card_id, name, score, archetypes, colors, card_type, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
			ON CONFLICT (card_id) DO UPDATE
			SET name = EXCLUDED.name, score = EXCLUDED.score, archetypes = EXCLUDED.archetypes,
				colors = EXCLUDED.colors, card_type = EXCLUDED.card_type, updated_at = NOW()
		`, c.ID, c.Name, c.Score, c.Archetypes, c.Colors, c.Type)
	}
	if err := s.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert cards: %w", err)
	}
	return nil
}
