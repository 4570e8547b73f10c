package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/thefirstspine/matches-sub001/internal/game"
)

// Postgres reads the catalog from the cards, decks and game_types tables.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a catalog on an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Card(ctx context.Context, id string) (game.CardTemplate, error) {
	var (
		tmpl     game.CardTemplate
		cardType string
		stats    []byte
	)
	err := p.pool.QueryRow(ctx,
		`SELECT id, name, card_type, stats FROM cards WHERE id = $1`, id,
	).Scan(&tmpl.ID, &tmpl.Name, &cardType, &stats)
	if errors.Is(err, pgx.ErrNoRows) {
		return game.CardTemplate{}, fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return game.CardTemplate{}, fmt.Errorf("failed to load card %s: %w", id, err)
	}
	tmpl.Type = game.CardType(cardType)
	if err := json.Unmarshal(stats, &tmpl.Stats); err != nil {
		return game.CardTemplate{}, fmt.Errorf("failed to decode stats of card %s: %w", id, err)
	}
	return tmpl, nil
}

func (p *Postgres) Deck(ctx context.Context, id string) (Deck, error) {
	deck := Deck{ID: id}
	err := p.pool.QueryRow(ctx, `SELECT card_ids FROM decks WHERE id = $1`, id).Scan(&deck.Cards)
	if errors.Is(err, pgx.ErrNoRows) {
		return Deck{}, fmt.Errorf("deck %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Deck{}, fmt.Errorf("failed to load deck %s: %w", id, err)
	}
	return deck, nil
}

func (p *Postgres) GameType(ctx context.Context, id string) (GameType, error) {
	gt := GameType{ID: id}
	err := p.pool.QueryRow(ctx,
		`SELECT name, players, modifiers FROM game_types WHERE id = $1`, id,
	).Scan(&gt.Name, &gt.Players, &gt.Modifiers)
	if errors.Is(err, pgx.ErrNoRows) {
		return GameType{}, fmt.Errorf("game type %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return GameType{}, fmt.Errorf("failed to load game type %s: %w", id, err)
	}
	return gt, nil
}
