// Package catalog resolves the read-only definitions a match is built from:
// card templates, decks and game types.
package catalog

import (
	"context"
	"errors"

	"github.com/thefirstspine/matches-sub001/internal/game"
)

// ErrNotFound is returned when a catalog entry does not exist.
var ErrNotFound = errors.New("catalog entry not found")

// Deck lists the card templates a user plays with. Exactly one of them is
// expected to be a player card.
type Deck struct {
	ID    string   `json:"id" yaml:"id"`
	Cards []string `json:"cards" yaml:"cards"`
}

// GameType describes a kind of match.
type GameType struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Players   int      `json:"players" yaml:"players"`
	Modifiers []string `json:"modifiers,omitempty" yaml:"modifiers,omitempty"`
}

// Catalog looks definitions up by id.
type Catalog interface {
	Card(ctx context.Context, id string) (game.CardTemplate, error)
	Deck(ctx context.Context, id string) (Deck, error)
	GameType(ctx context.Context, id string) (GameType, error)
}
