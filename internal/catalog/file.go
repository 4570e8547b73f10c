package catalog

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/thefirstspine/matches-sub001/internal/game"
	"gopkg.in/yaml.v3"
)

// fileDocument is the on-disk layout of a YAML catalog.
type fileDocument struct {
	Cards     []game.CardTemplate `yaml:"cards"`
	Decks     []Deck              `yaml:"decks"`
	GameTypes []GameType          `yaml:"gameTypes"`
}

// File is a catalog loaded once from a YAML file.
type File struct {
	cards     map[string]game.CardTemplate
	decks     map[string]Deck
	gameTypes map[string]GameType
}

// LoadFile reads and validates a YAML catalog.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseFile(data)
}

// ParseFile builds a catalog from YAML content. Decks referencing unknown
// cards are rejected.
func ParseFile(data []byte) (*File, error) {
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	f := &File{
		cards:     make(map[string]game.CardTemplate, len(doc.Cards)),
		decks:     make(map[string]Deck, len(doc.Decks)),
		gameTypes: make(map[string]GameType, len(doc.GameTypes)),
	}
	for _, c := range doc.Cards {
		if c.ID == "" {
			return nil, fmt.Errorf("card without id")
		}
		f.cards[c.ID] = c
	}
	for _, d := range doc.Decks {
		for _, id := range d.Cards {
			if _, ok := f.cards[id]; !ok {
				return nil, fmt.Errorf("deck %s references unknown card %s", d.ID, id)
			}
		}
		f.decks[d.ID] = d
	}
	for _, gt := range doc.GameTypes {
		if gt.Players == 0 {
			gt.Players = 2
		}
		f.gameTypes[gt.ID] = gt
	}
	return f, nil
}

func (f *File) Card(_ context.Context, id string) (game.CardTemplate, error) {
	c, ok := f.cards[id]
	if !ok {
		return game.CardTemplate{}, fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	return c, nil
}

func (f *File) Deck(_ context.Context, id string) (Deck, error) {
	d, ok := f.decks[id]
	if !ok {
		return Deck{}, fmt.Errorf("deck %s: %w", id, ErrNotFound)
	}
	return d, nil
}

func (f *File) GameType(_ context.Context, id string) (GameType, error) {
	gt, ok := f.gameTypes[id]
	if !ok {
		return GameType{}, fmt.Errorf("game type %s: %w", id, ErrNotFound)
	}
	return gt, nil
}

// Entries returns every definition of the catalog ordered by id.
func (f *File) Entries() ([]game.CardTemplate, []Deck, []GameType) {
	cards := make([]game.CardTemplate, 0, len(f.cards))
	for _, c := range f.cards {
		cards = append(cards, c)
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })

	decks := make([]Deck, 0, len(f.decks))
	for _, d := range f.decks {
		decks = append(decks, d)
	}
	sort.Slice(decks, func(i, j int) bool { return decks[i].ID < decks[j].ID })

	gameTypes := make([]GameType, 0, len(f.gameTypes))
	for _, gt := range f.gameTypes {
		gameTypes = append(gameTypes, gt)
	}
	sort.Slice(gameTypes, func(i, j int) bool { return gameTypes[i].ID < gameTypes[j].ID })

	return cards, decks, gameTypes
}
