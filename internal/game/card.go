package game

import "fmt"

// CardType classifies a catalog card.
type CardType string

const (
	CardTypeCreature CardType = "creature"
	CardTypeArtifact CardType = "artifact"
	CardTypeSpell    CardType = "spell"
	CardTypePlayer   CardType = "player"
)

// Location is the zone a card currently sits in.
type Location string

const (
	LocationDeck    Location = "deck"
	LocationHand    Location = "hand"
	LocationBoard   Location = "board"
	LocationDiscard Location = "discard"
)

// Side identifies one of the four faces of a card on the board.
type Side string

const (
	SideTop    Side = "top"
	SideRight  Side = "right"
	SideBottom Side = "bottom"
	SideLeft   Side = "left"
)

// Opposite returns the side facing this one across an edge.
func (s Side) Opposite() Side {
	switch s {
	case SideTop:
		return SideBottom
	case SideBottom:
		return SideTop
	case SideLeft:
		return SideRight
	case SideRight:
		return SideLeft
	default:
		return s
	}
}

// SideStats holds the combat values of a single side.
type SideStats struct {
	Strength int `json:"strength" yaml:"strength"`
	Defense  int `json:"defense" yaml:"defense"`
}

// Stats is the full combat profile of a card. It is a value type: copying a
// Stats never aliases the catalog template.
type Stats struct {
	Top    SideStats `json:"top" yaml:"top"`
	Right  SideStats `json:"right" yaml:"right"`
	Bottom SideStats `json:"bottom" yaml:"bottom"`
	Left   SideStats `json:"left" yaml:"left"`
	Life   int       `json:"life" yaml:"life"`
}

// Side returns the values of the requested side.
func (s Stats) Side(side Side) SideStats {
	switch side {
	case SideTop:
		return s.Top
	case SideRight:
		return s.Right
	case SideBottom:
		return s.Bottom
	case SideLeft:
		return s.Left
	default:
		return SideStats{}
	}
}

// Rotated returns the stats turned by 180 degrees.
func (s Stats) Rotated() Stats {
	return Stats{
		Top:    s.Bottom,
		Right:  s.Left,
		Bottom: s.Top,
		Left:   s.Right,
		Life:   s.Life,
	}
}

// CardTemplate is the immutable catalog definition of a card.
type CardTemplate struct {
	ID    string   `json:"id" yaml:"id"`
	Name  string   `json:"name" yaml:"name"`
	Type  CardType `json:"type" yaml:"type"`
	Stats Stats    `json:"stats" yaml:"stats"`
}

// Card is one physical card inside an instance.
type Card struct {
	ID           int          `json:"id"`
	User         string       `json:"user"`
	Location     Location     `json:"location"`
	Coords       *Coords      `json:"coords,omitempty"`
	Template     CardTemplate `json:"card"`
	CurrentStats Stats        `json:"currentStats"`
}

// NewCard builds a card in the deck with stats copied from the template.
func NewCard(id int, user string, template CardTemplate) *Card {
	return &Card{
		ID:           id,
		User:         user,
		Location:     LocationDeck,
		Template:     template,
		CurrentStats: template.Stats,
	}
}

// IsOnBoard reports whether the card is placed on the board.
func (c *Card) IsOnBoard() bool {
	return c.Location == LocationBoard && c.Coords != nil
}

// PlaceAt moves the card onto the board.
func (c *Card) PlaceAt(coords Coords) {
	c.Location = LocationBoard
	placed := coords
	c.Coords = &placed
}

// MoveTo sends the card to a non-board location and clears its coordinates.
func (c *Card) MoveTo(location Location) {
	c.Location = location
	if location != LocationBoard {
		c.Coords = nil
	}
}

// IsDead reports whether the card has no life left.
func (c *Card) IsDead() bool {
	return c.CurrentStats.Life <= 0
}

func (c *Card) String() string {
	if c.Coords != nil {
		return fmt.Sprintf("%d(%s@%s)", c.ID, c.Template.ID, c.Coords)
	}
	return fmt.Sprintf("%d(%s@%s)", c.ID, c.Template.ID, c.Location)
}
