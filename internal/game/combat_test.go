package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boardCard(id int, user string, at Coords, stats Stats) *Card {
	card := NewCard(id, user, CardTemplate{ID: "creature", Type: CardTypeCreature, Stats: stats})
	card.PlaceAt(at)
	return card
}

func TestConfrontUnrotated(t *testing.T) {
	attacker := boardCard(1, "bob", Coords{X: 3, Y: 2}, Stats{
		Bottom: SideStats{Strength: 5, Defense: 4},
		Life:   5,
	})
	defender := boardCard(2, "alice", Coords{X: 3, Y: 3}, Stats{
		Top:  SideStats{Strength: 2, Defense: 3},
		Life: 5,
	})

	result, err := Confront(attacker, defender, false)
	require.NoError(t, err)
	assert.Equal(t, SideBottom, result.AttackerSide)
	assert.Equal(t, SideTop, result.DefenderSide)
	assert.Equal(t, 2, result.DefenderLoss)
	assert.Equal(t, 0, result.AttackerLoss)
}

func TestConfrontRotated(t *testing.T) {
	// The attacker's top becomes its bottom once turned around.
	attacker := boardCard(1, "alice", Coords{X: 3, Y: 2}, Stats{
		Top:    SideStats{Strength: 5, Defense: 4},
		Bottom: SideStats{Strength: 0, Defense: 0},
		Life:   5,
	})
	defender := boardCard(2, "bob", Coords{X: 3, Y: 3}, Stats{
		Top:  SideStats{Strength: 2, Defense: 3},
		Life: 5,
	})

	result, err := Confront(attacker, defender, true)
	require.NoError(t, err)
	assert.Equal(t, 2, result.DefenderLoss)
	assert.Equal(t, 0, result.AttackerLoss)

	result, err = Confront(attacker, defender, false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.DefenderLoss)
	assert.Equal(t, 2, result.AttackerLoss)
}

func TestConfrontRequiresAdjacentBoardCards(t *testing.T) {
	a := boardCard(1, "alice", Coords{X: 0, Y: 0}, Stats{})
	b := boardCard(2, "bob", Coords{X: 2, Y: 0}, Stats{})
	_, err := Confront(a, b, false)
	assert.Error(t, err)

	b.MoveTo(LocationHand)
	_, err = Confront(a, b, false)
	assert.Error(t, err)
}

func TestDamageAndHeal(t *testing.T) {
	card := boardCard(1, "alice", Coords{}, Stats{Life: 4})

	assert.False(t, card.Damage(0))
	assert.True(t, card.Damage(3))
	assert.Equal(t, 1, card.CurrentStats.Life)

	assert.Equal(t, 3, card.Heal(10))
	assert.Equal(t, 4, card.CurrentStats.Life)
	assert.Equal(t, 0, card.Heal(1))

	card.Damage(4)
	assert.True(t, card.IsDead())
}
