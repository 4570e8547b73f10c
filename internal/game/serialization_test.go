package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestInstance() *Instance {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	expires := created.Add(90 * time.Second)

	player := NewCard(1, "alice", CardTemplate{ID: "hunter", Type: CardTypePlayer, Stats: Stats{Life: 20}})
	player.PlaceAt(HomeCell(0))
	wolf := NewCard(2, "alice", CardTemplate{ID: "wolf", Type: CardTypeCreature, Stats: Stats{
		Top:  SideStats{Strength: 2, Defense: 1},
		Life: 3,
	}})
	wolf.MoveTo(LocationHand)

	return &Instance{
		ID:         7,
		GameTypeID: "standard",
		Status:     StatusActive,
		Users:      []string{"alice", "bob"},
		Phase:      PhaseActions,
		Cards:      []*Card{player, wolf},
		Actions: Actions{
			Current: []*Action{{
				ID:        "action-1",
				Type:      "place-card",
				User:      "alice",
				Priority:  1,
				CreatedAt: created,
				ExpiresAt: &expires,
				Subactions: []Subaction{{
					Kind: SubactionPutCard,
					PutCard: &PutCardParams{Placements: []Placement{
						{CardID: 2, To: []string{"4-0", "3-1", "2-0"}},
					}},
				}},
			}},
			Previous: []PassedAction{},
		},
		CreatedAt: created,
	}
}

// TestChecksumDeterministic verifies identical instances hash identically.
func TestChecksumDeterministic(t *testing.T) {
	first, err := Checksum(createTestInstance())
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Checksum(createTestInstance())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestChecksumDifferentStates(t *testing.T) {
	a := createTestInstance()
	b := createTestInstance()
	b.Turn = 5

	sumA, err := Checksum(a)
	require.NoError(t, err)
	sumB, err := Checksum(b)
	require.NoError(t, err)
	assert.NotEqual(t, sumA, sumB)
}

func TestValidateRoundtrip(t *testing.T) {
	inst := createTestInstance()
	inst.Actions.Current[0].Response = []Answer{{Kind: SubactionPutCard, Put: &PutAnswer{CardID: 2, To: "3-1"}}}
	inst.Finish(StatusEnded, "bob")

	require.NoError(t, ValidateRoundtrip(inst))
}

func TestCloneIsDeep(t *testing.T) {
	inst := createTestInstance()
	clone, err := Clone(inst)
	require.NoError(t, err)

	clone.Cards[0].CurrentStats.Life = 1
	clone.Actions.Current[0].Subactions[0].PutCard.Placements[0].To[0] = "0-0"

	assert.Equal(t, 20, inst.Cards[0].CurrentStats.Life)
	assert.Equal(t, "4-0", inst.Actions.Current[0].Subactions[0].PutCard.Placements[0].To[0])
	require.NotNil(t, clone.Cards[0].Coords)
	assert.Equal(t, HomeCell(0), *clone.Cards[0].Coords)
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode([]byte("{not json"))
	assert.Error(t, err)
}
