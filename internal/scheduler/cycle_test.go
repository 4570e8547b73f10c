package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thefirstspine/matches-sub001/internal/game"
	"github.com/thefirstspine/matches-sub001/internal/game/actions"
)

// checkInvariants fails when an active instance has nothing pending or two
// board cards share a cell.
func checkInvariants(t *testing.T, inst *game.Instance) {
	t.Helper()
	if inst.IsActive() {
		require.NotEmpty(t, inst.Actions.Current, "active instance without pending action")
	}
	taken := make(map[game.Coords]int)
	for _, c := range inst.BoardCards() {
		other, ok := taken[*c.Coords]
		require.False(t, ok, "cards %d and %d share cell %s", other, c.ID, c.Coords)
		taken[*c.Coords] = c.ID
	}
}

// pendingOf returns the pending action of the given type.
func pendingOf(t *testing.T, inst *game.Instance, actionType string) *game.Action {
	t.Helper()
	for _, a := range inst.Actions.Current {
		if a.Type == actionType {
			return a
		}
	}
	t.Fatalf("no pending %s action", actionType)
	return nil
}

func pendingTypes(inst *game.Instance) []string {
	var out []string
	for _, a := range inst.Actions.Current {
		out = append(out, a.Type)
	}
	return out
}

// duelInstance seats alice at 3-0 with six creatures in hand and bob at 3-6
// with one creature already at 3-2.
func duelInstance(t *testing.T, f *fixture) *game.Instance {
	t.Helper()
	side := game.SideStats{Strength: 1, Defense: 0}
	creature := game.CardTemplate{ID: "wolf", Type: game.CardTypeCreature, Stats: game.Stats{
		Top: side, Right: side, Bottom: side, Left: side, Life: 5,
	}}
	player := game.CardTemplate{ID: "hunter", Type: game.CardTypePlayer, Stats: game.Stats{Life: 20}}

	inst := &game.Instance{
		GameTypeID: "standard",
		Status:     game.StatusActive,
		Users:      []string{"alice", "bob"},
		Phase:      game.PhaseThrow,
		CreatedAt:  testNow,
	}
	add := func(user string, tmpl game.CardTemplate) *game.Card {
		card := game.NewCard(len(inst.Cards)+1, user, tmpl)
		inst.Cards = append(inst.Cards, card)
		return card
	}

	add("alice", player).PlaceAt(game.HomeCell(0))
	for i := 0; i < 6; i++ {
		add("alice", creature).MoveTo(game.LocationHand)
	}
	add("alice", creature)
	add("bob", player).PlaceAt(game.HomeCell(1))
	add("bob", creature).PlaceAt(game.Coords{X: 3, Y: 2})
	for i := 0; i < 6; i++ {
		add("bob", creature).MoveTo(game.LocationHand)
	}

	_, err := f.reg.Create(context.Background(), inst, actions.TypeThrowCards, "alice")
	require.NoError(t, err)
	require.NoError(t, f.store.Create(context.Background(), inst))
	require.True(t, f.sched.Add(inst))
	return inst
}

func TestTurnCycleKeepsBoardConsistent(t *testing.T) {
	f := newFixture(t)
	inst := duelInstance(t, f)
	ctx := context.Background()

	tick := func() {
		t.Helper()
		result, err := f.sched.Tick(ctx, inst)
		require.NoError(t, err)
		require.Equal(t, Changed, result)
		checkInvariants(t, inst)
	}
	checkInvariants(t, inst)

	pendingOf(t, inst, actions.TypeThrowCards).Response = []game.Answer{{
		Kind: game.SubactionDiscardCards, Discard: &game.DiscardAnswer{CardIDs: []int{}},
	}}
	tick()
	assert.Equal(t, game.PhaseActions, inst.Phase)
	assert.ElementsMatch(t, []string{actions.TypePlaceCard, actions.TypeMoveCreature, actions.TypeStartConfronts}, pendingTypes(inst))

	pendingOf(t, inst, actions.TypePlaceCard).Response = []game.Answer{{
		Kind: game.SubactionPutCard, Put: &game.PutAnswer{CardID: 2, To: "3-1"},
	}}
	tick()
	placed, ok := inst.Card(2)
	require.True(t, ok)
	require.True(t, placed.IsOnBoard())
	assert.Equal(t, game.Coords{X: 3, Y: 1}, *placed.Coords)

	// The refreshed move offers only free cells.
	move := pendingOf(t, inst, actions.TypeMoveCreature)
	require.Len(t, move.Subactions[0].MoveCard.Moves, 1)
	assert.Equal(t, []string{"4-1", "2-1"}, move.Subactions[0].MoveCard.Moves[0].To)

	pendingOf(t, inst, actions.TypeStartConfronts).Response = []game.Answer{{Kind: game.SubactionAccept}}
	tick()
	assert.Equal(t, game.PhaseConfronts, inst.Phase)
	confronts := pendingOf(t, inst, actions.TypeConfronts)
	assert.Equal(t, []game.Couple{{Attacker: "3-1", Defender: "3-2"}}, confronts.Subactions[0].SelectCouple.Couples)
	assert.Len(t, inst.Actions.Current, 1)

	confronts.Response = []game.Answer{{
		Kind: game.SubactionSelectCouple, Couple: &game.Couple{Attacker: "3-1", Defender: "3-2"},
	}}
	tick()
	assert.Equal(t, 1, inst.Turn)
	assert.Equal(t, game.PhaseThrow, inst.Phase)
	require.Len(t, inst.Actions.Current, 1)
	throw := inst.Actions.Current[0]
	assert.Equal(t, actions.TypeThrowCards, throw.Type)
	assert.Equal(t, "bob", throw.User)

	throw.Response = []game.Answer{{
		Kind: game.SubactionDiscardCards, Discard: &game.DiscardAnswer{CardIDs: []int{}},
	}}
	tick()
	assert.Equal(t, game.PhaseActions, inst.Phase)
	for _, a := range inst.Actions.Current {
		assert.Equal(t, "bob", a.User)
	}
	assert.True(t, inst.IsActive())
}
