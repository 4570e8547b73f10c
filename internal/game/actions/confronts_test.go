package actions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thefirstspine/matches-sub001/internal/game"
)

func coupleAnswer(attacker, defender string) []game.Answer {
	return []game.Answer{{Kind: game.SubactionSelectCouple, Couple: &game.Couple{Attacker: attacker, Defender: defender}}}
}

// setupConfronts seats bob, the second seat, on turn with a creature at 3-2
// facing an alice creature below it.
func setupConfronts(t *testing.T) (*Registry, *game.Instance, *game.Card, *game.Card) {
	t.Helper()
	reg := newTestRegistry(t)
	inst := newTestInstance()
	inst.Turn = 1
	inst.Phase = game.PhaseConfronts
	attacker := addCard(inst, "bob", creatureTemplate(game.Stats{
		Bottom: game.SideStats{Strength: 5, Defense: 4},
		Life:   5,
	}), game.LocationBoard, cell(3, 2))
	defender := addCard(inst, "alice", creatureTemplate(game.Stats{
		Top:  game.SideStats{Strength: 2, Defense: 3},
		Life: 5,
	}), game.LocationBoard, cell(3, 3))
	return reg, inst, attacker, defender
}

func TestConfrontsResolvesCouple(t *testing.T) {
	reg, inst, attacker, defender := setupConfronts(t)
	seen := recordEvents(reg)

	action, err := reg.Create(context.Background(), inst, TypeConfronts, "bob")
	require.NoError(t, err)
	require.Equal(t, []game.Couple{{Attacker: "3-2", Defender: "3-3"}}, action.Subactions[0].SelectCouple.Couples)

	w, err := reg.Worker(TypeConfronts)
	require.NoError(t, err)
	action.Response = coupleAnswer("3-2", "3-3")
	ok, err := w.Execute(context.Background(), inst, action)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 3, defender.CurrentStats.Life)
	assert.Equal(t, 5, attacker.CurrentStats.Life)
	assert.Contains(t, seen(), "card:lifeChanged:damaged:2")

	// No couple is left, so the turn passed to alice.
	assert.Equal(t, 2, inst.Turn)
	require.Len(t, inst.Actions.Current, 1)
	assert.Equal(t, TypeThrowCards, inst.Actions.Current[0].Type)
	assert.Equal(t, "alice", inst.Actions.Current[0].User)
	assert.False(t, inst.IsPending(action))
}

func TestConfrontsStreak(t *testing.T) {
	reg, inst, _, _ := setupConfronts(t)
	addCard(inst, "alice", creatureTemplate(game.Stats{Life: 5}), game.LocationBoard, cell(2, 2))
	w, err := reg.Worker(TypeConfronts)
	require.NoError(t, err)

	first, err := reg.Create(context.Background(), inst, TypeConfronts, "bob")
	require.NoError(t, err)
	require.Equal(t, []game.Couple{
		{Attacker: "3-2", Defender: "3-3"},
		{Attacker: "3-2", Defender: "2-2"},
	}, first.Subactions[0].SelectCouple.Couples)

	first.Response = coupleAnswer("3-2", "3-3")
	ok, err := w.Execute(context.Background(), inst, first)
	require.NoError(t, err)
	require.True(t, ok)

	require.Len(t, inst.Actions.Current, 1)
	second := inst.Actions.Current[0]
	assert.Equal(t, TypeConfronts, second.Type)
	assert.Equal(t, []game.Couple{{Attacker: "3-2", Defender: "2-2"}}, second.Subactions[0].SelectCouple.Couples)

	// A couple already resolved in the streak is refused.
	second.Response = coupleAnswer("3-2", "3-3")
	ok, err = w.Execute(context.Background(), inst, second)
	assert.False(t, ok)
	assert.ErrorIs(t, err, game.ErrRejected)

	second.Response = coupleAnswer("3-2", "2-2")
	ok, err = w.Execute(context.Background(), inst, second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, inst.Turn)
}

func TestResolvedCouplesStopsAtStreakBreak(t *testing.T) {
	inst := newTestInstance()
	confront := func(user, defender string) game.PassedAction {
		a := &game.Action{Type: TypeConfronts, User: user, Response: coupleAnswer("3-2", defender)}
		return a.Passed(testNow)
	}
	other := (&game.Action{Type: TypeStartConfronts, User: "bob"}).Passed(testNow)
	inst.Actions.Previous = []game.PassedAction{
		confront("bob", "1-1"),
		other,
		confront("bob", "3-3"),
		confront("bob", "2-2"),
	}

	assert.ElementsMatch(t, []game.Couple{
		{Attacker: "3-2", Defender: "3-3"},
		{Attacker: "3-2", Defender: "2-2"},
	}, resolvedCouples(inst, "bob", 50))
	assert.Len(t, resolvedCouples(inst, "bob", 1), 1)
	assert.Empty(t, resolvedCouples(inst, "alice", 50))
}

func TestConfrontsExpiresEndsTurn(t *testing.T) {
	reg, inst, _, defender := setupConfronts(t)
	w, err := reg.Worker(TypeConfronts)
	require.NoError(t, err)
	action, err := reg.Create(context.Background(), inst, TypeConfronts, "bob")
	require.NoError(t, err)

	ok, err := w.Expires(context.Background(), inst, action)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 5, defender.CurrentStats.Life)
	assert.Equal(t, 2, inst.Turn)
	assert.False(t, inst.IsPending(action))
}

func TestStartConfrontsWithoutCouples(t *testing.T) {
	reg := newTestRegistry(t)
	inst := newTestInstance()
	addCard(inst, "alice", playerTemplate(20), game.LocationBoard, cell(3, 0))

	place, err := reg.Create(context.Background(), inst, TypePlaceCard, "alice")
	require.NoError(t, err)
	start, err := reg.Create(context.Background(), inst, TypeStartConfronts, "alice")
	require.NoError(t, err)

	w, err := reg.Worker(TypeStartConfronts)
	require.NoError(t, err)
	start.Response = []game.Answer{{Kind: game.SubactionAccept}}
	ok, err := w.Execute(context.Background(), inst, start)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.False(t, inst.IsPending(place))
	assert.Equal(t, 1, inst.Turn)
	assert.Equal(t, game.PhaseThrow, inst.Phase)
	require.Len(t, inst.Actions.Current, 2)
	assert.Equal(t, TypeThrowCards, inst.Actions.Current[1].Type)
	assert.Equal(t, "bob", inst.Actions.Current[1].User)
}

func TestStartConfrontsOpensConfronts(t *testing.T) {
	reg, inst, _, _ := setupConfronts(t)
	inst.Phase = game.PhaseActions

	start, err := reg.Create(context.Background(), inst, TypeStartConfronts, "bob")
	require.NoError(t, err)
	w, err := reg.Worker(TypeStartConfronts)
	require.NoError(t, err)

	ok, err := w.Expires(context.Background(), inst, start)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, game.PhaseConfronts, inst.Phase)
	require.Len(t, inst.Actions.Current, 1)
	assert.Equal(t, TypeConfronts, inst.Actions.Current[0].Type)
	assert.Equal(t, "bob", inst.Actions.Current[0].User)
}

func TestStartConfrontsUnknownActionLeavesStateUntouched(t *testing.T) {
	reg := newTestRegistry(t)
	inst := newTestInstance()
	addCard(inst, "alice", playerTemplate(20), game.LocationBoard, cell(3, 0))

	place, err := reg.Create(context.Background(), inst, TypePlaceCard, "alice")
	require.NoError(t, err)
	inst.AddAction(&game.Action{ID: "ghost-1", Type: "ghost", User: "alice", Priority: 1, CreatedAt: testNow})
	start, err := reg.Create(context.Background(), inst, TypeStartConfronts, "alice")
	require.NoError(t, err)

	w, err := reg.Worker(TypeStartConfronts)
	require.NoError(t, err)
	start.Response = []game.Answer{{Kind: game.SubactionAccept}}
	ok, err := w.Execute(context.Background(), inst, start)
	assert.False(t, ok)
	require.Error(t, err)
	assert.NotErrorIs(t, err, game.ErrRejected)

	assert.True(t, inst.IsPending(place))
	assert.True(t, inst.IsPending(start))
	assert.Len(t, inst.Actions.Current, 3)
	assert.Empty(t, inst.Actions.Previous)
	assert.Equal(t, game.PhaseActions, inst.Phase)
}
