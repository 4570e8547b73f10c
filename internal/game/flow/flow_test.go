package flow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thefirstspine/matches-sub001/internal/game"
	"github.com/thefirstspine/matches-sub001/internal/game/actions"
	"github.com/thefirstspine/matches-sub001/internal/game/events"
	"go.uber.org/zap/zaptest"
)

func newFlowRegistry(t *testing.T) *actions.Registry {
	t.Helper()
	logger := zaptest.NewLogger(t)
	reg := actions.NewRegistry(events.NewDispatcher("game", logger), logger,
		actions.WithClock(func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }),
	)
	actions.RegisterDefaults(reg)
	New(reg, logger).Register()
	return reg
}

func newFlowInstance() *game.Instance {
	return &game.Instance{
		ID:     1,
		Status: game.StatusActive,
		Users:  []string{"alice", "bob"},
		Phase:  game.PhaseThrow,
	}
}

func place(inst *game.Instance, user string, tmpl game.CardTemplate, x, y int) *game.Card {
	card := game.NewCard(len(inst.Cards)+1, user, tmpl)
	card.PlaceAt(game.Coords{X: x, Y: y})
	inst.Cards = append(inst.Cards, card)
	return card
}

func TestActionsPhaseOffersActions(t *testing.T) {
	reg := newFlowRegistry(t)
	inst := newFlowInstance()
	place(inst, "alice", game.CardTemplate{ID: "hunter", Type: game.CardTypePlayer, Stats: game.Stats{Life: 20}}, 3, 0)
	heal := game.NewCard(2, "alice", game.CardTemplate{ID: "heal", Type: game.CardTypeSpell})
	heal.MoveTo(game.LocationHand)
	inst.Cards = append(inst.Cards, heal)

	reg.EnterPhase(context.Background(), inst, game.PhaseActions)

	var types []string
	for _, a := range inst.Actions.Current {
		assert.Equal(t, "alice", a.User)
		types = append(types, a.Type)
	}
	assert.Equal(t, []string{
		actions.TypePlaceCard,
		actions.TypeMoveCreature,
		actions.TypeSpellHeal,
		actions.TypeStartConfronts,
	}, types)
}

func TestDeadCreatureIsDiscarded(t *testing.T) {
	reg := newFlowRegistry(t)
	inst := newFlowInstance()
	wolf := place(inst, "bob", game.CardTemplate{ID: "wolf", Type: game.CardTypeCreature, Stats: game.Stats{Life: 2}}, 3, 3)

	var (
		mu        sync.Mutex
		discarded bool
	)
	reg.Dispatcher().Register(events.CardDiscarded(wolf.ID).String(), func(context.Context, *game.Instance, events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		discarded = true
		return nil
	})

	wolf.Damage(1)
	require.NoError(t, reg.Dispatch(context.Background(), inst, events.CardLifeChanged(events.LifeDamaged, wolf.ID), events.LifeChange{CardID: wolf.ID, Amount: -1}))
	assert.True(t, wolf.IsOnBoard())

	wolf.Damage(1)
	require.NoError(t, reg.Dispatch(context.Background(), inst, events.CardLifeChanged(events.LifeDamaged, wolf.ID), events.LifeChange{CardID: wolf.ID, Amount: -1}))
	assert.Equal(t, game.LocationDiscard, wolf.Location)
	assert.True(t, discarded)
	assert.True(t, inst.IsActive())
}

func TestPlayerDeathEndsGame(t *testing.T) {
	reg := newFlowRegistry(t)
	inst := newFlowInstance()
	player := place(inst, "bob", game.CardTemplate{ID: "hunter", Type: game.CardTypePlayer, Stats: game.Stats{Life: 1}}, 3, 6)

	player.Damage(3)
	require.NoError(t, reg.Dispatch(context.Background(), inst, events.CardLifeChanged(events.LifeDamaged, player.ID), events.LifeChange{CardID: player.ID, Amount: -3}))

	assert.Equal(t, game.StatusEnded, inst.Status)
	assert.Equal(t, []game.UserResult{
		{User: "alice", Result: game.ResultWon},
		{User: "bob", Result: game.ResultLost},
	}, inst.Result)
	assert.True(t, player.IsOnBoard())
}

func TestSettleLifeRejectsBadPayload(t *testing.T) {
	reg := newFlowRegistry(t)
	err := reg.Dispatch(context.Background(), newFlowInstance(), events.CardLifeChanged(events.LifeDamaged, 9), nil)
	assert.Error(t, err)
}

func TestModifierHooks(t *testing.T) {
	hooks := events.NewDispatcher("hooks", zaptest.NewLogger(t))
	RegisterHooks(hooks)

	inst := newFlowInstance()
	player := place(inst, "alice", game.CardTemplate{ID: "hunter", Type: game.CardTypePlayer, Stats: game.Stats{Life: 15}}, 3, 0)
	wolf := game.NewCard(2, "alice", game.CardTemplate{ID: "wolf", Type: game.CardTypeCreature, Stats: game.Stats{
		Top: game.SideStats{Strength: 2}, Life: 3,
	}})
	inst.Cards = append(inst.Cards, wolf)

	require.NoError(t, hooks.Dispatch(context.Background(), inst, events.ModifierHook(ModifierFragile), nil))
	require.NoError(t, hooks.Dispatch(context.Background(), inst, events.ModifierHook(ModifierFurious), nil))

	assert.Equal(t, 8, player.CurrentStats.Life)
	assert.Equal(t, 3, wolf.CurrentStats.Top.Strength)
	assert.Equal(t, 1, wolf.CurrentStats.Bottom.Strength)
	assert.Equal(t, 2, wolf.Template.Stats.Top.Strength)
}
