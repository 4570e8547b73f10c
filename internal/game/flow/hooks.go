package flow

import (
	"context"

	"github.com/thefirstspine/matches-sub001/internal/game"
	"github.com/thefirstspine/matches-sub001/internal/game/events"
)

// Modifiers understood by the built-in hooks.
const (
	ModifierFragile = "fragile"
	ModifierFurious = "furious"
)

// RegisterHooks installs the creation-time hooks on d.
func RegisterHooks(d *events.Dispatcher) {
	d.Register(events.ModifierHook(ModifierFragile).String(), fragile)
	d.Register(events.ModifierHook(ModifierFurious).String(), furious)
}

// fragile halves the life of every player card, rounding up.
func fragile(_ context.Context, inst *game.Instance, _ events.Event) error {
	inst.WithLock(func() {
		for _, c := range inst.Cards {
			if c.Template.Type == game.CardTypePlayer {
				c.CurrentStats.Life = (c.CurrentStats.Life + 1) / 2
			}
		}
	})
	return nil
}

// furious gives every creature one more strength on each side.
func furious(_ context.Context, inst *game.Instance, _ events.Event) error {
	inst.WithLock(func() {
		for _, c := range inst.Cards {
			if c.Template.Type != game.CardTypeCreature {
				continue
			}
			c.CurrentStats.Top.Strength++
			c.CurrentStats.Right.Strength++
			c.CurrentStats.Bottom.Strength++
			c.CurrentStats.Left.Strength++
		}
	})
	return nil
}
