// Package flow wires the turn structure on top of the action workers: which
// actions open each phase, what happens to dead cards and when a match ends.
package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/thefirstspine/matches-sub001/internal/game"
	"github.com/thefirstspine/matches-sub001/internal/game/actions"
	"github.com/thefirstspine/matches-sub001/internal/game/events"
	"go.uber.org/zap"
)

// castable is implemented by workers that are only offered while the user
// holds a matching card.
type castable interface {
	Castable(inst *game.Instance, user string) bool
}

// Flow holds the in-game event handlers.
type Flow struct {
	reg    *actions.Registry
	logger *zap.Logger
}

// New creates the turn-flow handlers for reg.
func New(reg *actions.Registry, logger *zap.Logger) *Flow {
	return &Flow{reg: reg, logger: logger}
}

// Register installs the handlers on the registry's dispatcher.
func (f *Flow) Register() {
	d := f.reg.Dispatcher()
	d.Register(events.PhaseChanged(string(game.PhaseActions)).String(), f.openActionsPhase)
	d.Register(events.PrefixLifeChanged, f.settleLife)
	d.Register(events.NewKey(events.PrefixGame, "finished").String(), f.logFinished)
}

// openActionsPhase offers the current user every action of the phase.
func (f *Flow) openActionsPhase(ctx context.Context, inst *game.Instance, _ events.Event) error {
	if !inst.IsActive() {
		return nil
	}
	user := inst.CurrentUser()
	types := []string{actions.TypePlaceCard, actions.TypeMoveCreature}
	for _, t := range f.reg.Types() {
		w, err := f.reg.Worker(t)
		if err != nil {
			continue
		}
		if c, ok := w.(castable); ok && c.Castable(inst, user) {
			types = append(types, t)
		}
	}
	types = append(types, actions.TypeStartConfronts)

	var errs []error
	for _, t := range types {
		if _, err := f.reg.Create(ctx, inst, t, user); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// settleLife discards dead cards and ends the match when a player card dies.
func (f *Flow) settleLife(ctx context.Context, inst *game.Instance, event events.Event) error {
	change, ok := event.Payload.(events.LifeChange)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	card, ok := inst.Card(change.CardID)
	if !ok {
		return fmt.Errorf("card %d not found", change.CardID)
	}

	var discarded, finished bool
	inst.WithLock(func() {
		if !card.IsOnBoard() || !card.IsDead() {
			return
		}
		if card.Template.Type == game.CardTypePlayer {
			if inst.IsActive() {
				inst.Finish(game.StatusEnded, card.User)
				finished = true
			}
			return
		}
		card.MoveTo(game.LocationDiscard)
		discarded = true
	})

	if discarded {
		_ = f.reg.Dispatch(ctx, inst, events.CardDiscarded(card.ID), events.CardChange{
			CardID: card.ID,
			From:   string(game.LocationBoard),
			To:     string(game.LocationDiscard),
		})
	}
	if finished {
		_ = f.reg.Dispatch(ctx, inst, events.GameFinished(string(game.StatusEnded)), nil)
	}
	return nil
}

func (f *Flow) logFinished(_ context.Context, inst *game.Instance, event events.Event) error {
	if f.logger != nil {
		f.logger.Info("game finished",
			zap.Int64("instance_id", inst.ID),
			zap.String("event", event.Key.String()),
			zap.Any("result", inst.Result),
		)
	}
	return nil
}
