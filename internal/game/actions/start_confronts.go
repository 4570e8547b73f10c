package actions

import (
	"context"
	"fmt"

	"github.com/thefirstspine/matches-sub001/internal/game"
)

// StartConfronts closes the actions phase of the current turn and opens the
// confrontation phase.
type StartConfronts struct {
	base
}

// NewStartConfronts creates the start-confronts worker.
func NewStartConfronts(reg *Registry) *StartConfronts {
	return &StartConfronts{base: base{reg: reg, actionType: TypeStartConfronts, priority: defaultPriority}}
}

// Create offers a single accept subaction.
func (w *StartConfronts) Create(_ context.Context, _ *game.Instance, user string) (*game.Action, error) {
	return w.newAction(user, game.Subaction{
		Kind:        game.SubactionAccept,
		Description: "End your actions and start the confrontations",
	}), nil
}

// Refresh has nothing to recompute.
func (w *StartConfronts) Refresh(context.Context, *game.Instance, *game.Action) error {
	return nil
}

// Execute drops the other pending actions and enters the confronts phase.
func (w *StartConfronts) Execute(ctx context.Context, inst *game.Instance, action *game.Action) (bool, error) {
	if _, err := action.Answer(0, game.SubactionAccept); err != nil {
		return false, err
	}

	// Every other pending action of the phase is dropped. Workers are looked
	// up before any deletion so a failure leaves the instance untouched.
	var others []*game.Action
	inst.WithLock(func() {
		for _, a := range inst.Actions.Current {
			if a != action && a.ID != action.ID {
				others = append(others, a)
			}
		}
	})
	workers := make([]Worker, len(others))
	for i, a := range others {
		wk, err := w.reg.Worker(a.Type)
		if err != nil {
			return false, fmt.Errorf("failed to drop %s: %w", a.Type, err)
		}
		workers[i] = wk
	}
	for i, a := range others {
		workers[i].Delete(ctx, inst, a)
	}

	w.reg.EnterPhase(ctx, inst, game.PhaseConfronts)
	if !inst.IsActive() {
		return true, nil
	}

	if len(openCouples(inst, action.User, w.reg.Settings().ConfrontsLookback)) == 0 {
		return true, w.reg.EndTurn(ctx, inst)
	}
	if _, err := w.reg.Create(ctx, inst, TypeConfronts, action.User); err != nil {
		return false, err
	}
	return true, nil
}

// Expires starts the confrontations on the user's behalf.
func (w *StartConfronts) Expires(ctx context.Context, inst *game.Instance, action *game.Action) (bool, error) {
	action.Response = []game.Answer{{Kind: game.SubactionAccept}}
	ok, err := w.Execute(ctx, inst, action)
	w.Delete(ctx, inst, action)
	return ok, err
}
