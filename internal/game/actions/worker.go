package actions

import (
	"context"
	"slices"

	"github.com/thefirstspine/matches-sub001/internal/game"
	"github.com/thefirstspine/matches-sub001/internal/game/events"
	"go.uber.org/zap"
)

// Action types.
const (
	TypeThrowCards     = "throw-cards"
	TypePlaceCard      = "place-card"
	TypeMoveCreature   = "move-creature"
	TypeStartConfronts = "start-confronts"
	TypeConfronts      = "confronts"
	TypeSpellHeal      = "spell-heal"
	TypeSpellThunder   = "spell-thunder"
)

const defaultPriority = 1

var (
	_ Worker = (*ThrowCards)(nil)
	_ Worker = (*PlaceCard)(nil)
	_ Worker = (*MoveCreature)(nil)
	_ Worker = (*StartConfronts)(nil)
	_ Worker = (*Confronts)(nil)
	_ Worker = (*Spell)(nil)
)

// RegisterDefaults registers every built-in worker on r.
func RegisterDefaults(r *Registry) {
	r.Register(NewThrowCards(r))
	r.Register(NewPlaceCard(r))
	r.Register(NewMoveCreature(r))
	r.Register(NewStartConfronts(r))
	r.Register(NewConfronts(r))
	r.Register(NewSpell(r, TypeSpellHeal, "heal", SpellTargetOwnCreature, 2))
	r.Register(NewSpell(r, TypeSpellThunder, "thunder", SpellTargetOpponent, 3))
}

// base carries what every worker shares: its type, the registry and the
// audit-log deletion.
type base struct {
	reg        *Registry
	actionType string
	priority   int
}

func (b *base) Type() string {
	return b.actionType
}

func (b *base) newAction(user string, subactions ...game.Subaction) *game.Action {
	now := b.reg.Now()
	action := &game.Action{
		ID:         b.reg.NewID(),
		Type:       b.actionType,
		User:       user,
		Priority:   b.priority,
		CreatedAt:  now,
		Subactions: subactions,
	}
	if d := b.reg.Settings().TurnDuration; d > 0 {
		expiresAt := now.Add(d)
		action.ExpiresAt = &expiresAt
	}
	return action
}

// Delete moves the action from current to previous once.
func (b *base) Delete(_ context.Context, inst *game.Instance, action *game.Action) {
	var passed bool
	inst.WithLock(func() {
		passed = inst.Pass(action, b.reg.Now())
	})
	if passed && b.reg.Logger() != nil {
		b.reg.Logger().Debug("action deleted",
			zap.Int64("instance_id", inst.ID),
			zap.String("action_type", action.Type),
			zap.String("action_id", action.ID),
		)
	}
}

// Expires removes the action without any other effect.
func (b *base) Expires(ctx context.Context, inst *game.Instance, action *game.Action) (bool, error) {
	b.Delete(ctx, inst, action)
	return true, nil
}

// dispatch raises an event; handler failures are logged by the dispatcher
// and do not undo the committed transition.
func (b *base) dispatch(ctx context.Context, inst *game.Instance, key events.Key, payload any) {
	_ = b.reg.Dispatch(ctx, inst, key, payload)
}

// damage lowers a card's life and raises the matching event.
func (b *base) damage(ctx context.Context, inst *game.Instance, card *game.Card, amount int) {
	var changed bool
	inst.WithLock(func() {
		changed = card.Damage(amount)
	})
	if !changed {
		return
	}
	b.dispatch(ctx, inst, events.CardLifeChanged(events.LifeDamaged, card.ID), events.LifeChange{CardID: card.ID, Amount: -amount})
}

// EnterPhase switches the current turn's phase and raises game:phaseChanged.
func (r *Registry) EnterPhase(ctx context.Context, inst *game.Instance, phase game.Phase) {
	inst.WithLock(func() {
		inst.Phase = phase
	})
	_ = r.Dispatch(ctx, inst, events.PhaseChanged(string(phase)), nil)
}

// EndTurn passes the turn to the next seat and offers it a throw-cards action.
func (r *Registry) EndTurn(ctx context.Context, inst *game.Instance) error {
	if !inst.IsActive() {
		return nil
	}
	inst.WithLock(func() {
		inst.Turn++
		inst.Phase = game.PhaseThrow
	})
	if _, err := r.Create(ctx, inst, TypeThrowCards, inst.CurrentUser()); err != nil {
		return err
	}
	_ = r.Dispatch(ctx, inst, events.TurnEnded(), nil)
	return nil
}

// emptyNeighbors returns the free cells around from, in neighbour order.
func emptyNeighbors(inst *game.Instance, from game.Coords) []string {
	var out []string
	for _, n := range from.Neighbors() {
		if inst.IsEmpty(n) {
			out = append(out, n.String())
		}
	}
	return out
}

// parseChoice checks that value is one of allowed and parses it as coordinates.
func parseChoice(value string, allowed []string) (game.Coords, error) {
	if !slices.Contains(allowed, value) {
		return game.Coords{}, game.Reject("cell %q is not among the offered choices", value)
	}
	coords, err := game.ParseCoords(value)
	if err != nil {
		return game.Coords{}, game.Reject("%v", err)
	}
	return coords, nil
}
