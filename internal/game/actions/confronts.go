package actions

import (
	"context"
	"slices"

	"github.com/thefirstspine/matches-sub001/internal/game"
	"go.uber.org/zap"
)

// Confronts resolves one attacker/defender couple per execution and re-offers
// the couples still open until none is left, then ends the turn.
type Confronts struct {
	base
}

// NewConfronts creates the confronts worker.
func NewConfronts(reg *Registry) *Confronts {
	return &Confronts{base: base{reg: reg, actionType: TypeConfronts, priority: defaultPriority}}
}

// resolvedCouples walks the audit log backwards through the unbroken streak
// of confronts actions of user, looking at most lookback entries back, and
// returns the couples they resolved.
func resolvedCouples(inst *game.Instance, user string, lookback int) []game.Couple {
	var out []game.Couple
	previous := inst.Actions.Previous
	for i := len(previous) - 1; i >= 0 && len(previous)-i <= lookback; i-- {
		passed := previous[i]
		if passed.Type != TypeConfronts || passed.User != user {
			break
		}
		for _, answer := range passed.Response {
			if answer.Couple != nil {
				out = append(out, *answer.Couple)
			}
		}
	}
	return out
}

// openCouples lists every couple formed by a board creature of user and an
// adjacent card of another user, minus the ones already resolved in the
// current streak.
func openCouples(inst *game.Instance, user string, lookback int) []game.Couple {
	resolved := resolvedCouples(inst, user, lookback)
	var out []game.Couple
	for _, attacker := range inst.BoardCards() {
		if attacker.User != user || attacker.Template.Type != game.CardTypeCreature {
			continue
		}
		for _, cell := range attacker.Coords.Neighbors() {
			defender, ok := inst.CardAt(cell)
			if !ok || defender.User == user {
				continue
			}
			couple := game.Couple{Attacker: attacker.Coords.String(), Defender: cell.String()}
			if slices.Contains(resolved, couple) {
				continue
			}
			out = append(out, couple)
		}
	}
	return out
}

func (w *Confronts) choices(inst *game.Instance, user string) *game.SelectCoupleParams {
	couples := openCouples(inst, user, w.reg.Settings().ConfrontsLookback)
	if couples == nil {
		couples = []game.Couple{}
	}
	return &game.SelectCoupleParams{Couples: couples}
}

// Create offers the couples still open in the current streak.
func (w *Confronts) Create(_ context.Context, inst *game.Instance, user string) (*game.Action, error) {
	return w.newAction(user, game.Subaction{
		Kind:         game.SubactionSelectCouple,
		Description:  "Choose the next confrontation",
		SelectCouple: w.choices(inst, user),
	}), nil
}

// Refresh recomputes the open couples.
func (w *Confronts) Refresh(_ context.Context, inst *game.Instance, action *game.Action) error {
	for i := range action.Subactions {
		if action.Subactions[i].Kind == game.SubactionSelectCouple {
			action.Subactions[i].SelectCouple = w.choices(inst, action.User)
		}
	}
	return nil
}

// Execute resolves the chosen couple, then offers the next one or ends the turn.
func (w *Confronts) Execute(ctx context.Context, inst *game.Instance, action *game.Action) (bool, error) {
	answer, err := action.Answer(0, game.SubactionSelectCouple)
	if err != nil {
		return false, err
	}
	params := action.Subactions[0].SelectCouple
	if params == nil || !slices.Contains(params.Couples, *answer.Couple) {
		return false, game.Reject("couple %s/%s is not offered", answer.Couple.Attacker, answer.Couple.Defender)
	}

	attackerAt, err := game.ParseCoords(answer.Couple.Attacker)
	if err != nil {
		return false, game.Reject("%v", err)
	}
	defenderAt, err := game.ParseCoords(answer.Couple.Defender)
	if err != nil {
		return false, game.Reject("%v", err)
	}
	attacker, ok := inst.CardAt(attackerAt)
	if !ok || attacker.User != action.User {
		return false, game.Reject("no attacker of %s at %s", action.User, attackerAt)
	}
	defender, ok := inst.CardAt(defenderAt)
	if !ok || defender.User == action.User {
		return false, game.Reject("no opposing card at %s", defenderAt)
	}

	// Only the first seat sees its attacker turned around.
	rotate := inst.Seat(attacker.User) == 0
	result, err := game.Confront(attacker, defender, rotate)
	if err != nil {
		return false, game.Reject("%v", err)
	}

	w.damage(ctx, inst, defender, result.DefenderLoss)
	w.damage(ctx, inst, attacker, result.AttackerLoss)

	if logger := w.reg.Logger(); logger != nil {
		logger.Debug("couple confronted",
			zap.Int64("instance_id", inst.ID),
			zap.String("attacker", attacker.String()),
			zap.String("defender", defender.String()),
			zap.Bool("rotated", rotate),
			zap.Int("attacker_loss", result.AttackerLoss),
			zap.Int("defender_loss", result.DefenderLoss),
		)
	}

	// Pass the action now so the resolved couple counts in the streak.
	w.Delete(ctx, inst, action)
	if !inst.IsActive() {
		return true, nil
	}
	if len(openCouples(inst, action.User, w.reg.Settings().ConfrontsLookback)) == 0 {
		return true, w.reg.EndTurn(ctx, inst)
	}
	if _, err := w.reg.Create(ctx, inst, TypeConfronts, action.User); err != nil {
		return true, err
	}
	return true, nil
}

// Expires gives up the remaining confrontations and ends the turn.
func (w *Confronts) Expires(ctx context.Context, inst *game.Instance, action *game.Action) (bool, error) {
	w.Delete(ctx, inst, action)
	return true, w.reg.EndTurn(ctx, inst)
}
