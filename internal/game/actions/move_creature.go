package actions

import (
	"context"
	"slices"

	"github.com/thefirstspine/matches-sub001/internal/game"
	"github.com/thefirstspine/matches-sub001/internal/game/events"
)

// MoveCreature moves one of the user's board creatures by one cell.
type MoveCreature struct {
	base
}

// NewMoveCreature creates the move-creature worker.
func NewMoveCreature(reg *Registry) *MoveCreature {
	return &MoveCreature{base: base{reg: reg, actionType: TypeMoveCreature, priority: defaultPriority}}
}

func (w *MoveCreature) choices(inst *game.Instance, user string) *game.MoveCardParams {
	params := &game.MoveCardParams{Moves: []game.MoveChoice{}}
	for _, c := range inst.BoardCards() {
		if c.User != user || c.Template.Type != game.CardTypeCreature {
			continue
		}
		to := emptyNeighbors(inst, *c.Coords)
		if len(to) == 0 {
			continue
		}
		params.Moves = append(params.Moves, game.MoveChoice{From: c.Coords.String(), To: to})
	}
	return params
}

// Create offers every creature of the user that has a free neighbour.
func (w *MoveCreature) Create(_ context.Context, inst *game.Instance, user string) (*game.Action, error) {
	return w.newAction(user, game.Subaction{
		Kind:        game.SubactionMoveCard,
		Description: "Move a creature",
		MoveCard:    w.choices(inst, user),
	}), nil
}

// Refresh recomputes the moves against the current board.
func (w *MoveCreature) Refresh(_ context.Context, inst *game.Instance, action *game.Action) error {
	for i := range action.Subactions {
		if action.Subactions[i].Kind == game.SubactionMoveCard {
			action.Subactions[i].MoveCard = w.choices(inst, action.User)
		}
	}
	return nil
}

// Execute moves the chosen creature to the chosen cell.
func (w *MoveCreature) Execute(ctx context.Context, inst *game.Instance, action *game.Action) (bool, error) {
	answer, err := action.Answer(0, game.SubactionMoveCard)
	if err != nil {
		return false, err
	}
	params := action.Subactions[0].MoveCard
	if params == nil {
		return false, game.Reject("move-creature action has no choices")
	}
	idx := slices.IndexFunc(params.Moves, func(m game.MoveChoice) bool { return m.From == answer.Move.From })
	if idx < 0 {
		return false, game.Reject("no creature can move from %q", answer.Move.From)
	}
	from, err := game.ParseCoords(answer.Move.From)
	if err != nil {
		return false, game.Reject("%v", err)
	}
	to, err := parseChoice(answer.Move.To, params.Moves[idx].To)
	if err != nil {
		return false, err
	}

	card, ok := inst.CardAt(from)
	if !ok || card.User != action.User || card.Template.Type != game.CardTypeCreature {
		return false, game.Reject("no creature of %s at %s", action.User, from)
	}
	if !inst.IsEmpty(to) {
		return false, game.Reject("cell %s is taken", to)
	}

	inst.WithLock(func() {
		card.PlaceAt(to)
	})
	w.dispatch(ctx, inst, events.CardMoved(string(card.Template.Type), card.ID), events.CardChange{
		CardID: card.ID,
		From:   from.String(),
		To:     to.String(),
	})
	return true, nil
}
