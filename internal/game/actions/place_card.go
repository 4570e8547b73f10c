package actions

import (
	"context"
	"slices"

	"github.com/thefirstspine/matches-sub001/internal/game"
	"github.com/thefirstspine/matches-sub001/internal/game/events"
)

// PlaceCard puts a creature or artifact from hand on a free cell next to one
// of the user's board cards.
type PlaceCard struct {
	base
}

// NewPlaceCard creates the place-card worker.
func NewPlaceCard(reg *Registry) *PlaceCard {
	return &PlaceCard{base: base{reg: reg, actionType: TypePlaceCard, priority: defaultPriority}}
}

// placementCells returns the free cells adjacent to any board card of user.
func placementCells(inst *game.Instance, user string) []string {
	var cells []string
	for _, anchor := range inst.CardsOf(user, game.LocationBoard) {
		for _, cell := range emptyNeighbors(inst, *anchor.Coords) {
			if !slices.Contains(cells, cell) {
				cells = append(cells, cell)
			}
		}
	}
	return cells
}

func (w *PlaceCard) choices(inst *game.Instance, user string) *game.PutCardParams {
	params := &game.PutCardParams{Placements: []game.Placement{}}
	cells := placementCells(inst, user)
	if len(cells) == 0 {
		return params
	}
	for _, c := range inst.CardsOf(user, game.LocationHand) {
		if c.Template.Type != game.CardTypeCreature && c.Template.Type != game.CardTypeArtifact {
			continue
		}
		params.Placements = append(params.Placements, game.Placement{
			CardID: c.ID,
			To:     slices.Clone(cells),
		})
	}
	return params
}

// Create offers every placeable hand card with the free cells next to the user's board cards.
func (w *PlaceCard) Create(_ context.Context, inst *game.Instance, user string) (*game.Action, error) {
	return w.newAction(user, game.Subaction{
		Kind:        game.SubactionPutCard,
		Description: "Place a card from your hand",
		PutCard:     w.choices(inst, user),
	}), nil
}

// Refresh recomputes the placements against the current board.
func (w *PlaceCard) Refresh(_ context.Context, inst *game.Instance, action *game.Action) error {
	for i := range action.Subactions {
		if action.Subactions[i].Kind == game.SubactionPutCard {
			action.Subactions[i].PutCard = w.choices(inst, action.User)
		}
	}
	return nil
}

// Execute puts the chosen card on the chosen cell.
func (w *PlaceCard) Execute(ctx context.Context, inst *game.Instance, action *game.Action) (bool, error) {
	answer, err := action.Answer(0, game.SubactionPutCard)
	if err != nil {
		return false, err
	}
	card, at, err := validatePlacement(inst, action, answer.Put)
	if err != nil {
		return false, err
	}

	inst.WithLock(func() {
		card.PlaceAt(at)
	})
	w.dispatch(ctx, inst, events.CardPlaced(string(card.Template.Type), card.ID), events.CardChange{
		CardID: card.ID,
		From:   string(game.LocationHand),
		To:     at.String(),
	})
	return true, nil
}

// validatePlacement checks a put-card answer against the action's first
// subaction and the live board.
func validatePlacement(inst *game.Instance, action *game.Action, put *game.PutAnswer) (*game.Card, game.Coords, error) {
	params := action.Subactions[0].PutCard
	if params == nil || len(params.Placements) == 0 {
		return nil, game.Coords{}, game.Reject("%s offers no placement", action.Type)
	}
	idx := slices.IndexFunc(params.Placements, func(p game.Placement) bool { return p.CardID == put.CardID })
	if idx < 0 {
		return nil, game.Coords{}, game.Reject("card %d cannot be placed", put.CardID)
	}
	at, err := parseChoice(put.To, params.Placements[idx].To)
	if err != nil {
		return nil, game.Coords{}, err
	}
	card, ok := inst.Card(put.CardID)
	if !ok || card.User != action.User || card.Location != game.LocationHand {
		return nil, game.Coords{}, game.Reject("card %d is not in the hand of %s", put.CardID, action.User)
	}
	if !inst.IsEmpty(at) {
		return nil, game.Coords{}, game.Reject("cell %s is taken", at)
	}
	return card, at, nil
}
