package actions

import (
	"context"
	"slices"

	"github.com/thefirstspine/matches-sub001/internal/game"
	"github.com/thefirstspine/matches-sub001/internal/game/events"
	"go.uber.org/zap"
)

// ThrowCards opens a user's turn: the user discards any number of hand cards,
// then the hand is drawn back to full size from the deck.
type ThrowCards struct {
	base
}

// NewThrowCards creates the throw-cards worker.
func NewThrowCards(reg *Registry) *ThrowCards {
	return &ThrowCards{base: base{reg: reg, actionType: TypeThrowCards, priority: defaultPriority}}
}

func (w *ThrowCards) choices(inst *game.Instance, user string) *game.DiscardCardsParams {
	protected := w.reg.Settings().ProtectedCardID
	ids := make([]int, 0)
	for _, c := range inst.CardsOf(user, game.LocationHand) {
		if protected != "" && c.Template.ID == protected {
			continue
		}
		ids = append(ids, c.ID)
	}
	return &game.DiscardCardsParams{
		Min:     0,
		Max:     min(w.reg.Settings().HandSize, len(ids)),
		CardIDs: ids,
	}
}

// Create offers every unprotected hand card for discarding.
func (w *ThrowCards) Create(_ context.Context, inst *game.Instance, user string) (*game.Action, error) {
	return w.newAction(user, game.Subaction{
		Kind:         game.SubactionDiscardCards,
		Description:  "Discard up to six cards",
		DiscardCards: w.choices(inst, user),
	}), nil
}

// Refresh recomputes the discardable cards.
func (w *ThrowCards) Refresh(_ context.Context, inst *game.Instance, action *game.Action) error {
	for i := range action.Subactions {
		if action.Subactions[i].Kind == game.SubactionDiscardCards {
			action.Subactions[i].DiscardCards = w.choices(inst, action.User)
		}
	}
	return nil
}

// Execute discards the chosen cards and refills the hand. Every card
// discarded beyond the first costs one life, as does every draw the deck
// cannot satisfy.
func (w *ThrowCards) Execute(ctx context.Context, inst *game.Instance, action *game.Action) (bool, error) {
	answer, err := action.Answer(0, game.SubactionDiscardCards)
	if err != nil {
		return false, err
	}
	params := action.Subactions[0].DiscardCards
	if params == nil {
		return false, game.Reject("throw-cards action has no choices")
	}

	chosen := answer.Discard.CardIDs
	if len(chosen) < params.Min || len(chosen) > params.Max {
		return false, game.Reject("discarding %d cards, allowed %d..%d", len(chosen), params.Min, params.Max)
	}
	cards := make([]*game.Card, 0, len(chosen))
	seen := make(map[int]bool, len(chosen))
	for _, id := range chosen {
		if seen[id] {
			return false, game.Reject("card %d listed twice", id)
		}
		seen[id] = true
		if !slices.Contains(params.CardIDs, id) {
			return false, game.Reject("card %d is not discardable", id)
		}
		card, ok := inst.Card(id)
		if !ok || card.User != action.User || card.Location != game.LocationHand {
			return false, game.Reject("card %d is not in the hand of %s", id, action.User)
		}
		cards = append(cards, card)
	}

	undrawable := 0
	inst.WithLock(func() {
		for _, card := range cards {
			card.MoveTo(game.LocationDiscard)
		}
		// Replace every discarded card, then top the hand up.
		for range cards {
			if !w.draw(inst, action.User) {
				undrawable++
			}
		}
		handSize := w.reg.Settings().HandSize
		for len(inst.CardsOf(action.User, game.LocationHand)) < handSize {
			if !w.draw(inst, action.User) {
				undrawable += handSize - len(inst.CardsOf(action.User, game.LocationHand))
				break
			}
		}
	})

	for _, card := range cards {
		w.dispatch(ctx, inst, events.CardDiscarded(card.ID), events.CardChange{CardID: card.ID, From: string(game.LocationHand), To: string(game.LocationDiscard)})
	}

	lifeLoss := max(len(cards)-1, 0) + undrawable
	if lifeLoss > 0 {
		if player, ok := inst.PlayerCard(action.User); ok {
			w.damage(ctx, inst, player, lifeLoss)
		}
	}

	if w.reg.Logger() != nil {
		w.reg.Logger().Debug("cards thrown",
			zap.Int64("instance_id", inst.ID),
			zap.String("user", action.User),
			zap.Int("discarded", len(cards)),
			zap.Int("undrawable", undrawable),
			zap.Int("life_loss", lifeLoss),
		)
	}

	if inst.IsActive() {
		w.reg.EnterPhase(ctx, inst, game.PhaseActions)
	}
	return true, nil
}

// draw moves the first deck card of user into the hand.
func (w *ThrowCards) draw(inst *game.Instance, user string) bool {
	deck := inst.CardsOf(user, game.LocationDeck)
	if len(deck) == 0 {
		return false
	}
	deck[0].MoveTo(game.LocationHand)
	return true
}

// Expires keeps the whole hand and only refills it.
func (w *ThrowCards) Expires(ctx context.Context, inst *game.Instance, action *game.Action) (bool, error) {
	action.Response = make([]game.Answer, len(action.Subactions))
	for i, sub := range action.Subactions {
		action.Response[i] = game.Answer{Kind: sub.Kind, Discard: &game.DiscardAnswer{}}
	}
	ok, err := w.Execute(ctx, inst, action)
	w.Delete(ctx, inst, action)
	return ok, err
}
