package actions

import (
	"context"

	"github.com/thefirstspine/matches-sub001/internal/game"
	"github.com/thefirstspine/matches-sub001/internal/game/events"
)

// SpellTarget selects which board cards a spell may be cast on.
type SpellTarget int

const (
	// SpellTargetOwnCreature targets the caster's creatures.
	SpellTargetOwnCreature SpellTarget = iota
	// SpellTargetOpponent targets any card of another user.
	SpellTargetOpponent
)

// Spell casts a spell card from hand on a board card, then discards it. The
// spell card is recognised by its template id.
type Spell struct {
	base
	templateID string
	target     SpellTarget
	amount     int
}

// NewSpell creates a spell worker. Own-creature spells heal by amount,
// opponent spells deal amount damage.
func NewSpell(reg *Registry, actionType, templateID string, target SpellTarget, amount int) *Spell {
	return &Spell{
		base:       base{reg: reg, actionType: actionType, priority: defaultPriority},
		templateID: templateID,
		target:     target,
		amount:     amount,
	}
}

// TemplateID returns the catalog id of the spell card this worker casts.
func (w *Spell) TemplateID() string {
	return w.templateID
}

// Castable reports whether user holds the spell card.
func (w *Spell) Castable(inst *game.Instance, user string) bool {
	for _, c := range inst.CardsOf(user, game.LocationHand) {
		if c.Template.ID == w.templateID {
			return true
		}
	}
	return false
}

func (w *Spell) targets(inst *game.Instance, user string) []string {
	var cells []string
	for _, c := range inst.BoardCards() {
		switch w.target {
		case SpellTargetOwnCreature:
			if c.User == user && c.Template.Type == game.CardTypeCreature {
				cells = append(cells, c.Coords.String())
			}
		case SpellTargetOpponent:
			if c.User != user {
				cells = append(cells, c.Coords.String())
			}
		}
	}
	return cells
}

func (w *Spell) choices(inst *game.Instance, user string) *game.PutCardParams {
	params := &game.PutCardParams{Placements: []game.Placement{}}
	cells := w.targets(inst, user)
	if len(cells) == 0 {
		return params
	}
	for _, c := range inst.CardsOf(user, game.LocationHand) {
		if c.Template.ID == w.templateID {
			params.Placements = append(params.Placements, game.Placement{CardID: c.ID, To: cells})
		}
	}
	return params
}

// Create offers every copy of the spell in hand with its legal targets.
func (w *Spell) Create(_ context.Context, inst *game.Instance, user string) (*game.Action, error) {
	return w.newAction(user, game.Subaction{
		Kind:        game.SubactionPutCard,
		Description: "Cast " + w.templateID,
		PutCard:     w.choices(inst, user),
	}), nil
}

// Refresh recomputes the targets against the current board.
func (w *Spell) Refresh(_ context.Context, inst *game.Instance, action *game.Action) error {
	for i := range action.Subactions {
		if action.Subactions[i].Kind == game.SubactionPutCard {
			action.Subactions[i].PutCard = w.choices(inst, action.User)
		}
	}
	return nil
}

// Execute discards the spell and applies it to the chosen target.
func (w *Spell) Execute(ctx context.Context, inst *game.Instance, action *game.Action) (bool, error) {
	answer, err := action.Answer(0, game.SubactionPutCard)
	if err != nil {
		return false, err
	}
	params := action.Subactions[0].PutCard
	if params == nil || len(params.Placements) == 0 {
		return false, game.Reject("%s offers no target", action.Type)
	}
	var allowed []string
	for _, p := range params.Placements {
		if p.CardID == answer.Put.CardID {
			allowed = p.To
		}
	}
	if allowed == nil {
		return false, game.Reject("card %d cannot be cast", answer.Put.CardID)
	}
	at, err := parseChoice(answer.Put.To, allowed)
	if err != nil {
		return false, err
	}
	spell, ok := inst.Card(answer.Put.CardID)
	if !ok || spell.User != action.User || spell.Location != game.LocationHand || spell.Template.ID != w.templateID {
		return false, game.Reject("card %d is not a %s in the hand of %s", answer.Put.CardID, w.templateID, action.User)
	}
	target, ok := inst.CardAt(at)
	if !ok {
		return false, game.Reject("no card at %s", at)
	}

	inst.WithLock(func() {
		spell.MoveTo(game.LocationDiscard)
	})
	w.dispatch(ctx, inst, events.CardDiscarded(spell.ID), events.CardChange{
		CardID: spell.ID,
		From:   string(game.LocationHand),
		To:     string(game.LocationDiscard),
	})

	switch w.target {
	case SpellTargetOwnCreature:
		var healed int
		inst.WithLock(func() {
			healed = target.Heal(w.amount)
		})
		if healed > 0 {
			w.dispatch(ctx, inst, events.CardLifeChanged(events.LifeHealed, target.ID), events.LifeChange{CardID: target.ID, Amount: healed})
		}
	case SpellTargetOpponent:
		w.damage(ctx, inst, target, w.amount)
	}
	return true, nil
}
