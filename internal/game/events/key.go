package events

import (
	"strconv"
	"strings"
)

// Separator joins the segments of an event key.
const Separator = ":"

// Key is a colon-delimited event key with its prefixes computed once at
// construction. "card:lifeChanged:damaged:42" has the prefixes "card",
// "card:lifeChanged", "card:lifeChanged:damaged" and the key itself.
type Key struct {
	raw      string
	prefixes []string
}

// NewKey joins segments into a key.
func NewKey(segments ...string) Key {
	return ParseKey(strings.Join(segments, Separator))
}

// ParseKey builds a key from its string form.
func ParseKey(raw string) Key {
	k := Key{raw: raw}
	if raw == "" {
		return k
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] == Separator[0] {
			k.prefixes = append(k.prefixes, raw[:i])
		}
	}
	k.prefixes = append(k.prefixes, raw)
	return k
}

// String returns the full key.
func (k Key) String() string {
	return k.raw
}

// Prefixes returns the ordered prefixes, from coarsest to the full key.
func (k Key) Prefixes() []string {
	return k.prefixes
}

// Event classes and their coarse prefixes.
const (
	PrefixCard        = "card"
	PrefixLifeChanged = "card:lifeChanged"
	PrefixGame        = "game"
	PrefixAction      = "action"

	LifeDamaged = "damaged"
	LifeHealed  = "healed"
)

// CardLifeChanged is raised when a card loses or gains life.
func CardLifeChanged(change string, cardID int) Key {
	return NewKey(PrefixCard, "lifeChanged", change, strconv.Itoa(cardID))
}

// CardPlaced is raised when a card is put on the board from hand.
func CardPlaced(cardType string, cardID int) Key {
	return NewKey(PrefixCard, cardType, "placed", strconv.Itoa(cardID))
}

// CardMoved is raised when a board card changes cell.
func CardMoved(cardType string, cardID int) Key {
	return NewKey(PrefixCard, cardType, "moved", strconv.Itoa(cardID))
}

// CardDiscarded is raised when a card goes to the discard pile.
func CardDiscarded(cardID int) Key {
	return NewKey(PrefixCard, "discarded", strconv.Itoa(cardID))
}

// PhaseChanged is raised when the current turn enters a new phase.
func PhaseChanged(phase string) Key {
	return NewKey(PrefixGame, "phaseChanged", phase)
}

// PhaseChangedConfontsAlias is the older spelling of the confronts
// phase-change key. Handlers registered under it are filed under
// PhaseChanged("confronts") and share its slot.
const PhaseChangedConfontsAlias = "game:phaseChanged:confonts"

var aliases = map[string]string{
	PhaseChangedConfontsAlias: PrefixGame + ":phaseChanged:confronts",
}

// Canonical returns the key events are raised under for a registration key.
func Canonical(key string) string {
	if to, ok := aliases[key]; ok {
		return to
	}
	return key
}

// TurnEnded is raised after the turn passes to the next seat.
func TurnEnded() Key {
	return NewKey(PrefixGame, "turnEnded")
}

// GameFinished is raised when an instance leaves the active status.
func GameFinished(status string) Key {
	return NewKey(PrefixGame, "finished", status)
}

// ActionExecuted, ActionDeleted, ActionRefreshed and ActionExpired are the
// scheduler's lifecycle events for one action type.
func ActionExecuted(actionType string) Key {
	return NewKey(PrefixAction, "executed", actionType)
}

func ActionDeleted(actionType string) Key {
	return NewKey(PrefixAction, "deleted", actionType)
}

func ActionRefreshed(actionType string) Key {
	return NewKey(PrefixAction, "refreshed", actionType)
}

func ActionExpired(actionType string) Key {
	return NewKey(PrefixAction, "expired", actionType)
}

// GameTypeHook and ModifierHook key the creation-time hook registry.
func GameTypeHook(gameTypeID string) Key {
	return NewKey("gameType", gameTypeID)
}

func ModifierHook(modifier string) Key {
	return NewKey("modifier", modifier)
}
