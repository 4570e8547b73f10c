package game

import (
	"errors"
	"fmt"
	"time"
)

// ErrRejected marks a response the worker refused: malformed, illegal or with
// a missing precondition. Rejected responses are cleared and re-prompted.
var ErrRejected = errors.New("response rejected")

// Reject builds an error wrapping ErrRejected.
func Reject(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRejected, fmt.Sprintf(format, args...))
}

// SubactionKind is the tag of the subaction union.
type SubactionKind string

const (
	SubactionSelectCouple SubactionKind = "select-couple"
	SubactionMoveCard     SubactionKind = "move-card"
	SubactionPutCard      SubactionKind = "put-card"
	SubactionDiscardCards SubactionKind = "discard-cards"
	SubactionAccept       SubactionKind = "accept"
)

// Couple is an attacker/defender pair of board cells.
type Couple struct {
	Attacker string `json:"attacker"`
	Defender string `json:"defender"`
}

// MoveChoice lists the cells a board card may move to.
type MoveChoice struct {
	From string   `json:"from"`
	To   []string `json:"to"`
}

// Placement lists the cells a card from hand may be put on.
type Placement struct {
	CardID int      `json:"cardId"`
	To     []string `json:"to"`
}

// SelectCoupleParams is the choice set of a select-couple prompt.
type SelectCoupleParams struct {
	Couples []Couple `json:"couples"`
}

// MoveCardParams is the choice set of a move-card prompt.
type MoveCardParams struct {
	Moves []MoveChoice `json:"moves"`
}

// PutCardParams is the choice set of a put-card prompt.
type PutCardParams struct {
	Placements []Placement `json:"placements"`
}

// DiscardCardsParams is the choice set of a discard-cards prompt.
type DiscardCardsParams struct {
	Min     int   `json:"min"`
	Max     int   `json:"max"`
	CardIDs []int `json:"cardIds"`
}

// Subaction is one prompt of an action. Exactly one params field matching
// Kind is set; accept carries none.
type Subaction struct {
	Kind         SubactionKind       `json:"type"`
	Description  string              `json:"description,omitempty"`
	SelectCouple *SelectCoupleParams `json:"selectCouple,omitempty"`
	MoveCard     *MoveCardParams     `json:"moveCard,omitempty"`
	PutCard      *PutCardParams      `json:"putCard,omitempty"`
	DiscardCards *DiscardCardsParams `json:"discardCards,omitempty"`
}

// MoveAnswer answers a move-card prompt.
type MoveAnswer struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// PutAnswer answers a put-card prompt.
type PutAnswer struct {
	CardID int    `json:"cardId"`
	To     string `json:"to"`
}

// DiscardAnswer answers a discard-cards prompt.
type DiscardAnswer struct {
	CardIDs []int `json:"cardIds"`
}

// Answer is the player's answer to one subaction.
type Answer struct {
	Kind    SubactionKind  `json:"type"`
	Couple  *Couple        `json:"couple,omitempty"`
	Move    *MoveAnswer    `json:"move,omitempty"`
	Put     *PutAnswer     `json:"put,omitempty"`
	Discard *DiscardAnswer `json:"discard,omitempty"`
}

// Action is one decision offered to a user.
type Action struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	User       string      `json:"user"`
	Priority   int         `json:"priority"`
	CreatedAt  time.Time   `json:"createdAt"`
	ExpiresAt  *time.Time  `json:"expiresAt,omitempty"`
	Subactions []Subaction `json:"subactions"`
	Response   []Answer    `json:"response,omitempty"`
}

// PassedAction is an action that left the pending list.
type PassedAction struct {
	Action
	PassedAt time.Time `json:"passedAt"`
}

// HasResponse reports whether a response waits to be consumed.
func (a *Action) HasResponse() bool {
	return len(a.Response) > 0
}

// ClearResponse drops the response so the user is prompted again.
func (a *Action) ClearResponse() {
	a.Response = nil
}

// Expired reports whether the action has an expiry strictly before now.
func (a *Action) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && a.ExpiresAt.Before(now)
}

// Answer returns the answer at index i, checking it exists and carries the
// expected kind.
func (a *Action) Answer(i int, kind SubactionKind) (Answer, error) {
	if len(a.Response) != len(a.Subactions) {
		return Answer{}, Reject("expected %d answers, got %d", len(a.Subactions), len(a.Response))
	}
	if i < 0 || i >= len(a.Response) {
		return Answer{}, Reject("no answer at index %d", i)
	}
	if a.Subactions[i].Kind != kind {
		return Answer{}, fmt.Errorf("subaction %d of %s is %s, not %s", i, a.Type, a.Subactions[i].Kind, kind)
	}
	answer := a.Response[i]
	if answer.Kind != kind {
		return Answer{}, Reject("answer %d has kind %q, want %q", i, answer.Kind, kind)
	}
	switch kind {
	case SubactionSelectCouple:
		if answer.Couple == nil {
			return Answer{}, Reject("answer %d has no couple", i)
		}
	case SubactionMoveCard:
		if answer.Move == nil {
			return Answer{}, Reject("answer %d has no move", i)
		}
	case SubactionPutCard:
		if answer.Put == nil {
			return Answer{}, Reject("answer %d has no placement", i)
		}
	case SubactionDiscardCards:
		if answer.Discard == nil {
			return Answer{}, Reject("answer %d has no discard list", i)
		}
	}
	return answer, nil
}

// Passed returns a copy of the action stamped with the time it left the queue.
func (a *Action) Passed(at time.Time) PassedAction {
	return PassedAction{Action: *a, PassedAt: at}
}
