package game

import (
	"sort"
	"sync"
	"time"
)

// Status is the lifecycle state of an instance.
type Status string

const (
	StatusActive   Status = "active"
	StatusEnded    Status = "ended"
	StatusClosed   Status = "closed"
	StatusConceded Status = "conceded"
)

// Phase is the part of the turn the current user is in.
type Phase string

const (
	PhaseThrow     Phase = "throw"
	PhaseActions   Phase = "actions"
	PhaseConfronts Phase = "confronts"
)

// Result values recorded per user when an instance finishes.
const (
	ResultWon      = "won"
	ResultLost     = "lost"
	ResultConceded = "conceded"
)

// UserResult is the outcome of an instance for one user.
type UserResult struct {
	User   string `json:"user"`
	Result string `json:"result"`
}

// Actions holds the pending decisions and the audit log of passed ones.
type Actions struct {
	Current  []*Action      `json:"current"`
	Previous []PassedAction `json:"previous"`
}

// Instance is one running match.
type Instance struct {
	ID         int64        `json:"id"`
	GameTypeID string       `json:"gameTypeId"`
	Status     Status       `json:"status"`
	Users      []string     `json:"users"`
	Turn       int          `json:"turn"`
	Phase      Phase        `json:"phase"`
	Cards      []*Card      `json:"cards"`
	Actions    Actions      `json:"actions"`
	Modifiers  []string     `json:"modifiers,omitempty"`
	Result     []UserResult `json:"result,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`

	mu sync.Mutex
}

// WithLock runs fn while holding the instance mutation lock. Event handlers
// run concurrently and must wrap every mutation in it.
func (inst *Instance) WithLock(fn func()) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	fn()
}

// IsActive reports whether the instance still accepts actions.
func (inst *Instance) IsActive() bool {
	return inst.Status == StatusActive
}

// Seat returns the seat index of user, or -1.
func (inst *Instance) Seat(user string) int {
	for i, u := range inst.Users {
		if u == user {
			return i
		}
	}
	return -1
}

// CurrentUser returns the user whose turn it is.
func (inst *Instance) CurrentUser() string {
	if len(inst.Users) == 0 {
		return ""
	}
	return inst.Users[inst.Turn%len(inst.Users)]
}

// NextUser returns the user seated after the current one.
func (inst *Instance) NextUser() string {
	if len(inst.Users) == 0 {
		return ""
	}
	return inst.Users[(inst.Turn+1)%len(inst.Users)]
}

// Others returns every participant except user, in seat order.
func (inst *Instance) Others(user string) []string {
	out := make([]string, 0, len(inst.Users))
	for _, u := range inst.Users {
		if u != user {
			out = append(out, u)
		}
	}
	return out
}

// Card returns the card with the given instance id.
func (inst *Instance) Card(id int) (*Card, bool) {
	for _, c := range inst.Cards {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// CardAt returns the card occupying a board cell.
func (inst *Instance) CardAt(at Coords) (*Card, bool) {
	for _, c := range inst.Cards {
		if c.IsOnBoard() && *c.Coords == at {
			return c, true
		}
	}
	return nil, false
}

// IsEmpty reports whether a board cell is free.
func (inst *Instance) IsEmpty(at Coords) bool {
	_, taken := inst.CardAt(at)
	return !taken
}

// CardsOf returns the cards of user at location, in instance order.
func (inst *Instance) CardsOf(user string, location Location) []*Card {
	var out []*Card
	for _, c := range inst.Cards {
		if c.User == user && c.Location == location {
			out = append(out, c)
		}
	}
	return out
}

// BoardCards returns every card on the board, ordered by coordinates.
func (inst *Instance) BoardCards() []*Card {
	var out []*Card
	for _, c := range inst.Cards {
		if c.IsOnBoard() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Coords, out[j].Coords
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return out
}

// PlayerCard returns the player card of user when it is on the board.
func (inst *Instance) PlayerCard(user string) (*Card, bool) {
	for _, c := range inst.Cards {
		if c.User == user && c.Template.Type == CardTypePlayer && c.IsOnBoard() {
			return c, true
		}
	}
	return nil, false
}

// MaxPriority returns the highest priority among current actions.
func (inst *Instance) MaxPriority() (int, bool) {
	if len(inst.Actions.Current) == 0 {
		return 0, false
	}
	maxPriority := inst.Actions.Current[0].Priority
	for _, a := range inst.Actions.Current[1:] {
		if a.Priority > maxPriority {
			maxPriority = a.Priority
		}
	}
	return maxPriority, true
}

// AddAction appends a pending action.
func (inst *Instance) AddAction(a *Action) {
	inst.Actions.Current = append(inst.Actions.Current, a)
}

// IsPending reports whether a is still in the current list.
func (inst *Instance) IsPending(a *Action) bool {
	return inst.pendingIndex(a) >= 0
}

// PendingAction returns the current action with the given id.
func (inst *Instance) PendingAction(id string) (*Action, bool) {
	for _, a := range inst.Actions.Current {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// Pass moves a from current to previous. It reports false when a was not
// pending, so a given action is passed at most once.
func (inst *Instance) Pass(a *Action, at time.Time) bool {
	idx := inst.pendingIndex(a)
	if idx < 0 {
		return false
	}
	inst.Actions.Current = append(inst.Actions.Current[:idx], inst.Actions.Current[idx+1:]...)
	inst.Actions.Previous = append(inst.Actions.Previous, a.Passed(at))
	return true
}

func (inst *Instance) pendingIndex(a *Action) int {
	for i, cur := range inst.Actions.Current {
		if cur == a || (a.ID != "" && cur.ID == a.ID) {
			return i
		}
	}
	return -1
}

// Finish ends the instance with the given status, marking winners and losers.
func (inst *Instance) Finish(status Status, losers ...string) {
	inst.Status = status
	lost := make(map[string]bool, len(losers))
	for _, u := range losers {
		lost[u] = true
	}
	inst.Result = inst.Result[:0]
	for _, u := range inst.Users {
		result := ResultWon
		if lost[u] {
			result = ResultLost
			if status == StatusConceded {
				result = ResultConceded
			}
		}
		inst.Result = append(inst.Result, UserResult{User: u, Result: result})
	}
}
