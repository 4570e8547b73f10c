// Package match creates game instances and applies what players send to
// them: responses to pending actions and concessions.
package match

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/thefirstspine/matches-sub001/internal/catalog"
	"github.com/thefirstspine/matches-sub001/internal/game"
	"github.com/thefirstspine/matches-sub001/internal/game/actions"
	"github.com/thefirstspine/matches-sub001/internal/game/events"
	"github.com/thefirstspine/matches-sub001/internal/scheduler"
	"github.com/thefirstspine/matches-sub001/internal/storage"
	"go.uber.org/zap"
)

var (
	// ErrActionNotFound is returned when a response names no pending action.
	ErrActionNotFound = errors.New("action not found")
	// ErrNotYourAction is returned when a user answers someone else's action.
	ErrNotYourAction = errors.New("action belongs to another user")
	// ErrNotParticipant is returned when a user is not seated in the instance.
	ErrNotParticipant = errors.New("user is not a participant")
	// ErrNotActive is returned when the instance is already over.
	ErrNotActive = errors.New("instance is not active")
)

// Participant is one seat of a new match.
type Participant struct {
	User   string
	DeckID string
}

// Manager is the entry point for everything that happens to an instance
// outside of the scheduler's ticks.
type Manager struct {
	catalog   catalog.Catalog
	store     storage.Store
	scheduler *scheduler.Scheduler
	reg       *actions.Registry
	hooks     *events.Dispatcher
	logger    *zap.Logger
	shuffle   func(cards []*game.Card)
}

// Option configures a Manager.
type Option func(*Manager)

// WithShuffle replaces the deck shuffle, mainly for tests.
func WithShuffle(shuffle func(cards []*game.Card)) Option {
	return func(m *Manager) {
		m.shuffle = shuffle
	}
}

// NewManager creates a match manager. hooks holds the creation-time handlers
// keyed by game type and modifier.
func NewManager(cat catalog.Catalog, store storage.Store, sched *scheduler.Scheduler, reg *actions.Registry, hooks *events.Dispatcher, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		catalog:   cat,
		store:     store,
		scheduler: sched,
		reg:       reg,
		hooks:     hooks,
		logger:    logger,
		shuffle: func(cards []*game.Card) {
			rand.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create builds a new instance of gameTypeID for the participants, in seat
// order, persists it and puts it in the hot set. Extra modifiers are applied
// after the game type's own.
func (m *Manager) Create(ctx context.Context, gameTypeID string, participants []Participant, modifiers ...string) (*game.Instance, error) {
	gt, err := m.catalog.GameType(ctx, gameTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create instance: %w", err)
	}
	if len(participants) != gt.Players {
		return nil, fmt.Errorf("game type %s needs %d players, got %d", gt.ID, gt.Players, len(participants))
	}

	inst := &game.Instance{
		GameTypeID: gt.ID,
		Status:     game.StatusActive,
		Phase:      game.PhaseThrow,
		Modifiers:  append(append([]string(nil), gt.Modifiers...), modifiers...),
		CreatedAt:  m.reg.Now(),
	}
	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if seen[p.User] {
			return nil, fmt.Errorf("user %s is seated twice", p.User)
		}
		seen[p.User] = true
		inst.Users = append(inst.Users, p.User)
	}

	templates := make(map[string]game.CardTemplate)
	nextID := 1
	for seat, p := range participants {
		cards, err := m.buildDeck(ctx, templates, p, seat, &nextID)
		if err != nil {
			return nil, err
		}
		inst.Cards = append(inst.Cards, cards...)
	}

	if err := m.hooks.Dispatch(ctx, inst, events.GameTypeHook(gt.ID), nil); err != nil {
		return nil, fmt.Errorf("game type hook %s failed: %w", gt.ID, err)
	}
	for _, modifier := range inst.Modifiers {
		if err := m.hooks.Dispatch(ctx, inst, events.ModifierHook(modifier), nil); err != nil {
			return nil, fmt.Errorf("modifier hook %s failed: %w", modifier, err)
		}
	}

	if _, err := m.reg.Create(ctx, inst, actions.TypeThrowCards, inst.CurrentUser()); err != nil {
		return nil, err
	}
	if err := m.store.Create(ctx, inst); err != nil {
		return nil, fmt.Errorf("failed to store instance: %w", err)
	}
	m.scheduler.Add(inst)

	if m.logger != nil {
		m.logger.Info("instance created",
			zap.Int64("instance_id", inst.ID),
			zap.String("game_type", gt.ID),
			zap.Strings("users", inst.Users),
			zap.Strings("modifiers", inst.Modifiers),
		)
	}
	return inst, nil
}

// buildDeck numbers the cards of one participant: the player card goes to
// the seat's home cell, the rest is shuffled into the deck and the first hand
// is drawn from its top.
func (m *Manager) buildDeck(ctx context.Context, templates map[string]game.CardTemplate, p Participant, seat int, nextID *int) ([]*game.Card, error) {
	deck, err := m.catalog.Deck(ctx, p.DeckID)
	if err != nil {
		return nil, fmt.Errorf("failed to load deck of %s: %w", p.User, err)
	}

	var (
		player *game.Card
		rest   []*game.Card
	)
	for _, id := range deck.Cards {
		tmpl, ok := templates[id]
		if !ok {
			tmpl, err = m.catalog.Card(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("failed to load card %s: %w", id, err)
			}
			templates[id] = tmpl
		}
		card := game.NewCard(*nextID, p.User, tmpl)
		*nextID++
		if tmpl.Type == game.CardTypePlayer && player == nil {
			player = card
			continue
		}
		rest = append(rest, card)
	}
	if player == nil {
		return nil, fmt.Errorf("deck %s has no player card", deck.ID)
	}

	player.PlaceAt(game.HomeCell(seat))
	m.shuffle(rest)
	hand := min(m.reg.Settings().HandSize, len(rest))
	for _, c := range rest[:hand] {
		c.MoveTo(game.LocationHand)
	}
	return append([]*game.Card{player}, rest...), nil
}

// Respond stores a user's answers on a pending action. The next tick
// executes it.
func (m *Manager) Respond(ctx context.Context, instanceID int64, user, actionID string, answers []game.Answer) error {
	return m.withInstance(ctx, instanceID, func(inst *game.Instance) error {
		if !inst.IsActive() {
			return ErrNotActive
		}
		action, ok := inst.PendingAction(actionID)
		if !ok {
			return fmt.Errorf("action %s in instance %d: %w", actionID, instanceID, ErrActionNotFound)
		}
		if action.User != user {
			return ErrNotYourAction
		}
		inst.WithLock(func() {
			action.Response = append([]game.Answer(nil), answers...)
		})
		if m.logger != nil {
			m.logger.Debug("response received",
				zap.Int64("instance_id", instanceID),
				zap.String("action_type", action.Type),
				zap.String("action_id", actionID),
				zap.String("user", user),
			)
		}
		return nil
	})
}

// Concede ends the instance with user as the loser. The next tick writes it
// back and evicts it.
func (m *Manager) Concede(ctx context.Context, instanceID int64, user string) error {
	return m.withInstance(ctx, instanceID, func(inst *game.Instance) error {
		if inst.Seat(user) < 0 {
			return ErrNotParticipant
		}
		if !inst.IsActive() {
			return ErrNotActive
		}
		inst.WithLock(func() {
			inst.Finish(game.StatusConceded, user)
		})
		_ = m.reg.Dispatch(ctx, inst, events.GameFinished(string(game.StatusConceded)), nil)
		if m.logger != nil {
			m.logger.Info("instance conceded",
				zap.Int64("instance_id", instanceID),
				zap.String("user", user),
			)
		}
		return nil
	})
}

// withInstance runs fn on the hot copy of an instance, loading it from the
// store first when it is active but not hot.
func (m *Manager) withInstance(ctx context.Context, instanceID int64, fn func(inst *game.Instance) error) error {
	err := m.scheduler.With(instanceID, fn)
	if !errors.Is(err, scheduler.ErrNotLoaded) {
		return err
	}
	inst, err := m.store.Get(ctx, instanceID)
	if err != nil {
		return err
	}
	if !inst.IsActive() {
		return ErrNotActive
	}
	m.scheduler.Add(inst)
	return m.scheduler.With(instanceID, fn)
}
