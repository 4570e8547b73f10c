package actions

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thefirstspine/matches-sub001/internal/game"
	"github.com/thefirstspine/matches-sub001/internal/game/events"
	"go.uber.org/zap"
)

// Worker implements one action type. Workers are stateless: any method may be
// called with any instance.
type Worker interface {
	// Type is the action type the worker is registered under.
	Type() string
	// Create builds an action for user with the choices legal right now.
	Create(ctx context.Context, inst *game.Instance, user string) (*game.Action, error)
	// Refresh recomputes the embedded choices of a pending action.
	Refresh(ctx context.Context, inst *game.Instance, action *game.Action) error
	// Execute applies the action's response. It returns false, with an error
	// wrapping game.ErrRejected, when the response is not acceptable; any
	// other error is a failure of the worker itself.
	Execute(ctx context.Context, inst *game.Instance, action *game.Action) (bool, error)
	// Expires applies the default resolution of an action past its expiry.
	Expires(ctx context.Context, inst *game.Instance, action *game.Action) (bool, error)
	// Delete moves the action to the audit log. Deleting twice is a no-op.
	Delete(ctx context.Context, inst *game.Instance, action *game.Action)
}

// Settings tune the game rules the workers enforce.
type Settings struct {
	HandSize          int
	ProtectedCardID   string
	TurnDuration      time.Duration
	ConfrontsLookback int
}

// DefaultSettings returns the standard rules.
func DefaultSettings() Settings {
	return Settings{
		HandSize:          6,
		TurnDuration:      90 * time.Second,
		ConfrontsLookback: 50,
	}
}

// Registry holds the workers by type together with the event dispatcher they
// raise events on. It is built once at startup and shared by reference.
type Registry struct {
	logger     *zap.Logger
	dispatcher *events.Dispatcher
	settings   Settings
	now        func() time.Time
	newID      func() string

	mu      sync.RWMutex
	workers map[string]Worker
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithIDs replaces the action id generator, mainly for tests that compare
// encoded instances.
func WithIDs(newID func() string) Option {
	return func(r *Registry) {
		r.newID = newID
	}
}

// WithSettings overrides the default rules.
func WithSettings(settings Settings) Option {
	return func(r *Registry) {
		r.settings = settings
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(dispatcher *events.Dispatcher, logger *zap.Logger, opts ...Option) *Registry {
	r := &Registry{
		logger:     logger,
		dispatcher: dispatcher,
		settings:   DefaultSettings(),
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
		workers:    make(map[string]Worker),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a worker under its type, replacing any previous one.
func (r *Registry) Register(w Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers[w.Type()] = w
}

// Worker looks up the worker for an action type.
func (r *Registry) Worker(actionType string) (Worker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workers[actionType]
	if !ok {
		return nil, fmt.Errorf("no worker registered for action type %q", actionType)
	}
	return w, nil
}

// Types lists the registered action types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.workers))
	for t := range r.workers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Dispatcher returns the in-game event dispatcher.
func (r *Registry) Dispatcher() *events.Dispatcher {
	return r.dispatcher
}

// Settings returns the rules in force.
func (r *Registry) Settings() Settings {
	return r.settings
}

// Now returns the registry clock.
func (r *Registry) Now() time.Time {
	return r.now()
}

// NewID returns a fresh action id.
func (r *Registry) NewID() string {
	return r.newID()
}

// Logger returns the registry logger.
func (r *Registry) Logger() *zap.Logger {
	return r.logger
}

// Create builds an action of the given type for user and appends it to the
// instance's pending list.
func (r *Registry) Create(ctx context.Context, inst *game.Instance, actionType, user string) (*game.Action, error) {
	w, err := r.Worker(actionType)
	if err != nil {
		return nil, err
	}
	action, err := w.Create(ctx, inst, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s for %s: %w", actionType, user, err)
	}
	inst.WithLock(func() {
		inst.AddAction(action)
	})

	if r.logger != nil {
		r.logger.Debug("action created",
			zap.Int64("instance_id", inst.ID),
			zap.String("action_type", actionType),
			zap.String("action_id", action.ID),
			zap.String("user", user),
		)
	}
	return action, nil
}

// Delete routes the deletion to the action's worker.
func (r *Registry) Delete(ctx context.Context, inst *game.Instance, action *game.Action) error {
	w, err := r.Worker(action.Type)
	if err != nil {
		return err
	}
	w.Delete(ctx, inst, action)
	return nil
}

// Dispatch raises an in-game event.
func (r *Registry) Dispatch(ctx context.Context, inst *game.Instance, key events.Key, payload any) error {
	if r.dispatcher == nil {
		return nil
	}
	return r.dispatcher.Dispatch(ctx, inst, key, payload)
}
