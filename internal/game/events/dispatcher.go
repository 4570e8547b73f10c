package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/thefirstspine/matches-sub001/internal/game"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Event is what a handler receives.
type Event struct {
	Key     Key
	Payload any
}

// Handler reacts to an event raised on an instance. Handlers of one dispatch
// run concurrently and must mutate the instance only inside inst.WithLock.
type Handler func(ctx context.Context, inst *game.Instance, event Event) error

// LifeChange is the payload of card:lifeChanged events.
type LifeChange struct {
	CardID int
	Amount int
}

// CardChange is the payload of placed/moved/discarded events.
type CardChange struct {
	CardID int
	From   string
	To     string
}

// ActionChange is the payload of action lifecycle events.
type ActionChange struct {
	Action *game.Action
}

// Dispatcher maps exact keys to one handler each. Dispatching a key reaches
// every handler registered under one of its prefixes.
type Dispatcher struct {
	name     string
	logger   *zap.Logger
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewDispatcher creates an empty dispatcher. The name only shows in logs.
func NewDispatcher(name string, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		name:     name,
		logger:   logger,
		handlers: make(map[string]Handler),
	}
}

// Register installs handler under key, replacing any previous one. Alias
// keys are stored under their canonical key.
func (d *Dispatcher) Register(key string, handler Handler) {
	if handler == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[Canonical(key)] = handler
}

// Unregister removes the handler registered under key.
func (d *Dispatcher) Unregister(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers, Canonical(key))
}

// Matching returns the registered keys a dispatch of key would reach.
func (d *Dispatcher) Matching(key Key) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []string
	for _, prefix := range key.Prefixes() {
		if _, ok := d.handlers[prefix]; ok {
			out = append(out, prefix)
		}
	}
	return out
}

// Dispatch runs every matching handler concurrently and waits for all of
// them. Handler errors and panics are joined into the returned error.
func (d *Dispatcher) Dispatch(ctx context.Context, inst *game.Instance, key Key, payload any) error {
	d.mu.RLock()
	matched := make(map[string]Handler, len(key.Prefixes()))
	for _, prefix := range key.Prefixes() {
		if h, ok := d.handlers[prefix]; ok {
			matched[prefix] = h
		}
	}
	d.mu.RUnlock()

	if len(matched) == 0 {
		return nil
	}

	event := Event{Key: key, Payload: payload}
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for prefix, handler := range matched {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("handler %q panicked: %v", prefix, r)
				}
				if err != nil {
					mu.Lock()
					errs = append(errs, fmt.Errorf("%s handler %q for %q: %w", d.name, prefix, key, err))
					mu.Unlock()
				}
			}()
			return handler(ctx, inst, event)
		})
	}
	_ = g.Wait()

	if len(errs) > 0 {
		joined := errors.Join(errs...)
		if d.logger != nil {
			d.logger.Warn("event handlers failed",
				zap.String("dispatcher", d.name),
				zap.String("key", key.String()),
				zap.Int64("instance_id", inst.ID),
				zap.Error(joined),
			)
		}
		return joined
	}
	return nil
}
