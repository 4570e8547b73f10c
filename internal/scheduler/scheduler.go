// Package scheduler advances every hot game instance by at most one action
// per pass and writes it back after each tick.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/thefirstspine/matches-sub001/internal/broadcast"
	"github.com/thefirstspine/matches-sub001/internal/game"
	"github.com/thefirstspine/matches-sub001/internal/game/actions"
	"github.com/thefirstspine/matches-sub001/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Scheduler owns the hot set and ticks it.
type Scheduler struct {
	reg         *actions.Registry
	store       storage.Store
	broadcaster broadcast.Broadcaster
	archiver    *game.Archiver
	logger      *zap.Logger
	hot         *hotSet
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithArchiver writes the audit log of instances leaving the hot set.
func WithArchiver(archiver *game.Archiver) Option {
	return func(s *Scheduler) {
		s.archiver = archiver
	}
}

// WithBroadcaster replaces the default logging broadcaster.
func WithBroadcaster(b broadcast.Broadcaster) Option {
	return func(s *Scheduler) {
		s.broadcaster = b
	}
}

// New creates a scheduler with an empty hot set.
func New(reg *actions.Registry, store storage.Store, logger *zap.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		reg:         reg,
		store:       store,
		broadcaster: broadcast.NewLog(logger),
		logger:      logger,
		hot:         newHotSet(logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add puts an instance in the hot set. It reports false, and keeps the hot
// copy, when the id is already loaded.
func (s *Scheduler) Add(inst *game.Instance) bool {
	return s.hot.add(inst)
}

// Loaded reports whether an instance is in the hot set.
func (s *Scheduler) Loaded(id int64) bool {
	_, ok := s.hot.get(id)
	return ok
}

// Len returns the number of hot instances.
func (s *Scheduler) Len() int {
	return s.hot.len()
}

// With runs fn on a hot instance while holding its entry lock, so fn never
// overlaps a tick of the same instance.
func (s *Scheduler) With(id int64, fn func(inst *game.Instance) error) error {
	e, ok := s.hot.get(id)
	if !ok {
		return fmt.Errorf("instance %d: %w", id, ErrNotLoaded)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.inst)
}

// Load adds every active instance of the store to the hot set.
func (s *Scheduler) Load(ctx context.Context) (int, error) {
	instances, err := s.store.FindActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load active instances: %w", err)
	}
	loaded := 0
	for _, inst := range instances {
		if s.hot.add(inst) {
			loaded++
		}
	}
	if s.logger != nil {
		s.logger.Info("active instances loaded", zap.Int("count", loaded))
	}
	return loaded, nil
}

// Pass ticks every hot instance once, in parallel, and waits for all of them.
func (s *Scheduler) Pass(ctx context.Context) error {
	var g errgroup.Group
	for _, e := range s.hot.snapshot() {
		g.Go(func() error {
			e.mu.Lock()
			defer e.mu.Unlock()
			_, err := s.Tick(ctx, e.inst)
			return err
		})
	}
	return g.Wait()
}

// Run loads the active instances and runs a pass every interval until ctx is
// done. Pass failures are logged and the loop goes on.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	if _, err := s.Load(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if s.logger != nil {
		s.logger.Info("scheduler started", zap.Duration("interval", interval))
	}
	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.Info("scheduler stopped", zap.Int("hot_instances", s.hot.len()))
			}
			return nil
		case <-ticker.C:
			if err := s.Pass(ctx); err != nil && s.logger != nil {
				s.logger.Error("scheduler pass failed", zap.Error(err))
			}
		}
	}
}

// evict drops an instance from the hot set, archives its audit log and tells
// its users how it ended.
func (s *Scheduler) evict(ctx context.Context, inst *game.Instance) {
	if !s.hot.remove(inst.ID) {
		return
	}
	if s.logger != nil {
		s.logger.Info("instance evicted",
			zap.Int64("instance_id", inst.ID),
			zap.String("status", string(inst.Status)),
		)
	}
	if err := s.archiver.Archive(inst); err != nil && s.logger != nil {
		s.logger.Warn("failed to archive instance", zap.Int64("instance_id", inst.ID), zap.Error(err))
	}
	if err := s.broadcaster.SendMessage(ctx, inst.Users, broadcast.TopicGameFinished, finishedMessage{
		InstanceID: inst.ID,
		Status:     inst.Status,
		Result:     inst.Result,
	}); err != nil && s.logger != nil {
		s.logger.Warn("failed to broadcast game end", zap.Int64("instance_id", inst.ID), zap.Error(err))
	}
}

type executedMessage struct {
	InstanceID int64        `json:"instanceId"`
	Action     *game.Action `json:"action"`
}

type finishedMessage struct {
	InstanceID int64             `json:"instanceId"`
	Status     game.Status       `json:"status"`
	Result     []game.UserResult `json:"result,omitempty"`
}
