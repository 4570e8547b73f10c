package scheduler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/thefirstspine/matches-sub001/internal/broadcast"
	"github.com/thefirstspine/matches-sub001/internal/game"
	"github.com/thefirstspine/matches-sub001/internal/game/events"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Result tells what a tick did to an instance.
type Result int

const (
	// Unchanged means the encoded instance is identical to before the tick.
	Unchanged Result = iota
	// Changed means the instance moved and stays hot.
	Changed
	// Evicted means the instance left the hot set.
	Evicted
)

func (r Result) String() string {
	switch r {
	case Unchanged:
		return "unchanged"
	case Changed:
		return "changed"
	case Evicted:
		return "evicted"
	default:
		return "unknown"
	}
}

// Tick advances one instance by one step: at most one answered action is
// executed, then expired actions are resolved, then the instance is written
// back. The caller must not tick the same instance concurrently.
func (s *Scheduler) Tick(ctx context.Context, inst *game.Instance) (Result, error) {
	before, err := game.Encode(inst)
	if err != nil {
		return Unchanged, err
	}

	if !inst.IsActive() {
		err := s.persist(ctx, inst)
		s.evict(ctx, inst)
		return Evicted, err
	}

	maxPriority, ok := inst.MaxPriority()
	if !ok {
		if s.logger != nil {
			s.logger.Error("active instance has no pending action, closing it",
				zap.Int64("instance_id", inst.ID),
			)
		}
		inst.WithLock(func() {
			inst.Status = game.StatusClosed
		})
		err := s.persist(ctx, inst)
		s.evict(ctx, inst)
		return Evicted, err
	}

	if action := selectAnswered(inst, maxPriority); action != nil {
		s.execute(ctx, inst, action)
	}
	s.expire(ctx, inst, maxPriority)

	persistErr := s.persist(ctx, inst)

	after, err := game.Encode(inst)
	if err != nil {
		return Changed, errors.Join(persistErr, err)
	}
	if bytes.Equal(before, after) {
		return Unchanged, persistErr
	}
	if !inst.IsActive() {
		s.evict(ctx, inst)
		return Evicted, persistErr
	}
	return Changed, persistErr
}

// selectAnswered picks the answered action to execute among those of the
// highest priority: the oldest one, then the smallest id.
func selectAnswered(inst *game.Instance, maxPriority int) *game.Action {
	var candidates []*game.Action
	for _, a := range inst.Actions.Current {
		if a.Priority == maxPriority && a.HasResponse() {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})
	return candidates[0]
}

// execute runs the worker of an answered action and, on success, passes the
// action and refreshes every other pending one.
func (s *Scheduler) execute(ctx context.Context, inst *game.Instance, action *game.Action) {
	worker, err := s.reg.Worker(action.Type)
	if err != nil {
		s.logFailure("execute", inst, action, err)
		return
	}

	accepted, err := guard(func() (bool, error) {
		return worker.Execute(ctx, inst, action)
	})
	switch {
	case errors.Is(err, game.ErrRejected) || (err == nil && !accepted):
		if s.logger != nil {
			s.logger.Warn("response rejected",
				zap.Int64("instance_id", inst.ID),
				zap.String("action_type", action.Type),
				zap.String("action_id", action.ID),
				zap.String("user", action.User),
				zap.Error(err),
			)
		}
		inst.WithLock(action.ClearResponse)
		return
	case err != nil && !accepted:
		s.logFailure("execute", inst, action, err)
		return
	case err != nil:
		// Committed, but a follow-up failed.
		s.logFailure("execute follow-up", inst, action, err)
	}

	_ = s.reg.Dispatch(ctx, inst, events.ActionExecuted(action.Type), events.ActionChange{Action: action})
	if err := s.broadcaster.SendMessage(ctx, inst.Others(action.User), broadcast.TopicActionExecuted, executedMessage{
		InstanceID: inst.ID,
		Action:     action,
	}); err != nil && s.logger != nil {
		s.logger.Warn("failed to broadcast action", zap.Int64("instance_id", inst.ID), zap.Error(err))
	}

	worker.Delete(ctx, inst, action)
	_ = s.reg.Dispatch(ctx, inst, events.ActionDeleted(action.Type), events.ActionChange{Action: action})

	s.refreshOthers(ctx, inst, action)
}

// refreshOthers recomputes the choices of every pending action except the
// one just executed, concurrently.
func (s *Scheduler) refreshOthers(ctx context.Context, inst *game.Instance, executed *game.Action) {
	var pending []*game.Action
	inst.WithLock(func() {
		for _, a := range inst.Actions.Current {
			if a != executed && a.ID != executed.ID {
				pending = append(pending, a)
			}
		}
	})

	var g errgroup.Group
	for _, a := range pending {
		g.Go(func() error {
			worker, err := s.reg.Worker(a.Type)
			if err != nil {
				s.logFailure("refresh", inst, a, err)
				return nil
			}
			if _, err := guard(func() (bool, error) {
				return true, worker.Refresh(ctx, inst, a)
			}); err != nil {
				s.logFailure("refresh", inst, a, err)
				return nil
			}
			_ = s.reg.Dispatch(ctx, inst, events.ActionRefreshed(a.Type), events.ActionChange{Action: a})
			return nil
		})
	}
	_ = g.Wait()
}

// expire resolves every highest-priority action past its expiry.
func (s *Scheduler) expire(ctx context.Context, inst *game.Instance, maxPriority int) {
	now := s.reg.Now()
	var due []*game.Action
	inst.WithLock(func() {
		for _, a := range inst.Actions.Current {
			if a.Priority == maxPriority && a.Expired(now) {
				due = append(due, a)
			}
		}
	})

	for _, a := range due {
		// An earlier expiry may already have removed it.
		var pending bool
		inst.WithLock(func() {
			pending = inst.IsPending(a)
		})
		if !pending {
			continue
		}
		worker, err := s.reg.Worker(a.Type)
		if err != nil {
			s.logFailure("expire", inst, a, err)
			continue
		}
		if _, err := guard(func() (bool, error) {
			return worker.Expires(ctx, inst, a)
		}); err != nil {
			s.logFailure("expire", inst, a, err)
			continue
		}
		if s.logger != nil {
			s.logger.Debug("action expired",
				zap.Int64("instance_id", inst.ID),
				zap.String("action_type", a.Type),
				zap.String("action_id", a.ID),
			)
		}
		_ = s.reg.Dispatch(ctx, inst, events.ActionExpired(a.Type), events.ActionChange{Action: a})
	}
}

func (s *Scheduler) persist(ctx context.Context, inst *game.Instance) error {
	var err error
	inst.WithLock(func() {
		err = s.store.UpdateOne(ctx, inst.ID, inst)
	})
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to persist instance", zap.Int64("instance_id", inst.ID), zap.Error(err))
		}
		return fmt.Errorf("persist instance %d: %w", inst.ID, err)
	}
	return nil
}

func (s *Scheduler) logFailure(stage string, inst *game.Instance, action *game.Action, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Error("worker failed",
		zap.String("stage", stage),
		zap.Int64("instance_id", inst.ID),
		zap.String("action_type", action.Type),
		zap.String("action_id", action.ID),
		zap.Error(err),
	)
}

// guard turns a worker panic into an error.
func guard(fn func() (bool, error)) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("worker panicked: %v", r)
		}
	}()
	return fn()
}
