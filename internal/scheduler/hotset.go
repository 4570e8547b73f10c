package scheduler

import (
	"errors"
	"sort"
	"sync"

	"github.com/thefirstspine/matches-sub001/internal/game"
	"go.uber.org/zap"
)

// ErrNotLoaded is returned when an instance is not in the hot set.
var ErrNotLoaded = errors.New("instance not loaded")

// entry guards one hot instance. The lock serialises ticks with external
// writes such as player responses.
type entry struct {
	mu   sync.Mutex
	inst *game.Instance
}

// hotSet holds the instances being ticked, keyed by id.
type hotSet struct {
	mu      sync.RWMutex
	entries map[int64]*entry
	logger  *zap.Logger
}

func newHotSet(logger *zap.Logger) *hotSet {
	return &hotSet{
		entries: make(map[int64]*entry),
		logger:  logger,
	}
}

// add loads inst unless an instance with the same id is already hot.
func (h *hotSet) add(inst *game.Instance) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.entries[inst.ID]; ok {
		return false
	}
	h.entries[inst.ID] = &entry{inst: inst}

	if h.logger != nil {
		h.logger.Debug("instance loaded",
			zap.Int64("instance_id", inst.ID),
			zap.Int("hot_instances", len(h.entries)),
		)
	}
	return true
}

func (h *hotSet) get(id int64) (*entry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	e, ok := h.entries[id]
	return e, ok
}

func (h *hotSet) remove(id int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.entries[id]; !ok {
		return false
	}
	delete(h.entries, id)
	return true
}

// snapshot returns the entries ordered by instance id.
func (h *hotSet) snapshot() []*entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*entry, 0, len(h.entries))
	for _, e := range h.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].inst.ID < out[j].inst.ID })
	return out
}

func (h *hotSet) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.entries)
}
