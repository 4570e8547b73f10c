package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/thefirstspine/matches-sub001/internal/game"
)

// Memory keeps encoded instances in process memory. Every read decodes a
// fresh copy, so callers never share state with the store.
type Memory struct {
	mu     sync.RWMutex
	nextID int64
	docs   map[int64][]byte
	status map[int64]game.Status
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		docs:   make(map[int64][]byte),
		status: make(map[int64]game.Status),
	}
}

func (m *Memory) Create(ctx context.Context, inst *game.Instance) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	inst.ID = m.nextID
	return m.put(inst.ID, inst)
}

func (m *Memory) UpdateOne(ctx context.Context, id int64, inst *game.Instance) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	return m.put(id, inst)
}

func (m *Memory) put(id int64, inst *game.Instance) error {
	data, err := game.Encode(inst)
	if err != nil {
		return err
	}
	m.docs[id] = data
	m.status[id] = inst.Status
	return nil
}

func (m *Memory) FindActive(ctx context.Context) ([]*game.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0, len(m.docs))
	for id, status := range m.status {
		if status == game.StatusActive {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]*game.Instance, 0, len(ids))
	for _, id := range ids {
		inst, err := game.Decode(m.docs[id])
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

func (m *Memory) Get(ctx context.Context, id int64) (*game.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return game.Decode(data)
}

func (m *Memory) Close() error {
	return nil
}
