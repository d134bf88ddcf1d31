package memory

import (
	"context"
	"sync"

	"Underworld/internal/player/entity"
)

// PlayerRepo 进程内存储，开发环境与测试使用。
type PlayerRepo struct {
	mu   sync.RWMutex
	data map[entity.PlayerID]entity.State
	ver  map[entity.PlayerID]uint64
}

func NewPlayerRepo() *PlayerRepo {
	return &PlayerRepo{
		data: make(map[entity.PlayerID]entity.State),
		ver:  make(map[entity.PlayerID]uint64),
	}
}

// Seed 预置玩家状态。
func (r *PlayerRepo) Seed(states ...entity.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range states {
		r.data[s.ID] = s.Clone()
	}
}

func (r *PlayerRepo) LoadPlayer(_ context.Context, id entity.PlayerID) (*entity.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.data[id]
	if !ok {
		return nil, entity.ErrPlayerNotFound.WithData("player_id", int64(id))
	}
	return entity.NewPlayer(s), nil
}

func (r *PlayerRepo) Snapshot(_ context.Context, s *entity.PlayerPersistSnapshot) error {
	if s == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := s.State.ID
	if s.Version < r.ver[id] {
		return nil
	}
	r.ver[id] = s.Version
	r.data[id] = s.State.Clone()
	return nil
}

// Get 读取已落库的状态，测试断言用。
func (r *PlayerRepo) Get(id entity.PlayerID) (entity.State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.data[id]
	return s.Clone(), ok
}
