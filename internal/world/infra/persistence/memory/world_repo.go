package memory

import (
	"context"
	"slices"
	"sync"

	"Underworld/internal/world/app/port"
	"Underworld/internal/world/entity"
)

// WorldRepository 进程内存储，测试与单机调试用；可注入读写错误。
type WorldRepository struct {
	mu      sync.Mutex
	doc     []byte
	version uint64
	saves   int
	loadErr error
	saveErr error
}

func NewWorldRepository() *WorldRepository {
	return &WorldRepository{}
}

// Seed 直接放入原始文档，可以是损坏的字节。
func (r *WorldRepository) Seed(raw []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc = slices.Clone(raw)
}

func (r *WorldRepository) FailLoad(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadErr = err
}

func (r *WorldRepository) FailSave(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveErr = err
}

func (r *WorldRepository) LoadWorld(_ context.Context) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	if r.doc == nil {
		return nil, port.ErrWorldNotFound
	}
	return slices.Clone(r.doc), nil
}

func (r *WorldRepository) Save(_ context.Context, s *entity.WorldPersistSnapshot) error {
	if s == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	if s.Version < r.version {
		return nil
	}
	r.version = s.Version
	r.doc = slices.Clone(s.Payload)
	return nil
}

// Saves 成功的物理写次数。
func (r *WorldRepository) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func (r *WorldRepository) Doc() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.doc)
}
