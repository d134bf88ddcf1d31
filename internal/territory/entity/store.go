package entity

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"Underworld/internal/shared/types"
	"Underworld/modules/kit/errx"
)

const CodeDistrictNotFound errx.Code = "DISTRICT_NOT_FOUND"

var ErrDistrictNotFound = errx.NewNotFound(CodeDistrictNotFound, "街区不存在")

type slot struct {
	mu  sync.Mutex
	rec TerritoryRecord
}

// Store 是全服共享的街区归属表。
//
// 锁约定：
//   - 单个街区的读写持有该街区 slot.mu；
//   - 住户迁移先取 resMu，再按目录顺序取涉及的街区锁；
//   - Update 的回调内不允许再调用 Store 的其他方法。
type Store struct {
	order []types.DistrictID
	slots map[types.DistrictID]*slot

	resMu     sync.Mutex
	residence map[types.PlayerID]types.DistrictID

	now     func() time.Time
	dirty   atomic.Bool
	version atomic.Uint64
}

// NewStore 以 Initialize 的全新初始状态建表，仅在没有持久化数据时使用。
func NewStore(ids []types.DistrictID) *Store {
	return Hydrate(ids, Initialize(ids))
}

// Hydrate 用持久化记录恢复：缺失的街区补默认，目录外的街区丢弃，
// 一个玩家出现在多个街区时只保留目录顺序中的第一个。
func Hydrate(ids []types.DistrictID, saved map[types.DistrictID]TerritoryRecord) *Store {
	s := &Store{
		order:     slices.Clone(ids),
		slots:     make(map[types.DistrictID]*slot, len(ids)),
		residence: make(map[types.PlayerID]types.DistrictID),
		now:       time.Now,
	}
	records := Initialize(ids)
	for id, rec := range saved {
		if _, ok := records[id]; ok {
			records[id] = rec
		}
	}
	for _, id := range ids {
		rec := records[id].Clone()
		rec.DistrictID = id
		if rec.Defense < 0 {
			rec.Defense = 0
		}
		if rec.TaxCollected < 0 {
			rec.TaxCollected = 0
		}
		kept := rec.Residents[:0]
		for _, p := range rec.Residents {
			if _, taken := s.residence[p]; taken || !p.Valid() {
				continue
			}
			s.residence[p] = id
			kept = append(kept, p)
		}
		rec.Residents = kept
		s.slots[id] = &slot{rec: rec}
	}
	return s
}

// SetClock 测试注入时钟。
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) IDs() []types.DistrictID {
	return slices.Clone(s.order)
}

func (s *Store) slot(id types.DistrictID) (*slot, error) {
	sl, ok := s.slots[id]
	if !ok {
		return nil, ErrDistrictNotFound.WithData("district", string(id))
	}
	return sl, nil
}

func (s *Store) touch() {
	s.version.Add(1)
	s.dirty.Store(true)
}

// SetOwner 更换归属并清零税收累计，不驱逐住户。owner 传 NoPlayer 表示放弃。
func (s *Store) SetOwner(id types.DistrictID, owner types.PlayerID) error {
	return s.Update(id, func(tx *Tx) error {
		tx.SetOwner(owner)
		return nil
	})
}

// RecordTax 给当前街区主人累计税收；无主或金额非正时不做任何事。
func (s *Store) RecordTax(id types.DistrictID, amount int64) error {
	return s.Update(id, func(tx *Tx) error {
		tx.RecordTax(amount)
		return nil
	})
}

// AddResident 幂等；会先把玩家从其他街区移出。
func (s *Store) AddResident(id types.DistrictID, p types.PlayerID) error {
	target, err := s.slot(id)
	if err != nil {
		return err
	}

	s.resMu.Lock()
	defer s.resMu.Unlock()

	prev, had := s.residence[p]
	if had && prev == id {
		target.mu.Lock()
		defer target.mu.Unlock()
		if !target.rec.HasResident(p) {
			target.rec.Residents = append(target.rec.Residents, p)
			s.touch()
		}
		return nil
	}

	var old *slot
	if had {
		old = s.slots[prev]
	}
	s.lockPair(old, prev, target, id)
	if old != nil {
		old.rec.Residents = removePlayer(old.rec.Residents, p)
		old.mu.Unlock()
	}
	if !target.rec.HasResident(p) {
		target.rec.Residents = append(target.rec.Residents, p)
	}
	target.mu.Unlock()

	s.residence[p] = id
	s.touch()
	return nil
}

// RemoveResident 幂等；玩家不在该街区时不做任何事。
func (s *Store) RemoveResident(id types.DistrictID, p types.PlayerID) error {
	sl, err := s.slot(id)
	if err != nil {
		return err
	}

	s.resMu.Lock()
	defer s.resMu.Unlock()

	sl.mu.Lock()
	defer sl.mu.Unlock()
	if !sl.rec.HasResident(p) {
		return nil
	}
	sl.rec.Residents = removePlayer(sl.rec.Residents, p)
	if s.residence[p] == id {
		delete(s.residence, p)
	}
	s.touch()
	return nil
}

// lockPair 按目录顺序锁两个街区，避免与其他迁移互相等待。
func (s *Store) lockPair(a *slot, aID types.DistrictID, b *slot, bID types.DistrictID) {
	if a == nil {
		b.mu.Lock()
		return
	}
	if s.indexOf(aID) < s.indexOf(bID) {
		a.mu.Lock()
		b.mu.Lock()
		return
	}
	b.mu.Lock()
	a.mu.Lock()
}

func (s *Store) indexOf(id types.DistrictID) int {
	return slices.Index(s.order, id)
}

// ResidenceOf 玩家当前居住的街区。
func (s *Store) ResidenceOf(p types.PlayerID) (types.DistrictID, bool) {
	s.resMu.Lock()
	defer s.resMu.Unlock()
	id, ok := s.residence[p]
	return id, ok
}

// Snapshot 单个街区的一致快照。
func (s *Store) Snapshot(id types.DistrictID) (TerritoryRecord, bool) {
	sl, ok := s.slots[id]
	if !ok {
		return TerritoryRecord{}, false
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.rec.Clone(), true
}

// Owner 读取街区主人；未知街区返回 false。
func (s *Store) Owner(id types.DistrictID) (types.PlayerID, bool) {
	sl, ok := s.slots[id]
	if !ok {
		return types.NoPlayer, false
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.rec.Owner, true
}

// SnapshotAll 按目录顺序返回所有街区快照；各街区分别加锁。
func (s *Store) SnapshotAll() []TerritoryRecord {
	out := make([]TerritoryRecord, 0, len(s.order))
	for _, id := range s.order {
		rec, _ := s.Snapshot(id)
		out = append(out, rec)
	}
	return out
}

// Records 以 map 形式导出，持久化时使用。
func (s *Store) Records() map[types.DistrictID]TerritoryRecord {
	out := make(map[types.DistrictID]TerritoryRecord, len(s.order))
	for _, rec := range s.SnapshotAll() {
		out[rec.DistrictID] = rec
	}
	return out
}

// OwnedBy 玩家拥有的街区，按目录顺序。
func (s *Store) OwnedBy(p types.PlayerID) []types.DistrictID {
	var out []types.DistrictID
	for _, rec := range s.SnapshotAll() {
		if rec.OwnedBy(p) {
			out = append(out, rec.DistrictID)
		}
	}
	return out
}

// Tx 是 Update 回调内对单个街区记录的受限操作集。
type Tx struct {
	rec     *TerritoryRecord
	now     time.Time
	changed bool
}

func (tx *Tx) Record() TerritoryRecord {
	return tx.rec.Clone()
}

func (tx *Tx) SetOwner(owner types.PlayerID) {
	if owner == tx.rec.Owner {
		return
	}
	tx.rec.Owner = owner
	tx.rec.TaxCollected = 0
	tx.rec.OwnedSince = ownedSince(tx.now, owner)
	tx.changed = true
}

func (tx *Tx) RecordTax(amount int64) {
	if amount <= 0 || !tx.rec.Claimed() {
		return
	}
	tx.rec.TaxCollected += amount
	tx.changed = true
}

func (tx *Tx) SetDefense(v int) {
	v = max(0, v)
	if v == tx.rec.Defense {
		return
	}
	tx.rec.Defense = v
	tx.changed = true
}

// Update 持有街区锁执行 fn：检查与修改在同一临界区内完成。
// fn 返回错误时，已做的修改仍然保留；调用方应先检查再修改。
func (s *Store) Update(id types.DistrictID, fn func(tx *Tx) error) error {
	sl, err := s.slot(id)
	if err != nil {
		return err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()

	tx := &Tx{rec: &sl.rec, now: s.now()}
	err = fn(tx)
	if tx.changed {
		s.touch()
	}
	return err
}

func (s *Store) Dirty() bool {
	return s.dirty.Load()
}

func (s *Store) ClearDirty() {
	s.dirty.Store(false)
}

// Version 每次修改自增，用于判断快照新旧。
func (s *Store) Version() uint64 {
	return s.version.Load()
}

func removePlayer(list []types.PlayerID, p types.PlayerID) []types.PlayerID {
	return slices.DeleteFunc(list, func(x types.PlayerID) bool { return x == p })
}

// IsNotFound 判断是否是街区不存在。
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDistrictNotFound)
}
