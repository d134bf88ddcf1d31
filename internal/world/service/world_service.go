package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"Underworld/internal/shared/actor/messages"
	"Underworld/internal/shared/types"
	territory "Underworld/internal/territory/entity"
	"Underworld/internal/world/entity"
	"Underworld/modules/kit/logx"
)

const (
	EventTTL        = 6 * time.Hour
	MaxEvents       = 50
	LeaderboardSize = 10
	// DefenseRegen 每个世界 tick 恢复的防御值，上限 DefaultDefense
	DefenseRegen = 5
	WarCrimeBump = 5
	MaxCrime     = 100
)

const (
	EventClaimed     = "territory_claimed"
	EventConquered   = "territory_conquered"
	EventDefenseHeld = "defense_held"
)

// Gateway 世界存档读写，由 dc.WorldDC 实现。
type Gateway interface {
	SaveWorldState(state entity.WorldState)
	FlushWorldState(ctx context.Context) error
}

// Publisher 新事件推送，websocket hub 实现。
type Publisher interface {
	Publish(e entity.WorldEvent)
}

type IDGen interface {
	NextID() int64
}

type nopPublisher struct{}

func (nopPublisher) Publish(entity.WorldEvent) {}

// WorldService 持有内存中的世界文档。非并发安全，只在世界 actor 内调用。
type WorldService struct {
	store *territory.Store
	gw    Gateway
	pub   Publisher
	ids   IDGen
	now   func() time.Time
	log   logx.Logger

	state     entity.WorldState
	standings map[types.PlayerID]messages.Standing
	lastTick  time.Time
}

type Option func(*WorldService)

func WithPublisher(p Publisher) Option {
	return func(s *WorldService) {
		if p != nil {
			s.pub = p
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *WorldService) { s.now = now }
}

func WithLogger(l logx.Logger) Option {
	return func(s *WorldService) { s.log = logx.OrNop(l) }
}

// NewWorldService state 为启动时 LoadWorldState 的结果，store 已按 state.Territories 恢复。
func NewWorldService(store *territory.Store, state entity.WorldState, gw Gateway, ids IDGen, opts ...Option) *WorldService {
	s := &WorldService{
		store:     store,
		gw:        gw,
		pub:       nopPublisher{},
		ids:       ids,
		now:       time.Now,
		log:       logx.Nop(),
		state:     state.Clone(),
		standings: make(map[types.PlayerID]messages.Standing),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, e := range s.state.Leaderboard {
		if e.PlayerID.Valid() {
			s.standings[e.PlayerID] = messages.Standing{Player: e.PlayerID, Name: e.Name, Reputation: e.Reputation}
		}
	}
	s.lastTick = s.now()
	s.syncControl()
	s.recomputeLeaderboard()
	return s
}

func (s *WorldService) OnClaimed(m messages.TerritoryClaimed) {
	s.remember(m.Owner)
	s.setController(m.District, m.Owner.Player)
	s.addEvent(EventClaimed, m.District, fmt.Sprintf("%s took control of %s.", m.Owner.Name, m.District))
	s.recomputeLeaderboard()
	s.persist()
}

func (s *WorldService) OnWar(m messages.WarWaged) {
	s.remember(m.Attacker)
	s.bumpCrime(m.District, WarCrimeBump)
	if m.AttackerWon {
		s.setController(m.District, m.Attacker.Player)
		s.addEvent(EventConquered, m.District,
			fmt.Sprintf("%s seized %s from %s.", m.Attacker.Name, m.District, s.nameOf(m.Defender)))
	} else {
		s.addEvent(EventDefenseHeld, m.District,
			fmt.Sprintf("%s held %s against %s.", s.nameOf(m.Defender), m.District, m.Attacker.Name))
	}
	s.recomputeLeaderboard()
	s.persist()
}

func (s *WorldService) OnRelocated(m messages.ResidentMoved) {
	s.remember(m.Resident)
	s.recomputeLeaderboard()
	s.persist()
}

// OnTaxRecorded 税收累计在领地记录里，只需要触发存档。
func (s *WorldService) OnTaxRecorded(m messages.TaxRecorded) {
	if m.Amount <= 0 {
		return
	}
	s.persist()
}

// Tick 推进事件剩余时长并恢复防御；有变化时存档。
func (s *WorldService) Tick(now time.Time) {
	elapsed := now.Sub(s.lastTick)
	if elapsed < 0 {
		elapsed = 0
	}
	s.lastTick = now

	changed := false
	kept := s.state.CityEvents[:0]
	for _, e := range s.state.CityEvents {
		if e.Advance(elapsed) {
			kept = append(kept, e)
			continue
		}
		changed = true
		s.log.Debug("world: event expired", zap.Int64("event_id", e.ID), zap.String("type", e.Type))
	}
	s.state.CityEvents = kept
	if elapsed > 0 && len(kept) > 0 {
		changed = true
	}

	for _, id := range s.store.IDs() {
		_ = s.store.Update(id, func(tx *territory.Tx) error {
			rec := tx.Record()
			if rec.Claimed() && rec.Defense < territory.DefaultDefense {
				tx.SetDefense(min(rec.Defense+DefenseRegen, territory.DefaultDefense))
			}
			return nil
		})
	}
	if s.store.Dirty() {
		s.syncControl()
		changed = true
	}
	if changed {
		s.persist()
	}
}

// State 当前世界文档副本，territories 取自领地表。
func (s *WorldService) State() entity.WorldState {
	out := s.state.Clone()
	out.Territories = s.store.Records()
	return out
}

// Flush 登记最新状态并同步落盘，停服时调用。
func (s *WorldService) Flush(ctx context.Context) error {
	s.persist()
	return s.gw.FlushWorldState(ctx)
}

func (s *WorldService) persist() {
	s.store.ClearDirty()
	s.gw.SaveWorldState(s.State())
}

func (s *WorldService) remember(st messages.Standing) {
	if !st.Player.Valid() {
		return
	}
	if st.Name == "" {
		st.Name = defaultName(st.Player)
	}
	s.standings[st.Player] = st
}

func (s *WorldService) nameOf(p types.PlayerID) string {
	if st, ok := s.standings[p]; ok && st.Name != "" {
		return st.Name
	}
	return defaultName(p)
}

func defaultName(p types.PlayerID) string {
	return fmt.Sprintf("player-%d", p)
}

func (s *WorldService) setController(id types.DistrictID, owner types.PlayerID) {
	d := s.state.CityDistricts[id]
	if owner.Valid() {
		name := s.nameOf(owner)
		d.ControlledBy = &name
	} else {
		d.ControlledBy = nil
	}
	s.state.CityDistricts[id] = d
}

// syncControl 以领地表为准校正 controlledBy。
func (s *WorldService) syncControl() {
	for _, rec := range s.store.SnapshotAll() {
		cur := s.state.CityDistricts[rec.DistrictID]
		switch {
		case !rec.Claimed() && cur.ControlledBy != nil:
			s.setController(rec.DistrictID, types.NoPlayer)
		case rec.Claimed() && (cur.ControlledBy == nil || *cur.ControlledBy != s.nameOf(rec.Owner)):
			s.setController(rec.DistrictID, rec.Owner)
		}
	}
}

func (s *WorldService) bumpCrime(id types.DistrictID, n int) {
	d, ok := s.state.CityDistricts[id]
	if !ok {
		return
	}
	d.CrimeLevel = min(d.CrimeLevel+n, MaxCrime)
	s.state.CityDistricts[id] = d
}

func (s *WorldService) addEvent(typ string, id types.DistrictID, desc string) {
	e := entity.WorldEvent{
		ID:          s.ids.NextID(),
		Type:        typ,
		District:    id,
		Description: desc,
		RemainingMS: EventTTL.Milliseconds(),
		CreatedAt:   s.now().UnixMilli(),
	}
	s.state.CityEvents = append(s.state.CityEvents, e)
	if n := len(s.state.CityEvents); n > MaxEvents {
		s.state.CityEvents = slices.Clone(s.state.CityEvents[n-MaxEvents:])
	}
	s.pub.Publish(e)
}

// recomputeLeaderboard 按地盘数、声望、名字排序，取前 LeaderboardSize 名。
func (s *WorldService) recomputeLeaderboard() {
	counts := make(map[types.PlayerID]int)
	for _, rec := range s.store.SnapshotAll() {
		if rec.Claimed() {
			counts[rec.Owner]++
		}
	}
	seen := make(map[types.PlayerID]bool, len(s.standings)+len(counts))
	board := make([]entity.LeaderboardEntry, 0, len(s.standings)+len(counts))
	add := func(p types.PlayerID) {
		if seen[p] {
			return
		}
		seen[p] = true
		board = append(board, entity.LeaderboardEntry{
			PlayerID:   p,
			Name:       s.nameOf(p),
			Reputation: s.standings[p].Reputation,
			Territory:  counts[p],
		})
	}
	for p := range s.standings {
		add(p)
	}
	for p := range counts {
		add(p)
	}
	slices.SortFunc(board, func(a, b entity.LeaderboardEntry) int {
		return cmp.Or(
			cmp.Compare(b.Territory, a.Territory),
			cmp.Compare(b.Reputation, a.Reputation),
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.PlayerID, b.PlayerID),
		)
	})
	if len(board) > LeaderboardSize {
		board = board[:LeaderboardSize]
	}
	s.state.Leaderboard = board
}
