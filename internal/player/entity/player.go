package entity

import (
	"maps"
	"time"

	"Underworld/internal/shared/types"
)

type PlayerID = types.PlayerID

const (
	MaxEnergy           = 100
	EnergyRegenInterval = 3 * time.Minute

	ReputationMin = -100
	ReputationMax = 100

	DefaultCash     int64 = 5000
	DefaultGangSize       = 1
)

// SkillMaxima 每个技能分支的最高等级。
var SkillMaxima = map[string]int{
	"combat":     10,
	"business":   10,
	"stealth":    10,
	"leadership": 10,
}

// State 是玩家经济状态的可序列化形态，持久化与对外展示都用它。
type State struct {
	ID              PlayerID       `json:"id"`
	Name            string         `json:"name"`
	Level           int            `json:"level"`
	Cash            int64          `json:"cash"`
	DirtyCash       int64          `json:"dirtyCash"`
	Ammo            int            `json:"ammo"`
	Wanted          int            `json:"wanted"`
	GangSize        int            `json:"gangSize"`
	Energy          int            `json:"energy"`
	Reputation      map[string]int `json:"reputation"`
	Skills          map[string]int `json:"skills"`
	LastRelocation  int64          `json:"lastRelocation"`  // unix ms，0 表示从未搬过
	LastEnergyRegen int64          `json:"lastEnergyRegen"` // unix ms
	LastDailyTick   string         `json:"lastDailyTick"`   // 2006-01-02
}

func (s State) Clone() State {
	s.Reputation = maps.Clone(s.Reputation)
	s.Skills = maps.Clone(s.Skills)
	return s
}

// NewState 新玩家的初始状态。
func NewState(id PlayerID, name string, now time.Time) State {
	return State{
		ID:              id,
		Name:            name,
		Level:           1,
		Cash:            DefaultCash,
		GangSize:        DefaultGangSize,
		Energy:          MaxEnergy,
		Reputation:      map[string]int{},
		Skills:          map[string]int{},
		LastEnergyRegen: now.UnixMilli(),
	}
}

// Player 玩家实体，只在所属 actor 内部访问，不加锁。
type Player struct {
	s     State
	dirty bool
}

func NewPlayer(s State) *Player {
	s = s.Clone()
	if s.Reputation == nil {
		s.Reputation = map[string]int{}
	}
	if s.Skills == nil {
		s.Skills = map[string]int{}
	}
	return &Player{s: s}
}

func (p *Player) ID() PlayerID     { return p.s.ID }
func (p *Player) Name() string     { return p.s.Name }
func (p *Player) Level() int       { return p.s.Level }
func (p *Player) Cash() int64      { return p.s.Cash }
func (p *Player) DirtyCash() int64 { return p.s.DirtyCash }
func (p *Player) Ammo() int        { return p.s.Ammo }
func (p *Player) Wanted() int      { return p.s.Wanted }
func (p *Player) GangSize() int    { return p.s.GangSize }
func (p *Player) Energy() int      { return p.s.Energy }

func (p *Player) State() State {
	return p.s.Clone()
}

func (p *Player) SetLevel(level int) {
	if level < 1 || level == p.s.Level {
		return
	}
	p.s.Level = level
	p.dirty = true
}

func (p *Player) SetGangSize(n int) {
	if n < 0 || n == p.s.GangSize {
		return
	}
	p.s.GangSize = n
	p.dirty = true
}

// DebitCash 余额不足时返回 false 且不扣款。
func (p *Player) DebitCash(amount int64) bool {
	if amount < 0 || p.s.Cash < amount {
		return false
	}
	if amount == 0 {
		return true
	}
	p.s.Cash -= amount
	p.dirty = true
	return true
}

func (p *Player) CreditCash(amount int64) {
	if amount <= 0 {
		return
	}
	p.s.Cash += amount
	p.dirty = true
}

func (p *Player) CreditDirtyCash(amount int64) {
	if amount <= 0 {
		return
	}
	p.s.DirtyCash += amount
	p.dirty = true
}

func (p *Player) AddAmmo(n int) {
	if n <= 0 {
		return
	}
	p.s.Ammo += n
	p.dirty = true
}

// ReduceWanted 通缉等级下限为 0，返回实际减少量。
func (p *Player) ReduceWanted(n int) int {
	if n <= 0 || p.s.Wanted == 0 {
		return 0
	}
	cut := min(n, p.s.Wanted)
	p.s.Wanted -= cut
	p.dirty = true
	return cut
}

func (p *Player) RaiseWanted(n int) {
	if n <= 0 {
		return
	}
	p.s.Wanted += n
	p.dirty = true
}

// DebitEnergy 体力不足时返回 false 且不扣除。
func (p *Player) DebitEnergy(n int) bool {
	if n < 0 || p.s.Energy < n {
		return false
	}
	if n == 0 {
		return true
	}
	p.s.Energy -= n
	p.dirty = true
	return true
}

// RegenerateEnergy 每 EnergyRegenInterval 回复 1 点，上限 MaxEnergy。
// 满体力时计时起点跟着前移，避免满额后攒下的时间一次性兑现。
func (p *Player) RegenerateEnergy(now time.Time) int {
	last := time.UnixMilli(p.s.LastEnergyRegen)
	if p.s.LastEnergyRegen == 0 || now.Before(last) {
		p.s.LastEnergyRegen = now.UnixMilli()
		p.dirty = true
		return 0
	}
	ticks := int(now.Sub(last) / EnergyRegenInterval)
	if ticks == 0 {
		return 0
	}
	gained := 0
	if p.s.Energy < MaxEnergy {
		gained = min(ticks, MaxEnergy-p.s.Energy)
		p.s.Energy += gained
	}
	if p.s.Energy >= MaxEnergy {
		p.s.LastEnergyRegen = now.UnixMilli()
	} else {
		p.s.LastEnergyRegen = last.Add(time.Duration(ticks) * EnergyRegenInterval).UnixMilli()
	}
	p.dirty = true
	return gained
}

func (p *Player) LastRelocation() time.Time {
	if p.s.LastRelocation == 0 {
		return time.Time{}
	}
	return time.UnixMilli(p.s.LastRelocation)
}

func (p *Player) MarkRelocated(at time.Time) {
	p.s.LastRelocation = at.UnixMilli()
	p.dirty = true
}

// Reputation 原始声望值，可能超出合法区间（历史脏数据），由调用方校验。
func (p *Player) Reputation(faction string) (int, bool) {
	v, ok := p.s.Reputation[faction]
	return v, ok
}

// AdjustReputation 调整声望并钳在 [ReputationMin, ReputationMax]。
func (p *Player) AdjustReputation(faction string, delta int) int {
	v := p.s.Reputation[faction] + delta
	v = max(ReputationMin, min(ReputationMax, v))
	p.s.Reputation[faction] = v
	p.dirty = true
	return v
}

// TotalReputation 各派系声望之和，排行榜使用。
func (p *Player) TotalReputation() int {
	total := 0
	for _, v := range p.s.Reputation {
		total += v
	}
	return total
}

func (p *Player) Skill(branch string) int {
	return p.s.Skills[branch]
}

func checkSkill(branch string, level int) error {
	maxLevel, ok := SkillMaxima[branch]
	if !ok {
		return ErrUnknownSkill.WithData("branch", branch)
	}
	if level < 0 || level > maxLevel {
		return ErrSkillOutOfRange.WithDataMap(map[string]any{"branch": branch, "level": level, "max": maxLevel})
	}
	return nil
}

func (p *Player) SetSkill(branch string, level int) error {
	if err := checkSkill(branch, level); err != nil {
		return err
	}
	p.s.Skills[branch] = level
	p.dirty = true
	return nil
}

func (p *Player) DailyTickDone(day string) bool {
	return p.s.LastDailyTick == day
}

func (p *Player) MarkDailyTick(day string) {
	p.s.LastDailyTick = day
	p.dirty = true
}

func (p *Player) Dirty() bool {
	return p != nil && p.dirty
}

func (p *Player) ClearDirty() {
	if p != nil {
		p.dirty = false
	}
}

func (p *Player) BuildPersistSnapshot(version uint64) (*PlayerPersistSnapshot, bool) {
	if !p.Dirty() {
		return nil, false
	}
	return &PlayerPersistSnapshot{Version: version, State: p.State()}, true
}

// MarkCreated 新建玩家需要落库一次。
func (p *Player) MarkCreated() {
	p.dirty = true
}

func (p *Player) SetName(name string) {
	if name == "" || name == p.s.Name {
		return
	}
	p.s.Name = name
	p.dirty = true
}
