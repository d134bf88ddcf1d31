package service

import (
	"time"

	"Underworld/internal/shared/types"
)

// Player 是规则引擎需要的玩家能力，玩家实体实现它。
// 调用方保证同一玩家的调用串行（由玩家 actor 保证）。
type Player interface {
	ID() types.PlayerID
	Name() string
	Level() int
	Cash() int64
	DebitCash(amount int64) bool
	CreditCash(amount int64)
	GangSize() int
	Energy() int
	DebitEnergy(n int) bool
	LastRelocation() time.Time
	MarkRelocated(at time.Time)
	TotalReputation() int
}

// Listener 接收领地变更通知，世界服务据此记事件、更新排行榜并触发存档。
type Listener interface {
	OnClaimed(district types.DistrictID, owner Player)
	OnWar(district types.DistrictID, attacker Player, defender types.PlayerID, result WarResult)
	OnRelocated(district types.DistrictID, p Player)
	OnTaxCollected(district types.DistrictID, owner types.PlayerID, amount int64)
}

// NopListener 不关心通知时使用。
type NopListener struct{}

func (NopListener) OnClaimed(types.DistrictID, Player)                        {}
func (NopListener) OnWar(types.DistrictID, Player, types.PlayerID, WarResult) {}
func (NopListener) OnRelocated(types.DistrictID, Player)                      {}
func (NopListener) OnTaxCollected(types.DistrictID, types.PlayerID, int64)    {}

// Listeners 按顺序转发给多个监听者。
type Listeners []Listener

func (ls Listeners) OnClaimed(d types.DistrictID, owner Player) {
	for _, l := range ls {
		l.OnClaimed(d, owner)
	}
}

func (ls Listeners) OnWar(d types.DistrictID, attacker Player, defender types.PlayerID, result WarResult) {
	for _, l := range ls {
		l.OnWar(d, attacker, defender, result)
	}
}

func (ls Listeners) OnRelocated(d types.DistrictID, p Player) {
	for _, l := range ls {
		l.OnRelocated(d, p)
	}
}

func (ls Listeners) OnTaxCollected(d types.DistrictID, owner types.PlayerID, amount int64) {
	for _, l := range ls {
		l.OnTaxCollected(d, owner, amount)
	}
}
