package service

import (
	"context"
	"time"

	"Underworld/internal/shared/gameconfig/district"
	"Underworld/internal/shared/types"
	"Underworld/internal/territory/entity"
)

type fakePlayer struct {
	id         types.PlayerID
	level      int
	cash       int64
	gang       int
	energy     int
	relocated  time.Time
	reputation int
}

func (p *fakePlayer) ID() types.PlayerID { return p.id }
func (p *fakePlayer) Name() string       { return "p" + p.id.String() }
func (p *fakePlayer) Level() int         { return p.level }
func (p *fakePlayer) Cash() int64        { return p.cash }
func (p *fakePlayer) DebitCash(n int64) bool {
	if p.cash < n {
		return false
	}
	p.cash -= n
	return true
}
func (p *fakePlayer) CreditCash(n int64) { p.cash += n }
func (p *fakePlayer) GangSize() int      { return p.gang }
func (p *fakePlayer) Energy() int        { return p.energy }
func (p *fakePlayer) DebitEnergy(n int) bool {
	if p.energy < n {
		return false
	}
	p.energy -= n
	return true
}
func (p *fakePlayer) LastRelocation() time.Time  { return p.relocated }
func (p *fakePlayer) MarkRelocated(at time.Time) { p.relocated = at }
func (p *fakePlayer) TotalReputation() int       { return p.reputation }

func rich(id types.PlayerID) *fakePlayer {
	return &fakePlayer{id: id, level: 20, cash: 10_000_000, gang: 10, energy: 100}
}

// fixedCombat 固定胜负的战斗结算。
func fixedCombat(win bool, penalty int) CombatFunc {
	return func(context.Context, WarContext) WarResult {
		return WarResult{AttackerWon: win, DefensePenalty: penalty}
	}
}

type recListener struct {
	NopListener
	claims, wars, moves int
}

func (l *recListener) OnClaimed(types.DistrictID, Player) { l.claims++ }
func (l *recListener) OnWar(types.DistrictID, Player, types.PlayerID, WarResult) {
	l.wars++
}
func (l *recListener) OnRelocated(types.DistrictID, Player) { l.moves++ }

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newFixture(opts ...Option) (*Resolver, *entity.Store, *district.Registry) {
	reg := district.Default()
	store := entity.NewStore(reg.IDs())
	return NewResolver(reg, store, opts...), store, reg
}
